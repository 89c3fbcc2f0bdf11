package worldgen

import (
	"github.com/prometheus/client_golang/prometheus"
)

// generationMetrics содержит метрики подсистемы генерации.
//
// Метрики:
// * worldgen_sculpt_duration_seconds{sculptor} — histogram
// * worldgen_rooms_placed_total — counter
// * worldgen_placement_trials_total — counter (включая отклонённые)
// * worldgen_corridor_segments_total — counter
// * worldgen_wall_tiles_total — counter
// * worldgen_failures_total{reason} — counter
type generationMetrics struct {
	sculptDuration  *prometheus.HistogramVec
	roomsPlaced     prometheus.Counter
	placementTrials prometheus.Counter
	corridorSegs    prometheus.Counter
	wallTiles       prometheus.Counter
	failures        *prometheus.CounterVec
}

// Единственный экземпляр на процесс: регистрация в дефолтном регистре
// выполняется один раз при инициализации пакета.
var genMetrics = newGenerationMetrics()

func newGenerationMetrics() *generationMetrics {
	gm := &generationMetrics{
		sculptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "worldgen",
			Name:      "sculpt_duration_seconds",
			Help:      "Длительность одного вызова Sculpt.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"sculptor"}),
		roomsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "worldgen",
			Name:      "rooms_placed_total",
			Help:      "Общее число принятых комнат.",
		}),
		placementTrials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "worldgen",
			Name:      "placement_trials_total",
			Help:      "Общее число попыток размещения комнат, включая отклонённые.",
		}),
		corridorSegs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "worldgen",
			Name:      "corridor_segments_total",
			Help:      "Общее число высеченных сегментов коридоров.",
		}),
		wallTiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "worldgen",
			Name:      "wall_tiles_total",
			Help:      "Общее число размещённых тайлов стен.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "worldgen",
			Name:      "failures_total",
			Help:      "Общее число неудачных вызовов Sculpt.",
		}, []string{"reason"}),
	}

	prometheus.MustRegister(
		gm.sculptDuration,
		gm.roomsPlaced,
		gm.placementTrials,
		gm.corridorSegs,
		gm.wallTiles,
		gm.failures,
	)
	return gm
}
