package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/dungeon-forge/internal/config"
	"github.com/annel0/dungeon-forge/internal/logging"
	"github.com/annel0/dungeon-forge/internal/observability"
	"github.com/annel0/dungeon-forge/internal/vec"
	"github.com/annel0/dungeon-forge/internal/world"
	"github.com/annel0/dungeon-forge/internal/worldgen"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации")
	seedFlag := flag.Int64("seed", 0, "сид генерации (перекрывает конфигурацию)")
	kindFlag := flag.String("kind", "", "скульптор: dungeon или caves (перекрывает конфигурацию)")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("sculptor"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("❌ Ошибка загрузки конфигурации: %v", err)
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if *seedFlag != 0 {
		cfg.Generator.Seed = *seedFlag
	}
	if *kindFlag != "" {
		cfg.Generator.Kind = *kindFlag
	}
	if cfg.Generator.Seed == 0 {
		cfg.Generator.Seed = time.Now().UnixNano()
	}

	runID := uuid.New()
	logging.Info("⛏️ Запуск скульптора: run=%s, kind=%s, seed=%d, сетка %dx%d",
		runID, cfg.Generator.Kind, cfg.Generator.Seed, cfg.World.Width, cfg.World.Height)

	ctx := context.Background()

	// Трассировка стадий генерации (опционально)
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, "dungeon-forge")
		if err != nil {
			logging.Error("Ошибка инициализации телеметрии: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Error("Ошибка остановки телеметрии: %v", err)
				}
			}()
		}
	}

	// Prometheus-эндпоинт (опционально)
	if cfg.Metrics.Enabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Metrics.GetPort())
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logging.Info("📊 Prometheus метрики на %s/metrics", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logging.Error("Ошибка сервера метрик: %v", err)
			}
		}()
	}

	sculptor, err := buildSculptor(cfg)
	if err != nil {
		logging.Error("❌ Ошибка создания скульптора: %v", err)
		log.Fatalf("❌ Ошибка создания скульптора: %v", err)
	}

	grid := world.NewGrid(cfg.World.Width, cfg.World.Height)
	from := vec.Vec2{X: 0, Y: 0}
	to := vec.Vec2{X: cfg.World.Width, Y: cfg.World.Height}

	start := time.Now()
	if err := sculptor.Sculpt(ctx, from, to, grid); err != nil {
		logging.Error("❌ Генерация не удалась: %v", err)
		log.Fatalf("❌ Генерация не удалась: %v", err)
	}

	logging.Info("✅ Генерация завершена: run=%s, %d тайлов за %v", runID, grid.TileCount(), time.Since(start))

	// С включёнными метриками остаёмся в живых до сигнала,
	// чтобы Prometheus успел собрать значения
	if cfg.Metrics.Enabled {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		logging.Info("Ожидание сигнала завершения (Ctrl+C)...")
		<-sigChan
		logging.Info("Завершение работы")
	}
}

// buildSculptor создаёт скульптор по виду из конфигурации
func buildSculptor(cfg *config.Config) (worldgen.Sculptor, error) {
	floor := world.NewMaterial("Floor", "tile_floor", world.FlagPassthrough)
	wall := world.NewMaterial("Wall", "tile_wall", world.FlagSolid)

	switch cfg.Generator.Kind {
	case "dungeon", "":
		return worldgen.NewDungeonSculptor(worldgen.DungeonConfig{
			RoomAmount:  cfg.Generator.RoomAmount,
			MinRoomSize: vec.Vec2{X: cfg.Generator.MinRoomSize.Width, Y: cfg.Generator.MinRoomSize.Height},
			MaxRoomSize: vec.Vec2{X: cfg.Generator.MaxRoomSize.Width, Y: cfg.Generator.MaxRoomSize.Height},
			MaxTrials:   cfg.Generator.MaxTrials,
			Floor:       floor,
			Wall:        wall,
			Seed:        cfg.Generator.Seed,
		})
	case "caves":
		return worldgen.NewCaveSculptor(worldgen.CaveConfig{
			Threshold:    cfg.Generator.CaveThreshold,
			NoiseScale:   cfg.Generator.CaveNoiseScale,
			SmoothPasses: cfg.Generator.CaveSmoothPasses,
			Floor:        floor,
			Wall:         wall,
			Seed:         cfg.Generator.Seed,
		})
	default:
		return nil, fmt.Errorf("неизвестный вид скульптора: %q", cfg.Generator.Kind)
	}
}
