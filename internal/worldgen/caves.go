package worldgen

import (
	"context"
	"fmt"
	"time"

	"github.com/aquilax/go-perlin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/annel0/dungeon-forge/internal/logging"
	"github.com/annel0/dungeon-forge/internal/vec"
	"github.com/annel0/dungeon-forge/internal/world"
)

// Параметры шума Перлина: сглаживание, частота, число октав
const (
	caveNoiseAlpha   = 2.0
	caveNoiseBeta    = 2.0
	caveNoiseOctaves = int32(3)
)

// CaveConfig задаёт параметры генерации пещер
type CaveConfig struct {
	Threshold    float64 // порог открытости клетки, (0, 1)
	NoiseScale   float64 // масштаб шума; 0 — значение по умолчанию
	SmoothPasses int     // число сглаживающих проходов клеточного автомата

	Floor world.MaterialHandle
	Wall  world.MaterialHandle

	Seed int64
}

// CaveSculptor высекает пещеры: клетка открывается там, где шум
// Перлина превышает порог, результат сглаживается клеточным
// автоматом, после чего вокруг пола синтезируются стены той же
// двухфазной схемой, что и у подземелий.
type CaveSculptor struct {
	cfg   CaveConfig
	noise *perlin.Perlin
}

// NewCaveSculptor проверяет конфигурацию и создаёт скульптор пещер
func NewCaveSculptor(cfg CaveConfig) (*CaveSculptor, error) {
	if cfg.Threshold <= 0 || cfg.Threshold >= 1 {
		return nil, fmt.Errorf("%w: порог открытости %.3f вне (0, 1)", ErrInvalidConfig, cfg.Threshold)
	}
	if cfg.SmoothPasses < 0 {
		return nil, fmt.Errorf("%w: отрицательное число проходов сглаживания %d", ErrInvalidConfig, cfg.SmoothPasses)
	}
	if cfg.Floor == nil || cfg.Wall == nil {
		return nil, fmt.Errorf("%w: материалы пола и стен обязательны", ErrInvalidConfig)
	}
	if cfg.NoiseScale == 0 {
		cfg.NoiseScale = 0.1
	}

	return &CaveSculptor{
		cfg:   cfg,
		noise: perlin.NewPerlin(caveNoiseAlpha, caveNoiseBeta, caveNoiseOctaves, cfg.Seed),
	}, nil
}

// Sculpt высекает пещеру в области [from, to)
func (s *CaveSculptor) Sculpt(ctx context.Context, from, to vec.Vec2, grid *world.Grid) error {
	ctx, span := tracer.Start(ctx, "CaveSculptor.Sculpt")
	defer span.End()
	start := time.Now()

	if to.X <= from.X || to.Y <= from.Y {
		genMetrics.failures.WithLabelValues("invalid_area").Inc()
		return fmt.Errorf("%w: пустая целевая область %v..%v", ErrInvalidConfig, from, to)
	}

	width := to.X - from.X
	height := to.Y - from.Y

	// Поле открытости считается целиком в памяти и только потом
	// растеризуется: сглаживание читает соседей предыдущего поколения.
	_, noiseSpan := tracer.Start(ctx, "worldgen.noise_field")
	open := make([][]bool, height)
	for y := range open {
		open[y] = make([]bool, width)
		for x := range open[y] {
			nx := float64(from.X+x) * s.cfg.NoiseScale
			ny := float64(from.Y+y) * s.cfg.NoiseScale
			// Noise2D возвращает значение из [-1, 1], приводим к [0, 1]
			value := (s.noise.Noise2D(nx, ny) + 1.0) / 2.0
			open[y][x] = value > s.cfg.Threshold
		}
	}
	noiseSpan.End()

	for pass := 0; pass < s.cfg.SmoothPasses; pass++ {
		open = smoothField(open)
	}

	_, paintSpan := tracer.Start(ctx, "worldgen.painting")
	floorTiles := 0
	for y := range open {
		for x := range open[y] {
			if !open[y][x] {
				continue
			}
			grid.PlaceTile(vec.Vec2{X: from.X + x, Y: from.Y + y}, s.cfg.Floor)
			floorTiles++
		}
	}
	paintSpan.End()

	_, wallSpan := tracer.Start(ctx, "worldgen.walls")
	walls := synthesizeWalls(grid, s.cfg.Floor, s.cfg.Wall)
	wallSpan.End()

	genMetrics.sculptDuration.WithLabelValues("caves").Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("floor_tiles", floorTiles),
		attribute.Int("wall_tiles", walls),
	)
	logging.Debug("Пещера готова: %d тайлов пола, %d стен за %v", floorTiles, walls, time.Since(start))

	return nil
}

// smoothField выполняет один проход клеточного автомата: клетка
// остаётся открытой, если открыта она сама и минимум четыре из
// восьми её соседей, либо открываются пять и более соседей
func smoothField(open [][]bool) [][]bool {
	height := len(open)
	width := 0
	if height > 0 {
		width = len(open[0])
	}

	next := make([][]bool, height)
	for y := range next {
		next[y] = make([]bool, width)
		for x := range next[y] {
			neighbours := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					if open[ny][nx] {
						neighbours++
					}
				}
			}

			if open[y][x] {
				next[y][x] = neighbours >= 4
			} else {
				next[y][x] = neighbours >= 5
			}
		}
	}
	return next
}
