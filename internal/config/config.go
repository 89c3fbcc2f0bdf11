package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Generator GeneratorConfig `yaml:"generator"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// WorldConfig задаёт размеры целевой сетки
type WorldConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// SizeConfig — размер комнаты в тайлах
type SizeConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// GeneratorConfig задаёт параметры скульптора
type GeneratorConfig struct {
	Kind string `yaml:"kind"` // dungeon | caves
	Seed int64  `yaml:"seed"` // 0 — случайный сид

	// Параметры подземелья
	RoomAmount  int        `yaml:"room_amount"`
	MinRoomSize SizeConfig `yaml:"min_room_size"`
	MaxRoomSize SizeConfig `yaml:"max_room_size"`
	MaxTrials   int        `yaml:"max_trials"`

	// Параметры пещер
	CaveThreshold    float64 `yaml:"cave_threshold"`
	CaveNoiseScale   float64 `yaml:"cave_noise_scale"`
	CaveSmoothPasses int     `yaml:"cave_smooth_passes"`
}

// MetricsConfig управляет Prometheus-эндпоинтом
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// GetPort возвращает порт метрик с приоритетом: config -> env -> default
func (m *MetricsConfig) GetPort() int {
	if m.Port > 0 {
		return m.Port
	}
	if envVal := os.Getenv("SCULPTOR_METRICS_PORT"); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}
	return 2112
}

// TelemetryConfig управляет OTLP-трассировкой
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default возвращает конфигурацию по умолчанию: подземелье на 8 комнат
// в сетке 64x64
func Default() *Config {
	return &Config{
		World: WorldConfig{Width: 64, Height: 64},
		Generator: GeneratorConfig{
			Kind:             "dungeon",
			RoomAmount:       8,
			MinRoomSize:      SizeConfig{Width: 3, Height: 3},
			MaxRoomSize:      SizeConfig{Width: 8, Height: 8},
			CaveThreshold:    0.55,
			CaveNoiseScale:   0.1,
			CaveSmoothPasses: 2,
		},
	}
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV SCULPTOR_CONFIG или
// возвращает nil, nil — использовать дефолты.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SCULPTOR_CONFIG")
		if path == "" {
			return nil, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
	}

	return cfg, nil
}
