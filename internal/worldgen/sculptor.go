package worldgen

import (
	"context"
	"errors"

	"github.com/annel0/dungeon-forge/internal/vec"
	"github.com/annel0/dungeon-forge/internal/world"
)

// Ошибки генерации. Проверяются через errors.Is.
var (
	// ErrInvalidConfig — некорректная конфигурация скульптора
	// (неположительное число комнат, min > max и т.п.)
	ErrInvalidConfig = errors.New("worldgen: некорректная конфигурация скульптора")

	// ErrUnsatisfiable — размещение комнат невозможно в заданной
	// области за отведённое число попыток
	ErrUnsatisfiable = errors.New("worldgen: размещение комнат невыполнимо в заданной области")
)

// Sculptor — одноразовый генератор, высекающий уровень на сетке.
// Вызов Sculpt синхронный и однопоточный; на время вызова сетка
// принадлежит скульптору целиком.
type Sculptor interface {
	Sculpt(ctx context.Context, from, to vec.Vec2, grid *world.Grid) error
}
