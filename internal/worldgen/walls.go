package worldgen

import (
	"github.com/annel0/dungeon-forge/internal/vec"
	"github.com/annel0/dungeon-forge/internal/world"
)

// synthesizeWalls окружает каждый тайл пола стенами по всем восьми
// соседним клеткам, не занятым тайлами. Возвращает число записанных стен.
//
// Двухфазная схема обязательна: фаза сканирования только собирает
// позиции, фаза записи выполняется после полного обхода. Запись стен
// во время обхода меняла бы множество соседей, по которому идёт
// итерация. Дубликаты позиций схлопываются идемпотентной перезаписью.
func synthesizeWalls(grid *world.Grid, floor, wall world.MaterialHandle) int {
	var wallsToInsert []vec.Vec2
	grid.ForEachTile(func(tile *world.Tile) {
		if tile.Material != floor {
			return
		}
		for _, nb := range grid.MooreNeighbours(tile.Position) {
			if nb.Tile == nil {
				wallsToInsert = append(wallsToInsert, nb.Position)
			}
		}
	})

	placed := 0
	for _, pos := range wallsToInsert {
		if displaced := grid.PlaceTile(pos, wall); displaced == nil {
			placed++
		}
	}

	genMetrics.wallTiles.Add(float64(placed))
	return placed
}
