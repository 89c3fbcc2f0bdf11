package world

import "github.com/annel0/dungeon-forge/internal/vec"

// Tile представляет один тайл сетки: позиция, материал и
// опциональный занимающий его актор. Тайлы создаются и мутируются
// только сеткой.
type Tile struct {
	Position vec.Vec2
	Material MaterialHandle
	Occupier *Actor
}

// IsOccupied возвращает true, если на тайле стоит актор
func (t *Tile) IsOccupied() bool {
	return t.Occupier != nil
}

// Flags возвращает флаги материала тайла
func (t *Tile) Flags() MaterialFlags {
	return t.Material.Flags
}

// Neighbour — позиция соседней клетки и тайл на ней (nil, если клетка пуста)
type Neighbour struct {
	Position vec.Vec2
	Tile     *Tile
}

// Grid — разреженное хранилище тайлов мира. Клетки без тайла
// не занимают памяти; Size носит справочный характер.
type Grid struct {
	Size  vec.Vec2
	tiles map[vec.Vec2]*Tile
}

// NewGrid создаёт пустую сетку указанного размера
func NewGrid(width, height int) *Grid {
	return &Grid{
		Size:  vec.Vec2{X: width, Y: height},
		tiles: make(map[vec.Vec2]*Tile, width*height),
	}
}

// normalizeAABB упорядочивает углы прямоугольника так, чтобы
// min-угол был покомпонентно не больше max-угла
func normalizeAABB(a, b vec.Vec2) (vec.Vec2, vec.Vec2) {
	if b.X < a.X {
		a.X, b.X = b.X, a.X
	}
	if b.Y < a.Y {
		a.Y, b.Y = b.Y, a.Y
	}
	return a, b
}

// TileAt возвращает тайл на позиции или nil, если клетка пуста
func (g *Grid) TileAt(pos vec.Vec2) *Tile {
	return g.tiles[pos]
}

// TileCount возвращает количество размещённых тайлов
func (g *Grid) TileCount() int {
	return len(g.tiles)
}

// PlaceTile записывает тайл указанного материала на позицию.
// Возвращает вытесненный тайл, если клетка была занята, иначе nil.
func (g *Grid) PlaceTile(pos vec.Vec2, material MaterialHandle) *Tile {
	displaced := g.tiles[pos]
	g.tiles[pos] = &Tile{
		Position: pos,
		Material: material,
	}
	return displaced
}

// FillBox заполняет материалом прямоугольник [from, to).
// Max-угол исключается; углы упорядочиваются автоматически.
func (g *Grid) FillBox(from, to vec.Vec2, fill MaterialHandle) {
	from, to = normalizeAABB(from, to)

	for y := from.Y; y < to.Y; y++ {
		for x := from.X; x < to.X; x++ {
			g.PlaceTile(vec.Vec2{X: x, Y: y}, fill)
		}
	}
}

// FillBorderedBox заполняет прямоугольник [from, to) материалом fill
// и окружает его рамкой из материала border толщиной в один тайл
func (g *Grid) FillBorderedBox(from, to vec.Vec2, fill, border MaterialHandle) {
	from, to = normalizeAABB(from, to)

	g.FillBox(from, to, fill)

	for y := from.Y - 1; y <= to.Y; y++ {
		g.PlaceTile(vec.Vec2{X: from.X - 1, Y: y}, border)
		g.PlaceTile(vec.Vec2{X: to.X, Y: y}, border)
	}
	for x := from.X; x < to.X; x++ {
		g.PlaceTile(vec.Vec2{X: x, Y: from.Y - 1}, border)
		g.PlaceTile(vec.Vec2{X: x, Y: to.Y}, border)
	}
}

// NeumannNeighbours возвращает 4 ортогональных соседа позиции
func (g *Grid) NeumannNeighbours(at vec.Vec2) [4]Neighbour {
	offsets := [4]vec.Vec2{
		{X: 0, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: -1}, {X: -1, Y: 0},
	}

	var result [4]Neighbour
	for i, off := range offsets {
		pos := at.Add(off)
		result[i] = Neighbour{Position: pos, Tile: g.tiles[pos]}
	}
	return result
}

// MooreNeighbours возвращает 8 соседей позиции, включая диагональных
func (g *Grid) MooreNeighbours(at vec.Vec2) [8]Neighbour {
	offsets := [8]vec.Vec2{
		{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 1, Y: -1},
		{X: 0, Y: -1}, {X: -1, Y: -1}, {X: -1, Y: 0}, {X: -1, Y: 1},
	}

	var result [8]Neighbour
	for i, off := range offsets {
		pos := at.Add(off)
		result[i] = Neighbour{Position: pos, Tile: g.tiles[pos]}
	}
	return result
}

// ForEachTile вызывает fn для каждого размещённого тайла.
// Порядок обхода не определён; fn не должна добавлять или удалять тайлы.
func (g *Grid) ForEachTile(fn func(*Tile)) {
	for _, tile := range g.tiles {
		fn(tile)
	}
}

// PutActor ставит актора на тайл. Возвращает false, если на позиции
// нет тайла. Прежний занимающий, если был, вытесняется.
func (g *Grid) PutActor(pos vec.Vec2, actor *Actor) bool {
	tile := g.tiles[pos]
	if tile == nil {
		return false
	}

	actor.position = pos
	tile.Occupier = actor
	return true
}

// MoveActor переносит актора с одного тайла на другой, обновляя его
// кэшированную позицию. Возвращает вытесненного с целевого тайла
// актора (nil, если целевой тайл был свободен) и признак успеха.
// Перенос не выполняется, если исходная клетка пуста или не занята,
// либо целевая клетка не содержит тайла.
func (g *Grid) MoveActor(from, to vec.Vec2) (*Actor, bool) {
	src := g.tiles[from]
	if src == nil || src.Occupier == nil {
		return nil, false
	}
	dst := g.tiles[to]
	if dst == nil {
		return nil, false
	}

	actor := src.Occupier
	src.Occupier = nil

	displaced := dst.Occupier
	dst.Occupier = actor
	actor.position = to

	return displaced, true
}
