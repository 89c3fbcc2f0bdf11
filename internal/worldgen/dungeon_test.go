package worldgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/annel0/dungeon-forge/internal/vec"
	"github.com/annel0/dungeon-forge/internal/world"
)

func testMaterials() (world.MaterialHandle, world.MaterialHandle) {
	floor := world.NewMaterial("Floor", "tile_floor", world.FlagPassthrough)
	wall := world.NewMaterial("Wall", "tile_wall", world.FlagSolid)
	return floor, wall
}

func testDungeonConfig(rooms int, seed int64) DungeonConfig {
	floor, wall := testMaterials()
	return DungeonConfig{
		RoomAmount:  rooms,
		MinRoomSize: vec.Vec2{X: 3, Y: 3},
		MaxRoomSize: vec.Vec2{X: 6, Y: 6},
		Floor:       floor,
		Wall:        wall,
		Seed:        seed,
	}
}

// snapshot собирает состояние сетки в сравнимую карту позиция -> материал
func snapshot(g *world.Grid) map[vec.Vec2]string {
	tiles := make(map[vec.Vec2]string)
	g.ForEachTile(func(t *world.Tile) {
		tiles[t.Position] = t.Material.ResourceName
	})
	return tiles
}

func TestNewDungeonSculptor_Validation(t *testing.T) {
	floor, wall := testMaterials()

	cfg := testDungeonConfig(0, 1)
	_, err := NewDungeonSculptor(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig, "Неположительное число комнат должно отклоняться")

	cfg = testDungeonConfig(3, 1)
	cfg.MinRoomSize = vec.Vec2{X: 7, Y: 7}
	_, err = NewDungeonSculptor(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig, "min > max должно отклоняться на входе")

	cfg = testDungeonConfig(3, 1)
	cfg.MinRoomSize = vec.Vec2{X: 0, Y: 3}
	_, err = NewDungeonSculptor(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig, "Комната меньше 1x1 должна отклоняться")

	cfg = DungeonConfig{RoomAmount: 3, MinRoomSize: vec.Vec2{X: 3, Y: 3}, MaxRoomSize: vec.Vec2{X: 6, Y: 6}}
	_, err = NewDungeonSculptor(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig, "Отсутствующие материалы должны отклоняться")

	cfg = testDungeonConfig(3, 1)
	cfg.Floor = floor
	cfg.Wall = wall
	s, err := NewDungeonSculptor(cfg)
	require.NoError(t, err, "Корректная конфигурация должна приниматься")
	assert.Equal(t, defaultMaxTrials, s.cfg.MaxTrials, "Нулевой предел попыток заменяется значением по умолчанию")
}

func TestPlaceRooms_CountAndNoOverlap(t *testing.T) {
	s, err := NewDungeonSculptor(testDungeonConfig(6, 42))
	require.NoError(t, err)

	from := vec.Vec2{X: 0, Y: 0}
	to := vec.Vec2{X: 40, Y: 40}
	rooms, err := s.placeRooms(from, to)
	require.NoError(t, err, "Шесть комнат должны разместиться в области 40x40")
	require.Len(t, rooms, 6, "Должно быть принято ровно запрошенное число комнат")

	for i, room := range rooms {
		assert.GreaterOrEqual(t, room.Min.X, from.X, "Комната %d выходит за левую границу", i)
		assert.GreaterOrEqual(t, room.Min.Y, from.Y, "Комната %d выходит за верхнюю границу", i)
		assert.LessOrEqual(t, room.Max.X, to.X, "Комната %d выходит за правую границу", i)
		assert.LessOrEqual(t, room.Max.Y, to.Y, "Комната %d выходит за нижнюю границу", i)
		assert.GreaterOrEqual(t, room.Width(), 3, "Ширина комнаты %d меньше минимальной", i)
		assert.Less(t, room.Width(), 6, "Ширина комнаты %d не меньше максимальной", i)

		for j := i + 1; j < len(rooms); j++ {
			assert.False(t, room.Overlaps(rooms[j]), "Комнаты %d и %d пересекаются", i, j)
		}
	}
}

func TestPlaceRooms_Unsatisfiable(t *testing.T) {
	cfg := testDungeonConfig(1, 7)
	cfg.MinRoomSize = vec.Vec2{X: 10, Y: 10}
	cfg.MaxRoomSize = vec.Vec2{X: 12, Y: 12}
	cfg.MaxTrials = 100
	s, err := NewDungeonSculptor(cfg)
	require.NoError(t, err)

	_, err = s.placeRooms(vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 5, Y: 5})
	assert.ErrorIs(t, err, ErrUnsatisfiable, "Комната больше области должна давать структурную ошибку, а не зависание")
}

func TestSculpt_GridUntouchedOnFailure(t *testing.T) {
	cfg := testDungeonConfig(1, 7)
	cfg.MinRoomSize = vec.Vec2{X: 10, Y: 10}
	cfg.MaxRoomSize = vec.Vec2{X: 12, Y: 12}
	cfg.MaxTrials = 100
	s, err := NewDungeonSculptor(cfg)
	require.NoError(t, err)

	grid := world.NewGrid(5, 5)
	err = s.Sculpt(context.Background(), vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 5, Y: 5}, grid)
	assert.ErrorIs(t, err, ErrUnsatisfiable)
	assert.Equal(t, 0, grid.TileCount(), "Неудачное размещение не должно трогать сетку")
}

func TestBuildEdges_Degenerate(t *testing.T) {
	assert.Nil(t, buildEdges(nil), "Без комнат рёбер нет")
	assert.Nil(t, buildEdges([]Rect{{Min: vec.Vec2{}, Max: vec.Vec2{X: 3, Y: 3}}}), "Одна комната — рёбер нет")

	two := []Rect{
		{Min: vec.Vec2{X: 0, Y: 0}, Max: vec.Vec2{X: 2, Y: 2}},
		{Min: vec.Vec2{X: 10, Y: 0}, Max: vec.Vec2{X: 12, Y: 2}},
	}
	edges := buildEdges(two)
	require.Len(t, edges, 1, "Две комнаты соединяются единственным ребром")
	assert.Equal(t, edge{a: 0, b: 1, weight: 100}, edges[0], "Вес равен квадрату расстояния между центрами")
}

func TestBuildEdges_CollinearFallback(t *testing.T) {
	rooms := []Rect{
		{Min: vec.Vec2{X: 0, Y: 0}, Max: vec.Vec2{X: 2, Y: 2}},
		{Min: vec.Vec2{X: 10, Y: 0}, Max: vec.Vec2{X: 12, Y: 2}},
		{Min: vec.Vec2{X: 20, Y: 0}, Max: vec.Vec2{X: 22, Y: 2}},
	}
	edges := buildEdges(rooms)
	assert.Len(t, edges, 3, "Коллинеарные центры должны давать полный граф")
}

func TestBuildEdges_SquareTriangulation(t *testing.T) {
	rooms := []Rect{
		{Min: vec.Vec2{X: 0, Y: 0}, Max: vec.Vec2{X: 2, Y: 2}},
		{Min: vec.Vec2{X: 20, Y: 0}, Max: vec.Vec2{X: 22, Y: 2}},
		{Min: vec.Vec2{X: 0, Y: 20}, Max: vec.Vec2{X: 2, Y: 22}},
		{Min: vec.Vec2{X: 20, Y: 20}, Max: vec.Vec2{X: 22, Y: 22}},
	}
	edges := buildEdges(rooms)
	assert.Len(t, edges, 5, "Квадрат из центров: два треугольника, пять рёбер без дубликатов")

	seen := make(map[[2]int]bool)
	for _, e := range edges {
		assert.Less(t, e.a, e.b, "Рёбра нормализованы: a < b")
		assert.Positive(t, e.weight, "Вес ребра положителен")
		assert.False(t, seen[[2]int{e.a, e.b}], "Ребро (%d,%d) продублировано", e.a, e.b)
		seen[[2]int{e.a, e.b}] = true
	}
}

func TestSpanningTree_MinimalAndConnected(t *testing.T) {
	// Цепочка 0-1-2 дешевле, чем прямое ребро 0-2
	edges := []edge{
		{a: 0, b: 1, weight: 4},
		{a: 1, b: 2, weight: 4},
		{a: 0, b: 2, weight: 16},
	}
	tree := spanningTree(3, edges)
	require.Len(t, tree, 2, "Остов на трёх вершинах содержит два ребра")
	assert.Equal(t, [2]int{0, 1}, [2]int{tree[0].a, tree[0].b}, "Дешёвое ребро 0-1 входит в остов")
	assert.Equal(t, [2]int{1, 2}, [2]int{tree[1].a, tree[1].b}, "Дешёвое ребро 1-2 входит в остов")
}

func TestSpanningTree_ConnectsAllRooms(t *testing.T) {
	s, err := NewDungeonSculptor(testDungeonConfig(8, 99))
	require.NoError(t, err)

	rooms, err := s.placeRooms(vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 60, Y: 60})
	require.NoError(t, err)

	tree := spanningTree(len(rooms), buildEdges(rooms))
	require.Len(t, tree, len(rooms)-1, "Остов на N вершинах содержит N-1 ребро")

	g := simple.NewUndirectedGraph()
	for i := range rooms {
		g.AddNode(simple.Node(int64(i)))
	}
	for _, e := range tree {
		g.SetEdge(g.NewEdge(simple.Node(int64(e.a)), simple.Node(int64(e.b))))
	}
	components := topo.ConnectedComponents(g)
	assert.Len(t, components, 1, "Остов должен связывать все комнаты в одну компоненту")
}

func TestElbow_SharesAxesWithEndpoints(t *testing.T) {
	s, err := NewDungeonSculptor(testDungeonConfig(2, 5))
	require.NoError(t, err)

	a := vec.Vec2{X: 3, Y: 17}
	b := vec.Vec2{X: 11, Y: 4}
	for i := 0; i < 32; i++ {
		elb := s.elbow(a, b)
		straight := (elb.X == a.X && elb.Y == b.Y) || (elb.X == b.X && elb.Y == a.Y)
		assert.True(t, straight, "Излом %v должен делить оси с концами %v и %v", elb, a, b)
	}
}

func TestPaint_Idempotent(t *testing.T) {
	s, err := NewDungeonSculptor(testDungeonConfig(4, 11))
	require.NoError(t, err)

	rooms, err := s.placeRooms(vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 30, Y: 30})
	require.NoError(t, err)
	corridors := s.corridorsFor(rooms, spanningTree(len(rooms), buildEdges(rooms)))

	grid := world.NewGrid(30, 30)
	s.paint(grid, rooms, corridors)
	first := snapshot(grid)

	s.paint(grid, rooms, corridors)
	assert.Equal(t, first, snapshot(grid), "Повторная растеризация перезаписывает, а не дублирует")
}

// floorComponent возвращает размер 4-связной компоненты пола,
// содержащей стартовую позицию
func floorComponent(g *world.Grid, floor world.MaterialHandle, start vec.Vec2) int {
	visited := map[vec.Vec2]bool{start: true}
	queue := []vec.Vec2{start}
	size := 0
	for len(queue) > 0 {
		pos := queue[0]
		queue = queue[1:]
		size++
		for _, nb := range g.NeumannNeighbours(pos) {
			if visited[nb.Position] || nb.Tile == nil || nb.Tile.Material != floor {
				continue
			}
			visited[nb.Position] = true
			queue = append(queue, nb.Position)
		}
	}
	return size
}

func TestSculpt_ThreeRoomScenario(t *testing.T) {
	cfg := testDungeonConfig(3, 1234)
	s, err := NewDungeonSculptor(cfg)
	require.NoError(t, err)

	grid := world.NewGrid(20, 20)
	require.NoError(t, s.Sculpt(context.Background(), vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 20, Y: 20}, grid))

	var floors []vec.Vec2
	grid.ForEachTile(func(tile *world.Tile) {
		if tile.Material == cfg.Floor {
			floors = append(floors, tile.Position)
		}
	})
	require.NotEmpty(t, floors, "После генерации должен существовать пол")

	// Каждый тайл пола полностью окружён тайлами: пустых клеток
	// в окрестности Мура не остаётся
	for _, pos := range floors {
		for _, nb := range grid.MooreNeighbours(pos) {
			require.NotNil(t, nb.Tile, "Сосед %v тайла пола %v остался пустым", nb.Position, pos)
			solid := nb.Tile.Material == cfg.Floor || nb.Tile.Material == cfg.Wall
			assert.True(t, solid, "Сосед %v должен быть полом или стеной", nb.Position)
		}
	}

	// Весь пол — одна 4-связная компонента: каждая комната достижима
	// из каждой по тайлам пола
	assert.Equal(t, len(floors), floorComponent(grid, cfg.Floor, floors[0]),
		"Пол должен быть связным: все комнаты достижимы по коридорам")
}

func TestSculpt_Deterministic(t *testing.T) {
	run := func() map[vec.Vec2]string {
		s, err := NewDungeonSculptor(testDungeonConfig(5, 777))
		require.NoError(t, err)
		grid := world.NewGrid(48, 48)
		require.NoError(t, s.Sculpt(context.Background(), vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 48, Y: 48}, grid))
		return snapshot(grid)
	}

	first := run()
	second := run()
	assert.Equal(t, first, second, "Одинаковый сид и конфигурация должны давать одинаковое множество тайлов")
}

func TestSculpt_SingleRoom(t *testing.T) {
	cfg := testDungeonConfig(1, 321)
	s, err := NewDungeonSculptor(cfg)
	require.NoError(t, err)

	grid := world.NewGrid(20, 20)
	require.NoError(t, s.Sculpt(context.Background(), vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 20, Y: 20}, grid))

	minPos := vec.Vec2{X: 1 << 30, Y: 1 << 30}
	maxPos := vec.Vec2{X: -(1 << 30), Y: -(1 << 30)}
	floorCount, wallCount := 0, 0
	grid.ForEachTile(func(tile *world.Tile) {
		switch tile.Material {
		case cfg.Floor:
			floorCount++
			if tile.Position.X < minPos.X {
				minPos.X = tile.Position.X
			}
			if tile.Position.Y < minPos.Y {
				minPos.Y = tile.Position.Y
			}
			if tile.Position.X > maxPos.X {
				maxPos.X = tile.Position.X
			}
			if tile.Position.Y > maxPos.Y {
				maxPos.Y = tile.Position.Y
			}
		case cfg.Wall:
			wallCount++
		}
	})

	w := maxPos.X - minPos.X + 1
	h := maxPos.Y - minPos.Y + 1
	assert.Equal(t, w*h, floorCount, "Единственная комната — сплошной прямоугольник без коридоров")
	assert.GreaterOrEqual(t, w, 3, "Ширина комнаты не меньше минимальной")
	assert.GreaterOrEqual(t, h, 3, "Высота комнаты не меньше минимальной")
	assert.Equal(t, (w+2)*(h+2)-w*h, wallCount, "Кольцо стен ровно в один тайл вокруг периметра")
}
