package worldgen

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/fogleman/delaunay"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/annel0/dungeon-forge/internal/logging"
	"github.com/annel0/dungeon-forge/internal/vec"
	"github.com/annel0/dungeon-forge/internal/world"
)

// Предел попыток размещения одной комнаты по умолчанию
const defaultMaxTrials = 0xFFFF

// Максимум дополнительных петлевых коридоров сверх остовного дерева
const maxExtraLoops = 4

var tracer = otel.Tracer("worldgen")

// edge — ребро-кандидат между двумя комнатами; вес равен квадрату
// расстояния между их центрами
type edge struct {
	a, b   int
	weight int
}

// segment — одно прямое колено коридора между двумя точками сетки
type segment struct {
	from, to vec.Vec2
}

// DungeonConfig задаёт параметры генерации подземелья
type DungeonConfig struct {
	RoomAmount  int      // число комнат, > 0
	MinRoomSize vec.Vec2 // минимальный размер комнаты, покомпонентно >= 1
	MaxRoomSize vec.Vec2 // максимальный размер комнаты, покомпонентно >= Min
	MaxTrials   int      // предел попыток на комнату; 0 — defaultMaxTrials

	Floor world.MaterialHandle
	Wall  world.MaterialHandle

	Seed int64
}

// DungeonSculptor высекает связное подземелье: непересекающиеся
// прямоугольные комнаты, коридоры по рёбрам минимального остовного
// дерева над триангуляцией центров, несколько дополнительных петель
// и кольцо стен вокруг всего пола.
type DungeonSculptor struct {
	cfg DungeonConfig
	rng *rand.Rand
}

// NewDungeonSculptor проверяет конфигурацию и создаёт скульптор.
// Вся валидация выполняется здесь, не посреди алгоритма.
func NewDungeonSculptor(cfg DungeonConfig) (*DungeonSculptor, error) {
	if cfg.RoomAmount <= 0 {
		return nil, fmt.Errorf("%w: число комнат должно быть положительным, получено %d", ErrInvalidConfig, cfg.RoomAmount)
	}
	if cfg.MinRoomSize.X < 1 || cfg.MinRoomSize.Y < 1 {
		return nil, fmt.Errorf("%w: минимальный размер комнаты %v меньше 1x1", ErrInvalidConfig, cfg.MinRoomSize)
	}
	if cfg.MaxRoomSize.X < cfg.MinRoomSize.X || cfg.MaxRoomSize.Y < cfg.MinRoomSize.Y {
		return nil, fmt.Errorf("%w: максимальный размер комнаты %v меньше минимального %v", ErrInvalidConfig, cfg.MaxRoomSize, cfg.MinRoomSize)
	}
	if cfg.Floor == nil || cfg.Wall == nil {
		return nil, fmt.Errorf("%w: материалы пола и стен обязательны", ErrInvalidConfig)
	}
	if cfg.MaxTrials <= 0 {
		cfg.MaxTrials = defaultMaxTrials
	}

	return &DungeonSculptor{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// SetSeed сбрасывает генератор случайных чисел на указанный сид
// для воспроизводимой генерации
func (s *DungeonSculptor) SetSeed(seed int64) {
	s.rng = rand.New(rand.NewSource(seed))
}

// Sculpt выполняет все стадии генерации над областью [from, to).
// При ошибке размещения сетка остаётся нетронутой: запись тайлов
// начинается только после того, как все комнаты приняты.
func (s *DungeonSculptor) Sculpt(ctx context.Context, from, to vec.Vec2, grid *world.Grid) error {
	ctx, span := tracer.Start(ctx, "DungeonSculptor.Sculpt")
	defer span.End()
	start := time.Now()

	if to.X <= from.X || to.Y <= from.Y {
		genMetrics.failures.WithLabelValues("invalid_area").Inc()
		return fmt.Errorf("%w: пустая целевая область %v..%v", ErrInvalidConfig, from, to)
	}

	_, roomSpan := tracer.Start(ctx, "worldgen.rooms")
	rooms, err := s.placeRooms(from, to)
	roomSpan.End()
	if err != nil {
		genMetrics.failures.WithLabelValues("unsatisfiable").Inc()
		return err
	}

	_, triSpan := tracer.Start(ctx, "worldgen.triangulation")
	edges := buildEdges(rooms)
	triSpan.End()

	_, mstSpan := tracer.Start(ctx, "worldgen.kruskal")
	tree := spanningTree(len(rooms), edges)
	mstSpan.End()

	corridors := s.corridorsFor(rooms, tree)
	corridors = append(corridors, s.addLoops(rooms)...)

	_, paintSpan := tracer.Start(ctx, "worldgen.painting")
	s.paint(grid, rooms, corridors)
	paintSpan.End()

	_, wallSpan := tracer.Start(ctx, "worldgen.walls")
	walls := synthesizeWalls(grid, s.cfg.Floor, s.cfg.Wall)
	wallSpan.End()

	genMetrics.roomsPlaced.Add(float64(len(rooms)))
	genMetrics.corridorSegs.Add(float64(len(corridors)))
	genMetrics.sculptDuration.WithLabelValues("dungeon").Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("rooms", len(rooms)),
		attribute.Int("corridor_segments", len(corridors)),
		attribute.Int("wall_tiles", walls),
	)
	logging.Debug("Подземелье готово: %d комнат, %d сегментов коридоров, %d стен за %v",
		len(rooms), len(corridors), walls, time.Since(start))

	return nil
}

// placeRooms размещает комнаты методом отбора с отклонением.
// Счётчик попыток ведётся на каждую комнату; исчерпание попыток —
// структурная ошибка, а не бесконечный цикл.
func (s *DungeonSculptor) placeRooms(from, to vec.Vec2) ([]Rect, error) {
	rooms := make([]Rect, 0, s.cfg.RoomAmount)
	for i := 0; i < s.cfg.RoomAmount; i++ {
		room, ok := s.tryPlaceRoom(from, to, rooms)
		if !ok {
			return nil, fmt.Errorf("%w: комната %d из %d не размещена за %d попыток",
				ErrUnsatisfiable, i+1, s.cfg.RoomAmount, s.cfg.MaxTrials)
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (s *DungeonSculptor) tryPlaceRoom(from, to vec.Vec2, accepted []Rect) (Rect, bool) {
search:
	for trial := 0; trial < s.cfg.MaxTrials; trial++ {
		genMetrics.placementTrials.Inc()

		min := vec.Vec2{
			X: s.randRange(from.X, to.X),
			Y: s.randRange(from.Y, to.Y),
		}
		size := vec.Vec2{
			X: s.randRange(s.cfg.MinRoomSize.X, s.cfg.MaxRoomSize.X),
			Y: s.randRange(s.cfg.MinRoomSize.Y, s.cfg.MaxRoomSize.Y),
		}
		candidate := Rect{Min: min, Max: min.Add(size)}

		if candidate.Max.X > to.X || candidate.Max.Y > to.Y {
			continue
		}
		for _, room := range accepted {
			if room.Overlaps(candidate) {
				continue search
			}
		}
		return candidate, true
	}
	return Rect{}, false
}

// randRange возвращает равномерное значение из [lo, hi);
// при вырожденном диапазоне возвращает lo
func (s *DungeonSculptor) randRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Intn(hi-lo)
}

// buildEdges строит множество рёбер-кандидатов по триангуляции Делоне
// центров комнат: по три ребра с каждого треугольника, без дубликатов.
// Вырожденные случаи: меньше двух комнат — рёбер нет; две комнаты —
// одно прямое ребро; коллинеарные центры — полный граф (MST срежет лишнее).
func buildEdges(rooms []Rect) []edge {
	weightOf := func(a, b int) int {
		return rooms[a].Centroid().Distance2To(rooms[b].Centroid())
	}

	switch len(rooms) {
	case 0, 1:
		return nil
	case 2:
		return []edge{{a: 0, b: 1, weight: weightOf(0, 1)}}
	}

	points := make([]delaunay.Point, len(rooms))
	for i, room := range rooms {
		c := vec.FromVec2(room.Centroid())
		points[i] = delaunay.Point{X: c.X, Y: c.Y}
	}

	tri, err := delaunay.Triangulate(points)
	if err != nil || len(tri.Triangles) == 0 {
		return completeEdges(rooms, weightOf)
	}

	seen := make(map[[2]int]struct{})
	var edges []edge
	ts := tri.Triangles
	for i := 0; i+2 < len(ts); i += 3 {
		for _, pair := range [3][2]int{{ts[i], ts[i+1]}, {ts[i+1], ts[i+2]}, {ts[i+2], ts[i]}} {
			a, b := pair[0], pair[1]
			if b < a {
				a, b = b, a
			}
			if _, dup := seen[[2]int{a, b}]; dup {
				continue
			}
			seen[[2]int{a, b}] = struct{}{}
			edges = append(edges, edge{a: a, b: b, weight: weightOf(a, b)})
		}
	}
	return edges
}

func completeEdges(rooms []Rect, weightOf func(a, b int) int) []edge {
	var edges []edge
	for a := 0; a < len(rooms); a++ {
		for b := a + 1; b < len(rooms); b++ {
			edges = append(edges, edge{a: a, b: b, weight: weightOf(a, b)})
		}
	}
	return edges
}

// spanningTree выбирает минимальное остовное дерево алгоритмом
// Крускала. Результат отсортирован по парам индексов: порядок обхода
// рёбер в map-хранилище графа не определён, а дальнейшие решения
// потребляют общий поток случайных чисел.
func spanningTree(roomCount int, edges []edge) []edge {
	if roomCount < 2 || len(edges) == 0 {
		return nil
	}

	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i := 0; i < roomCount; i++ {
		g.AddNode(simple.Node(int64(i)))
	}
	for idx, e := range edges {
		// Малая добавка по индексу ребра делает веса попарно
		// различными: при равных весах выбор Крускала зависел бы
		// от недетерминированного порядка обхода рёбер.
		w := float64(e.weight) + float64(idx)*1e-6
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(int64(e.a)), simple.Node(int64(e.b)), w))
	}

	mst := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	path.Kruskal(mst, g)

	var tree []edge
	it := mst.WeightedEdges()
	for it.Next() {
		we := it.WeightedEdge()
		a, b := int(we.From().ID()), int(we.To().ID())
		if b < a {
			a, b = b, a
		}
		tree = append(tree, edge{a: a, b: b, weight: int(we.Weight())})
	}
	sort.Slice(tree, func(i, j int) bool {
		if tree[i].a != tree[j].a {
			return tree[i].a < tree[j].a
		}
		return tree[i].b < tree[j].b
	})
	return tree
}

// elbow выбирает точку излома коридора честной монетой: либо
// (a.X, b.Y), либо (b.X, a.Y). Оба колена всегда осепараллельны.
func (s *DungeonSculptor) elbow(a, b vec.Vec2) vec.Vec2 {
	if s.rng.Intn(2) == 0 {
		return vec.Vec2{X: a.X, Y: b.Y}
	}
	return vec.Vec2{X: b.X, Y: a.Y}
}

// corridorsFor превращает каждое ребро дерева в два сегмента
// коридора, встречающихся в точке излома
func (s *DungeonSculptor) corridorsFor(rooms []Rect, tree []edge) []segment {
	corridors := make([]segment, 0, len(tree)*2)
	for _, e := range tree {
		a := rooms[e.a].Centroid()
		b := rooms[e.b].Centroid()
		elb := s.elbow(a, b)
		corridors = append(corridors, segment{from: a, to: elb}, segment{from: elb, to: b})
	}
	return corridors
}

// addLoops добавляет от 0 до maxExtraLoops дополнительных соединений
// между случайными парами комнат, разбивая чисто древесную топологию.
// Совпавшие индексы перевыбираются.
func (s *DungeonSculptor) addLoops(rooms []Rect) []segment {
	if len(rooms) < 2 {
		return nil
	}

	var segs []segment
	count := s.rng.Intn(maxExtraLoops + 1)
	for i := 0; i < count; i++ {
		a := s.rng.Intn(len(rooms))
		b := s.rng.Intn(len(rooms))
		for b == a {
			b = s.rng.Intn(len(rooms))
		}

		ca := rooms[a].Centroid()
		cb := rooms[b].Centroid()
		elb := s.elbow(ca, cb)
		segs = append(segs, segment{from: ca, to: elb}, segment{from: cb, to: elb})
	}
	return segs
}

// paint растеризует коридоры и комнаты в тайлы пола. Все записи
// используют один материал, поэтому порядок не влияет на итог.
func (s *DungeonSculptor) paint(grid *world.Grid, rooms []Rect, corridors []segment) {
	for _, c := range corridors {
		// Смещённая коробка плюс явный тайл в начале сегмента дают
		// сплошной коридор шириной в один тайл при полуоткрытой
		// конвенции заполнения.
		grid.FillBox(c.from.Add(vec.Vec2{X: 1, Y: 1}), c.to, s.cfg.Floor)
		grid.PlaceTile(c.from, s.cfg.Floor)
	}

	for _, room := range rooms {
		grid.FillBox(room.Min, room.Max, s.cfg.Floor)
	}
}
