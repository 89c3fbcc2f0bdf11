package worldgen

import "github.com/annel0/dungeon-forge/internal/vec"

// Rect — прямоугольник комнаты в полуоткрытой конвенции [Min, Max):
// Max-угол не входит в заполняемую область.
type Rect struct {
	Min, Max vec.Vec2
}

// Width возвращает ширину прямоугольника в тайлах
func (r Rect) Width() int {
	return r.Max.X - r.Min.X
}

// Height возвращает высоту прямоугольника в тайлах
func (r Rect) Height() int {
	return r.Max.Y - r.Min.Y
}

// Centroid возвращает целочисленный геометрический центр.
// Для непустого прямоугольника центр всегда лежит внутри [Min, Max).
func (r Rect) Centroid() vec.Vec2 {
	return vec.Vec2{
		X: (r.Min.X + r.Max.X) / 2,
		Y: (r.Min.Y + r.Max.Y) / 2,
	}
}

// Overlaps выполняет AABB-проверку пересечения по замкнутым интервалам.
// Комнаты, соприкасающиеся рёбрами или углами, тоже считаются
// пересекающимися: между принятыми комнатами остаётся зазор минимум
// в одну клетку под кольцо стен.
func (r Rect) Overlaps(other Rect) bool {
	return r.Min.X <= other.Max.X && other.Min.X <= r.Max.X &&
		r.Min.Y <= other.Max.Y && other.Min.Y <= r.Max.Y
}
