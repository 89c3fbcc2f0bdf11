package world

import "github.com/annel0/dungeon-forge/internal/vec"

// Actor представляет сущность, занимающую тайл (игрок, NPC, предмет).
// Позиция кэшируется и обновляется сеткой при перемещении.
type Actor struct {
	ID       uint64
	Name     string
	position vec.Vec2
}

// NewActor создаёт актора с указанным ID и именем
func NewActor(id uint64, name string) *Actor {
	return &Actor{ID: id, Name: name}
}

// Position возвращает кэшированную позицию актора на сетке
func (a *Actor) Position() vec.Vec2 {
	return a.position
}
