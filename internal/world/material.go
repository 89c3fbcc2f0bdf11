package world

// MaterialFlags битовые флаги свойств материала
type MaterialFlags uint16

const (
	FlagPassthrough MaterialFlags = 0
	FlagSolid       MaterialFlags = 1 << 0
)

// Material описывает вид тайла: имя для отображения, имя ресурса
// (спрайт/текстура) и флаги проходимости.
type Material struct {
	DisplayName  string
	ResourceName string
	Flags        MaterialFlags
}

// MaterialHandle — разделяемый неизменяемый дескриптор материала.
// Сравнивается по идентичности указателя: все тайлы одного материала
// ссылаются на один и тот же экземпляр.
type MaterialHandle = *Material

// NewMaterial создаёт материал и возвращает его дескриптор
func NewMaterial(displayName, resourceName string, flags MaterialFlags) MaterialHandle {
	return &Material{
		DisplayName:  displayName,
		ResourceName: resourceName,
		Flags:        flags,
	}
}

// IsSolid возвращает true, если материал непроходим
func (m *Material) IsSolid() bool {
	return m.Flags&FlagSolid != 0
}
