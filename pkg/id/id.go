package id

// Generator generates the ids of pending-operation handles, unique for
// the owning coordinator's lifetime
type Generator interface {
	Gen() (uint64, error)
}

// NewMemGenerator returns a mem generator
func NewMemGenerator() Generator {
	return &memGenerator{}
}
