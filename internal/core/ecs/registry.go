package ecs

// Registry tracks all component stores and supports mask computation and bulk
// cleanup on entity destroy.
type Registry struct {
	stores []Store
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]Store, 0, kindCount),
	}
}

// Register adds a component store to the registry.
func (r *Registry) Register(store Store) {
	r.stores = append(r.stores, store)
}

// MaskOf returns the set of component kinds currently attached to id.
func (r *Registry) MaskOf(id EntityID) Mask {
	var m Mask
	for _, s := range r.stores {
		if s.Has(id) {
			m |= 1 << s.Kind()
		}
	}
	return m
}

// RemoveAll clears the given entity from every registered component store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, s := range r.stores {
		s.Remove(id)
	}
}
