package ecs

import "sort"

// Store is implemented by all component stores so the Registry can compute an
// entity's component mask and bulk-remove its data on destroy.
type Store interface {
	Kind() Kind
	Has(id EntityID) bool
	Remove(id EntityID)
}

// PtrComponentStore is a generic typed map store for ECS components.
// At most one component of its type exists per entity.
type PtrComponentStore[T any] struct {
	kind Kind
	data map[EntityID]*T
}

func NewPtrComponentStore[T any](kind Kind) *PtrComponentStore[T] {
	return &PtrComponentStore[T]{
		kind: kind,
		data: make(map[EntityID]*T, 64),
	}
}

func (s *PtrComponentStore[T]) Kind() Kind { return s.kind }

// Set attaches c to id, replacing any previous component of this type.
func (s *PtrComponentStore[T]) Set(id EntityID, c *T) {
	s.data[id] = c
}

func (s *PtrComponentStore[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *PtrComponentStore[T]) Remove(id EntityID) {
	delete(s.data, id)
}

func (s *PtrComponentStore[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *PtrComponentStore[T]) Len() int {
	return len(s.data)
}

// Each visits components in ascending EntityID order so that callers which
// accumulate floating point state stay reproducible run to run.
func (s *PtrComponentStore[T]) Each(fn func(EntityID, *T)) {
	ids := make([]EntityID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fn(id, s.data[id])
	}
}
