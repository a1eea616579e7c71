package ecs

// EntitySet is an insertion-ordered set of entity ids. Systems iterate it
// instead of a map so that update order is identical across runs.
type EntitySet struct {
	ids   []EntityID
	index map[EntityID]int
}

func NewEntitySet() *EntitySet {
	return &EntitySet{index: make(map[EntityID]int)}
}

// Add returns false if id is already present.
func (s *EntitySet) Add(id EntityID) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = len(s.ids)
	s.ids = append(s.ids, id)
	return true
}

// Remove deletes id, preserving the relative order of the remaining ids.
func (s *EntitySet) Remove(id EntityID) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	copy(s.ids[i:], s.ids[i+1:])
	s.ids = s.ids[:len(s.ids)-1]
	delete(s.index, id)
	for j := i; j < len(s.ids); j++ {
		s.index[s.ids[j]] = j
	}
	return true
}

func (s *EntitySet) Has(id EntityID) bool {
	_, ok := s.index[id]
	return ok
}

func (s *EntitySet) Len() int { return len(s.ids) }

// IDs returns a copy, safe to hold while the set is mutated.
func (s *EntitySet) IDs() []EntityID {
	out := make([]EntityID, len(s.ids))
	copy(out, s.ids)
	return out
}

// Each visits ids in insertion order. fn must not mutate the set.
func (s *EntitySet) Each(fn func(EntityID)) {
	for _, id := range s.ids {
		fn(id)
	}
}
