package ecs

import "go.uber.org/zap"

// Tracker is implemented by systems that operate on a fixed component set.
// The World calls Track for every added entity whose components satisfy
// Requires, and Untrack when that entity is removed.
//
// Qualification is decided once, when the entity is added (or when the
// tracker is added, for entities that already exist). Attaching or detaching
// components afterwards does not change which trackers see the entity until
// Reregister is called. Assemble an entity's full component set before
// AddEntity.
type Tracker interface {
	Requires() Mask
	Track(id EntityID)
	Untrack(id EntityID)
}

// World is the top-level ECS container. It owns the entity pool, the component
// registry, entity tags, the trackers fed by entity registration, and a
// deferred destruction queue flushed by CleanupSystem each tick.
type World struct {
	pool         *EntityPool
	registry     *Registry
	members      *EntitySet
	masks        map[EntityID]Mask
	tags         map[EntityID]map[string]struct{}
	trackers     []Tracker
	destroyQueue []EntityID
	queued       map[EntityID]struct{}
	log          *zap.Logger
}

func NewWorld(log *zap.Logger) *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		members:      NewEntitySet(),
		masks:        make(map[EntityID]Mask),
		tags:         make(map[EntityID]map[string]struct{}),
		destroyQueue: make([]EntityID, 0, 16),
		queued:       make(map[EntityID]struct{}),
		log:          log,
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

// CreateEntity allocates an id. The entity is not visible to systems until
// AddEntity is called.
func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// AddEntity registers id with every tracker whose required components are
// present. Adding an entity twice is a logged no-op.
func (w *World) AddEntity(id EntityID) bool {
	if !w.pool.Alive(id) {
		w.log.Warn("add of dead entity ignored", zap.Stringer("entity", id))
		return false
	}
	if !w.members.Add(id) {
		w.log.Warn("duplicate entity ignored", zap.Stringer("entity", id))
		return false
	}
	mask := w.registry.MaskOf(id)
	w.masks[id] = mask
	for _, t := range w.trackers {
		if mask.Contains(t.Requires()) {
			t.Track(id)
		}
	}
	return true
}

// RemoveEntity unregisters id from its trackers, drops its components and tags
// and invalidates the id. Prefer MarkForDestruction while a tick is running.
func (w *World) RemoveEntity(id EntityID) {
	if w.members.Remove(id) {
		mask := w.masks[id]
		for _, t := range w.trackers {
			if mask.Contains(t.Requires()) {
				t.Untrack(id)
			}
		}
		delete(w.masks, id)
	}
	delete(w.tags, id)
	w.registry.RemoveAll(id)
	w.pool.Destroy(id)
}

// Reregister re-evaluates which trackers id qualifies for using its current
// components.
func (w *World) Reregister(id EntityID) {
	if !w.members.Has(id) {
		return
	}
	old := w.masks[id]
	mask := w.registry.MaskOf(id)
	w.masks[id] = mask
	for _, t := range w.trackers {
		was, is := old.Contains(t.Requires()), mask.Contains(t.Requires())
		switch {
		case was && !is:
			t.Untrack(id)
		case !was && is:
			t.Track(id)
		}
	}
}

// AddSystem appends a tracker and back-registers every existing entity that
// qualifies, in entity insertion order.
func (w *World) AddSystem(t Tracker) {
	w.trackers = append(w.trackers, t)
	req := t.Requires()
	w.members.Each(func(id EntityID) {
		if w.masks[id].Contains(req) {
			t.Track(id)
		}
	})
}

// Qualifies reports whether id was registered with every kind in req.
func (w *World) Qualifies(id EntityID, req Mask) bool {
	m, ok := w.masks[id]
	return ok && m.Contains(req)
}

func (w *World) Contains(id EntityID) bool { return w.members.Has(id) }

// Entities returns the added entities in insertion order.
func (w *World) Entities() []EntityID { return w.members.IDs() }

func (w *World) Len() int { return w.members.Len() }

func (w *World) Tag(id EntityID, tags ...string) {
	set, ok := w.tags[id]
	if !ok {
		set = make(map[string]struct{}, len(tags))
		w.tags[id] = set
	}
	for _, t := range tags {
		set[t] = struct{}{}
	}
}

func (w *World) HasTag(id EntityID, tag string) bool {
	_, ok := w.tags[id][tag]
	return ok
}

// Tagged returns added entities carrying tag, in insertion order.
func (w *World) Tagged(tag string) []EntityID {
	var out []EntityID
	w.members.Each(func(id EntityID) {
		if w.HasTag(id, tag) {
			out = append(out, id)
		}
	})
	return out
}

// MarkForDestruction queues an entity for end-of-tick cleanup.
func (w *World) MarkForDestruction(id EntityID) {
	if _, ok := w.queued[id]; ok {
		return
	}
	w.queued[id] = struct{}{}
	w.destroyQueue = append(w.destroyQueue, id)
}

func (w *World) PendingDestruction(id EntityID) bool {
	_, ok := w.queued[id]
	return ok
}

// FlushDestroyQueue destroys all queued entities and clears their components.
// Called by CleanupSystem at the end of each tick.
func (w *World) FlushDestroyQueue() int {
	n := len(w.destroyQueue)
	for _, id := range w.destroyQueue {
		w.RemoveEntity(id)
		delete(w.queued, id)
	}
	w.destroyQueue = w.destroyQueue[:0]
	return n
}

// Reset removes every entity. Trackers stay registered.
func (w *World) Reset() {
	for _, id := range w.members.IDs() {
		w.RemoveEntity(id)
	}
	w.destroyQueue = w.destroyQueue[:0]
	w.queued = make(map[EntityID]struct{})
}
