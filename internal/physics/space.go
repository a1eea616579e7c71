package physics

import (
	"math"

	"github.com/stepcrawl/server/internal/geom"
)

// maxSubsteps bounds the work done for one very fast body in one Step.
const maxSubsteps = 16

// Contact names the two bodies of a touching pair, A < B.
type Contact struct {
	A, B BodyID
}

// Other returns the body of the pair that is not id.
func (c Contact) Other(id BodyID) BodyID {
	if c.A == id {
		return c.B
	}
	return c.A
}

func (c Contact) Involves(id BodyID) bool { return c.A == id || c.B == id }

// Space owns bodies and advances dynamic ones. Bodies are kept in creation
// order, which makes Step and contact reporting deterministic.
type Space struct {
	bodies   []*Body
	byID     map[BodyID]*Body
	nextID   BodyID
	touching map[Contact]struct{}
	begins   []Contact
}

func NewSpace() *Space {
	return &Space{
		byID:     make(map[BodyID]*Body),
		nextID:   1,
		touching: make(map[Contact]struct{}),
	}
}

func (s *Space) Add(def BodyDef) BodyID {
	id := s.nextID
	s.nextID++
	b := &Body{id: id, def: def, pos: def.Position}
	s.bodies = append(s.bodies, b)
	s.byID[id] = b
	return id
}

// Remove deletes a body and forgets its contacts. Unknown ids are ignored.
func (s *Space) Remove(id BodyID) {
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	for i, b := range s.bodies {
		if b.id == id {
			s.bodies = append(s.bodies[:i], s.bodies[i+1:]...)
			break
		}
	}
	for c := range s.touching {
		if c.Involves(id) {
			delete(s.touching, c)
		}
	}
	kept := s.begins[:0]
	for _, c := range s.begins {
		if !c.Involves(id) {
			kept = append(kept, c)
		}
	}
	s.begins = kept
}

func (s *Space) Body(id BodyID) (*Body, bool) {
	b, ok := s.byID[id]
	return b, ok
}

func (s *Space) Len() int { return len(s.bodies) }

func (s *Space) SetVelocity(id BodyID, v geom.Vec) {
	if b, ok := s.byID[id]; ok && !b.def.Static {
		b.vel = v
	}
}

// SetPosition teleports a body. Contacts are re-evaluated on the next Step.
func (s *Space) SetPosition(id BodyID, p geom.Vec) {
	if b, ok := s.byID[id]; ok {
		b.pos = p
	}
}

// OverlapsSolid reports whether shape placed at pos would overlap any solid
// (non-sensor) static body whose category is in mask.
func (s *Space) OverlapsSolid(shape Shape, pos geom.Vec, mask uint32) bool {
	for _, b := range s.bodies {
		if !b.def.Static || b.def.Sensor || b.def.Category&mask == 0 {
			continue
		}
		if overlap(shape, pos, b.def.Shape, b.pos) {
			return true
		}
	}
	return false
}

// Step advances every dynamic body by dt seconds, resolving penetration into
// solid static bodies axis by axis, then records pairs that started touching.
func (s *Space) Step(dt float64) {
	if dt > 0 {
		for _, b := range s.bodies {
			if b.def.Static || b.vel.IsZero() {
				continue
			}
			s.integrate(b, dt)
		}
	}
	s.detectContacts()
}

func (s *Space) integrate(b *Body, dt float64) {
	travel := b.vel.Scale(dt).Len()
	n := 1
	if ext := b.def.Shape.minExtent(); ext > 0 {
		n = int(math.Ceil(travel / (ext / 2)))
	}
	n = max(1, min(n, maxSubsteps))
	h := dt / float64(n)
	for i := 0; i < n; i++ {
		b.pos.X += b.vel.X * h
		if w := s.solidHit(b); w != nil && b.vel.X != 0 {
			wb := w.Bounds()
			half := b.Bounds().W / 2
			if b.vel.X > 0 {
				b.pos.X = wb.MinX() - half
			} else {
				b.pos.X = wb.MaxX() + half
			}
			b.vel.X = -b.vel.X * b.def.Restitution
		}
		b.pos.Y += b.vel.Y * h
		if w := s.solidHit(b); w != nil && b.vel.Y != 0 {
			wb := w.Bounds()
			half := b.Bounds().H / 2
			if b.vel.Y > 0 {
				b.pos.Y = wb.MinY() - half
			} else {
				b.pos.Y = wb.MaxY() + half
			}
			b.vel.Y = -b.vel.Y * b.def.Restitution
		}
	}
}

// solidHit returns the first solid static body b overlaps, if any. Circles
// are resolved against walls by their bounding box.
func (s *Space) solidHit(b *Body) *Body {
	if b.def.Sensor {
		return nil
	}
	box := b.Bounds()
	for _, o := range s.bodies {
		if o == b || !o.def.Static || o.def.Sensor || !b.interacts(o) {
			continue
		}
		if box.Overlaps(o.Bounds()) {
			return o
		}
	}
	return nil
}

func (s *Space) detectContacts() {
	now := make(map[Contact]struct{}, len(s.touching))
	for i, a := range s.bodies {
		for _, b := range s.bodies[i+1:] {
			if a.def.Static && b.def.Static {
				continue
			}
			if !a.interacts(b) || !overlap(a.def.Shape, a.pos, b.def.Shape, b.pos) {
				continue
			}
			c := Contact{A: min(a.id, b.id), B: max(a.id, b.id)}
			now[c] = struct{}{}
			if _, was := s.touching[c]; !was {
				s.begins = append(s.begins, c)
			}
		}
	}
	s.touching = now
}

// DrainBegins returns and clears the contact-begin events recorded since the
// last drain, in detection order.
func (s *Space) DrainBegins() []Contact {
	out := s.begins
	s.begins = nil
	return out
}

// Touching reports whether the pair is currently in contact.
func (s *Space) Touching(a, b BodyID) bool {
	_, ok := s.touching[Contact{A: min(a, b), B: max(a, b)}]
	return ok
}
