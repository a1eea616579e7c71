// Package physics is a small deterministic 2D rigid-body space: axis-aligned
// boxes and circles, static or dynamic, solid or sensor, filtered by
// category/mask bits. Bodies never rotate.
package physics

import (
	"math"

	"github.com/stepcrawl/server/internal/geom"
)

// BodyID is a handle into a Space. Zero is never a valid handle.
type BodyID uint32

type ShapeKind uint8

const (
	ShapeBox ShapeKind = iota
	ShapeCircle
)

// Shape is the collision geometry of a body, centred on the body position.
type Shape struct {
	Kind ShapeKind
	W, H float64 // box size
	R    float64 // circle radius
}

func Box(w, h float64) Shape { return Shape{Kind: ShapeBox, W: w, H: h} }
func Circle(r float64) Shape { return Shape{Kind: ShapeCircle, R: r} }

// Bounds returns the axis-aligned box enclosing the shape at pos.
func (s Shape) Bounds(pos geom.Vec) geom.Rect {
	if s.Kind == ShapeCircle {
		return geom.RectAround(pos, 2*s.R, 2*s.R)
	}
	return geom.RectAround(pos, s.W, s.H)
}

func (s Shape) minExtent() float64 {
	if s.Kind == ShapeCircle {
		return 2 * s.R
	}
	return math.Min(s.W, s.H)
}

// Collision categories. A pair interacts only when each body's category is in
// the other's mask.
const (
	CategoryPlayer uint32 = 1 << iota
	CategoryWall
	CategoryEnemy
	CategoryTreasure
	CategoryTrap
	CategoryCheckpoint

	MaskAll uint32 = math.MaxUint32
)

// BodyDef describes a body to add to a Space.
type BodyDef struct {
	Shape       Shape
	Position    geom.Vec
	Static      bool // infinite mass, never moved by Step
	Sensor      bool // reports contacts, exerts no force
	Category    uint32
	Mask        uint32
	Restitution float64 // velocity kept (reversed) on impact with a solid static body
	UserData    uint64
}

// Body is a live body in a Space.
type Body struct {
	id  BodyID
	def BodyDef
	pos geom.Vec
	vel geom.Vec
}

func (b *Body) ID() BodyID         { return b.id }
func (b *Body) Position() geom.Vec { return b.pos }
func (b *Body) Velocity() geom.Vec { return b.vel }
func (b *Body) Shape() Shape       { return b.def.Shape }
func (b *Body) Static() bool       { return b.def.Static }
func (b *Body) Sensor() bool       { return b.def.Sensor }
func (b *Body) Category() uint32   { return b.def.Category }
func (b *Body) UserData() uint64   { return b.def.UserData }
func (b *Body) Bounds() geom.Rect  { return b.def.Shape.Bounds(b.pos) }

func (b *Body) interacts(o *Body) bool {
	return b.def.Category&o.def.Mask != 0 && o.def.Category&b.def.Mask != 0
}

// overlap tests strict interior overlap between two shapes.
func overlap(sa Shape, pa geom.Vec, sb Shape, pb geom.Vec) bool {
	switch {
	case sa.Kind == ShapeCircle && sb.Kind == ShapeCircle:
		return pa.Dist(pb) < sa.R+sb.R
	case sa.Kind == ShapeCircle:
		return circleBox(pa, sa.R, sb.Bounds(pb))
	case sb.Kind == ShapeCircle:
		return circleBox(pb, sb.R, sa.Bounds(pa))
	default:
		return sa.Bounds(pa).Overlaps(sb.Bounds(pb))
	}
}

func circleBox(c geom.Vec, r float64, box geom.Rect) bool {
	return c.Dist(box.ClosestPoint(c)) < r
}
