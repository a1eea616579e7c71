package geom

// Rect is an axis-aligned box described by its minimum corner and size.
type Rect struct {
	X, Y, W, H float64
}

// RectAround returns the box of size w×h centred on c.
func RectAround(c Vec, w, h float64) Rect {
	return Rect{X: c.X - w/2, Y: c.Y - h/2, W: w, H: h}
}

func (r Rect) MinX() float64 { return r.X }
func (r Rect) MinY() float64 { return r.Y }
func (r Rect) MaxX() float64 { return r.X + r.W }
func (r Rect) MaxY() float64 { return r.Y + r.H }
func (r Rect) Center() Vec   { return Vec{r.X + r.W/2, r.Y + r.H/2} }

// Overlaps reports strict interior overlap; boxes that only share an edge do
// not overlap.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.MaxX() && o.X < r.MaxX() && r.Y < o.MaxY() && o.Y < r.MaxY()
}

func (r Rect) Contains(p Vec) bool {
	return p.X >= r.X && p.X <= r.MaxX() && p.Y >= r.Y && p.Y <= r.MaxY()
}

// ClosestPoint returns the point of r nearest to p.
func (r Rect) ClosestPoint(p Vec) Vec {
	return Vec{Clamp(p.X, r.X, r.MaxX()), Clamp(p.Y, r.Y, r.MaxY())}
}
