package path

import (
	"math"

	"github.com/stepcrawl/server/internal/geom"
)

// Generate builds a path from raw positions. The first point is tagged Start;
// the rest are untyped.
func Generate(raw []geom.Vec) []Point {
	out := make([]Point, len(raw))
	for i, v := range raw {
		out[i] = at(v, None)
	}
	if len(out) > 0 {
		out[0].Kind = Start
	}
	return out
}

// Smooth applies iterations of Chaikin corner cutting. Every edge is replaced
// by its 25% and 75% interpolation points. The two endpoints are kept so the
// path still starts and ends where it did, and the kind of each interior
// typed waypoint moves to the first generated point next to it.
func Smooth(p []Point, iterations int) []Point {
	if len(p) < 3 || iterations <= 0 {
		return clonePath(p)
	}
	cur := clonePath(p)
	for it := 0; it < iterations; it++ {
		next := make([]Point, 0, 2*len(cur))
		next = append(next, cur[0])
		for i := 0; i < len(cur)-1; i++ {
			a, b := cur[i].Pos(), cur[i+1].Pos()
			q := at(a.Lerp(b, 0.25), None)
			r := at(a.Lerp(b, 0.75), None)
			if i > 0 {
				q.Kind, q.Metadata = cur[i].Kind, cur[i].Metadata
			}
			next = append(next, q, r)
		}
		next = append(next, cur[len(cur)-1])
		cur = next
	}
	return cur
}

// Length is the total arc length of the path.
func Length(p []Point) float64 {
	var total float64
	for i := 1; i < len(p); i++ {
		total += p[i-1].Pos().Dist(p[i].Pos())
	}
	return total
}

// PointAt returns the position at arc length d from the start, clamped to the
// path ends, and the index of the segment it lies on.
func PointAt(p []Point, d float64) (geom.Vec, int) {
	switch len(p) {
	case 0:
		return geom.Vec{}, -1
	case 1:
		return p[0].Pos(), 0
	}
	if d <= 0 {
		return p[0].Pos(), 0
	}
	for i := 1; i < len(p); i++ {
		a, b := p[i-1].Pos(), p[i].Pos()
		seg := a.Dist(b)
		if d <= seg {
			if seg == 0 {
				return a, i - 1
			}
			return a.Lerp(b, d/seg), i - 1
		}
		d -= seg
	}
	return p[len(p)-1].Pos(), len(p) - 2
}

// Resample walks the path and emits a point every interval units of arc
// length. The endpoints and every typed waypoint are always included.
func Resample(p []Point, interval float64) []Point {
	if len(p) < 2 || interval <= 0 {
		return clonePath(p)
	}
	const eps = 1e-9
	out := []Point{p[0]}
	next := interval // arc length left until the next sample
	for i := 1; i < len(p); i++ {
		a, b := p[i-1].Pos(), p[i].Pos()
		seg := a.Dist(b)
		pos := 0.0
		for pos+next < seg-eps {
			pos += next
			out = append(out, at(a.Lerp(b, pos/seg), None))
			next = interval
		}
		next -= seg - pos
		if p[i].Kind != None || i == len(p)-1 || next <= eps {
			out = append(out, p[i])
			next = interval
		}
	}
	return out
}

// Closest locates the point of the path nearest to pos. It returns that
// point, the segment index it lies on, its arc length from the start and its
// distance from pos.
func Closest(p []Point, pos geom.Vec) (geom.Vec, int, float64, float64) {
	switch len(p) {
	case 0:
		return geom.Vec{}, -1, 0, math.Inf(1)
	case 1:
		return p[0].Pos(), 0, 0, pos.Dist(p[0].Pos())
	}
	best, bestSeg, bestArc, bestDist := geom.Vec{}, -1, 0.0, math.Inf(1)
	arc := 0.0
	for i := 1; i < len(p); i++ {
		a, b := p[i-1].Pos(), p[i].Pos()
		ab := b.Sub(a)
		segLen2 := ab.Dot(ab)
		t := 0.0
		if segLen2 > 0 {
			t = geom.Clamp(pos.Sub(a).Dot(ab)/segLen2, 0, 1)
		}
		c := a.Add(ab.Scale(t))
		if d := pos.Dist(c); d < bestDist {
			best, bestSeg, bestArc, bestDist = c, i-1, arc+t*math.Sqrt(segLen2), d
		}
		arc += math.Sqrt(segLen2)
	}
	return best, bestSeg, bestArc, bestDist
}

func clonePath(p []Point) []Point {
	out := make([]Point, len(p))
	copy(out, p)
	return out
}
