package path

import (
	"math"
	"testing"

	"github.com/stepcrawl/server/internal/geom"
)

func square() []Point {
	return []Point{
		{X: 0, Y: 0, Kind: Start},
		{X: 10, Y: 0},
		{X: 10, Y: 10, Kind: Checkpoint},
		{X: 0, Y: 10, Kind: Boss},
	}
}

func TestGenerateTagsStart(t *testing.T) {
	p := Generate([]geom.Vec{{X: 1, Y: 1}, {X: 2, Y: 2}})
	if p[0].Kind != Start || p[1].Kind != None {
		t.Errorf("expected [start none], got [%s %s]", p[0].Kind, p[1].Kind)
	}
	if len(Generate(nil)) != 0 {
		t.Error("expected empty path from no points")
	}
}

func TestLength(t *testing.T) {
	if got := Length(square()); got != 30 {
		t.Errorf("expected 30, got %v", got)
	}
}

func TestPointAt(t *testing.T) {
	cases := []struct {
		d       float64
		want    geom.Vec
		wantSeg int
	}{
		{-5, geom.V(0, 0), 0},
		{4, geom.V(4, 0), 0},
		{15, geom.V(10, 5), 1},
		{25, geom.V(5, 10), 2},
		{99, geom.V(0, 10), 2},
	}
	for _, c := range cases {
		got, seg := PointAt(square(), c.d)
		if got != c.want || seg != c.wantSeg {
			t.Errorf("PointAt(%v): expected %v seg %d, got %v seg %d", c.d, c.want, c.wantSeg, got, seg)
		}
	}
	if _, seg := PointAt(nil, 3); seg != -1 {
		t.Errorf("expected -1 on empty path, got %d", seg)
	}
}

func TestResampleKeepsTypedPoints(t *testing.T) {
	p := Resample([]Point{{X: 0, Y: 0, Kind: Start}, {X: 10, Y: 0, Kind: Trap}}, 4)
	want := []geom.Vec{{X: 0}, {X: 4}, {X: 8}, {X: 10}}
	if len(p) != len(want) {
		t.Fatalf("expected %d points, got %d: %v", len(want), len(p), p)
	}
	for i, w := range want {
		if p[i].Pos() != w {
			t.Errorf("point %d: expected %v, got %v", i, w, p[i].Pos())
		}
	}
	if p[3].Kind != Trap {
		t.Errorf("expected trap kept at the end, got %q", p[3].Kind)
	}
}

func TestSmoothKeepsEndpointsAndKinds(t *testing.T) {
	in := square()
	out := Smooth(in, 2)
	if out[0].Pos() != in[0].Pos() || out[len(out)-1].Pos() != in[len(in)-1].Pos() {
		t.Error("expected endpoints preserved")
	}
	var kinds []Kind
	for _, p := range out {
		if p.Kind != None {
			kinds = append(kinds, p.Kind)
		}
	}
	want := []Kind{Start, Checkpoint, Boss}
	if len(kinds) != len(want) {
		t.Fatalf("expected kinds %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("expected kinds %v, got %v", want, kinds)
		}
	}
	if in[1].Pos() != geom.V(10, 0) {
		t.Error("expected input path untouched")
	}
}

func TestClosest(t *testing.T) {
	pt, seg, arc, dist := Closest(square(), geom.V(12, 6))
	if pt != geom.V(10, 6) || seg != 1 {
		t.Errorf("expected (10,6) on segment 1, got %v seg %d", pt, seg)
	}
	if math.Abs(arc-16) > 1e-9 || math.Abs(dist-2) > 1e-9 {
		t.Errorf("expected arc 16 dist 2, got %v %v", arc, dist)
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{None, Start, Checkpoint, Encounter, Treasure, Trap, Boss} {
		if !k.Valid() {
			t.Errorf("expected %q valid", k)
		}
	}
	if Kind("portal").Valid() {
		t.Error("expected unknown kind invalid")
	}
}
