package physics

import (
	"testing"

	"github.com/stepcrawl/server/internal/geom"
)

func addPlayer(s *Space, at geom.Vec) BodyID {
	return s.Add(BodyDef{
		Shape:    Box(10, 10),
		Position: at,
		Category: CategoryPlayer,
		Mask:     MaskAll,
	})
}

func addWall(s *Space, r geom.Rect) BodyID {
	return s.Add(BodyDef{
		Shape:    Box(r.W, r.H),
		Position: r.Center(),
		Static:   true,
		Category: CategoryWall,
		Mask:     MaskAll,
	})
}

func TestStepIntegratesVelocity(t *testing.T) {
	s := NewSpace()
	p := addPlayer(s, geom.V(0, 0))
	s.SetVelocity(p, geom.V(20, -10))
	s.Step(0.5)
	b, _ := s.Body(p)
	if got := b.Position(); got != geom.V(10, -5) {
		t.Errorf("expected (10,-5), got %v", got)
	}
}

func TestWallStopsBody(t *testing.T) {
	s := NewSpace()
	p := addPlayer(s, geom.V(0, 0))
	addWall(s, geom.Rect{X: 20, Y: -50, W: 10, H: 100})
	s.SetVelocity(p, geom.V(100, 0))
	s.Step(1)

	b, _ := s.Body(p)
	if x := b.Position().X; x != 15 {
		t.Errorf("expected player flush against wall at x=15, got %v", x)
	}
	if v := b.Velocity().X; v != 0 {
		t.Errorf("expected x velocity zeroed with no restitution, got %v", v)
	}
}

func TestRestitutionReflects(t *testing.T) {
	s := NewSpace()
	p := s.Add(BodyDef{
		Shape:       Box(10, 10),
		Category:    CategoryPlayer,
		Mask:        MaskAll,
		Restitution: 0.5,
	})
	addWall(s, geom.Rect{X: 20, Y: -50, W: 10, H: 100})
	s.SetVelocity(p, geom.V(100, 0))
	s.Step(1)
	b, _ := s.Body(p)
	if v := b.Velocity().X; v != -50 {
		t.Errorf("expected reflected velocity -50, got %v", v)
	}
}

func TestSensorContactBegins(t *testing.T) {
	s := NewSpace()
	p := addPlayer(s, geom.V(0, 0))
	coin := s.Add(BodyDef{
		Shape:    Circle(4),
		Position: geom.V(30, 0),
		Static:   true,
		Sensor:   true,
		Category: CategoryTreasure,
		Mask:     CategoryPlayer,
	})

	s.Step(0)
	if c := s.DrainBegins(); len(c) != 0 {
		t.Fatalf("expected no contact apart, got %v", c)
	}

	s.SetPosition(p, geom.V(28, 0))
	s.Step(0)
	c := s.DrainBegins()
	if len(c) != 1 || !c[0].Involves(p) || c[0].Other(p) != coin {
		t.Fatalf("expected one begin with the coin, got %v", c)
	}
	if !s.Touching(p, coin) {
		t.Error("expected pair touching")
	}

	s.Step(0)
	if c := s.DrainBegins(); len(c) != 0 {
		t.Errorf("expected begin reported once while overlapping, got %v", c)
	}

	b, _ := s.Body(p)
	if b.Position().X != 28 {
		t.Error("expected sensor to exert no force")
	}
}

func TestMaskFiltersContacts(t *testing.T) {
	s := NewSpace()
	s.Add(BodyDef{Shape: Box(10, 10), Category: CategoryEnemy, Mask: CategoryPlayer})
	s.Add(BodyDef{Shape: Circle(5), Static: true, Sensor: true, Category: CategoryTrap, Mask: CategoryPlayer})
	s.Step(0)
	if c := s.DrainBegins(); len(c) != 0 {
		t.Errorf("expected filtered categories not to contact, got %v", c)
	}
}

func TestOverlapsSolid(t *testing.T) {
	s := NewSpace()
	addWall(s, geom.Rect{X: 10, Y: 0, W: 10, H: 10})
	s.Add(BodyDef{Shape: Circle(5), Position: geom.V(-20, 5), Static: true, Sensor: true, Category: CategoryTrap, Mask: CategoryPlayer})

	cases := []struct {
		name string
		pos  geom.Vec
		want bool
	}{
		{"clear", geom.V(0, 5), false},
		{"edge only", geom.V(5, 5), false},
		{"inside", geom.V(8, 5), true},
		{"sensor ignored", geom.V(-20, 5), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := s.OverlapsSolid(Box(10, 10), c.pos, CategoryWall); got != c.want {
				t.Errorf("expected %v, got %v", c.want, got)
			}
		})
	}
}

func TestRemove(t *testing.T) {
	s := NewSpace()
	p := addPlayer(s, geom.V(0, 0))
	w := addWall(s, geom.Rect{X: -5, Y: -5, W: 10, H: 10})
	s.Remove(w)
	if _, ok := s.Body(w); ok {
		t.Error("expected removed body gone")
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 body, got %d", s.Len())
	}
	s.SetVelocity(p, geom.V(1, 0))
	s.Step(1)
	b, _ := s.Body(p)
	if b.Position().X != 1 {
		t.Errorf("expected free movement after removal, got %v", b.Position())
	}
}
