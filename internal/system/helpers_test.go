package system

import (
	"testing"

	"github.com/stepcrawl/server/internal/core/ecs"
	"github.com/stepcrawl/server/internal/core/event"
	coresys "github.com/stepcrawl/server/internal/core/system"
	"github.com/stepcrawl/server/internal/geom"
	"github.com/stepcrawl/server/internal/path"
	"github.com/stepcrawl/server/internal/world"
	"go.uber.org/zap"
)

type fixture struct {
	ws      *world.State
	bus     *event.Bus
	factory *world.Factory
	runner  *coresys.Runner
	player  ecs.EntityID
}

func newFixture(t *testing.T, start geom.Vec, route []path.Point) *fixture {
	t.Helper()
	ws := world.NewState(zap.NewNop())
	f := &fixture{
		ws:      ws,
		bus:     event.NewBus(),
		factory: world.NewFactory(ws, world.FactoryConfig{}, zap.NewNop()),
		runner:  coresys.NewRunner(ws.ECS),
	}
	id, err := f.factory.CreatePlayer(start, route, false, 20)
	if err != nil {
		t.Fatal(err)
	}
	f.player = id
	return f
}

// deliver makes events emitted so far visible to subscribers.
func (f *fixture) deliver() {
	f.bus.SwapBuffers()
	f.bus.DispatchAll()
}

func (f *fixture) pos() geom.Vec {
	p, _ := f.ws.Positions.Get(f.player)
	return geom.Vec{X: p.X, Y: p.Y}
}
