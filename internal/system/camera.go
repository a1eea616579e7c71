package system

import (
	"time"

	"github.com/stepcrawl/server/internal/camera"
	coresys "github.com/stepcrawl/server/internal/core/system"
	"github.com/stepcrawl/server/internal/geom"
	"github.com/stepcrawl/server/internal/world"
)

// CameraSystem eases the camera toward the player. Phase 3 (PostUpdate).
type CameraSystem struct {
	ws     *world.State
	cam    *camera.Camera
	placed bool
}

func NewCameraSystem(ws *world.State, cam *camera.Camera) *CameraSystem {
	return &CameraSystem{ws: ws, cam: cam}
}

func (s *CameraSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *CameraSystem) Update(_ time.Duration) {
	player, ok := s.ws.Player()
	if !ok {
		return
	}
	pos, ok := s.ws.Positions.Get(player)
	if !ok {
		return
	}
	p := geom.Vec{X: pos.X, Y: pos.Y}
	if !s.placed {
		s.cam.Reset(p)
		s.placed = true
		return
	}
	var v geom.Vec
	if vel, ok := s.ws.Velocities.Get(player); ok {
		v = geom.Vec{X: vel.VX, Y: vel.VY}
	}
	s.cam.Follow(p, v)
}

// Camera returns the camera this system drives.
func (s *CameraSystem) Camera() *camera.Camera { return s.cam }
