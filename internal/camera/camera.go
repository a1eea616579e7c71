// Package camera derives a smoothed, optionally bounds-clamped viewport from
// the player's position and velocity.
package camera

import (
	"math"

	"github.com/stepcrawl/server/internal/geom"
)

type Config struct {
	ViewportWidth  float64 `toml:"viewport_width"`
	ViewportHeight float64 `toml:"viewport_height"`
	Zoom           float64 `toml:"zoom"`
	Smoothing      float64 `toml:"smoothing"`  // fraction of the gap closed per tick, (0,1]
	LookAhead      float64 `toml:"look_ahead"` // seconds of velocity to lead by
	ClampToBounds  bool    `toml:"clamp_to_bounds"`
}

func DefaultConfig() Config {
	return Config{
		ViewportWidth:  360,
		ViewportHeight: 640,
		Zoom:           1,
		Smoothing:      0.1,
		LookAhead:      0.5,
		ClampToBounds:  true,
	}
}

// Transform maps world coordinates to screen coordinates:
// screen = (world + Offset) * Scale + Translate.
type Transform struct {
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
	Scale      float64 `json:"scale"`
	OffsetX    float64 `json:"offsetX"`
	OffsetY    float64 `json:"offsetY"`
}

func (t Transform) Apply(p geom.Vec) geom.Vec {
	return geom.Vec{
		X: (p.X+t.OffsetX)*t.Scale + t.TranslateX,
		Y: (p.Y+t.OffsetY)*t.Scale + t.TranslateY,
	}
}

// TileWindow is an inclusive range of tile indices.
type TileWindow struct {
	MinX int `json:"minX"`
	MinY int `json:"minY"`
	MaxX int `json:"maxX"`
	MaxY int `json:"maxY"`
}

func (w TileWindow) Empty() bool { return w.MaxX < w.MinX || w.MaxY < w.MinY }

type Camera struct {
	cfg        Config
	pos        geom.Vec
	mapW, mapH float64
}

// New returns a camera over a map of mapW×mapH world units.
func New(cfg Config, mapW, mapH float64) *Camera {
	if cfg.Zoom <= 0 {
		cfg.Zoom = 1
	}
	if cfg.Smoothing <= 0 || cfg.Smoothing > 1 {
		cfg.Smoothing = 1
	}
	return &Camera{cfg: cfg, mapW: mapW, mapH: mapH}
}

func (c *Camera) Position() geom.Vec { return c.pos }

// Reset places the camera on p without smoothing.
func (c *Camera) Reset(p geom.Vec) {
	c.pos = c.clamp(p)
}

// Follow moves the camera a Smoothing fraction of the way toward the player
// position led by LookAhead seconds of velocity.
func (c *Camera) Follow(player, velocity geom.Vec) {
	target := player.Add(velocity.Scale(c.cfg.LookAhead))
	c.pos = c.pos.Add(target.Sub(c.pos).Scale(c.cfg.Smoothing))
	c.pos = c.clamp(c.pos)
}

func (c *Camera) halfView() (float64, float64) {
	return c.cfg.ViewportWidth / (2 * c.cfg.Zoom), c.cfg.ViewportHeight / (2 * c.cfg.Zoom)
}

// clamp keeps the viewport inside [0,mapW]×[0,mapH]; a map smaller than the
// viewport is centred.
func (c *Camera) clamp(p geom.Vec) geom.Vec {
	if !c.cfg.ClampToBounds {
		return p
	}
	hw, hh := c.halfView()
	return geom.Vec{
		X: geom.Clamp(p.X, hw, c.mapW-hw),
		Y: geom.Clamp(p.Y, hh, c.mapH-hh),
	}
}

// Transform centres the camera position in the viewport at the current zoom.
func (c *Camera) Transform() Transform {
	return Transform{
		TranslateX: c.cfg.ViewportWidth / 2,
		TranslateY: c.cfg.ViewportHeight / 2,
		Scale:      c.cfg.Zoom,
		OffsetX:    -c.pos.X,
		OffsetY:    -c.pos.Y,
	}
}

// VisibleTiles returns the tiles of a widthInTiles×heightInTiles grid that
// intersect the viewport, plus margin tiles on each side.
func (c *Camera) VisibleTiles(tileSize float64, widthInTiles, heightInTiles, margin int) TileWindow {
	if tileSize <= 0 || widthInTiles <= 0 || heightInTiles <= 0 {
		return TileWindow{MinX: 0, MinY: 0, MaxX: -1, MaxY: -1}
	}
	hw, hh := c.halfView()
	minX := int(math.Floor((c.pos.X-hw)/tileSize)) - margin
	minY := int(math.Floor((c.pos.Y-hh)/tileSize)) - margin
	maxX := int(math.Ceil((c.pos.X+hw)/tileSize)) - 1 + margin
	maxY := int(math.Ceil((c.pos.Y+hh)/tileSize)) - 1 + margin
	return TileWindow{
		MinX: max(0, minX),
		MinY: max(0, minY),
		MaxX: min(widthInTiles-1, maxX),
		MaxY: min(heightInTiles-1, maxY),
	}
}
