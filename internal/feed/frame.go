// Package feed is the boundary to the rendering collaborator. The simulation
// publishes one read-only Frame per tick; renderers receive frames over a
// websocket or poll the latest one over HTTP.
package feed

import (
	"github.com/stepcrawl/server/internal/camera"
	"github.com/stepcrawl/server/internal/game"
)

// Player is the player's render state.
type Player struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DirX   float64 `json:"dirX"`
	DirY   float64 `json:"dirY"`
	Sprite string  `json:"sprite"`
	Frame  int     `json:"frame"`
	Moving bool    `json:"moving"`
}

// UI event kinds.
const (
	UIHealth  = "health"
	UIScore   = "score"
	UIMessage = "message"
)

// UIEvent is one pending notification for the HUD.
type UIEvent struct {
	Kind    string `json:"kind"`
	Text    string `json:"text,omitempty"`
	Current int    `json:"current,omitempty"`
	Max     int    `json:"max,omitempty"`
	Coins   int    `json:"coins,omitempty"`
	XP      int    `json:"xp,omitempty"`
	Level   int    `json:"level,omitempty"`
}

// Frame is everything a renderer needs for one tick.
type Frame struct {
	Tick          uint64            `json:"tick"`
	Mode          game.Mode         `json:"mode"`
	Depth         int               `json:"depth"`
	DungeonLength int               `json:"dungeonLength"`
	Player        Player            `json:"player"`
	Camera        camera.Transform  `json:"camera"`
	Tiles         camera.TileWindow `json:"tiles"`
	Events        []UIEvent         `json:"events,omitempty"`
}

// Sink receives frames. Publish must not block the tick.
type Sink interface {
	Publish(f Frame)
}

// Latest keeps only the most recent frame. It is the Sink used when no
// network feed is running.
type Latest struct {
	frame Frame
	set   bool
}

func (l *Latest) Publish(f Frame) {
	l.frame = f
	l.set = true
}

func (l *Latest) Frame() (Frame, bool) { return l.frame, l.set }
