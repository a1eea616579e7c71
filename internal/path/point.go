// Package path models the walking corridor as an ordered polyline of typed
// waypoints and provides pure geometry helpers for authoring it.
package path

import "github.com/stepcrawl/server/internal/geom"

// Kind tags a waypoint with the gameplay trigger fired on arrival.
type Kind string

const (
	None       Kind = ""
	Start      Kind = "start"
	Checkpoint Kind = "checkpoint"
	Encounter  Kind = "encounter"
	Treasure   Kind = "treasure"
	Trap       Kind = "trap"
	Boss       Kind = "boss"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case None, Start, Checkpoint, Encounter, Treasure, Trap, Boss:
		return true
	}
	return false
}

// Point is one waypoint of a path.
type Point struct {
	X        float64           `yaml:"x" json:"x"`
	Y        float64           `yaml:"y" json:"y"`
	Kind     Kind              `yaml:"kind,omitempty" json:"kind,omitempty"`
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

func (p Point) Pos() geom.Vec { return geom.Vec{X: p.X, Y: p.Y} }

func at(v geom.Vec, k Kind) Point { return Point{X: v.X, Y: v.Y, Kind: k} }
