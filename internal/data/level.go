package data

import (
	"errors"
	"fmt"
	"os"

	"github.com/stepcrawl/server/internal/game"
	"github.com/stepcrawl/server/internal/path"
	"gopkg.in/yaml.v3"
)

var ErrNoPath = errors.New("level has fewer than two waypoints")

// PlacementKind is the gameplay type of a placed sensor entity.
type PlacementKind string

const (
	PlaceEnemy      PlacementKind = "enemy"
	PlaceTreasure   PlacementKind = "treasure"
	PlaceTrap       PlacementKind = "trap"
	PlaceCheckpoint PlacementKind = "checkpoint"
)

// Placement is one sensor entity placed in the corridor.
type Placement struct {
	Kind   PlacementKind `yaml:"kind"`
	Name   string        `yaml:"name"`
	X      float64       `yaml:"x"`
	Y      float64       `yaml:"y"`
	Radius float64       `yaml:"radius"`
	Enemy  *game.Enemy   `yaml:"enemy"`
	Coins  int           `yaml:"coins"`
	Item   string        `yaml:"item"`   // item template id
	Damage int           `yaml:"damage"` // trap damage override, 0 = scripted
}

// Level is the authored content of one dungeon.
type Level struct {
	Name          string       `yaml:"name"`
	DungeonLength int          `yaml:"dungeon_length"`
	StartX        float64      `yaml:"start_x"`
	StartY        float64      `yaml:"start_y"`
	Waypoints     []path.Point `yaml:"path"`
	Smooth        int          `yaml:"smooth"`
	Resample      float64      `yaml:"resample"`
	Looping       bool         `yaml:"looping"`
	Placements    []Placement  `yaml:"placements"`
	Boss          game.Enemy   `yaml:"boss"`
	Encounters    []game.Enemy `yaml:"encounters"` // enemies for path-encounter waypoints, cycled
}

// LoadLevel reads and validates a level definition.
func LoadLevel(file string) (*Level, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read level %s: %w", file, err)
	}
	var l Level
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("parse level %s: %w", file, err)
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("level %s: %w", file, err)
	}
	return &l, nil
}

func (l *Level) Validate() error {
	if len(l.Waypoints) < 2 {
		return ErrNoPath
	}
	for i, p := range l.Waypoints {
		if !p.Kind.Valid() {
			return fmt.Errorf("waypoint %d: unknown kind %q", i, p.Kind)
		}
	}
	for i, p := range l.Placements {
		switch p.Kind {
		case PlaceEnemy:
			if p.Enemy == nil {
				return fmt.Errorf("placement %d: enemy without stats", i)
			}
		case PlaceTreasure, PlaceTrap, PlaceCheckpoint:
		default:
			return fmt.Errorf("placement %d: unknown kind %q", i, p.Kind)
		}
	}
	if l.DungeonLength <= 0 {
		l.DungeonLength = int(path.Length(l.Waypoints))
	}
	return nil
}

// BuildPath returns the walking path: the authored waypoints, smoothed and
// resampled as configured. The first point is always tagged start.
func (l *Level) BuildPath() ([]path.Point, error) {
	if len(l.Waypoints) < 2 {
		return nil, ErrNoPath
	}
	p := append([]path.Point(nil), l.Waypoints...)
	if p[0].Kind == path.None {
		p[0].Kind = path.Start
	}
	if l.Smooth > 0 {
		p = path.Smooth(p, l.Smooth)
	}
	if l.Resample > 0 {
		p = path.Resample(p, l.Resample)
	}
	return p, nil
}
