package data

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/stepcrawl/server/internal/geom"
	"gopkg.in/yaml.v3"
)

// Layer is one tile layer. Tiles are row-major global tile ids, 0 = empty.
// Rows is an authoring shorthand: '#' is a solid tile, anything else empty.
type Layer struct {
	Name      string   `yaml:"name"`
	Collision bool     `yaml:"collision"`
	Tiles     []int    `yaml:"tiles"`
	Rows      []string `yaml:"rows"`
}

type Tileset struct {
	Name      string `yaml:"name"`
	FirstGID  int    `yaml:"first_gid"`
	TileCount int    `yaml:"tile_count"`
	Image     string `yaml:"image"`
}

// MapData is a pre-parsed tile map. The simulation only reads the collision
// layers to build static wall bodies.
type MapData struct {
	WidthInTiles  int       `yaml:"width"`
	HeightInTiles int       `yaml:"height"`
	TileSize      float64   `yaml:"tile_size"`
	Layers        []Layer   `yaml:"layers"`
	Tilesets      []Tileset `yaml:"tilesets"`
}

var ErrBadMap = errors.New("invalid map data")

// LoadMapData reads map data from YAML and expands Rows shorthand into Tiles.
func LoadMapData(path string) (*MapData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map %s: %w", path, err)
	}
	var m MapData
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse map %s: %w", path, err)
	}
	if err := m.normalize(); err != nil {
		return nil, fmt.Errorf("map %s: %w", path, err)
	}
	return &m, nil
}

func (m *MapData) normalize() error {
	if m.WidthInTiles <= 0 || m.HeightInTiles <= 0 || m.TileSize <= 0 {
		return fmt.Errorf("%w: size %dx%d tile %v", ErrBadMap, m.WidthInTiles, m.HeightInTiles, m.TileSize)
	}
	n := m.WidthInTiles * m.HeightInTiles
	for i := range m.Layers {
		l := &m.Layers[i]
		if len(l.Rows) > 0 {
			if len(l.Rows) != m.HeightInTiles {
				return fmt.Errorf("%w: layer %q has %d rows, want %d", ErrBadMap, l.Name, len(l.Rows), m.HeightInTiles)
			}
			l.Tiles = make([]int, n)
			for y, row := range l.Rows {
				for x, c := range []byte(row) {
					if x >= m.WidthInTiles {
						break
					}
					if c == '#' {
						l.Tiles[y*m.WidthInTiles+x] = 1
					}
				}
			}
			l.Rows = nil
		}
		if len(l.Tiles) != n {
			return fmt.Errorf("%w: layer %q has %d tiles, want %d", ErrBadMap, l.Name, len(l.Tiles), n)
		}
	}
	return nil
}

// PixelSize returns the map extent in world units.
func (m *MapData) PixelSize() (float64, float64) {
	return float64(m.WidthInTiles) * m.TileSize, float64(m.HeightInTiles) * m.TileSize
}

// Solid reports whether any collision layer has a tile at (x, y).
func (m *MapData) Solid(x, y int) bool {
	if x < 0 || y < 0 || x >= m.WidthInTiles || y >= m.HeightInTiles {
		return false
	}
	for _, l := range m.Layers {
		if l.Collision && l.Tiles[y*m.WidthInTiles+x] != 0 {
			return true
		}
	}
	return false
}

// WallRects merges solid tiles into rectangles: horizontal runs per row,
// then runs with identical span on consecutive rows. Fewer, larger static
// bodies keep the physics space small.
func (m *MapData) WallRects() []geom.Rect {
	type run struct{ x0, x1, y0, y1 int } // inclusive tile bounds
	var done []run
	open := map[[2]int]*run{} // keyed by [x0,x1] of runs ending on the previous row
	for y := 0; y < m.HeightInTiles; y++ {
		next := map[[2]int]*run{}
		for x := 0; x < m.WidthInTiles; {
			if !m.Solid(x, y) {
				x++
				continue
			}
			x0 := x
			for x < m.WidthInTiles && m.Solid(x, y) {
				x++
			}
			key := [2]int{x0, x - 1}
			if r, ok := open[key]; ok {
				r.y1 = y
				next[key] = r
				delete(open, key)
			} else {
				next[key] = &run{x0: x0, x1: x - 1, y0: y, y1: y}
			}
		}
		for _, r := range open {
			done = append(done, *r)
		}
		open = next
	}
	for _, r := range open {
		done = append(done, *r)
	}
	// map iteration above is unordered; sort for stable body creation order
	sort.Slice(done, func(i, j int) bool {
		if done[i].y0 != done[j].y0 {
			return done[i].y0 < done[j].y0
		}
		return done[i].x0 < done[j].x0
	})
	ts := m.TileSize
	out := make([]geom.Rect, len(done))
	for i, r := range done {
		out[i] = geom.Rect{
			X: float64(r.x0) * ts,
			Y: float64(r.y0) * ts,
			W: float64(r.x1-r.x0+1) * ts,
			H: float64(r.y1-r.y0+1) * ts,
		}
	}
	return out
}
