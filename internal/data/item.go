package data

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/stepcrawl/server/internal/game"
	"gopkg.in/yaml.v3"
)

// ItemTemplate is a catalog entry; owned items are instances of a template.
type ItemTemplate struct {
	ID     string         `yaml:"id"`
	Name   string         `yaml:"name"`
	Slot   string         `yaml:"slot"` // weapon, armor, boots, charm; empty = not equippable
	Rarity string         `yaml:"rarity"`
	Price  int            `yaml:"price"`
	Bonus  game.StatBonus `yaml:"bonus"`
}

type itemListFile struct {
	Items []ItemTemplate `yaml:"items"`
}

// ItemTable provides item template lookups.
type ItemTable struct {
	items map[string]*ItemTemplate
	order []string
}

// LoadItemTable loads the item catalog from YAML.
func LoadItemTable(path string) (*ItemTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item list %s: %w", path, err)
	}
	var file itemListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse item list: %w", err)
	}
	return NewItemTable(file.Items)
}

func NewItemTable(templates []ItemTemplate) (*ItemTable, error) {
	t := &ItemTable{items: make(map[string]*ItemTemplate, len(templates))}
	for i := range templates {
		tpl := templates[i]
		if tpl.ID == "" {
			return nil, fmt.Errorf("item %d: missing id", i)
		}
		if _, dup := t.items[tpl.ID]; dup {
			return nil, fmt.Errorf("item %q: duplicate id", tpl.ID)
		}
		t.items[tpl.ID] = &tpl
		t.order = append(t.order, tpl.ID)
	}
	return t, nil
}

// Count returns the number of templates loaded.
func (t *ItemTable) Count() int {
	return len(t.items)
}

// Get returns a template, or nil if not found.
func (t *ItemTable) Get(id string) *ItemTemplate {
	return t.items[id]
}

// IDs returns template ids in file order.
func (t *ItemTable) IDs() []string {
	return append([]string(nil), t.order...)
}

// NewInstance creates an owned item with a fresh instance id. Ids are drawn
// from rnd when it is non-nil, which makes them reproducible for a seeded
// source.
func (t *ItemTable) NewInstance(templateID string, rnd io.Reader) (game.Item, bool) {
	tpl := t.items[templateID]
	if tpl == nil {
		return game.Item{}, false
	}
	id := uuid.New()
	if rnd != nil {
		if v, err := uuid.NewRandomFromReader(rnd); err == nil {
			id = v
		}
	}
	return game.Item{
		ID:       id.String(),
		Template: tpl.ID,
		Name:     tpl.Name,
		Slot:     tpl.Slot,
		Bonus:    tpl.Bonus,
	}, true
}
