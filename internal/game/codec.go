package game

import (
	"encoding/json"
	"fmt"
)

var decoders = map[string]func() Event{
	"STEP":              func() Event { return &Step{} },
	"ENCOUNTER":         func() Event { return &EncounterStarted{} },
	"COMBAT_RESOLVED":   func() Event { return &CombatResolved{} },
	"RESOLVE_ENCOUNTER": func() Event { return &ResolveEncounter{} },
	"PLAYER_DEFEATED":   func() Event { return &PlayerDefeated{} },
	"BOSS_DEFEATED":     func() Event { return &BossDefeated{} },
	"COMPLETE":          func() Event { return &Complete{} },
	"PAUSE":             func() Event { return &Pause{} },
	"RESUME":            func() Event { return &Resume{} },
	"LOAD_STATE":        func() Event { return &LoadState{} },
	"REWARD":            func() Event { return &Reward{} },
	"CHECKPOINT":        func() Event { return &CheckpointReached{} },
	"TREASURE":          func() Event { return &TreasureFound{} },
	"TRAP":              func() Event { return &TrapSprung{} },
	"EQUIP":             func() Event { return &Equip{} },
	"UNEQUIP":           func() Event { return &Unequip{} },
}

// Decode rebuilds the event named name from its JSON payload.
func Decode(name string, payload []byte) (Event, error) {
	mk, ok := decoders[name]
	if !ok {
		return nil, fmt.Errorf("unknown event %q", name)
	}
	ptr := mk()
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, ptr); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return deref(ptr), nil
}

func deref(e Event) Event {
	switch v := e.(type) {
	case *Step:
		return *v
	case *EncounterStarted:
		return *v
	case *CombatResolved:
		return *v
	case *ResolveEncounter:
		return *v
	case *PlayerDefeated:
		return *v
	case *BossDefeated:
		return *v
	case *Complete:
		return *v
	case *Pause:
		return *v
	case *Resume:
		return *v
	case *LoadState:
		return *v
	case *Reward:
		return *v
	case *CheckpointReached:
		return *v
	case *TreasureFound:
		return *v
	case *TrapSprung:
		return *v
	case *Equip:
		return *v
	case *Unequip:
		return *v
	}
	return e
}
