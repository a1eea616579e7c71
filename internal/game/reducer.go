package game

// LevelCurve returns the experience needed to go from level to level+1.
type LevelCurve func(level int) int

// DefaultCurve is used when no scripted curve is configured.
func DefaultCurve(level int) int { return 100 * max(1, level) }

// Reducer applies events to state. It holds no mutable state; the same
// (state, event) input always yields the same output.
type Reducer struct {
	Curve LevelCurve
}

// Reduce applies e with the default level curve.
func Reduce(s State, e Event) State {
	return Reducer{}.Reduce(s, e)
}

// Replay folds events over initial.
func (r Reducer) Replay(initial State, events []Event) State {
	s := initial
	for _, e := range events {
		s = r.Reduce(s, e)
	}
	return s
}

// Reduce returns the state after e. The input state is never modified.
// Complete is terminal: every event leaves it unchanged. While paused only
// Resume and LoadState apply.
func (r Reducer) Reduce(in State, e Event) State {
	if in.Mode == ModeComplete {
		return in
	}
	if in.Mode == ModePaused {
		switch e.(type) {
		case Resume, LoadState:
		default:
			return in
		}
	}
	s := in.Clone()

	switch ev := e.(type) {
	case Step:
		if s.Mode != ModeWalking || ev.Payload <= 0 {
			return in
		}
		s.Depth += ev.Payload
		if s.Depth >= s.DungeonLength {
			s.Mode = ModeBoss
		}

	case EncounterStarted:
		enemy := ev.Enemy
		switch {
		case s.Mode == ModeWalking:
			s.Mode = ModeEncounter
		case s.Mode == ModeBoss && s.CurrentEnemy == nil:
			// the boss fight keeps its own mode
		default:
			return in
		}
		s.CurrentEnemy = &enemy
		s.CombatResult = nil
		s.Encounters++

	case CombatResolved:
		if s.Mode != ModeEncounter && s.Mode != ModeBoss {
			return in
		}
		res := ev.Result
		s.CombatResult = &res
		s.Health = max(0, s.Health-ev.DamageTaken)
		if s.CurrentEnemy != nil {
			s.CurrentEnemy.Health = max(0, s.CurrentEnemy.Health-ev.DamageDealt)
		}

	case ResolveEncounter:
		if s.Mode != ModeEncounter {
			return in
		}
		if s.CurrentEnemy != nil && s.CurrentEnemy.Health <= 0 {
			s.EnemiesDefeated++
		}
		s.Mode = ModeWalking
		s.CombatResult = nil
		s.CurrentEnemy = nil

	case PlayerDefeated:
		if s.Mode != ModeEncounter && s.Mode != ModeBoss {
			return in
		}
		s.Mode = ModeWalking
		s.Depth = s.CheckpointDepth
		s.Health = s.MaxHealth
		s.CombatResult = nil
		s.CurrentEnemy = nil

	case BossDefeated:
		s.EnemiesDefeated++
		s.Mode = ModeComplete
		s.CurrentEnemy = nil

	case Complete:
		s.Mode = ModeComplete

	case Pause:
		s.Mode = ModePaused

	case Resume:
		if in.Mode != ModePaused {
			return in
		}
		s.Mode = ModeWalking

	case LoadState:
		s = merge(s, ev.Snapshot)

	case Reward:
		s.Coins += ev.Coins
		s.XP += max(0, ev.XP)
		r.levelUp(&s)

	case CheckpointReached:
		s.CheckpointDepth = max(s.CheckpointDepth, s.Depth)

	case TreasureFound:
		s.Coins += ev.Coins
		s.TreasuresFound++
		if ev.Item != nil {
			s.Inventory = append(s.Inventory, *ev.Item)
		}

	case TrapSprung:
		s.TrapsTriggered++
		s.Health = max(0, s.Health-ev.Damage)

	case Equip:
		i := indexOf(s.Inventory, ev.ItemID)
		if i < 0 {
			return in
		}
		item := s.Inventory[i]
		s.Inventory = append(s.Inventory[:i], s.Inventory[i+1:]...)
		if item.Slot != "" {
			for j := 0; j < len(s.EquippedItems); j++ {
				if s.EquippedItems[j].Slot == item.Slot {
					s.Inventory = append(s.Inventory, s.EquippedItems[j])
					s.EquippedItems = append(s.EquippedItems[:j], s.EquippedItems[j+1:]...)
					j--
				}
			}
		}
		s.EquippedItems = append(s.EquippedItems, item)

	case Unequip:
		i := indexOf(s.EquippedItems, ev.ItemID)
		if i < 0 {
			return in
		}
		s.Inventory = append(s.Inventory, s.EquippedItems[i])
		s.EquippedItems = append(s.EquippedItems[:i], s.EquippedItems[i+1:]...)

	default:
		return in
	}
	return s
}

func (r Reducer) levelUp(s *State) {
	curve := r.Curve
	if curve == nil {
		curve = DefaultCurve
	}
	if s.XPToNextLevel <= 0 {
		s.XPToNextLevel = curve(s.Level)
	}
	for s.XPToNextLevel > 0 && s.XP >= s.XPToNextLevel {
		s.XP -= s.XPToNextLevel
		s.Level++
		s.XPToNextLevel = curve(s.Level)
	}
}

// merge overlays a snapshot. Zero-valued identity fields in the snapshot keep
// the current values; everything else is taken from the snapshot.
func merge(cur, snap State) State {
	out := snap.Clone()
	if out.RunID == "" {
		out.RunID = cur.RunID
	}
	if out.Mode == "" {
		out.Mode = cur.Mode
	}
	if out.DungeonLength == 0 {
		out.DungeonLength = cur.DungeonLength
	}
	if out.Level == 0 {
		out.Level = max(1, cur.Level)
	}
	if out.MaxHealth == 0 {
		out.MaxHealth = cur.MaxHealth
		out.Health = cur.Health
	}
	if out.EquippedItems == nil {
		out.EquippedItems = []Item{}
	}
	if out.Inventory == nil {
		out.Inventory = []Item{}
	}
	return out
}

func indexOf(items []Item, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
