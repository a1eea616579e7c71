package session

import (
	"strconv"
	"time"

	"github.com/stepcrawl/server/internal/combat"
	"github.com/stepcrawl/server/internal/core/ecs"
	"github.com/stepcrawl/server/internal/core/event"
	coresys "github.com/stepcrawl/server/internal/core/system"
	"github.com/stepcrawl/server/internal/game"
	"github.com/stepcrawl/server/internal/geom"
	"go.uber.org/zap"
)

// maxRounds bounds a regular encounter. An enemy still standing afterwards
// escapes.
const maxRounds = 16

const (
	msgLevelUp      = "Level up! You are now level %d."
	msgCheckpoint   = "Checkpoint reached at depth %d."
	msgEncounter    = "A %s blocks the way!"
	msgVictory      = "The %s falls. +%d XP, +%d coins."
	msgEscaped      = "The %s slips away into the dark."
	msgDefeated     = "You fall, and wake at depth %d."
	msgTreasure     = "Found %d coins."
	msgTreasureItem = "Found %d coins and %s."
	msgTrap         = "A trap! You lose %d health."
	msgBossAwakens  = "%s awakens."
	msgBossDefeated = "%s is defeated. The dungeon is clear."
)

const (
	defaultTreasure  = 10
	defaultEnemyName = "shade"
	defaultBossName  = "The Warden"
)

func (s *Session) subscribe() {
	event.Subscribe(s.bus, s.onUnitsMoved)
	event.Subscribe(s.bus, s.onPathReached)
	event.Subscribe(s.bus, s.onEnemyCollision)
	event.Subscribe(s.bus, s.onTreasureCollected)
	event.Subscribe(s.bus, s.onTrapTriggered)
	event.Subscribe(s.bus, s.onCheckpointReached)
}

// Phase places the session after movement and the camera have settled.
func (s *Session) Phase() coresys.Phase { return coresys.PhasePostUpdate }

// Update grants fallback path progress, converts fallback displacement into
// depth and drives the boss fight.
func (s *Session) Update(dt time.Duration) {
	sensed := s.SensorAvailable()
	s.stats.Pace = s.pace.Pace()

	pos, ok := s.ws.Positions.Get(s.player)
	if !ok {
		return
	}
	cur := geom.Vec{X: pos.X, Y: pos.Y}
	moved := cur.Dist(s.lastPos)
	s.lastPos = cur

	switch s.state.Mode {
	case game.ModeWalking:
		if sensed {
			return
		}
		s.carry += moved / s.stepConfig().PixelsPerUnit
		if n := int(s.carry); n > 0 {
			s.carry -= float64(n)
			s.Dispatch(game.Step{Payload: n})
			s.enterBossIfDue()
		}
		if s.state.Mode == game.ModeWalking && s.cfg.FallbackProgress > 0 {
			event.Emit(s.bus, event.ProgressGranted{Entity: s.player, Amount: s.cfg.FallbackProgress})
		}

	case game.ModeBoss:
		s.enterBossIfDue()
		if sensed {
			ped, ok := s.ws.Pedometers.Get(s.player)
			if !ok {
				return
			}
			spu := s.stepConfig().StepsPerUnit
			for ped.AccumulatedSteps >= spu && s.bossActive() {
				ped.AccumulatedSteps -= spu
				s.bossRound()
			}
			return
		}
		s.bossClock += dt
		for s.bossClock >= s.cfg.BossRoundEvery && s.bossActive() {
			s.bossClock -= s.cfg.BossRoundEvery
			s.bossRound()
		}
	}
}

func (s *Session) onUnitsMoved(ev event.UnitsMoved) {
	if ev.Entity != s.player || ev.Units <= 0 {
		return
	}
	s.Dispatch(game.Step{Payload: ev.Units})
	s.enterBossIfDue()
}

func (s *Session) onPathReached(ev event.PathReached) {
	if ev.Entity != s.player {
		return
	}
	meta := ev.Point.Metadata
	switch ev.Kind {
	case event.PathCheckpoint:
		s.checkpoint()
	case event.PathEncounter:
		enemy, ok := s.pathEnemy(meta["enemy"])
		if !ok {
			s.log.Debug("encounter waypoint without enemy", zap.Int("index", ev.Index))
			return
		}
		s.encounter(enemy, 0)
	case event.PathTreasure:
		coins := metaInt(meta, "coins", defaultTreasure)
		s.treasure(coins, meta["item"])
	case event.PathTrap:
		s.trap(metaInt(meta, "damage", 0))
	case event.PathBoss:
		// The boss waypoint ends the walk regardless of counted depth.
		if s.state.Mode == game.ModeWalking && s.state.Depth < s.state.DungeonLength {
			s.Dispatch(game.Step{Payload: s.state.DungeonLength - s.state.Depth})
		}
		s.enterBossIfDue()
	}
}

func (s *Session) onEnemyCollision(ev event.EnemyCollision) {
	m, ok := s.ws.Meta(ev.Enemy)
	if !ok || m.Enemy == nil {
		return
	}
	s.encounter(*m.Enemy, ev.Enemy)
}

func (s *Session) onTreasureCollected(ev event.TreasureCollected) {
	coins, item := defaultTreasure, ""
	if m, ok := s.ws.Meta(ev.Treasure); ok {
		coins, item = m.Coins, m.Item
	}
	s.treasure(coins, item)
}

func (s *Session) onTrapTriggered(ev event.TrapTriggered) {
	damage := 0
	if m, ok := s.ws.Meta(ev.Trap); ok {
		damage = m.Damage
	}
	s.trap(damage)
}

func (s *Session) onCheckpointReached(event.CheckpointReached) { s.checkpoint() }

func (s *Session) checkpoint() {
	if s.state.Mode != game.ModeWalking {
		return
	}
	before := s.state.CheckpointDepth
	s.Dispatch(game.CheckpointReached{})
	if s.state.CheckpointDepth != before {
		s.say(msgCheckpoint, s.state.CheckpointDepth)
	}
}

// pathEnemy picks the enemy for an encounter waypoint: the named one if the
// level lists it, otherwise the level's encounters in rotation.
func (s *Session) pathEnemy(name string) (game.Enemy, bool) {
	list := s.level.Encounters
	if len(list) == 0 {
		return game.Enemy{}, false
	}
	if name != "" {
		for _, e := range list {
			if e.Name == name {
				return e, true
			}
		}
	}
	return list[s.encounters%len(list)], true
}

// encounter runs a regular fight to its end within the current tick. src is
// the placed enemy entity, or zero for a waypoint encounter.
func (s *Session) encounter(enemy game.Enemy, src ecs.EntityID) {
	if s.state.Mode != game.ModeWalking {
		return
	}
	if enemy.Name == "" {
		enemy.Name = defaultEnemyName
	}
	enemy.Health = max(1, enemy.Health)
	s.encounters++
	s.Dispatch(game.EncounterStarted{Enemy: enemy})
	if s.state.Mode != game.ModeEncounter {
		return
	}
	s.say(msgEncounter, enemy.Name)
	s.log.Debug("encounter started",
		zap.String("enemy", enemy.Name),
		zap.Int("depth", s.state.Depth),
		zap.Float64("pace", s.stats.Pace),
	)
	s.fight(src)
}

func (s *Session) fight(src ecs.EntityID) {
	for range maxRounds {
		s.exchange()
		enemy := s.state.CurrentEnemy
		switch {
		case s.state.Health <= 0:
			s.defeat()
			return
		case enemy != nil && enemy.Health <= 0:
			r := s.reward(*enemy)
			if !src.IsZero() && s.ws.ECS.Alive(src) {
				s.ws.DetachBody(src)
				s.ws.ECS.MarkForDestruction(src)
			}
			s.say(msgVictory, enemy.Name, r.XP, r.Coins)
			s.Dispatch(game.ResolveEncounter{})
			return
		}
	}
	if enemy := s.state.CurrentEnemy; enemy != nil {
		s.say(msgEscaped, enemy.Name)
	}
	s.Dispatch(game.ResolveEncounter{})
}

// exchange resolves one round against the current enemy.
func (s *Session) exchange() {
	if s.state.CurrentEnemy == nil {
		return
	}
	enemy := *s.state.CurrentEnemy
	stats := s.playerStats()
	equipped := s.state.EquippedItems
	res := s.resolver.Resolve(stats.Pace, stats, enemy, equipped, s.rng)
	taken, dealt := combat.Damage(res, stats, equipped)
	s.Dispatch(game.CombatResolved{Result: res, DamageTaken: taken, DamageDealt: dealt})
}

func (s *Session) defeat() {
	s.Dispatch(game.PlayerDefeated{})
	s.relocate(s.state.Depth)
	s.say(msgDefeated, s.state.Depth)
	s.log.Info("player defeated",
		zap.String("run", s.state.RunID),
		zap.Int("respawn_depth", s.state.Depth),
	)
}

func (s *Session) reward(enemy game.Enemy) game.Reward {
	r := s.scripts.EncounterReward(enemy, s.state.Depth)
	ev := game.Reward{XP: r.XP, Coins: r.Coins}
	s.Dispatch(ev)
	return ev
}

func (s *Session) bossActive() bool {
	return s.state.Mode == game.ModeBoss && s.state.CurrentEnemy != nil
}

// enterBossIfDue starts the boss fight once the walk has reached the end of
// the dungeon.
func (s *Session) enterBossIfDue() {
	if s.state.Mode != game.ModeBoss || s.state.CurrentEnemy != nil {
		return
	}
	boss := s.level.Boss
	boss.Boss = true
	if boss.Name == "" {
		boss.Name = defaultBossName
	}
	boss.Health = max(1, boss.Health)
	s.Dispatch(game.EncounterStarted{Enemy: boss})
	s.bossClock = 0
	s.say(msgBossAwakens, boss.Name)
	s.log.Info("boss fight started",
		zap.String("run", s.state.RunID),
		zap.String("boss", boss.Name),
		zap.Int("depth", s.state.Depth),
	)
}

func (s *Session) bossRound() {
	s.exchange()
	boss := s.state.CurrentEnemy
	switch {
	case s.state.Health <= 0:
		s.defeat()
	case boss != nil && boss.Health <= 0:
		name := boss.Name
		s.reward(*boss)
		s.Dispatch(game.BossDefeated{})
		s.say(msgBossDefeated, name)
		s.log.Info("run complete",
			zap.String("run", s.state.RunID),
			zap.Int("level", s.state.Level),
			zap.Int("coins", s.state.Coins),
			zap.Int("enemies_defeated", s.state.EnemiesDefeated),
		)
	}
}

func (s *Session) treasure(coins int, itemID string) {
	if s.state.Mode != game.ModeWalking {
		return
	}
	var item *game.Item
	if itemID != "" && s.items != nil {
		if it, ok := s.items.NewInstance(itemID, s.rng); ok {
			item = &it
		} else {
			s.log.Warn("treasure references unknown item", zap.String("item", itemID))
		}
	}
	s.Dispatch(game.TreasureFound{Coins: coins, Item: item})
	if item != nil {
		s.say(msgTreasureItem, coins, item.Name)
	} else {
		s.say(msgTreasure, coins)
	}
}

// trap deals damage but never takes the last point of health.
func (s *Session) trap(damage int) {
	if s.state.Mode != game.ModeWalking {
		return
	}
	if damage <= 0 {
		damage = s.scripts.TrapDamage(s.state.Depth, s.state.Level)
	}
	damage = max(0, min(damage, s.state.Health-1))
	s.Dispatch(game.TrapSprung{Damage: damage})
	s.say(msgTrap, damage)
}

// playerStats merges the configured base stats with the progress held in
// state.
func (s *Session) playerStats() game.PlayerStats {
	p := s.stats
	st := s.state
	p.Health, p.MaxHealth = st.Health, st.MaxHealth
	p.XP, p.XPToNextLevel, p.Level, p.Coins = st.XP, st.XPToNextLevel, st.Level, st.Coins
	return p
}

func metaInt(meta map[string]string, key string, def int) int {
	v, ok := meta[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
