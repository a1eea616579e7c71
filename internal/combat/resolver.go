// Package combat resolves one exchange between the player and an enemy.
// Resolution is a pure function of its inputs and one uniform roll; callers
// apply health and reward changes from the returned result.
//
// Precondition: stats must be finite and non-negative. Malformed stats give
// undefined chances.
package combat

import "github.com/stepcrawl/server/internal/game"

// Config holds the tunable chance coefficients.
type Config struct {
	BaseDodge      float64 `toml:"base_dodge"`
	BaseHit        float64 `toml:"base_hit"`
	PaceThreshold  float64 `toml:"pace_threshold"` // steps per minute
	AgilityFactor  float64 `toml:"agility_factor"`
	StrengthFactor float64 `toml:"strength_factor"`
	FastDodge      float64 `toml:"fast_dodge"`
	SlowDodge      float64 `toml:"slow_dodge"`
	FastHit        float64 `toml:"fast_hit"`
	SlowHit        float64 `toml:"slow_hit"`
}

func DefaultConfig() Config {
	return Config{
		BaseDodge:      0.1,
		BaseHit:        0.3,
		PaceThreshold:  100,
		AgilityFactor:  0.02,
		StrengthFactor: 0.03,
		FastDodge:      0.2,
		SlowDodge:      -0.1,
		FastHit:        0.1,
		SlowHit:        -0.05,
	}
}

// Roller draws uniformly from [0,1). *rand.Rand satisfies it.
type Roller interface {
	Float64() float64
}

type Resolver struct {
	cfg Config
}

func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg}
}

func (r *Resolver) Config() Config { return r.cfg }

// Chances returns the dodge and hit probabilities for the given pace, base
// stats and equipment.
func (r *Resolver) Chances(pace float64, stats game.PlayerStats, equipped []game.Item) (dodge, hit float64) {
	eff := stats.Effective(equipped)
	dodge = r.cfg.BaseDodge + float64(eff.Agility)*r.cfg.AgilityFactor
	hit = r.cfg.BaseHit + float64(eff.Strength)*r.cfg.StrengthFactor
	if pace > r.cfg.PaceThreshold {
		dodge += r.cfg.FastDodge
		hit += r.cfg.FastHit
	} else {
		dodge += r.cfg.SlowDodge
		hit += r.cfg.SlowHit
	}
	return dodge, hit
}

// ResolveRoll maps an explicit roll to an outcome: below the dodge chance the
// player dodges, below dodge+hit the player lands a hit, otherwise the enemy
// does.
func (r *Resolver) ResolveRoll(pace float64, stats game.PlayerStats, enemy game.Enemy, equipped []game.Item, roll float64) game.CombatResult {
	dodge, hit := r.Chances(pace, stats, equipped)
	res := game.CombatResult{
		Enemy:       enemy,
		DodgeChance: dodge,
		HitChance:   hit,
		Roll:        roll,
	}
	switch {
	case roll < dodge:
		res.Outcome = game.Dodged
	case roll < dodge+hit:
		res.Outcome = game.HitEnemy
	default:
		res.Outcome = game.PlayerHit
	}
	return res
}

// Resolve draws one roll from rng and resolves it.
func (r *Resolver) Resolve(pace float64, stats game.PlayerStats, enemy game.Enemy, equipped []game.Item, rng Roller) game.CombatResult {
	return r.ResolveRoll(pace, stats, enemy, equipped, rng.Float64())
}

// Damage returns the health each side loses for res: the enemy's damage when
// the player is hit, the player's effective strength (at least 1) when the
// player hits.
func Damage(res game.CombatResult, stats game.PlayerStats, equipped []game.Item) (taken, dealt int) {
	switch res.Outcome {
	case game.PlayerHit:
		return max(0, res.Enemy.Damage), 0
	case game.HitEnemy:
		return 0, max(1, stats.Effective(equipped).Strength)
	}
	return 0, 0
}
