package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/stepcrawl/server/internal/game"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding the progression formulas.
// Single-goroutine access only (tick loop). Every formula has a Go fallback
// used when the script does not define it or fails.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every .lua file in scriptsDir.
// A missing directory yields an engine that only uses the fallbacks.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if err := e.loadDir(scriptsDir); err != nil {
		e.vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// NewEngineFromSource creates an engine from inline Lua source.
func NewEngineFromSource(src string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if err := e.vm.DoString(src); err != nil {
		e.vm.Close()
		return nil, fmt.Errorf("load script source: %w", err)
	}
	return e, nil
}

func newEngine(log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return &Engine{vm: vm, log: log}
}

// loadDir loads all .lua files in a directory in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			e.log.Warn("script directory missing, using built-in formulas", zap.String("dir", dir))
			return nil
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Has reports whether the scripts define a global function name.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// XPForLevel returns the experience needed to advance from level.
// Lua: xp_for_level(level) -> int. Fallback: 100 * level.
func (e *Engine) XPForLevel(level int) int {
	if v, ok := e.callInt("xp_for_level", level); ok && v > 0 {
		return v
	}
	return game.DefaultCurve(level)
}

// Reward is the experience and coins granted for defeating an enemy.
type Reward struct {
	XP    int
	Coins int
}

// EncounterReward calls encounter_reward({level, health, damage, boss, depth})
// which must return a table {xp=, coins=}.
// Fallback: 10 xp and 5 coins per enemy level, five times that for a boss.
func (e *Engine) EncounterReward(enemy game.Enemy, depth int) Reward {
	fallback := Reward{XP: 10 * max(1, enemy.Level), Coins: 5 * max(1, enemy.Level)}
	if enemy.Boss {
		fallback.XP *= 5
		fallback.Coins *= 5
	}
	fn, ok := e.vm.GetGlobal("encounter_reward").(*lua.LFunction)
	if !ok {
		return fallback
	}

	t := e.vm.NewTable()
	t.RawSetString("level", lua.LNumber(enemy.Level))
	t.RawSetString("health", lua.LNumber(enemy.Health))
	t.RawSetString("damage", lua.LNumber(enemy.Damage))
	t.RawSetString("boss", lua.LBool(enemy.Boss))
	t.RawSetString("depth", lua.LNumber(depth))

	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, t); err != nil {
		e.log.Error("lua encounter_reward error", zap.Error(err))
		return fallback
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		e.log.Error("lua encounter_reward returned non-table", zap.String("type", ret.Type().String()))
		return fallback
	}
	return Reward{XP: lInt(tbl, "xp"), Coins: lInt(tbl, "coins")}
}

// TrapDamage returns the health lost to a trap at depth.
// Lua: trap_damage(depth, level) -> int. Fallback: 5 + depth/50.
func (e *Engine) TrapDamage(depth, level int) int {
	if v, ok := e.callInt("trap_damage", depth, level); ok && v >= 0 {
		return v
	}
	return 5 + depth/50
}

func lInt(t *lua.LTable, key string) int {
	if n, ok := t.RawGetString(key).(lua.LNumber); ok {
		return int(n)
	}
	return 0
}

// callInt calls a global Lua function with integer args and reads one
// integer result. ok is false when the function is missing or fails.
func (e *Engine) callInt(name string, args ...int) (int, bool) {
	fn, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return 0, false
	}
	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		largs[i] = lua.LNumber(a)
	}
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, largs...); err != nil {
		e.log.Error("lua call error", zap.String("func", name), zap.Error(err))
		return 0, false
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := ret.(lua.LNumber)
	if !ok {
		e.log.Error("lua function returned non-number", zap.String("func", name))
		return 0, false
	}
	return int(n), true
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}
