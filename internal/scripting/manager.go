package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combatsim/internal/game/dice"
)

// GlobalProfile is the reserved profile CallHook falls back to when the
// requested profile has no VM.
const GlobalProfile = "__global__"

// CombatantInfo is a snapshot of a combatant passed to Lua hooks.
type CombatantInfo struct {
	ID    string
	Name  string
	HP    int
	MaxHP int
	AC    int
	Level int
	Buffs []string
}

type vm struct {
	mu    sync.Mutex
	L     *lua.LState
	limit int
}

// Manager owns one sandboxed LState per script profile and dispatches hooks.
//
// Manager is safe for concurrent use. Each VM is single-threaded, so calls
// into the same profile are serialised while different profiles run in parallel.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	roller *dice.Roller
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no profiles loaded.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		roller: roller,
		logger: logger,
	}
}

// LoadDir creates a sandboxed VM for profile, registers the engine.* modules,
// then executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: profile must be non-empty; scriptDir must be a readable directory.
// Postcondition: the profile's VM is replaced; returns error on Lua load failure.
func (m *Manager) LoadDir(profile, scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, profile, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(files)

	return m.load(profile, instLimit, func(L *lua.LState) error {
		for _, path := range files {
			release := armLimit(L, instLimit)
			err := L.DoFile(path)
			release()
			if err != nil {
				return fmt.Errorf("scripting: loading %q for %q: %w", path, profile, err)
			}
		}
		return nil
	})
}

// LoadProfiles calls LoadDir for every subdirectory of root, using the
// subdirectory name as the profile. It returns the loaded profile names.
func (m *Manager) LoadProfiles(root string, instLimit int) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scripting: reading profile root %q: %w", root, err)
	}
	var profiles []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := m.LoadDir(e.Name(), filepath.Join(root, e.Name()), instLimit); err != nil {
			return profiles, err
		}
		profiles = append(profiles, e.Name())
	}
	return profiles, nil
}

// LoadString is LoadDir for a single in-memory chunk.
func (m *Manager) LoadString(profile, src string, instLimit int) error {
	return m.load(profile, instLimit, func(L *lua.LState) error {
		release := armLimit(L, instLimit)
		defer release()
		if err := L.DoString(src); err != nil {
			return fmt.Errorf("scripting: loading chunk for %q: %w", profile, err)
		}
		return nil
	})
}

func (m *Manager) load(profile string, instLimit int, run func(*lua.LState) error) error {
	L := NewSandboxedState(instLimit)
	m.RegisterModules(L)
	if err := run(L); err != nil {
		L.Close()
		return err
	}

	m.mu.Lock()
	if old, ok := m.vms[profile]; ok {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	m.vms[profile] = &vm{L: L, limit: instLimit}
	m.mu.Unlock()
	return nil
}

func (m *Manager) lookup(profile string) *vm {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.vms[profile]; ok {
		return v
	}
	return m.vms[GlobalProfile]
}

// HasHook reports whether profile (or the global fallback) defines hook.
func (m *Manager) HasHook(profile, hook string) bool {
	v := m.lookup(profile)
	if v == nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.L.GetGlobal(hook).Type() == lua.LTFunction
}

// CallHook calls the named Lua global function in profile's VM, falling back
// to the global VM. Returns (LNil, nil) if the hook is not defined or no VM
// exists. Lua runtime errors are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(profile, hook string, args ...lua.LValue) (lua.LValue, error) {
	v := m.lookup(profile)
	if v == nil {
		m.logger.Info("scripting: no VM for profile",
			zap.String("profile", profile),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return m.call(v, profile, hook, func(*lua.LState) []lua.LValue { return args })
}

// CallTargetHook calls hook(actor, enemies, round) and returns the enemy name
// the script picked. An empty name means the script declined to choose.
func (m *Manager) CallTargetHook(profile, hook string, actor CombatantInfo, enemies []CombatantInfo, round int) (string, error) {
	v := m.lookup(profile)
	if v == nil {
		return "", nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	ret, err := m.call(v, profile, hook, func(L *lua.LState) []lua.LValue {
		list := L.NewTable()
		for _, e := range enemies {
			list.Append(combatantTable(L, e))
		}
		return []lua.LValue{combatantTable(L, actor), list, lua.LNumber(round)}
	})
	if err != nil {
		return "", err
	}
	if s, ok := ret.(lua.LString); ok {
		return string(s), nil
	}
	return "", nil
}

// call runs hook with v locked.
func (m *Manager) call(v *vm, profile, hook string, build func(*lua.LState) []lua.LValue) (lua.LValue, error) {
	fn := v.L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}
	release := armLimit(v.L, v.limit)
	defer release()
	if err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, build(v.L)...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("profile", profile),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}
	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Close releases every VM. CallHook on a closed Manager returns LNil.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, v := range m.vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
		delete(m.vms, id)
	}
}

func combatantTable(L *lua.LState, c CombatantInfo) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(c.ID))
	t.RawSetString("name", lua.LString(c.Name))
	t.RawSetString("hp", lua.LNumber(c.HP))
	t.RawSetString("max_hp", lua.LNumber(c.MaxHP))
	t.RawSetString("ac", lua.LNumber(c.AC))
	t.RawSetString("level", lua.LNumber(c.Level))
	buffs := L.NewTable()
	for _, b := range c.Buffs {
		buffs.Append(lua.LString(b))
	}
	t.RawSetString("buffs", buffs)
	return t
}
