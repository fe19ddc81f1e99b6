package ai

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combatsim/internal/game/combatant"
	"github.com/cory-johannsen/combatsim/internal/scripting"
)

// TargetHooks is the scripting surface ScriptedPolicy needs.
type TargetHooks interface {
	CallTargetHook(profile, hook string, actor scripting.CombatantInfo, enemies []scripting.CombatantInfo, round int) (string, error)
}

// ScriptedPolicy lets a combatant's Lua tactics hook retarget the plan its
// base policy produced. Combatants without a Tactics hook, plans that do not
// target a single enemy, and any script failure all leave the base plan as is.
type ScriptedPolicy struct {
	base    Policy
	hooks   TargetHooks
	profile string
	logger  *zap.Logger
}

// NewScriptedPolicy wraps base.
//
// Precondition: base and hooks must be non-nil.
func NewScriptedPolicy(base Policy, hooks TargetHooks, profile string, logger *zap.Logger) *ScriptedPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	if profile == "" {
		profile = scripting.GlobalProfile
	}
	return &ScriptedPolicy{base: base, hooks: hooks, profile: profile, logger: logger}
}

// ChooseAction implements Policy.
func (s *ScriptedPolicy) ChooseAction(actor *combatant.Combatant, state *CombatState) (plan Plan) {
	plan = s.base.ChooseAction(actor, state)
	if actor == nil || actor.Tactics == "" || state == nil || !s.retargetable(plan, state) {
		return plan
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("ai: tactics hook fault, keeping base plan",
				zap.String("actor", actor.Name),
				zap.String("hook", actor.Tactics),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	enemies := make([]scripting.CombatantInfo, len(state.Enemies))
	for i, e := range state.Enemies {
		enemies[i] = Info(e)
	}
	name, err := s.hooks.CallTargetHook(s.profile, actor.Tactics, Info(actor), enemies, state.Round)
	if err != nil || name == "" {
		return plan
	}
	for _, e := range state.Enemies {
		if e.Name == name && e.IsAlive() {
			out := plan
			out.Targets = []*combatant.Combatant{e}
			return out
		}
	}
	s.logger.Debug("ai: tactics hook named unknown target",
		zap.String("actor", actor.Name),
		zap.String("target", name),
	)
	return plan
}

// retargetable reports whether plan aims a single-target effect at an enemy.
func (s *ScriptedPolicy) retargetable(plan Plan, state *CombatState) bool {
	if len(plan.Targets) != 1 {
		return false
	}
	switch plan.Kind {
	case Attack, Special:
		if plan.Action.AreaEffect {
			return false
		}
	case CastSpell:
		if plan.Spell.AreaEffect || plan.Spell.Healing || plan.Spell.IsBuff {
			return false
		}
	default:
		return false
	}
	for _, e := range state.Enemies {
		if e == plan.Targets[0] {
			return true
		}
	}
	return false
}

// Info snapshots c for a Lua hook.
func Info(c *combatant.Combatant) scripting.CombatantInfo {
	var buffs []string
	for _, b := range c.Buffs.All() {
		buffs = append(buffs, b.Name)
	}
	return scripting.CombatantInfo{
		ID:    c.ID,
		Name:  c.Name,
		HP:    c.HP,
		MaxHP: c.MaxHP,
		AC:    c.AC,
		Level: c.Level,
		Buffs: buffs,
	}
}
