package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/combatsim/internal/game/combatant"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

var (
	errNilActor  = errors.New("actor is nil")
	errDeadActor = errors.New("actor is dead")
	errNilState  = errors.New("combat state is nil")
	errBadRound  = errors.New("round must be >= 1")
)

// PlanKind tags what a Plan asks the engine to do.
type PlanKind int

const (
	// Defend spends the turn guarding.
	Defend PlanKind = iota
	// Wait passes the turn.
	Wait
	// Attack uses an attack action.
	Attack
	// CastSpell casts a known spell.
	CastSpell
	// Special uses a special action.
	Special
)

// String returns the log name of k.
func (k PlanKind) String() string {
	switch k {
	case Wait:
		return "wait"
	case Attack:
		return "attack"
	case CastSpell:
		return "cast_spell"
	case Special:
		return "special"
	default:
		return "defend"
	}
}

// Plan is a policy's decision for one turn. It is consumed once, in the turn
// that produced it.
type Plan struct {
	Kind    PlanKind
	Action  *ruleset.Action
	Spell   *ruleset.Spell
	Targets []*combatant.Combatant
}

// DefendPlan returns the defend fallback.
func DefendPlan() Plan { return Plan{Kind: Defend} }

// WaitPlan returns the wait fallback.
func WaitPlan() Plan { return Plan{Kind: Wait} }

// AttackPlan targets targets with attack action a.
func AttackPlan(a *ruleset.Action, targets ...*combatant.Combatant) Plan {
	return Plan{Kind: Attack, Action: a, Targets: targets}
}

// CastPlan casts s at targets.
func CastPlan(s *ruleset.Spell, targets ...*combatant.Combatant) Plan {
	return Plan{Kind: CastSpell, Spell: s, Targets: targets}
}

// SpecialPlan uses special action a against targets.
func SpecialPlan(a *ruleset.Action, targets ...*combatant.Combatant) Plan {
	return Plan{Kind: Special, Action: a, Targets: targets}
}

// Target returns the first target, or nil.
func (p Plan) Target() *combatant.Combatant {
	if len(p.Targets) == 0 {
		return nil
	}
	return p.Targets[0]
}

// String renders the plan for debug logs.
func (p Plan) String() string {
	names := make([]string, len(p.Targets))
	for i, t := range p.Targets {
		names[i] = t.Name
	}
	switch p.Kind {
	case Attack, Special:
		return fmt.Sprintf("%s %s -> [%s]", p.Kind, p.Action.Name, strings.Join(names, ", "))
	case CastSpell:
		return fmt.Sprintf("%s %s -> [%s]", p.Kind, p.Spell.Name, strings.Join(names, ", "))
	default:
		return p.Kind.String()
	}
}
