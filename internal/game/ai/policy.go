package ai

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combatsim/internal/game/combatant"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

// Policy decides a combatant's action for one turn.
//
// Implementations are fail-open: ChooseAction never panics and never
// returns an error. On bad input or an internal fault it returns a safe
// defend or wait plan, so one broken combatant cannot abort the encounter.
type Policy interface {
	ChooseAction(actor *combatant.Combatant, state *CombatState) Plan
}

// Threat bonuses.
const (
	specialBonus = 2.0
	casterBonus  = 3.0
	healerBonus  = 2.0
	focusBonus   = 1.0
)

// ThreatAssessment scores how dangerous c is:
// level + hp/10 + 2 per special action + class-feature bonuses + the
// expected bonus of its active attack buffs. A nil combatant scores 0.
func ThreatAssessment(c *combatant.Combatant, state *CombatState) float64 {
	if c == nil {
		return 0
	}
	score := float64(c.Level) + float64(max(c.HP, 0))/10
	for _, a := range c.Actions() {
		if a.Type == ruleset.ActionSpecial {
			score += specialBonus
		}
	}
	if c.IsSpellcaster() {
		score += casterBonus
	}
	if c.IsHealer() {
		score += healerBonus
	}
	if c.Buffs != nil {
		score += float64(c.Buffs.ExpectedBonus(ruleset.AttackRolls))
	}
	if state != nil {
		if _, ok := state.concentratingOn(c); ok {
			score += focusBonus
		}
	}
	return score
}

// RankedTarget pairs a combatant with its threat score.
type RankedTarget struct {
	Combatant *combatant.Combatant
	Threat    float64
}

// EvaluateTargets ranks the living candidates by descending threat. Equal
// scores keep candidate order.
func EvaluateTargets(candidates []*combatant.Combatant, state *CombatState) []RankedTarget {
	out := make([]RankedTarget, 0, len(candidates))
	for _, c := range candidates {
		if c == nil || !c.IsAlive() {
			continue
		}
		out = append(out, RankedTarget{Combatant: c, Threat: ThreatAssessment(c, state)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Threat > out[j].Threat })
	return out
}

// topThreat returns the highest-threat living candidate, or nil.
func topThreat(candidates []*combatant.Combatant, state *CombatState) *combatant.Combatant {
	ranked := EvaluateTargets(candidates, state)
	if len(ranked) == 0 {
		return nil
	}
	return ranked[0].Combatant
}

// OpportunityCostAnalysis weighs spending a slot on s now against keeping it.
// Cantrips cost nothing; a leveled spell costs more the higher its level,
// the fewer slots of that level remain, and the more enemies are still
// standing. A spell with no slot left, or a nil caster or spell, costs +Inf.
func OpportunityCostAnalysis(caster *combatant.Combatant, s *ruleset.Spell, state *CombatState) float64 {
	if caster == nil || s == nil {
		return math.Inf(1)
	}
	if s.IsCantrip() {
		return 0
	}
	left := caster.SlotsRemaining(s.Level)
	if left <= 0 {
		return math.Inf(1)
	}
	pressure := 1.0
	if state != nil {
		pressure += float64(len(state.Enemies)) / 4
	}
	return float64(s.Level) * pressure / float64(left)
}

// guard runs choose and converts any panic into fallback, logging it.
func guard(logger *zap.Logger, policy string, actor *combatant.Combatant, state *CombatState, fallback Plan, choose func() Plan) (plan Plan) {
	if err := state.validate(actor); err != nil {
		logger.Warn("ai: invalid decision input",
			zap.String("policy", policy),
			zap.Error(err),
		)
		return fallback
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("ai: decision fault, falling back",
				zap.String("policy", policy),
				zap.String("actor", actor.Name),
				zap.String("fallback", fallback.Kind.String()),
				zap.String("panic", fmt.Sprint(r)),
			)
			plan = fallback
		}
	}()
	return choose()
}

func areaOr(area bool, all []*combatant.Combatant, one *combatant.Combatant) []*combatant.Combatant {
	if area {
		return append([]*combatant.Combatant(nil), all...)
	}
	return []*combatant.Combatant{one}
}
