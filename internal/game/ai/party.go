package ai

import (
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combatsim/internal/game/combatant"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

// Party policy thresholds.
const (
	buffRounds       = 2
	criticalHPFrac   = 0.15
	woundedHPFrac    = 0.25
	healCoverage     = 0.60
	aggressiveRounds = 5
)

// PartyPolicy drives player characters through a fixed priority ladder:
// early buffs, emergency healing, attacks on the biggest threat, defend.
type PartyPolicy struct {
	logger *zap.Logger
}

// NewPartyPolicy returns a PartyPolicy. A nil logger discards output.
func NewPartyPolicy(logger *zap.Logger) *PartyPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PartyPolicy{logger: logger}
}

// ChooseAction implements Policy. The fallback is defend.
func (p *PartyPolicy) ChooseAction(actor *combatant.Combatant, state *CombatState) Plan {
	return guard(p.logger, "party", actor, state, DefendPlan(), func() Plan {
		if state.Round <= buffRounds {
			if plan, ok := p.buff(actor, state); ok {
				return plan
			}
		}
		for _, frac := range []float64{criticalHPFrac, woundedHPFrac} {
			if plan, ok := p.heal(actor, state, frac); ok {
				return plan
			}
		}
		if plan, ok := p.attack(actor, state); ok {
			return plan
		}
		return DefendPlan()
	})
}

// buff casts the first castable buff spell some living ally lacks.
func (p *PartyPolicy) buff(actor *combatant.Combatant, state *CombatState) (Plan, bool) {
	current, isConcentrating := state.concentratingOn(actor)
	for _, s := range actor.Spells() {
		if !s.IsBuff || s.BuffData == nil || !actor.CanCast(s) {
			continue
		}
		if s.Concentration && isConcentrating && current == s.BuffData.Name {
			continue
		}
		var unbuffed []*combatant.Combatant
		for _, a := range state.Allies {
			if a.IsAlive() && !a.Buffs.Has(s.BuffData.Name) {
				unbuffed = append(unbuffed, a)
			}
		}
		if len(unbuffed) == 0 {
			continue
		}
		if s.AreaEffect {
			return CastPlan(s, unbuffed...), true
		}
		return CastPlan(s, topThreat(unbuffed, state)), true
	}
	return Plan{}, false
}

// heal targets the most injured ally below frac of max hp.
func (p *PartyPolicy) heal(actor *combatant.Combatant, state *CombatState, frac float64) (Plan, bool) {
	var patient *combatant.Combatant
	for _, a := range state.Allies {
		if !a.IsAlive() || a.HPFraction() >= frac {
			continue
		}
		if patient == nil || a.HPFraction() < patient.HPFraction() {
			patient = a
		}
	}
	if patient == nil {
		return Plan{}, false
	}
	spell := p.pickHeal(actor, patient, state)
	if spell == nil {
		return Plan{}, false
	}
	if spell.AreaEffect {
		return CastPlan(spell, state.Allies...), true
	}
	return CastPlan(spell, patient), true
}

// pickHeal returns the cheapest castable healing spell whose expected
// healing covers healCoverage of patient's missing hp, or the strongest
// castable heal when none covers it.
func (p *PartyPolicy) pickHeal(actor, patient *combatant.Combatant, state *CombatState) *ruleset.Spell {
	need := healCoverage * float64(patient.Missing())
	mod := actor.SpellcastingMod()
	var covering, strongest []*ruleset.Spell
	for _, s := range actor.HealingSpells() {
		if !actor.CanCast(s) {
			continue
		}
		strongest = append(strongest, s)
		if float64(s.ExpectedHealing(actor.Level, mod)) >= need {
			covering = append(covering, s)
		}
	}
	if len(covering) > 0 {
		sort.SliceStable(covering, func(i, j int) bool {
			if covering[i].Level != covering[j].Level {
				return covering[i].Level < covering[j].Level
			}
			return OpportunityCostAnalysis(actor, covering[i], state) < OpportunityCostAnalysis(actor, covering[j], state)
		})
		return covering[0]
	}
	if len(strongest) == 0 {
		return nil
	}
	sort.SliceStable(strongest, func(i, j int) bool {
		return strongest[i].ExpectedHealing(actor.Level, mod) > strongest[j].ExpectedHealing(actor.Level, mod)
	})
	return strongest[0]
}

// attack picks the offensive option against the top-threat enemy.
func (p *PartyPolicy) attack(actor *combatant.Combatant, state *CombatState) (Plan, bool) {
	target := topThreat(state.Enemies, state)
	if target == nil {
		return Plan{}, false
	}
	if actor.IsSpellcaster() {
		if !actor.IsHealer() && state.Round <= aggressiveRounds {
			if s := p.strongestDamageSpell(actor); s != nil {
				return CastPlan(s, areaOr(s.AreaEffect, state.Enemies, target)...), true
			}
		}
		for _, s := range actor.Spells() {
			if s.IsCantrip() && s.IsDamaging() {
				return CastPlan(s, areaOr(s.AreaEffect, state.Enemies, target)...), true
			}
		}
	}
	if a := bestAttack(actor); a != nil {
		return AttackPlan(a, areaOr(a.AreaEffect, state.Enemies, target)...), true
	}
	if s := p.cheapestDamageSpell(actor, state); s != nil {
		return CastPlan(s, areaOr(s.AreaEffect, state.Enemies, target)...), true
	}
	return Plan{}, false
}

// strongestDamageSpell is the highest-level castable damaging spell. Spells
// of equal level are ranked by expected damage.
func (p *PartyPolicy) strongestDamageSpell(actor *combatant.Combatant) *ruleset.Spell {
	var best *ruleset.Spell
	for _, s := range actor.Spells() {
		if !s.IsDamaging() || !actor.CanCast(s) {
			continue
		}
		if best == nil || s.Level > best.Level ||
			(s.Level == best.Level && s.ExpectedDamage(actor.Level) > best.ExpectedDamage(actor.Level)) {
			best = s
		}
	}
	return best
}

// cheapestDamageSpell prefers cantrips, then the lowest opportunity cost.
func (p *PartyPolicy) cheapestDamageSpell(actor *combatant.Combatant, state *CombatState) *ruleset.Spell {
	var best *ruleset.Spell
	bestCost := 0.0
	for _, s := range actor.Spells() {
		if !s.IsDamaging() || !actor.CanCast(s) {
			continue
		}
		cost := OpportunityCostAnalysis(actor, s, state)
		if best == nil || cost < bestCost {
			best, bestCost = s, cost
		}
	}
	return best
}

// bestAttack is the attack action with the highest hit bonus.
func bestAttack(actor *combatant.Combatant) *ruleset.Action {
	var best *ruleset.Action
	bestBonus := 0
	for _, a := range actor.AttackActions() {
		b := actor.ActionHitBonus(a)
		if best == nil || b > bestBonus {
			best, bestBonus = a, b
		}
	}
	return best
}
