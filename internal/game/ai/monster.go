package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/combatsim/internal/game/combatant"
	"github.com/cory-johannsen/combatsim/internal/game/dice"
)

// TargetMode names the monster targeting behaviours.
type TargetMode string

const (
	SpreadDamage TargetMode = "spread"
	FocusFire    TargetMode = "focus"
	FinishWeak   TargetMode = "finish"
	RandomTarget TargetMode = "random"
)

// Targeting mix thresholds on a [0,1) draw.
const (
	spreadBelow = 0.40
	focusBelow  = 0.70
	finishBelow = 0.85
)

// MonsterPolicy drives enemies: specials first, then a mixed targeting
// strategy for plain attacks, otherwise wait.
type MonsterPolicy struct {
	logger *zap.Logger
}

// NewMonsterPolicy returns a MonsterPolicy. A nil logger discards output.
func NewMonsterPolicy(logger *zap.Logger) *MonsterPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonsterPolicy{logger: logger}
}

// ChooseAction implements Policy. The fallback is wait.
func (m *MonsterPolicy) ChooseAction(actor *combatant.Combatant, state *CombatState) Plan {
	return guard(m.logger, "monster", actor, state, WaitPlan(), func() Plan {
		if len(state.Enemies) == 0 {
			return WaitPlan()
		}
		for _, a := range actor.AvailableSpecials() {
			// Utility specials resolve with no effect.
			if !a.IsDamaging() {
				continue
			}
			target := topThreat(state.Enemies, state)
			return SpecialPlan(a, areaOr(a.AreaEffect, state.Enemies, target)...)
		}
		attacks := actor.AttackActions()
		if len(attacks) == 0 {
			return WaitPlan()
		}
		a := attacks[0]
		target, mode := m.PickTarget(actor, state)
		m.logger.Debug("monster target",
			zap.String("actor", actor.Name),
			zap.String("mode", string(mode)),
			zap.String("target", target.Name),
		)
		return AttackPlan(a, areaOr(a.AreaEffect, state.Enemies, target)...)
	})
}

// TargetSeed is the per-decision seed: the sum of the runes in name plus
// round*13. The same monster name in the same round always targets the same way.
func TargetSeed(name string, round int) uint64 {
	sum := 0
	for _, r := range name {
		sum += int(r)
	}
	return uint64(sum + round*13)
}

// PickTarget chooses one living enemy using a deterministic random draw
// seeded from the actor's name and the round. It draws from its own source,
// so it never disturbs the encounter's dice.
//
// Precondition: state.Enemies has at least one living member.
func (m *MonsterPolicy) PickTarget(actor *combatant.Combatant, state *CombatState) (*combatant.Combatant, TargetMode) {
	src := dice.NewSeededSource(TargetSeed(actor.Name, state.Round))
	roll := src.Float64()
	enemies := living(state.Enemies)
	switch {
	case roll < spreadBelow:
		return lowest(enemies, func(c *combatant.Combatant) float64 { return c.HPFraction() }), SpreadDamage
	case roll < focusBelow:
		return topThreat(enemies, state), FocusFire
	case roll < finishBelow:
		return lowest(enemies, func(c *combatant.Combatant) float64 { return float64(c.HP) }), FinishWeak
	default:
		return enemies[src.Intn(len(enemies))], RandomTarget
	}
}

func living(cs []*combatant.Combatant) []*combatant.Combatant {
	out := make([]*combatant.Combatant, 0, len(cs))
	for _, c := range cs {
		if c.IsAlive() {
			out = append(out, c)
		}
	}
	return out
}

// lowest returns the first candidate minimising key.
func lowest(cs []*combatant.Combatant, key func(*combatant.Combatant) float64) *combatant.Combatant {
	var best *combatant.Combatant
	bestKey := 0.0
	for _, c := range cs {
		k := key(c)
		if best == nil || k < bestKey {
			best, bestKey = c, k
		}
	}
	return best
}
