package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/combatsim/internal/game/combat"
	"github.com/cory-johannsen/combatsim/internal/game/combatant"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

func strikeSummary(strikes []combat.Strike) map[string]int {
	out := make(map[string]int)
	for _, s := range strikes {
		out[s.Action.Name] += s.Count
	}
	return out
}

func TestPlanMultiattack_Grammar(t *testing.T) {
	bite := action(t, ruleset.Action{Name: "Bite", Damage: "2d10+6"})
	claw := action(t, ruleset.Action{Name: "Claw", Damage: "2d6+6"})
	attacks := []*ruleset.Action{bite, claw}

	cases := []struct {
		name string
		desc string
		want map[string]int
	}{
		{"with its", "The dragon makes three attacks: one with its bite and two with its claws.", map[string]int{"Bite": 1, "Claw": 2}},
		{"noun attacks", "The owlbear makes two claw attacks.", map[string]int{"Claw": 2}},
		{"digits", "It makes 2 attacks with its claws.", map[string]int{"Claw": 2}},
		{"fallback", "It attacks ferociously.", map[string]int{"Bite": 1, "Claw": 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, strikeSummary(combat.PlanMultiattack(tc.desc, attacks)))
		})
	}
}

func TestPlanMultiattack_SingleAttackFallback(t *testing.T) {
	slam := action(t, ruleset.Action{Name: "Slam", Damage: "1d8"})
	strikes := combat.PlanMultiattack("It flails.", []*ruleset.Action{slam})
	require.Len(t, strikes, 1)
	assert.Equal(t, 2, strikes[0].Count)
	assert.Nil(t, combat.PlanMultiattack("anything", nil))
}

func TestMultiattack_KeepsStrikingAfterTargetDrops(t *testing.T) {
	multi := action(t, ruleset.Action{Name: "Multiattack", Type: ruleset.ActionSpecial, Description: "One with its beak and one with its claws."})
	beak := action(t, ruleset.Action{Name: "Beak", Damage: "1d10"})
	claws := action(t, ruleset.Action{Name: "Claws", Damage: "2d8"})
	owlbear := build(t, combatant.Params{Name: "Owlbear", Kind: combatant.Monster, Scores: scores(18, 10, 10, 10, 10, 10), Actions: []*ruleset.Action{multi, beak, claws}})
	g := goblin(t, "Goblin")
	r, _ := resolver(fixedSrc{19})

	res := r.ResolveAction(owlbear, multi, []*combatant.Combatant{g})

	require.True(t, res.Success)
	assert.Equal(t, combat.KindMultiattack, res.Kind)
	require.Len(t, res.Attacks, 2)
	assert.Equal(t, "Beak", res.Attacks[0].Action)
	assert.Equal(t, "Claws", res.Attacks[1].Action)
	assert.True(t, res.Attacks[1].Critical)
	assert.Greater(t, res.Attacks[1].Damage, 0)
	assert.Equal(t, res.Attacks[0].Damage+res.Attacks[1].Damage, res.Damage)
	assert.Equal(t, 7-res.Damage, g.HP)
	assert.True(t, *res.Hit)
}

func TestMultiattack_RunsEveryStrike(t *testing.T) {
	multi := action(t, ruleset.Action{Name: "Multiattack", Type: ruleset.ActionSpecial, Description: "One with its bite and two with its claws."})
	bite := action(t, ruleset.Action{Name: "Bite", Damage: "1d4"})
	claw := action(t, ruleset.Action{Name: "Claw", Damage: "1d4"})
	wolf := build(t, combatant.Params{Name: "Wolf", Kind: combatant.Monster, Actions: []*ruleset.Action{multi, bite, claw}})
	target := build(t, combatant.Params{Name: "Tank", MaxHP: 100, AC: 5})
	r, _ := resolver(fixedSrc{10})

	res := r.ResolveAction(wolf, multi, []*combatant.Combatant{target})

	require.Len(t, res.Attacks, 3)
	assert.Equal(t, "Bite", res.Attacks[0].Action)
	assert.Equal(t, "Claw", res.Attacks[1].Action)
	sum := 0
	for _, a := range res.Attacks {
		sum += a.Damage
	}
	assert.Equal(t, sum, res.Damage)
	assert.Equal(t, 100-res.Damage, target.HP)
}
