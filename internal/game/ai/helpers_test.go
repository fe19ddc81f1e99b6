package ai_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combatsim/internal/game/combatant"
	"github.com/cory-johannsen/combatsim/internal/game/dice"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

func scores(str, dex, con, intel, wis, cha int) ruleset.Scores {
	return ruleset.Scores{
		ruleset.Strength: str, ruleset.Dexterity: dex, ruleset.Constitution: con,
		ruleset.Intelligence: intel, ruleset.Wisdom: wis, ruleset.Charisma: cha,
	}
}

func action(t testing.TB, a ruleset.Action) *ruleset.Action {
	t.Helper()
	require.NoError(t, a.Validate())
	return &a
}

func spell(t testing.TB, s ruleset.Spell) *ruleset.Spell {
	t.Helper()
	require.NoError(t, s.Validate())
	return &s
}

func build(t testing.TB, p combatant.Params) *combatant.Combatant {
	t.Helper()
	if p.Scores == nil {
		p.Scores = scores(12, 12, 12, 12, 12, 12)
	}
	if p.MaxHP == 0 {
		p.MaxHP = 20
	}
	c, err := combatant.New(p)
	require.NoError(t, err)
	return c
}

func fighter(t testing.TB, name string) *combatant.Combatant {
	return build(t, combatant.Params{
		Name: name, Class: ruleset.Fighter, Level: 3, AC: 16, Scores: scores(16, 12, 14, 10, 10, 8),
		Actions: []*ruleset.Action{
			action(t, ruleset.Action{Name: "Shortbow", Damage: "1d6", WeaponClass: ruleset.Ranged}),
			action(t, ruleset.Action{Name: "Longsword", Damage: "1d8"}),
		},
	})
}

func bless(t testing.TB) *ruleset.Spell {
	return spell(t, ruleset.Spell{
		Name: "Bless", Level: 1, Concentration: true, IsBuff: true, AreaEffect: true,
		BuffData: &ruleset.BuffTemplate{Duration: 10, Dice: "1d4", Affects: []ruleset.RollCategory{ruleset.AttackRolls}},
	})
}

func cureWounds(t testing.TB) *ruleset.Spell {
	return spell(t, ruleset.Spell{Name: "Cure Wounds", Level: 1, Healing: true, Dice: "1d8"})
}

func sacredFlame(t testing.TB) *ruleset.Spell {
	return spell(t, ruleset.Spell{Name: "Sacred Flame", Level: 0, Mode: ruleset.ModeSave, SaveType: ruleset.Dexterity, Dice: "1d8"})
}

func cleric(t testing.TB, spells ...*ruleset.Spell) *combatant.Combatant {
	return build(t, combatant.Params{
		Name: "Mira", Class: ruleset.Cleric, Level: 3, AC: 15, Scores: scores(12, 10, 14, 10, 16, 12),
		Spells: spells, SpellSlots: map[int]int{1: 4, 2: 2, 3: 1, 6: 1},
		Actions: []*ruleset.Action{action(t, ruleset.Action{Name: "Mace", Damage: "1d6"})},
	})
}

func goblin(t testing.TB, name string) *combatant.Combatant {
	return build(t, combatant.Params{
		Name: name, Kind: combatant.Monster, MaxHP: 7, AC: 13, Scores: scores(8, 14, 10, 10, 8, 8),
		Actions: []*ruleset.Action{action(t, ruleset.Action{Name: "Scimitar", Damage: "1d6+2", WeaponClass: ruleset.Finesse})},
	})
}

type fakeConcentration map[string]string

func (f fakeConcentration) Active(source string) (string, bool) {
	n, ok := f[source]
	return n, ok
}

func newRoller() *dice.Roller { return dice.NewLoggedRoller(dice.NewSeededSource(1), zap.NewNop()) }

func zapNop() *zap.Logger { return zap.NewNop() }
