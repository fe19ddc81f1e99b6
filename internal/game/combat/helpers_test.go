package combat_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combatsim/internal/game/buff"
	"github.com/cory-johannsen/combatsim/internal/game/combat"
	"github.com/cory-johannsen/combatsim/internal/game/combatant"
	"github.com/cory-johannsen/combatsim/internal/game/dice"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

// scriptedSource serves queued values per die size. Intn(n) pops the next
// value queued under n and returns 0 once the queue is empty.
type scriptedSource struct {
	queues map[int][]int
	calls  map[int]int
}

func script(q map[int][]int) *scriptedSource {
	return &scriptedSource{queues: q, calls: make(map[int]int)}
}

func (s *scriptedSource) Intn(n int) int {
	s.calls[n]++
	q := s.queues[n]
	if len(q) == 0 {
		return 0
	}
	s.queues[n] = q[1:]
	return q[0] % n
}

// fixedSrc always returns val.
type fixedSrc struct{ val int }

func (f fixedSrc) Intn(n int) int {
	if f.val >= n {
		return n - 1
	}
	return f.val
}

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
		p.Scores = scores(10, 10, 10, 10, 10, 10)
	}
	if p.MaxHP == 0 {
		p.MaxHP = 20
	}
	c, err := combatant.New(p)
	require.NoError(t, err)
	return c
}

// fighter has STR 16, DEX 14 and a Longsword (1d8, melee); attack bonus +5.
func fighter(t testing.TB) *combatant.Combatant {
	return build(t, combatant.Params{
		Name: "Fighter", Class: ruleset.Fighter, Level: 3, MaxHP: 20, AC: 16,
		Scores:  scores(16, 14, 14, 10, 10, 10),
		Actions: []*ruleset.Action{action(t, ruleset.Action{Name: "Longsword", Damage: "1d8"})},
	})
}

// goblin has 7 hp, AC 13, DEX 14.
func goblin(t testing.TB, name string) *combatant.Combatant {
	return build(t, combatant.Params{
		Name: name, Kind: combatant.Monster, MaxHP: 7, AC: 13, Scores: scores(8, 14, 10, 10, 8, 8),
		Actions: []*ruleset.Action{action(t, ruleset.Action{Name: "Scimitar", Damage: "1d6+2", WeaponClass: ruleset.Finesse})},
	})
}

// cleric has WIS 16 and one 1st-level slot.
func cleric(t testing.TB, spells ...*ruleset.Spell) *combatant.Combatant {
	return build(t, combatant.Params{
		Name: "Cleric", Class: ruleset.Cleric, Level: 1, MaxHP: 10, AC: 15,
		Scores: scores(12, 10, 14, 10, 16, 12),
		Spells: spells, SpellSlots: map[int]int{1: 1},
		Actions: []*ruleset.Action{action(t, ruleset.Action{Name: "Mace", Damage: "1d6"})},
	})
}

func cureWounds(t testing.TB) *ruleset.Spell {
	return spell(t, ruleset.Spell{Name: "Cure Wounds", Level: 1, Healing: true, Dice: "1d8"})
}

func bless(t testing.TB) *ruleset.Spell {
	return spell(t, ruleset.Spell{
		Name: "Bless", Level: 1, Concentration: true, IsBuff: true, AreaEffect: true,
		BuffData: &ruleset.BuffTemplate{Duration: 10, Dice: "1d4", Affects: []ruleset.RollCategory{ruleset.AttackRolls, ruleset.SavingThrows}},
	})
}

func resolver(src dice.Source) (*combat.Resolver, *buff.Concentration) {
	conc := buff.NewConcentration()
	return combat.NewResolver(dice.NewLoggedRoller(src, zap.NewNop()), conc, zap.NewNop()), conc
}
