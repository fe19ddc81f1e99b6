package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/combatsim/internal/game/combat"
	"github.com/cory-johannsen/combatsim/internal/game/combatant"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

func TestResolveAction_HitAppliesDamage(t *testing.T) {
	f, g := fighter(t), goblin(t, "Goblin")
	r, _ := resolver(script(map[int][]int{20: {17}, 8: {4}}))
	sword, _ := f.Action("Longsword")

	res := r.ResolveAction(f, sword, []*combatant.Combatant{g})

	require.True(t, res.Success)
	require.NotNil(t, res.Hit)
	assert.True(t, *res.Hit)
	assert.Equal(t, 18, res.AttackRoll)
	assert.Equal(t, 23, res.AttackTotal)
	assert.Equal(t, 8, res.Damage)
	assert.Equal(t, -1, g.HP)
	assert.False(t, g.IsAlive())
}

func TestResolveAction_NaturalOneAlwaysMisses(t *testing.T) {
	bonus := 100
	f, g := fighter(t), goblin(t, "Goblin")
	a := action(t, ruleset.Action{Name: "Lucky Swing", Damage: "1d8", HitBonus: &bonus})
	r, _ := resolver(script(map[int][]int{20: {0}}))

	res := r.ResolveAction(f, a, []*combatant.Combatant{g})

	assert.False(t, *res.Hit)
	assert.True(t, res.Fumble)
	assert.Zero(t, res.Damage)
	assert.Equal(t, g.MaxHP, g.HP)
}

func TestResolveAction_NaturalTwentyDoublesDice(t *testing.T) {
	f, g := fighter(t), goblin(t, "Goblin")
	g.AC = 40
	r, _ := resolver(script(map[int][]int{20: {19}, 8: {7, 7}}))
	sword, _ := f.Action("Longsword")

	res := r.ResolveAction(f, sword, []*combatant.Combatant{g})

	assert.True(t, *res.Hit)
	assert.True(t, res.Critical)
	assert.Equal(t, 19, res.Damage)
	assert.Equal(t, 7-19, g.HP)
}

func TestResolveAction_SaveHalvesDamageOnSuccess(t *testing.T) {
	breath := action(t, ruleset.Action{
		Name: "Fire Breath", Type: ruleset.ActionSpecial, Damage: "4d6", DamageType: "fire",
		SaveType: ruleset.Dexterity, SaveDC: 12, AreaEffect: true,
	})
	dragon := build(t, combatant.Params{Name: "Dragon", Kind: combatant.Monster, MaxHP: 100, AC: 18, Actions: []*ruleset.Action{breath}})
	a := build(t, combatant.Params{Name: "A", MaxHP: 30, Scores: scores(10, 14, 10, 10, 10, 10)})
	b := build(t, combatant.Params{Name: "B", MaxHP: 30, Scores: scores(10, 14, 10, 10, 10, 10)})
	src := script(map[int][]int{6: {4, 4, 4, 4}, 20: {19, 0}})
	r, _ := resolver(src)

	res := r.ResolveAction(dragon, breath, []*combatant.Combatant{a, b})

	require.True(t, res.Success)
	assert.Equal(t, combat.KindSpecial, res.Kind)
	assert.Equal(t, 12, res.SaveDC)
	require.Len(t, res.TargetResults, 2)
	assert.True(t, *res.TargetResults[0].SaveSuccess)
	assert.Equal(t, 10, res.TargetResults[0].Damage)
	assert.False(t, *res.TargetResults[1].SaveSuccess)
	assert.Equal(t, 20, res.TargetResults[1].Damage)
	assert.Equal(t, 30, res.Damage)
	assert.Equal(t, 20, a.HP)
	assert.Equal(t, 10, b.HP)
	assert.Equal(t, 4, src.calls[6], "damage is rolled once for all targets")
}

func TestResolveAction_LimitedSpecial(t *testing.T) {
	curse := action(t, ruleset.Action{Name: "Curse", Type: ruleset.ActionSpecial, Damage: "1d4", Uses: 1})
	m := build(t, combatant.Params{Name: "Hag", Kind: combatant.Monster, Actions: []*ruleset.Action{curse}})
	target := build(t, combatant.Params{Name: "T", MaxHP: 50})
	r, _ := resolver(fixedSrc{10})

	first := r.ResolveAction(m, curse, []*combatant.Combatant{target})
	second := r.ResolveAction(m, curse, []*combatant.Combatant{target})

	assert.True(t, first.Success)
	assert.False(t, second.Success)
	assert.Equal(t, combat.ReasonUnavailable, second.Reason)
}

func TestResolveAction_NoLivingTarget(t *testing.T) {
	f, g := fighter(t), goblin(t, "Goblin")
	g.HP = 0
	r, _ := resolver(fixedSrc{10})
	sword, _ := f.Action("Longsword")

	res := r.ResolveAction(f, sword, []*combatant.Combatant{g})

	assert.False(t, res.Success)
	assert.Equal(t, combat.ReasonNoTarget, res.Reason)
	assert.Equal(t, 0, g.HP)
}

func wizard(t testing.TB, spells ...*ruleset.Spell) *combatant.Combatant {
	return build(t, combatant.Params{
		Name: "Wizard", Class: ruleset.Wizard, Level: 5, MaxHP: 24, AC: 12,
		Scores: scores(8, 14, 12, 16, 12, 10),
		Spells: spells, SpellSlots: map[int]int{2: 1, 3: 1},
	})
}

func boolRef(b bool) *bool { return &b }

func TestCastSpell_FireballHalvesOnSave(t *testing.T) {
	fireball := spell(t, ruleset.Spell{Name: "Fireball", Level: 3, Mode: ruleset.ModeSave, SaveType: ruleset.Dexterity, Dice: "8d6", AreaEffect: true, DamageType: "fire"})
	w := wizard(t, fireball)
	a := build(t, combatant.Params{Name: "A", MaxHP: 50})
	b := build(t, combatant.Params{Name: "B", MaxHP: 50})
	src := script(map[int][]int{6: {3, 3, 3, 3, 3, 3, 3, 3}, 20: {19, 0}})
	r, _ := resolver(src)

	res := r.CastSpell(w, fireball, []*combatant.Combatant{a, b})

	require.True(t, res.Success)
	assert.Equal(t, w.SpellSaveDC(), res.SaveDC)
	require.Len(t, res.TargetResults, 2)
	assert.True(t, *res.TargetResults[0].SaveSuccess)
	assert.Equal(t, 16, res.TargetResults[0].Damage)
	assert.False(t, *res.TargetResults[1].SaveSuccess)
	assert.Equal(t, 32, res.TargetResults[1].Damage)
	assert.Equal(t, 48, res.Damage)
	assert.Equal(t, 34, a.HP)
	assert.Equal(t, 18, b.HP)
	assert.Equal(t, 0, w.SlotsRemaining(3))
}

func TestCastSpell_SaveNegatesUnlistedSpell(t *testing.T) {
	shatter := spell(t, ruleset.Spell{Name: "Shatter", Level: 2, Mode: ruleset.ModeSave, SaveType: ruleset.Constitution, Dice: "3d8"})
	w := wizard(t, shatter)
	target := build(t, combatant.Params{Name: "T", MaxHP: 50})
	r, _ := resolver(script(map[int][]int{8: {4, 4, 4}, 20: {19}}))

	res := r.CastSpell(w, shatter, []*combatant.Combatant{target})

	require.True(t, res.Success)
	require.NotNil(t, res.SaveSuccess)
	assert.True(t, *res.SaveSuccess)
	assert.Equal(t, 0, res.Damage)
	assert.Equal(t, 50, target.HP)
	assert.Equal(t, 0, w.SlotsRemaining(2))
}

func TestCastSpell_HalfOnSaveFlagOverridesDefaults(t *testing.T) {
	cases := []struct {
		name  string
		spell ruleset.Spell
		want  int
	}{
		{"fireball opted out", ruleset.Spell{Name: "Fireball", Level: 3, Mode: ruleset.ModeSave, SaveType: ruleset.Dexterity, Dice: "8d6", HalfOnSave: boolRef(false)}, 0},
		{"unlisted opted in", ruleset.Spell{Name: "Shatter", Level: 2, Mode: ruleset.ModeSave, SaveType: ruleset.Constitution, Dice: "8d6", HalfOnSave: boolRef(true)}, 16},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := spell(t, tc.spell)
			w := wizard(t, s)
			target := build(t, combatant.Params{Name: "T", MaxHP: 50})
			r, _ := resolver(script(map[int][]int{6: {3, 3, 3, 3, 3, 3, 3, 3}, 20: {19}}))

			res := r.CastSpell(w, s, []*combatant.Combatant{target})

			require.True(t, res.Success)
			assert.True(t, *res.SaveSuccess)
			assert.Equal(t, tc.want, res.Damage)
			assert.Equal(t, 50-tc.want, target.HP)
		})
	}
}

func TestCastSpell_HealingSpendsSlotThenFails(t *testing.T) {
	cure := cureWounds(t)
	c := cleric(t, cure)
	ally := build(t, combatant.Params{Name: "Ally", HP: 5, MaxHP: 20})
	r, _ := resolver(script(map[int][]int{8: {5, 5}}))

	res := r.CastSpell(c, cure, []*combatant.Combatant{ally})

	require.True(t, res.Success)
	assert.Equal(t, 6, res.Healing)
	assert.Equal(t, 1, res.SlotLevel)
	assert.Equal(t, 11, ally.HP)
	assert.Equal(t, 0, c.SlotsRemaining(1))

	again := r.CastSpell(c, cure, []*combatant.Combatant{ally})
	assert.False(t, again.Success)
	assert.Equal(t, combat.ReasonNoSlot, again.Reason)
	assert.Equal(t, 11, ally.HP)
}

func TestCastSpell_HealingReportsRestoredAmount(t *testing.T) {
	cure := cureWounds(t)
	c := cleric(t, cure)
	ally := build(t, combatant.Params{Name: "Ally", HP: 18, MaxHP: 20})
	r, _ := resolver(fixedSrc{7})

	res := r.CastSpell(c, cure, []*combatant.Combatant{ally})

	assert.Equal(t, 2, res.Healing)
	assert.Equal(t, 20, ally.HP)
}

func TestCastSpell_ConcentrationMovesBetweenSpells(t *testing.T) {
	b := bless(t)
	shield := spell(t, ruleset.Spell{
		Name: "Shield of Faith", Level: 1, Concentration: true, IsBuff: true,
		BuffData: &ruleset.BuffTemplate{Duration: 10, Bonus: 2, Affects: []ruleset.RollCategory{ruleset.ArmorClass}},
	})
	c := build(t, combatant.Params{
		Name: "Cleric", Class: ruleset.Cleric, Scores: scores(10, 10, 10, 10, 16, 10),
		Spells: []*ruleset.Spell{b, shield}, SpellSlots: map[int]int{1: 2},
	})
	x := build(t, combatant.Params{Name: "X"})
	y := build(t, combatant.Params{Name: "Y"})
	r, conc := resolver(fixedSrc{0})

	res := r.CastSpell(c, b, []*combatant.Combatant{c, x, y})
	require.True(t, res.Success)
	assert.Equal(t, "Bless", res.BuffApplied)
	assert.Equal(t, []string{"Cleric", "X", "Y"}, res.BuffTargets)
	for _, who := range []*combatant.Combatant{c, x, y} {
		assert.True(t, who.Buffs.Has("Bless"), who.Name)
	}
	name, ok := conc.Active(c.ID)
	require.True(t, ok)
	assert.Equal(t, "Bless", name)

	r.CastSpell(c, shield, []*combatant.Combatant{x})
	for _, who := range []*combatant.Combatant{c, x, y} {
		assert.False(t, who.Buffs.Has("Bless"), who.Name)
	}
	assert.True(t, x.Buffs.Has("Shield of Faith"))
	name, _ = conc.Active(c.ID)
	assert.Equal(t, "Shield of Faith", name)
}

func TestCastSpell_NoCheckRollsOnce(t *testing.T) {
	missile := spell(t, ruleset.Spell{Name: "Magic Missile", Level: 1, Dice: "3d4+3", AreaEffect: true, DamageType: "force"})
	w := build(t, combatant.Params{Name: "Wizard", Class: ruleset.Wizard, Spells: []*ruleset.Spell{missile}, SpellSlots: map[int]int{1: 1}})
	a := build(t, combatant.Params{Name: "A", Kind: combatant.Monster, MaxHP: 30})
	b := build(t, combatant.Params{Name: "B", Kind: combatant.Monster, MaxHP: 30})
	src := script(map[int][]int{4: {3, 3, 3}})
	r, _ := resolver(src)

	res := r.CastSpell(w, missile, []*combatant.Combatant{a, b})

	assert.Equal(t, 30, res.Damage)
	assert.Equal(t, "force", res.DamageType)
	assert.Equal(t, 15, a.HP)
	assert.Equal(t, 15, b.HP)
	assert.Equal(t, 3, src.calls[4])
}

func TestCastSpell_SingleTargetSpellHitsFirstOnly(t *testing.T) {
	bolt := spell(t, ruleset.Spell{Name: "Fire Bolt", Level: 0, Mode: ruleset.ModeAttack, Dice: "1d10"})
	w := build(t, combatant.Params{Name: "Wizard", Class: ruleset.Wizard, Scores: scores(10, 10, 10, 16, 10, 10), Spells: []*ruleset.Spell{bolt}})
	a := build(t, combatant.Params{Name: "A", Kind: combatant.Monster, MaxHP: 30, AC: 10})
	b := build(t, combatant.Params{Name: "B", Kind: combatant.Monster, MaxHP: 30, AC: 10})
	r, _ := resolver(script(map[int][]int{20: {15}, 10: {4}}))

	res := r.CastSpell(w, bolt, []*combatant.Combatant{a, b})

	require.True(t, res.Success)
	assert.Equal(t, "A", res.Target)
	assert.True(t, *res.Hit)
	assert.Equal(t, 5, res.Damage)
	assert.Equal(t, 30, b.HP)
	assert.Zero(t, res.SlotLevel)
}
