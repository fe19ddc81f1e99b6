package combat_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/combatsim/internal/game/ai"
	"github.com/cory-johannsen/combatsim/internal/game/combat"
	"github.com/cory-johannsen/combatsim/internal/game/combatant"
	"github.com/cory-johannsen/combatsim/internal/game/dice"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

type policyFunc func(*combatant.Combatant, *ai.CombatState) ai.Plan

func (f policyFunc) ChooseAction(actor *combatant.Combatant, state *ai.CombatState) ai.Plan {
	return f(actor, state)
}

func registry(t testing.TB, party, monsters ai.Policy) *ai.Registry {
	reg := ai.NewRegistry()
	require.NoError(t, reg.Register(combatant.Character, party))
	require.NoError(t, reg.Register(combatant.Monster, monsters))
	return reg
}

func TestNew_RejectsBadRosters(t *testing.T) {
	f, g := fighter(t), goblin(t, "Goblin")

	_, err := combat.New(nil, []*combatant.Combatant{g})
	assert.Error(t, err)
	_, err = combat.New([]*combatant.Combatant{f}, nil)
	assert.Error(t, err)
	_, err = combat.New([]*combatant.Combatant{f, nil}, []*combatant.Combatant{g})
	assert.Error(t, err)
	_, err = combat.New([]*combatant.Combatant{f}, []*combatant.Combatant{g, f})
	assert.Error(t, err)
}

func TestEncounter_FighterKillsGoblinInOneSwing(t *testing.T) {
	f, g := fighter(t), goblin(t, "Goblin")
	core, logs := observer.New(zapcore.InfoLevel)
	src := script(map[int][]int{20: {19, 0, 17}, 8: {4}})
	enc, err := combat.New([]*combatant.Combatant{f}, []*combatant.Combatant{g},
		combat.WithSource(src), combat.WithLogger(zap.New(core)))
	require.NoError(t, err)

	sum, err := enc.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, combat.WinnerParty, sum.Winner)
	assert.Equal(t, 1, sum.Rounds)
	assert.Equal(t, 20, sum.PartyHPRemaining)
	assert.Equal(t, -1, g.HP)
	assert.Equal(t, []string{"Fighter", "Goblin"}, order(enc.Initiative()))
	require.Len(t, sum.Combatants, 2)
	assert.Equal(t, "unharmed", sum.Combatants[0].Health)
	assert.Equal(t, "dead", sum.Combatants[1].Health)
	assert.False(t, sum.Combatants[1].Alive)

	require.Len(t, sum.Log, 2)
	assert.Equal(t, combat.EntryRoundStart, sum.Log[0].Type)
	entry := sum.Log[1]
	assert.Equal(t, combat.EntryAction, entry.Type)
	assert.Equal(t, "Fighter", entry.Actor)
	require.NotNil(t, entry.Result)
	assert.Equal(t, "Longsword", entry.Result.Action)
	assert.Equal(t, "Goblin", entry.Result.Target)
	assert.True(t, *entry.Result.Hit)
	assert.Equal(t, 8, entry.Result.Damage)

	assert.Equal(t, 1, logs.FilterMessage("combat: over").Len())
	assert.True(t, enc.IsOver())
	assert.Nil(t, enc.NextTurn())
}

func TestEncounter_RoundCapEndsUnknown(t *testing.T) {
	tank := func(name string, kind combatant.Kind) *combatant.Combatant {
		return build(t, combatant.Params{
			Name: name, Kind: kind, MaxHP: 1000, AC: 10,
			Actions: []*ruleset.Action{action(t, ruleset.Action{Name: "Punch", Damage: "1d2"})},
		})
	}
	var seen []combat.Progress
	enc, err := combat.New(
		[]*combatant.Combatant{tank("Hero", combatant.Character)},
		[]*combatant.Combatant{tank("Ogre", combatant.Monster)},
		combat.WithSource(fixedSrc{0}), combat.WithRoundCap(3), combat.WithProgressInterval(1),
	)
	require.NoError(t, err)

	sum, err := enc.Run(context.Background(), func(p combat.Progress) { seen = append(seen, p) })
	require.NoError(t, err)

	assert.Equal(t, combat.WinnerUnknown, sum.Winner)
	assert.Equal(t, 3, sum.Rounds)
	starts := 0
	for _, e := range sum.Log {
		if e.Type == combat.EntryRoundStart {
			starts++
		}
	}
	assert.Equal(t, 3, starts)
	require.Len(t, seen, 4)
	assert.Equal(t, []int{1, 2, 3}, []int{seen[0].Round, seen[1].Round, seen[2].Round})
	assert.True(t, seen[3].Over)
	assert.Equal(t, 1000, sum.PartyHPRemaining)
}

func TestEncounter_RoundCapIsClamped(t *testing.T) {
	f, g := fighter(t), goblin(t, "Goblin")
	f.AC, g.AC = 100, 100
	f.HP, g.HP = 1, 1
	enc, err := combat.New([]*combatant.Combatant{f}, []*combatant.Combatant{g},
		combat.WithSource(fixedSrc{1}), combat.WithRoundCap(500))
	require.NoError(t, err)

	sum, err := enc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, combat.MaxRounds, sum.Rounds)
}

func TestEncounter_ContextCancelled(t *testing.T) {
	enc, err := combat.New([]*combatant.Combatant{fighter(t)}, []*combatant.Combatant{goblin(t, "Goblin")})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = enc.Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncounter_FaultWrapsSimulationFailed(t *testing.T) {
	boom := policyFunc(func(*combatant.Combatant, *ai.CombatState) ai.Plan { panic("boom") })
	enc, err := combat.New([]*combatant.Combatant{fighter(t)}, []*combatant.Combatant{goblin(t, "Goblin")},
		combat.WithPolicies(registry(t, boom, boom)))
	require.NoError(t, err)

	calls := 0
	_, err = enc.Run(context.Background(), func(combat.Progress) { calls++ })
	require.Error(t, err)
	assert.True(t, errors.Is(err, combat.ErrSimulationFailed))
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 1, calls)
}

func TestEncounter_FallenCasterDropsConcentration(t *testing.T) {
	b := bless(t)
	c := cleric(t, b)
	f := fighter(t)
	club := action(t, ruleset.Action{Name: "Greatclub", Damage: "2d8+4"})
	ogre := build(t, combatant.Params{
		Name: "Ogre", Kind: combatant.Monster, MaxHP: 60, AC: 11,
		Scores: scores(19, 8, 16, 5, 7, 7), Actions: []*ruleset.Action{club},
	})
	party := policyFunc(func(actor *combatant.Combatant, state *ai.CombatState) ai.Plan {
		if actor == c && state.Round == 1 {
			return ai.CastPlan(b, state.Allies...)
		}
		return ai.WaitPlan()
	})
	monsters := policyFunc(func(actor *combatant.Combatant, state *ai.CombatState) ai.Plan {
		if c.IsAlive() {
			return ai.AttackPlan(club, c)
		}
		return ai.WaitPlan()
	})
	enc, err := combat.New([]*combatant.Combatant{c, f}, []*combatant.Combatant{ogre},
		combat.WithSource(fixedSrc{19}), combat.WithPolicies(registry(t, party, monsters)))
	require.NoError(t, err)

	// Everyone rolls 20; DEX orders fighter, cleric, ogre.
	assert.Equal(t, f, enc.NextTurn())
	assert.Equal(t, c, enc.NextTurn())
	require.True(t, f.Buffs.Has("Bless"))
	_, ok := enc.Concentration().Active(c.ID)
	require.True(t, ok)

	assert.Equal(t, ogre, enc.NextTurn())
	assert.False(t, c.IsAlive())
	assert.False(t, f.Buffs.Has("Bless"))
	_, ok = enc.Concentration().Active(c.ID)
	assert.False(t, ok)
	assert.False(t, enc.IsOver())
}

func TestEncounter_CastWithoutSlotIsLoggedFailure(t *testing.T) {
	cure := cureWounds(t)
	c := cleric(t, cure)
	c.HP = 3
	g := goblin(t, "Goblin")
	party := policyFunc(func(actor *combatant.Combatant, state *ai.CombatState) ai.Plan {
		return ai.CastPlan(cure, actor)
	})
	wait := policyFunc(func(*combatant.Combatant, *ai.CombatState) ai.Plan { return ai.WaitPlan() })
	enc, err := combat.New([]*combatant.Combatant{c}, []*combatant.Combatant{g},
		combat.WithSource(fixedSrc{3}), combat.WithRoundCap(2), combat.WithPolicies(registry(t, party, wait)))
	require.NoError(t, err)

	sum, err := enc.Run(context.Background(), nil)
	require.NoError(t, err)

	var casts []*combat.Result
	for _, e := range sum.Log {
		if e.Actor == "Cleric" {
			casts = append(casts, e.Result)
		}
	}
	require.Len(t, casts, 2)
	assert.True(t, casts[0].Success)
	assert.Equal(t, 4, casts[0].Healing)
	assert.False(t, casts[1].Success)
	assert.Equal(t, combat.ReasonNoSlot, casts[1].Reason)
	assert.Equal(t, 7, c.HP)
	for _, st := range sum.Combatants {
		if st.Name == "Cleric" {
			assert.Equal(t, 0, st.SlotsRemaining[1])
		}
	}
}

func TestEncounter_AlwaysTerminates(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		np := rapid.IntRange(1, 3).Draw(rt, "party")
		nm := rapid.IntRange(1, 4).Draw(rt, "monsters")
		var party, monsters []*combatant.Combatant
		for i := 0; i < np; i++ {
			party = append(party, fighter(t))
		}
		for i := 0; i < nm; i++ {
			monsters = append(monsters, goblin(t, "Goblin"))
		}
		enc, err := combat.New(party, monsters, combat.WithSource(dice.NewSeededSource(seed)))
		require.NoError(rt, err)

		sum, err := enc.Run(context.Background(), nil)
		require.NoError(rt, err)
		assert.LessOrEqual(rt, sum.Rounds, combat.MaxRounds)

		alive := func(cs []*combatant.Combatant) int {
			n := 0
			for _, c := range cs {
				if c.IsAlive() {
					n++
				}
			}
			return n
		}
		switch sum.Winner {
		case combat.WinnerParty:
			assert.Zero(rt, alive(monsters))
			assert.Positive(rt, alive(party))
		case combat.WinnerMonsters:
			assert.Zero(rt, alive(party))
			assert.Zero(rt, sum.PartyHPRemaining)
		default:
			assert.Equal(rt, combat.MaxRounds, sum.Rounds)
		}
		for _, c := range append(party, monsters...) {
			assert.Zero(rt, c.Buffs.Len())
		}
	})
}
