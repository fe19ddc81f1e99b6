package dice_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/combatsim/internal/game/dice"
)

// fixedSrc returns val for every Intn call.
type fixedSrc struct{ val int }

func (f fixedSrc) Intn(_ int) int { return f.val }

func TestRollResult_Total(t *testing.T) {
	r := dice.RollResult{Expression: "2d6+3", Dice: []int{4, 5}, Modifier: 3}
	assert.Equal(t, 12, r.Total())
}

func TestRollResult_String(t *testing.T) {
	r := dice.RollResult{Expression: "2d6+3", Dice: []int{4, 5}, Modifier: 3}
	assert.Equal(t, "2d6+3 → [4 5] +3 = 12", r.String())
}

func TestRollResult_String_PanicsOnEmptyExpression(t *testing.T) {
	r := dice.RollResult{Dice: []int{4}}
	assert.Panics(t, func() { _ = r.String() })
}

func TestRollResult_Total_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rolled := rapid.SliceOf(rapid.IntRange(1, 20)).Draw(rt, "dice")
		modifier := rapid.IntRange(-50, 50).Draw(rt, "modifier")
		expected := modifier
		for _, d := range rolled {
			expected += d
		}
		r := dice.RollResult{Expression: "Nd20", Dice: rolled, Modifier: modifier}
		assert.Equal(rt, expected, r.Total())
		assert.Contains(rt, r.String(), fmt.Sprintf("= %d", expected))
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		in          string
		count       int
		sides       int
		mod         int
		hasModifier bool
	}{
		{"d20", 1, 20, 0, false},
		{"1d8", 1, 8, 0, false},
		{"2d6+3", 2, 6, 3, true},
		{"4d8-2", 4, 8, -2, true},
		{"1D10", 1, 10, 0, false},
		{"2d6 + 0", 2, 6, 0, true},
		{" 3d4 - 1 ", 3, 4, -1, true},
	}
	for _, tc := range tests {
		e, err := dice.Parse(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.count, e.Count, tc.in)
		assert.Equal(t, tc.sides, e.Sides, tc.in)
		assert.Equal(t, tc.mod, e.Modifier, tc.in)
		assert.Equal(t, tc.hasModifier, e.HasModifier, tc.in)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "20", "0d6", "2d1", "xd6", "2dx", "2d6+x", "-1d6"} {
		_, err := dice.Parse(in)
		assert.Error(t, err, "expected error for %q", in)
	}
}

func TestExpression_Average(t *testing.T) {
	assert.Equal(t, 4, dice.MustParse("1d8").Average())
	assert.Equal(t, 7, dice.MustParse("2d6").Average())
	assert.Equal(t, 10, dice.MustParse("2d6+3").Average())
	assert.Equal(t, 28, dice.MustParse("8d6").Average())
}

func TestExpression_Scaled(t *testing.T) {
	e := dice.MustParse("1d10").Scaled(3)
	assert.Equal(t, 3, e.Count)
	assert.Equal(t, "3d10", e.String())
	assert.Equal(t, "1d10", dice.MustParse("1d10").Scaled(1).String())
}

func TestCantripTier(t *testing.T) {
	tests := []struct{ level, want int }{
		{1, 1}, {4, 1}, {5, 2}, {10, 2}, {11, 3}, {16, 3}, {17, 4}, {20, 4},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, dice.CantripTier(tc.level), "level=%d", tc.level)
	}
}

func TestRoll_UsesSource(t *testing.T) {
	r := dice.Roll(dice.MustParse("3d6+2"), fixedSrc{val: 3})
	assert.Equal(t, []int{4, 4, 4}, r.Dice)
	assert.Equal(t, 14, r.Total())
}

func TestRoll_Property_WithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 10).Draw(rt, "count")
		sides := rapid.IntRange(2, 20).Draw(rt, "sides")
		seed := rapid.Uint64().Draw(rt, "seed")
		e := dice.MustParse(fmt.Sprintf("%dd%d", count, sides))
		r := dice.Roll(e, dice.NewSeededSource(seed))
		require.Len(rt, r.Dice, count)
		assert.GreaterOrEqual(rt, r.Total(), count)
		assert.LessOrEqual(rt, r.Total(), e.Max())
	})
}

func TestSeededSource_Reproducible(t *testing.T) {
	a := dice.NewSeededSource(42)
	b := dice.NewSeededSource(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Intn(1000), b.Intn(1000))
	}
	assert.Equal(t, uint64(42), a.Seed())
}

func TestSeededSource_Float64InRange(t *testing.T) {
	s := dice.NewSeededSource(7)
	for i := 0; i < 1000; i++ {
		v := s.Float64()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewCryptoSource().Intn(0) })
}

func TestNewSeed_NonZero(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.NotZero(t, dice.NewSeed())
	}
}

func TestRoller_RollExpr(t *testing.T) {
	r := dice.NewLoggedRoller(fixedSrc{val: 4}, nil)
	res, err := r.RollExpr("1d8")
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total())
	assert.True(t, strings.HasPrefix(res.String(), "1d8"))

	_, err = r.RollExpr("bogus")
	assert.Error(t, err)
	assert.Equal(t, 5, r.D20("test"))
}
