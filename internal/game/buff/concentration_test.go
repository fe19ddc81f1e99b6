package buff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/combatsim/internal/game/buff"
)

func TestConcentration_SecondCastPurgesEveryHolder(t *testing.T) {
	reg := buff.NewConcentration()
	a, b, c := buff.NewLedger(), buff.NewLedger(), buff.NewLedger()

	for _, l := range []*buff.Ledger{a, b} {
		l.Add(buff.New(bless(), "cleric", "Mira", true))
	}
	reg.Begin("cleric", "Bless", []*buff.Ledger{a, b})

	c.Add(buff.New(shieldOfFaith(), "cleric", "Mira", true))
	removed := reg.Begin("cleric", "Shield of Faith", []*buff.Ledger{c})

	assert.Equal(t, 2, removed)
	assert.False(t, a.Has("Bless"))
	assert.False(t, b.Has("Bless"))
	assert.True(t, c.Has("Shield of Faith"))
	name, ok := reg.Active("cleric")
	assert.True(t, ok)
	assert.Equal(t, "Shield of Faith", name)
}

func TestConcentration_ActiveFalseAfterExpiry(t *testing.T) {
	reg := buff.NewConcentration()
	l := buff.NewLedger()
	short := shieldOfFaith()
	short.Duration = 1
	l.Add(buff.New(short, "cleric", "Mira", true))
	reg.Begin("cleric", short.Name, []*buff.Ledger{l})
	l.Tick()
	_, ok := reg.Active("cleric")
	assert.False(t, ok)
}

func TestConcentration_EndLeavesOtherCastersAlone(t *testing.T) {
	reg := buff.NewConcentration()
	l := buff.NewLedger()
	l.Add(buff.New(bless(), "cleric", "Mira", true))
	l.Add(buff.New(shieldOfFaith(), "paladin", "Bram", true))
	reg.Begin("cleric", "Bless", []*buff.Ledger{l})
	reg.Begin("paladin", "Shield of Faith", []*buff.Ledger{l})

	assert.Equal(t, 1, reg.End("cleric"))
	assert.False(t, l.Has("Bless"))
	assert.True(t, l.Has("Shield of Faith"))
}

// Whatever sequence of concentration casts a caster makes, exactly one
// concentration buff from that caster survives across all holders.
func TestConcentration_Property_Exclusivity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		reg := buff.NewConcentration()
		ledgers := make([]*buff.Ledger, 4)
		for i := range ledgers {
			ledgers[i] = buff.NewLedger()
		}
		casts := rapid.IntRange(1, 10).Draw(rt, "casts")
		for i := 0; i < casts; i++ {
			tmpl := bless()
			if rapid.Bool().Draw(rt, "which") {
				tmpl = shieldOfFaith()
			}
			idx := rapid.SliceOfNDistinct(rapid.IntRange(0, 3), 1, 4, rapid.ID[int]).Draw(rt, "holders")
			var holders []*buff.Ledger
			for _, j := range idx {
				holders = append(holders, ledgers[j])
			}
			reg.End("cleric")
			for _, h := range holders {
				h.Add(buff.New(tmpl, "cleric", "Mira", true))
			}
			reg.Begin("cleric", tmpl.Name, holders)
		}
		names := map[string]bool{}
		for _, l := range ledgers {
			for _, b := range l.All() {
				if b.Concentration && b.Source == "cleric" {
					names[b.Name] = true
				}
			}
		}
		assert.Len(rt, names, 1)
	})
}
