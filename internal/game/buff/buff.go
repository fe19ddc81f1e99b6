// Package buff tracks time-boxed roll modifiers on combatants and the
// combat-wide concentration rule that ties them to their casters.
package buff

import (
	"github.com/cory-johannsen/combatsim/internal/game/dice"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

// Permanent marks a buff that lasts until combat ends.
const Permanent = -1

// Buff is one applied modifier. Each target gets its own instance so
// durations tick independently.
type Buff struct {
	Name string
	// Source is the caster's identity; concentration is tracked by it.
	Source     string
	SourceName string
	// Remaining is the number of rounds left, or Permanent.
	Remaining     int
	Bonus         int
	Categories    []ruleset.RollCategory
	Concentration bool

	expr    dice.Expression
	hasDice bool
}

// New stamps a Buff from template t for the caster identified by sourceID.
//
// Precondition: t has passed Spell.Validate, so t.Dice parses.
func New(t *ruleset.BuffTemplate, sourceID, sourceName string, concentration bool) *Buff {
	b := &Buff{
		Name:          t.Name,
		Source:        sourceID,
		SourceName:    sourceName,
		Remaining:     t.Duration,
		Bonus:         t.Bonus,
		Categories:    append([]ruleset.RollCategory(nil), t.Affects...),
		Concentration: concentration,
	}
	if t.Dice != "" {
		if e, err := dice.Parse(t.Dice); err == nil {
			b.expr, b.hasDice = e, true
		}
	}
	return b
}

// Affects reports whether the buff modifies rolls of category c.
func (b *Buff) Affects(c ruleset.RollCategory) bool {
	for _, cat := range b.Categories {
		if cat == c {
			return true
		}
	}
	return false
}

// RollBonus returns the static bonus plus a fresh roll of the bonus dice.
// Every call rolls again.
func (b *Buff) RollBonus(src dice.Source) int {
	total := b.Bonus
	if b.hasDice {
		total += dice.Roll(b.expr, src).Total()
	}
	return total
}

// ExpectedBonus is the average value of RollBonus.
func (b *Buff) ExpectedBonus() int {
	total := b.Bonus
	if b.hasDice {
		total += b.expr.Average()
	}
	return total
}

// IsPermanent reports whether the buff lasts the whole combat.
func (b *Buff) IsPermanent() bool { return b.Remaining < 0 }
