package buff

import (
	"github.com/cory-johannsen/combatsim/internal/game/dice"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

// Ledger holds the buffs active on one combatant, in application order.
// It is not safe for concurrent use; the caller must serialise access.
type Ledger struct {
	buffs []*Buff
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Add applies b. A buff with the same name replaces the existing one rather
// than stacking. When b needs concentration, any concentration buff this
// ledger holds from the same source is dropped first; purging the caster's
// buffs on other combatants is the Concentration registry's job.
//
// Postcondition: Has(b.Name) is true. Returns the buffs that were removed.
func (l *Ledger) Add(b *Buff) []*Buff {
	var removed []*Buff
	kept := l.buffs[:0]
	for _, existing := range l.buffs {
		sameName := existing.Name == b.Name
		samePeer := b.Concentration && existing.Concentration && existing.Source == b.Source
		if sameName || samePeer {
			removed = append(removed, existing)
			continue
		}
		kept = append(kept, existing)
	}
	l.buffs = append(kept, b)
	return removed
}

// TotalBonus sums RollBonus over every buff affecting category c. Dice-based
// bonuses are re-rolled on every call.
func (l *Ledger) TotalBonus(c ruleset.RollCategory, src dice.Source) int {
	total := 0
	for _, b := range l.buffs {
		if b.Affects(c) {
			total += b.RollBonus(src)
		}
	}
	return total
}

// ExpectedBonus is the deterministic average of TotalBonus.
func (l *Ledger) ExpectedBonus(c ruleset.RollCategory) int {
	total := 0
	for _, b := range l.buffs {
		if b.Affects(c) {
			total += b.ExpectedBonus()
		}
	}
	return total
}

// Tick advances one round: every finite buff loses one round and buffs that
// reach zero are removed. Permanent buffs are untouched.
//
// Postcondition: For every name in the returned slice, the buff is no longer held.
func (l *Ledger) Tick() []string {
	var expired []string
	kept := l.buffs[:0]
	for _, b := range l.buffs {
		if !b.IsPermanent() {
			b.Remaining--
			if b.Remaining <= 0 {
				expired = append(expired, b.Name)
				continue
			}
		}
		kept = append(kept, b)
	}
	l.buffs = kept
	return expired
}

// Has reports whether any buff named name is active, regardless of source.
func (l *Ledger) Has(name string) bool {
	for _, b := range l.buffs {
		if b.Name == name {
			return true
		}
	}
	return false
}

// HasConcentrationFrom reports whether the ledger holds a concentration buff
// named name from source.
func (l *Ledger) HasConcentrationFrom(source, name string) bool {
	for _, b := range l.buffs {
		if b.Concentration && b.Source == source && b.Name == name {
			return true
		}
	}
	return false
}

// RemoveConcentration drops every concentration buff sustained by source.
//
// Postcondition: Returns the number of buffs removed.
func (l *Ledger) RemoveConcentration(source string) int {
	n := 0
	kept := l.buffs[:0]
	for _, b := range l.buffs {
		if b.Concentration && b.Source == source {
			n++
			continue
		}
		kept = append(kept, b)
	}
	l.buffs = kept
	return n
}

// Clear removes every buff.
func (l *Ledger) Clear() {
	l.buffs = nil
}

// Len returns the number of active buffs.
func (l *Ledger) Len() int { return len(l.buffs) }

// All returns a copy of the active buff list. The pointed-to buffs are
// shared; callers must not modify them.
func (l *Ledger) All() []*Buff {
	out := make([]*Buff, len(l.buffs))
	copy(out, l.buffs)
	return out
}
