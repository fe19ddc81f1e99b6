package combat

import (
	"sort"

	"github.com/cory-johannsen/combatsim/internal/game/combatant"
	"github.com/cory-johannsen/combatsim/internal/game/dice"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

// tiebreakRange bounds the random tiebreak drawn for each combatant.
const tiebreakRange = 1 << 30

// InitiativeEntry is one combatant's cached initiative.
type InitiativeEntry struct {
	Combatant *combatant.Combatant
	Roll      int
	Modifier  int
	Total     int
	Tiebreak  int
}

// RollInitiative rolls 1d20 + DEX modifier for every combatant, then draws a
// random tiebreak for each, and returns the entries in turn order:
// total descending, then DEX modifier descending, then tiebreak descending.
//
// Postcondition: len(result) == len(cs); the order is total for fixed draws.
func RollInitiative(cs []*combatant.Combatant, src dice.Source) []InitiativeEntry {
	out := make([]InitiativeEntry, len(cs))
	for i, c := range cs {
		roll := dice.D20(src)
		mod := c.AbilityMod(ruleset.Dexterity)
		out[i] = InitiativeEntry{Combatant: c, Roll: roll, Modifier: mod, Total: roll + mod}
	}
	for i := range out {
		out[i].Tiebreak = src.Intn(tiebreakRange)
	}
	SortInitiative(out)
	return out
}

// SortInitiative orders entries for play. Entries equal on every key keep
// their relative order.
func SortInitiative(entries []InitiativeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.Modifier != b.Modifier {
			return a.Modifier > b.Modifier
		}
		return a.Tiebreak > b.Tiebreak
	})
}
