package combatant

import (
	"github.com/cory-johannsen/combatsim/internal/game/dice"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

type specialState struct {
	used    int
	charged bool
}

// SpecialAvailable reports whether special action a can be used this turn.
// Specials with a per-encounter use limit are exhausted once spent; those
// with a recharge threshold are unavailable until they recharge.
func (c *Combatant) SpecialAvailable(a *ruleset.Action) bool {
	st, ok := c.specials[a.Name]
	if !ok {
		return false
	}
	if a.Uses > 0 && st.used >= a.Uses {
		return false
	}
	if a.Recharge > 0 && !st.charged {
		return false
	}
	return true
}

// AvailableSpecials returns the special actions usable this turn in catalog order.
func (c *Combatant) AvailableSpecials() []*ruleset.Action {
	var out []*ruleset.Action
	for _, a := range c.actions {
		if a.Type == ruleset.ActionSpecial && c.SpecialAvailable(a) {
			out = append(out, a)
		}
	}
	return out
}

// SpendSpecial records a use of special action a.
func (c *Combatant) SpendSpecial(a *ruleset.Action) {
	st, ok := c.specials[a.Name]
	if !ok {
		return
	}
	st.used++
	if a.Recharge > 0 {
		st.charged = false
	}
}

// RollRecharges rolls a d6 for every spent recharge special; a roll at or
// above the threshold makes it available again.
//
// Postcondition: Returns the names of specials that recharged.
func (c *Combatant) RollRecharges(src dice.Source) []string {
	var recharged []string
	for _, a := range c.actions {
		st, ok := c.specials[a.Name]
		if !ok || a.Recharge == 0 || st.charged {
			continue
		}
		if src.Intn(6)+1 >= a.Recharge {
			st.charged = true
			recharged = append(recharged, a.Name)
		}
	}
	return recharged
}
