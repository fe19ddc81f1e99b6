package combat

import "github.com/cory-johannsen/combatsim/internal/game/combatant"

// Sides.
const (
	SideParty    = "party"
	SideMonsters = "monsters"
)

// CombatantStatus is a combatant's state at the end of an encounter.
type CombatantStatus struct {
	Name           string      `json:"name"`
	Side           string      `json:"side"`
	Class          string      `json:"class,omitempty"`
	HP             int         `json:"hp"`
	MaxHP          int         `json:"max_hp"`
	Alive          bool        `json:"alive"`
	Health         string      `json:"health"`
	SlotsRemaining map[int]int `json:"slots_remaining,omitempty"`
}

// Summary is the outcome of a finished encounter.
type Summary struct {
	Winner           Winner            `json:"winner"`
	Rounds           int               `json:"rounds"`
	PartyHPRemaining int               `json:"party_hp_remaining"`
	Combatants       []CombatantStatus `json:"combatants"`
	Log              []LogEntry        `json:"log"`
}

// Summary reports the encounter's outcome so far. PartyHPRemaining sums the
// hp of living party members.
func (e *Encounter) Summary() Summary {
	s := Summary{
		Winner:           e.winner,
		Rounds:           e.round,
		PartyHPRemaining: e.partyHP(),
		Log:              e.Log(),
	}
	for _, c := range e.party {
		s.Combatants = append(s.Combatants, status(c, SideParty))
	}
	for _, c := range e.monsters {
		s.Combatants = append(s.Combatants, status(c, SideMonsters))
	}
	return s
}

func status(c *combatant.Combatant, side string) CombatantStatus {
	st := CombatantStatus{
		Name: c.Name, Side: side, HP: c.HP, MaxHP: c.MaxHP, Alive: c.IsAlive(),
		Health: c.HealthDescription(), Class: string(c.Class),
	}
	if c.IsSpellcaster() {
		st.SlotsRemaining = c.SlotsSnapshot()
	}
	return st
}
