// Package ai chooses what each combatant does on its turn. Policies read a
// CombatState snapshot and return a Plan; they never mutate combat state.
package ai

import "github.com/cory-johannsen/combatsim/internal/game/combatant"

// ConcentrationView reports which buff a caster is concentrating on.
type ConcentrationView interface {
	Active(source string) (string, bool)
}

// CombatState is the per-turn snapshot handed to a Policy.
//
// Allies holds the living members of the actor's faction, actor included.
// Enemies holds the living members of the opposing faction.
type CombatState struct {
	Allies        []*combatant.Combatant
	Enemies       []*combatant.Combatant
	Round         int
	Concentration ConcentrationView
}

// concentratingOn returns the buff actor is concentrating on, if any.
func (s *CombatState) concentratingOn(actor *combatant.Combatant) (string, bool) {
	if s.Concentration == nil {
		return "", false
	}
	return s.Concentration.Active(actor.ID)
}

func (s *CombatState) validate(actor *combatant.Combatant) error {
	switch {
	case actor == nil:
		return errNilActor
	case !actor.IsAlive():
		return errDeadActor
	case s == nil:
		return errNilState
	case s.Round < 1:
		return errBadRound
	}
	return nil
}
