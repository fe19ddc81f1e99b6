// Package ruleset defines the static rules vocabulary of the combat engine:
// ability scores, class families, weapon actions, spells, and buff templates.
package ruleset

import "fmt"

// ValidationError reports an entity that cannot be constructed from its data.
// It is fatal to building that entity; callers must not add it to a simulation.
type ValidationError struct {
	Entity string // e.g. `combatant "Goblin"`, `spell "Fireball"`
	Field  string
	Reason string
}

// Error implements error.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s: %s", e.Entity, e.Field, e.Reason)
}

func invalid(entity, field, format string, args ...any) *ValidationError {
	return &ValidationError{Entity: entity, Field: field, Reason: fmt.Sprintf(format, args...)}
}
