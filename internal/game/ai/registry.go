package ai

import (
	"fmt"

	"github.com/cory-johannsen/combatsim/internal/game/combatant"
)

// Registry indexes policies by combatant kind.
//
// Invariant: each kind is registered at most once.
type Registry struct {
	policies map[combatant.Kind]Policy
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{policies: make(map[combatant.Kind]Policy)}
}

// DefaultRegistry maps characters to PartyPolicy and monsters to MonsterPolicy.
func DefaultRegistry(p *PartyPolicy, m *MonsterPolicy) *Registry {
	r := NewRegistry()
	r.policies[combatant.Character] = p
	r.policies[combatant.Monster] = m
	return r
}

// Register stores policy for kind.
//
// Precondition: policy must not be nil.
// Postcondition: returns error on kind collision.
func (r *Registry) Register(kind combatant.Kind, policy Policy) error {
	if _, exists := r.policies[kind]; exists {
		return fmt.Errorf("ai.Registry: kind %s already registered", kind)
	}
	r.policies[kind] = policy
	return nil
}

// Wrap replaces every registered policy with wrap(policy).
func (r *Registry) Wrap(wrap func(Policy) Policy) {
	for k, p := range r.policies {
		r.policies[k] = wrap(p)
	}
}

// PolicyFor returns the policy for c's kind, or false if none is registered.
func (r *Registry) PolicyFor(c *combatant.Combatant) (Policy, bool) {
	p, ok := r.policies[c.Kind]
	return p, ok
}
