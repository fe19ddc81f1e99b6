package catalog

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/combatsim/internal/game/combatant"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

// SlotMap is a spell-slot table keyed by spell level. Keys may be written
// as 1, "1", level_1 or 1st.
type SlotMap map[int]int

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *SlotMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: spell_slots must be a mapping", node.Line)
	}
	out := make(SlotMap, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		lvl, err := combatant.ParseSlotLevel(key.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", key.Line, err)
		}
		var n int
		if err := val.Decode(&n); err != nil {
			return fmt.Errorf("line %d: slot count for %q: %w", val.Line, key.Value, err)
		}
		out[lvl] += n
	}
	*m = out
	return nil
}

// CombatantRecord is a character or monster as written in the catalog.
// Spells are referenced by name and resolved against the spell catalog.
type CombatantRecord struct {
	ID                string            `yaml:"id"`
	Name              string            `yaml:"name"`
	Description       string            `yaml:"description"`
	Class             string            `yaml:"class"`
	Level             int               `yaml:"level"`
	MaxHP             int               `yaml:"max_hp"`
	HP                int               `yaml:"hp"`
	AC                int               `yaml:"ac"`
	ProficiencyBonus  int               `yaml:"proficiency_bonus"`
	Abilities         ruleset.Scores    `yaml:"abilities"`
	CastingAbility    ruleset.Ability   `yaml:"spellcasting_ability"`
	SaveProficiencies []ruleset.Ability `yaml:"save_proficiencies"`
	Actions           []ruleset.Action  `yaml:"actions"`
	Spells            []string          `yaml:"spells"`
	SpellSlots        SlotMap           `yaml:"spell_slots"`
	Tactics           string            `yaml:"tactics"`

	kind    combatant.Kind
	actions []*ruleset.Action
	spells  []*ruleset.Spell
}

// Kind reports whether the record is a character or a monster.
func (r *CombatantRecord) Kind() combatant.Kind { return r.kind }

// params builds fresh combatant parameters. Actions and spells are shared,
// immutable catalog entries; everything mutable is created per call.
func (r *CombatantRecord) params(name string) combatant.Params {
	slots := make(map[int]int, len(r.SpellSlots))
	for k, v := range r.SpellSlots {
		slots[k] = v
	}
	return combatant.Params{
		Name:              name,
		Kind:              r.kind,
		Class:             ruleset.NormalizeClass(r.Class),
		Level:             r.Level,
		HP:                r.HP,
		MaxHP:             r.MaxHP,
		AC:                r.AC,
		Proficiency:       r.ProficiencyBonus,
		Scores:            r.Abilities,
		CastingAbility:    r.CastingAbility,
		SaveProficiencies: r.SaveProficiencies,
		Actions:           r.actions,
		Spells:            r.spells,
		SpellSlots:        slots,
		Tactics:           r.Tactics,
	}
}

// MonsterRef places count copies of a monster in an encounter.
type MonsterRef struct {
	ID    string `yaml:"id"`
	Count int    `yaml:"count"`
}

// EncounterRecord pairs a party with a monster group.
type EncounterRecord struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Party       []string     `yaml:"party"`
	Monsters    []MonsterRef `yaml:"monsters"`
	// Tactics names a Lua script profile loaded for this encounter.
	Tactics string `yaml:"tactics"`
}

// Validate checks that the encounter has both sides.
func (e *EncounterRecord) Validate() error {
	entity := fmt.Sprintf("encounter %q", e.ID)
	if e.ID == "" {
		return &ruleset.ValidationError{Entity: "encounter", Field: "id", Reason: "must not be empty"}
	}
	if len(e.Party) == 0 {
		return &ruleset.ValidationError{Entity: entity, Field: "party", Reason: "must name at least one character"}
	}
	if len(e.Monsters) == 0 {
		return &ruleset.ValidationError{Entity: entity, Field: "monsters", Reason: "must name at least one monster"}
	}
	for i := range e.Monsters {
		if e.Monsters[i].Count == 0 {
			e.Monsters[i].Count = 1
		}
		if e.Monsters[i].Count < 0 || e.Monsters[i].ID == "" {
			return &ruleset.ValidationError{Entity: entity, Field: fmt.Sprintf("monsters[%d]", i), Reason: "needs an id and a positive count"}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
