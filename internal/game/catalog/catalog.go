// Package catalog holds the read-only game data an engine run is built
// from: spells, characters, monsters and encounter definitions. A Catalog is
// loaded once at start-up and injected; it is never mutated by a simulation.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/combatsim/internal/game/combatant"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

// ErrNotFound is returned when a catalog lookup misses.
var ErrNotFound = errors.New("catalog: not found")

// Subdirectories read by Load.
const (
	SpellsDir     = "spells"
	CharactersDir = "characters"
	MonstersDir   = "monsters"
	EncountersDir = "encounters"
)

// Catalog indexes validated game data. Lookups are case-insensitive on ids
// and spell names. It is safe for concurrent reads once loading finishes.
type Catalog struct {
	spells     map[string]*ruleset.Spell
	characters map[string]*CombatantRecord
	monsters   map[string]*CombatantRecord
	encounters map[string]*EncounterRecord
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{
		spells:     make(map[string]*ruleset.Spell),
		characters: make(map[string]*CombatantRecord),
		monsters:   make(map[string]*CombatantRecord),
		encounters: make(map[string]*EncounterRecord),
	}
}

func key(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// decodeAll strictly decodes every YAML document in data into a fresh T.
// A document may hold a single record or a list of records.
func decodeAll[T any](data []byte) ([]T, error) {
	var out []T
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		doc := &node
		if doc.Kind == yaml.DocumentNode && len(doc.Content) == 1 {
			doc = doc.Content[0]
		}
		if doc.Kind == yaml.SequenceNode {
			var many []T
			if err := strictDecode(doc, &many); err != nil {
				return nil, err
			}
			out = append(out, many...)
			continue
		}
		var one T
		if err := strictDecode(doc, &one); err != nil {
			return nil, err
		}
		out = append(out, one)
	}
}

// strictDecode re-encodes node and decodes it with KnownFields set; Node.Decode
// alone does not reject unknown keys.
func strictDecode(node *yaml.Node, v any) error {
	raw, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(v)
}

// AddSpell validates s and stores it under its name.
//
// Postcondition: returns an error on a duplicate name or invalid spell.
func (c *Catalog) AddSpell(s ruleset.Spell) error {
	if err := s.Validate(); err != nil {
		return err
	}
	k := key(s.Name)
	if _, dup := c.spells[k]; dup {
		return fmt.Errorf("catalog: duplicate spell %q", s.Name)
	}
	c.spells[k] = &s
	return nil
}

// AddCharacter validates r as a party member and stores it.
func (c *Catalog) AddCharacter(r CombatantRecord) error {
	return c.addCombatant(r, combatant.Character, c.characters)
}

// AddMonster validates r as a monster and stores it.
func (c *Catalog) AddMonster(r CombatantRecord) error {
	return c.addCombatant(r, combatant.Monster, c.monsters)
}

func (c *Catalog) addCombatant(r CombatantRecord, kind combatant.Kind, into map[string]*CombatantRecord) error {
	if r.ID == "" {
		r.ID = r.Name
	}
	entity := fmt.Sprintf("%s %q", kind, r.ID)
	if r.ID == "" {
		return &ruleset.ValidationError{Entity: kind.String(), Field: "id", Reason: "must not be empty"}
	}
	if r.Name == "" {
		r.Name = r.ID
	}
	k := key(r.ID)
	if _, dup := into[k]; dup {
		return fmt.Errorf("catalog: duplicate %s", entity)
	}
	r.kind = kind
	r.actions = make([]*ruleset.Action, 0, len(r.Actions))
	for i := range r.Actions {
		a := r.Actions[i]
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%s: %w", entity, err)
		}
		r.actions = append(r.actions, &a)
	}
	r.spells = make([]*ruleset.Spell, 0, len(r.Spells))
	for _, name := range r.Spells {
		s, ok := c.spells[key(name)]
		if !ok {
			return &ruleset.ValidationError{Entity: entity, Field: "spells", Reason: fmt.Sprintf("unknown spell %q", name)}
		}
		r.spells = append(r.spells, s)
	}
	// Build once so bad scores or vitals fail at load time, not mid-run.
	if _, err := combatant.New(r.params(r.Name)); err != nil {
		return err
	}
	into[k] = &r
	return nil
}

// AddEncounter validates e and stores it. Every referenced character and
// monster must already be in the catalog.
func (c *Catalog) AddEncounter(e EncounterRecord) error {
	if err := e.Validate(); err != nil {
		return err
	}
	entity := fmt.Sprintf("encounter %q", e.ID)
	for _, id := range e.Party {
		if _, ok := c.characters[key(id)]; !ok {
			return &ruleset.ValidationError{Entity: entity, Field: "party", Reason: fmt.Sprintf("unknown character %q", id)}
		}
	}
	for _, m := range e.Monsters {
		if _, ok := c.monsters[key(m.ID)]; !ok {
			return &ruleset.ValidationError{Entity: entity, Field: "monsters", Reason: fmt.Sprintf("unknown monster %q", m.ID)}
		}
	}
	k := key(e.ID)
	if _, dup := c.encounters[k]; dup {
		return fmt.Errorf("catalog: duplicate %s", entity)
	}
	c.encounters[k] = &e
	return nil
}

// Load reads a catalog directory laid out as spells/, characters/,
// monsters/ and encounters/ subdirectories of *.yaml files. Missing
// subdirectories are treated as empty.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a fully validated Catalog or the first error; a
// partial catalog is never returned.
func Load(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("reading catalog dir %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog path %q is not a directory", dir)
	}
	c := New()
	if err := loadDir(filepath.Join(dir, SpellsDir), c.AddSpell); err != nil {
		return nil, err
	}
	if err := loadDir(filepath.Join(dir, CharactersDir), c.AddCharacter); err != nil {
		return nil, err
	}
	if err := loadDir(filepath.Join(dir, MonstersDir), c.AddMonster); err != nil {
		return nil, err
	}
	if err := loadDir(filepath.Join(dir, EncountersDir), c.AddEncounter); err != nil {
		return nil, err
	}
	return c, nil
}

func loadDir[T any](dir string, add func(T) error) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %q: %w", dir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %q: %w", path, err)
		}
		if err := LoadBytes(data, add); err != nil {
			return fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return nil
}

// LoadBytes decodes every record in data and passes each to add.
func LoadBytes[T any](data []byte, add func(T) error) error {
	records, err := decodeAll[T](data)
	if err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	for _, r := range records {
		if err := add(r); err != nil {
			return err
		}
	}
	return nil
}

// Spell returns the spell named name.
func (c *Catalog) Spell(name string) (*ruleset.Spell, bool) {
	s, ok := c.spells[key(name)]
	return s, ok
}

// Character returns the character record with id.
func (c *Catalog) Character(id string) (*CombatantRecord, bool) {
	r, ok := c.characters[key(id)]
	return r, ok
}

// Monster returns the monster record with id.
func (c *Catalog) Monster(id string) (*CombatantRecord, bool) {
	r, ok := c.monsters[key(id)]
	return r, ok
}

// Encounter returns the encounter with id.
func (c *Catalog) Encounter(id string) (*EncounterRecord, bool) {
	e, ok := c.encounters[key(id)]
	return e, ok
}

// Spells returns spell keys in sorted order.
func (c *Catalog) Spells() []string { return sortedKeys(c.spells) }

// Characters returns character ids in sorted order.
func (c *Catalog) Characters() []string { return sortedKeys(c.characters) }

// Monsters returns monster ids in sorted order.
func (c *Catalog) Monsters() []string { return sortedKeys(c.monsters) }

// Encounters returns encounter ids in sorted order.
func (c *Catalog) Encounters() []string { return sortedKeys(c.encounters) }

// NewCharacter builds a fresh party member from the record with id.
func (c *Catalog) NewCharacter(id string) (*combatant.Combatant, error) {
	r, ok := c.Character(id)
	if !ok {
		return nil, fmt.Errorf("%w: character %q", ErrNotFound, id)
	}
	return combatant.New(r.params(r.Name))
}

// NewMonster builds a fresh monster from the record with id.
func (c *Catalog) NewMonster(id string) (*combatant.Combatant, error) {
	r, ok := c.Monster(id)
	if !ok {
		return nil, fmt.Errorf("%w: monster %q", ErrNotFound, id)
	}
	return combatant.New(r.params(r.Name))
}

// Roster builds fresh combatants for the encounter with id. Monsters placed
// more than once are numbered ("Goblin 1", "Goblin 2") so every name in the
// encounter is unique.
//
// Postcondition: every call returns new combatants with full hp and slots.
func (c *Catalog) Roster(id string) (party, monsters []*combatant.Combatant, err error) {
	e, ok := c.Encounter(id)
	if !ok {
		return nil, nil, fmt.Errorf("%w: encounter %q", ErrNotFound, id)
	}
	for _, pid := range e.Party {
		p, err := c.NewCharacter(pid)
		if err != nil {
			return nil, nil, err
		}
		party = append(party, p)
	}
	for _, ref := range e.Monsters {
		r, ok := c.Monster(ref.ID)
		if !ok {
			return nil, nil, fmt.Errorf("%w: monster %q", ErrNotFound, ref.ID)
		}
		for i := 1; i <= ref.Count; i++ {
			name := r.Name
			if ref.Count > 1 {
				name = fmt.Sprintf("%s %d", r.Name, i)
			}
			m, err := combatant.New(r.params(name))
			if err != nil {
				return nil, nil, err
			}
			monsters = append(monsters, m)
		}
	}
	return party, monsters, nil
}
