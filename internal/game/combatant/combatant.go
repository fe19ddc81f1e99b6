// Package combatant models the characters and monsters taking part in an
// encounter: their vitals, derived bonuses, spell slots, and buff ledger.
package combatant

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/combatsim/internal/game/buff"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

// Kind tags which side of the table a combatant is built from.
type Kind int

const (
	// Character is a party member.
	Character Kind = iota
	// Monster is an enemy.
	Monster
)

// String returns "character" or "monster".
func (k Kind) String() string {
	if k == Monster {
		return "monster"
	}
	return "character"
}

// Params carries everything needed to build a Combatant.
type Params struct {
	Name  string
	Kind  Kind
	Class ruleset.ClassFamily
	Level int
	// HP is the starting hit points; 0 means start at MaxHP.
	HP    int
	MaxHP int
	AC    int
	// Proficiency overrides the level-derived bonus when non-zero.
	Proficiency int
	Scores      ruleset.Scores
	// CastingAbility overrides the class family's casting ability when set.
	CastingAbility    ruleset.Ability
	SaveProficiencies []ruleset.Ability
	Actions           []*ruleset.Action
	Spells            []*ruleset.Spell
	// SpellSlots maps spell level (>= 1) to slot count.
	SpellSlots map[int]int
	// Tactics names an optional scripted targeting hook.
	Tactics string
}

// Combatant is one live participant in an encounter.
//
// Only the resolver (hp, slots, buffs, special uses) and the encounter (buff
// ticking, recharge) mutate a Combatant. Dead combatants stay in the roster.
type Combatant struct {
	ID          string
	Name        string
	Kind        Kind
	Class       ruleset.ClassFamily
	Level       int
	HP          int
	MaxHP       int
	AC          int
	Proficiency int
	Scores      ruleset.Scores
	Tactics     string
	Buffs       *buff.Ledger

	castingAbility ruleset.Ability
	saveProf       map[ruleset.Ability]bool
	actions        []*ruleset.Action
	spells         []*ruleset.Spell
	slots          *slotTable
	specials       map[string]*specialState
}

// New validates p and builds a Combatant with a fresh ID and an empty ledger.
//
// Precondition: every action and spell in p has passed its Validate method.
// Postcondition: Returns a *ruleset.ValidationError when p is malformed.
func New(p Params) (*Combatant, error) {
	entity := fmt.Sprintf("combatant %q", p.Name)
	if p.Name == "" {
		return nil, &ruleset.ValidationError{Entity: "combatant", Field: "name", Reason: "must not be empty"}
	}
	if err := p.Scores.Validate(entity); err != nil {
		return nil, err
	}
	if p.MaxHP <= 0 {
		return nil, &ruleset.ValidationError{Entity: entity, Field: "max_hp", Reason: "must be > 0"}
	}
	if p.HP < 0 || p.HP > p.MaxHP {
		return nil, &ruleset.ValidationError{Entity: entity, Field: "hp", Reason: fmt.Sprintf("%d outside 0-%d", p.HP, p.MaxHP)}
	}
	if p.AC < 0 {
		return nil, &ruleset.ValidationError{Entity: entity, Field: "ac", Reason: "must be >= 0"}
	}
	slots, err := newSlotTable(p.SpellSlots)
	if err != nil {
		return nil, &ruleset.ValidationError{Entity: entity, Field: "spell_slots", Reason: err.Error()}
	}
	for i, a := range p.Actions {
		if a == nil {
			return nil, &ruleset.ValidationError{Entity: entity, Field: fmt.Sprintf("actions[%d]", i), Reason: "nil action"}
		}
	}
	for i, s := range p.Spells {
		if s == nil {
			return nil, &ruleset.ValidationError{Entity: entity, Field: fmt.Sprintf("spells[%d]", i), Reason: "nil spell"}
		}
	}

	level := p.Level
	if level < 1 {
		level = 1
	}
	prof := p.Proficiency
	if prof == 0 {
		prof = ruleset.ProficiencyBonus(level)
	}
	hp := p.HP
	if hp == 0 {
		hp = p.MaxHP
	}
	casting := p.CastingAbility
	if casting == "" {
		casting = p.Class.SpellcastingAbility()
	}
	saveProf := make(map[ruleset.Ability]bool, len(p.SaveProficiencies))
	for _, a := range p.SaveProficiencies {
		saveProf[a] = true
	}

	c := &Combatant{
		ID:             uuid.NewString(),
		Name:           p.Name,
		Kind:           p.Kind,
		Class:          p.Class,
		Level:          level,
		HP:             hp,
		MaxHP:          p.MaxHP,
		AC:             p.AC,
		Proficiency:    prof,
		Scores:         p.Scores.Clone(),
		Tactics:        p.Tactics,
		Buffs:          buff.NewLedger(),
		castingAbility: casting,
		saveProf:       saveProf,
		actions:        append([]*ruleset.Action(nil), p.Actions...),
		spells:         append([]*ruleset.Spell(nil), p.Spells...),
		slots:          slots,
		specials:       make(map[string]*specialState),
	}
	for _, a := range c.actions {
		if a.Type == ruleset.ActionSpecial {
			c.specials[a.Name] = &specialState{charged: true}
		}
	}
	return c, nil
}

// IsAlive reports whether hp is above zero.
func (c *Combatant) IsAlive() bool { return c.HP > 0 }

// IsCharacter reports whether the combatant fights for the party.
func (c *Combatant) IsCharacter() bool { return c.Kind == Character }

// AbilityMod returns the modifier for ability a.
func (c *Combatant) AbilityMod(a ruleset.Ability) int { return c.Scores.Mod(a) }

// AttackBonus is the weapon to-hit bonus: the weapon class's ability
// modifier plus proficiency.
func (c *Combatant) AttackBonus(w ruleset.WeaponClass) int {
	return c.AbilityMod(w.AttackAbility(c.Scores)) + c.Proficiency
}

// ActionHitBonus returns a's fixed hit bonus when it declares one, otherwise
// the computed AttackBonus.
func (c *Combatant) ActionHitBonus(a *ruleset.Action) int {
	if a.HitBonus != nil {
		return *a.HitBonus
	}
	return c.AttackBonus(a.WeaponClass)
}

// DamageMod is the ability modifier added to a weapon damage roll.
func (c *Combatant) DamageMod(w ruleset.WeaponClass) int {
	return c.AbilityMod(w.AttackAbility(c.Scores))
}

// SpellcastingAbility returns the ability that powers the combatant's spells.
func (c *Combatant) SpellcastingAbility() ruleset.Ability { return c.castingAbility }

// SpellcastingMod is the modifier of SpellcastingAbility.
func (c *Combatant) SpellcastingMod() int { return c.AbilityMod(c.castingAbility) }

// SpellAttackBonus is proficiency plus the casting modifier.
func (c *Combatant) SpellAttackBonus() int { return c.Proficiency + c.SpellcastingMod() }

// SpellSaveDC is 8 plus proficiency plus the casting modifier.
func (c *Combatant) SpellSaveDC() int { return 8 + c.Proficiency + c.SpellcastingMod() }

// SaveBonus is the saving-throw bonus for ability a, including proficiency
// when the combatant is proficient in that save.
func (c *Combatant) SaveBonus(a ruleset.Ability) int {
	bonus := c.AbilityMod(a)
	if c.saveProf[a] {
		bonus += c.Proficiency
	}
	return bonus
}

// ApplyDamage subtracts n (clamped to >= 0) from hp. Hit points may go
// negative; the overshoot is kept for bookkeeping.
//
// Postcondition: Returns the damage actually subtracted.
func (c *Combatant) ApplyDamage(n int) int {
	if n < 0 {
		n = 0
	}
	c.HP -= n
	return n
}

// Heal restores up to n hit points without exceeding MaxHP.
//
// Postcondition: HP <= MaxHP when it was before; returns the hp actually restored.
func (c *Combatant) Heal(n int) int {
	if n <= 0 || c.HP >= c.MaxHP {
		return 0
	}
	if c.HP+n > c.MaxHP {
		n = c.MaxHP - c.HP
	}
	c.HP += n
	return n
}

// HPFraction is hp / max_hp, or 0 when dead.
func (c *Combatant) HPFraction() float64 {
	if c.HP <= 0 {
		return 0
	}
	return float64(c.HP) / float64(c.MaxHP)
}

// Missing returns how many hit points the combatant is below MaxHP.
func (c *Combatant) Missing() int {
	if c.HP >= c.MaxHP {
		return 0
	}
	return c.MaxHP - c.HP
}

// HealthDescription returns a coarse health state for summaries.
//
// Postcondition: Returns a non-empty string.
func (c *Combatant) HealthDescription() string {
	if c.HP <= 0 {
		return "dead"
	}
	pct := c.HPFraction()
	switch {
	case pct >= 1.0:
		return "unharmed"
	case pct >= 0.85:
		return "barely scratched"
	case pct >= 0.60:
		return "lightly wounded"
	case pct >= 0.40:
		return "moderately wounded"
	case pct >= 0.20:
		return "heavily wounded"
	default:
		return "critically wounded"
	}
}

// Actions returns the combatant's actions in catalog order.
func (c *Combatant) Actions() []*ruleset.Action { return c.actions }

// Action returns the action named name.
func (c *Combatant) Action(name string) (*ruleset.Action, bool) {
	for _, a := range c.actions {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// AttackActions returns the combatant's plain attack actions in order.
func (c *Combatant) AttackActions() []*ruleset.Action {
	var out []*ruleset.Action
	for _, a := range c.actions {
		if a.Type == ruleset.ActionAttack {
			out = append(out, a)
		}
	}
	return out
}

// HasSpecials reports whether the combatant has any special action at all.
func (c *Combatant) HasSpecials() bool { return len(c.specials) > 0 }

// Spells returns the known spells in catalog order.
func (c *Combatant) Spells() []*ruleset.Spell { return c.spells }

// Spell returns the known spell named name.
func (c *Combatant) Spell(name string) (*ruleset.Spell, bool) {
	for _, s := range c.spells {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// IsSpellcaster reports whether the combatant knows any spell.
func (c *Combatant) IsSpellcaster() bool { return len(c.spells) > 0 }

// HealingSpells returns the known healing spells in catalog order.
func (c *Combatant) HealingSpells() []*ruleset.Spell {
	var out []*ruleset.Spell
	for _, s := range c.spells {
		if s.Healing {
			out = append(out, s)
		}
	}
	return out
}

// IsHealer reports whether the combatant knows a healing spell.
func (c *Combatant) IsHealer() bool { return len(c.HealingSpells()) > 0 }

// CanCast reports whether s is castable right now: cantrips always are,
// leveled spells need a remaining slot of their level.
func (c *Combatant) CanCast(s *ruleset.Spell) bool {
	return s.IsCantrip() || c.slots.remaining(s.Level) > 0
}
