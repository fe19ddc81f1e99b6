package ruleset

import "strings"

// ClassFamily groups character classes by their spellcasting ability.
type ClassFamily string

const (
	Fighter   ClassFamily = "fighter"
	Rogue     ClassFamily = "rogue"
	Barbarian ClassFamily = "barbarian"
	Monk      ClassFamily = "monk"
	Ranger    ClassFamily = "ranger"
	Paladin   ClassFamily = "paladin"
	Cleric    ClassFamily = "cleric"
	Druid     ClassFamily = "druid"
	Wizard    ClassFamily = "wizard"
	Artificer ClassFamily = "artificer"
	Sorcerer  ClassFamily = "sorcerer"
	Warlock   ClassFamily = "warlock"
	Bard      ClassFamily = "bard"
)

// NormalizeClass lower-cases and trims a catalog class name.
func NormalizeClass(s string) ClassFamily {
	return ClassFamily(strings.ToLower(strings.TrimSpace(s)))
}

// SpellcastingAbility returns the fixed casting ability for the family.
// Classes without a casting tradition fall back to Intelligence, which is
// what their arcane subclasses use.
func (c ClassFamily) SpellcastingAbility() Ability {
	switch c {
	case Cleric, Druid, Ranger, Monk:
		return Wisdom
	case Bard, Sorcerer, Warlock, Paladin:
		return Charisma
	default:
		return Intelligence
	}
}

// WeaponClass selects which ability drives a weapon attack.
type WeaponClass string

const (
	Melee   WeaponClass = "melee"
	Ranged  WeaponClass = "ranged"
	Finesse WeaponClass = "finesse"
)

// AttackAbility returns the ability used for weapon class w given scores s.
// Finesse weapons use the better of STR and DEX; STR wins ties.
func (w WeaponClass) AttackAbility(s Scores) Ability {
	switch w {
	case Ranged:
		return Dexterity
	case Finesse:
		if s.Mod(Dexterity) > s.Mod(Strength) {
			return Dexterity
		}
		return Strength
	default:
		return Strength
	}
}

// RollCategory names the kind of roll a buff modifies.
type RollCategory string

const (
	AttackRolls  RollCategory = "attack_rolls"
	SavingThrows RollCategory = "saving_throws"
	ArmorClass   RollCategory = "armor_class"
	DamageRolls  RollCategory = "damage_rolls"
)

var knownCategories = map[RollCategory]bool{
	AttackRolls: true, SavingThrows: true, ArmorClass: true, DamageRolls: true,
}
