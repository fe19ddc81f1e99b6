package ruleset

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/combatsim/internal/game/dice"
)

// ActionType distinguishes weapon-style attacks from monster specials.
type ActionType string

const (
	ActionAttack  ActionType = "attack"
	ActionSpecial ActionType = "special"
)

// Action is an innate attack or special ability. An Action is immutable after
// Validate succeeds and is shared by reference across combatants and turns.
type Action struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Type        ActionType  `yaml:"type"`
	Weapon      string      `yaml:"weapon"`
	Damage      string      `yaml:"damage"`
	DamageType  string      `yaml:"damage_type"`
	WeaponClass WeaponClass `yaml:"weapon_class"`
	// HitBonus, when set, replaces the computed ability+proficiency bonus.
	HitBonus   *int    `yaml:"hit_bonus"`
	AreaEffect bool    `yaml:"area_effect"`
	SaveType   Ability `yaml:"save_type"`
	SaveDC     int     `yaml:"save_dc"`
	// Uses caps how often a special may be used per encounter; 0 is unlimited.
	Uses int `yaml:"uses"`
	// Recharge is the minimum d6 roll that restores a spent special; 0 disables recharge.
	Recharge int `yaml:"recharge"`

	damage    dice.Expression
	hasDamage bool
}

// Validate checks the action and caches its parsed damage expression.
// It must be called once before the action is shared.
func (a *Action) Validate() error {
	entity := fmt.Sprintf("action %q", a.Name)
	if a.Name == "" {
		return invalid("action", "name", "must not be empty")
	}
	switch a.Type {
	case "":
		a.Type = ActionAttack
	case ActionAttack, ActionSpecial:
	default:
		return invalid(entity, "type", "must be attack or special, got %q", a.Type)
	}
	switch a.WeaponClass {
	case "":
		a.WeaponClass = Melee
	case Melee, Ranged, Finesse:
	default:
		return invalid(entity, "weapon_class", "must be melee, ranged or finesse, got %q", a.WeaponClass)
	}
	if a.Damage != "" {
		e, err := dice.Parse(a.Damage)
		if err != nil {
			return invalid(entity, "damage", "%v", err)
		}
		a.damage, a.hasDamage = e, true
	}
	if a.Type == ActionAttack && !a.hasDamage {
		return invalid(entity, "damage", "attack actions require a damage expression")
	}
	if (a.SaveType == "") != (a.SaveDC == 0) {
		return invalid(entity, "save_type", "save_type and save_dc must be set together")
	}
	if a.Uses < 0 {
		return invalid(entity, "uses", "must be >= 0")
	}
	if a.Recharge < 0 || a.Recharge > 6 {
		return invalid(entity, "recharge", "must be 0-6")
	}
	return nil
}

// DamageExpr returns the cached damage expression and whether one exists.
func (a *Action) DamageExpr() (dice.Expression, bool) {
	return a.damage, a.hasDamage
}

// IsSaveBased reports whether targets resist with a saving throw.
func (a *Action) IsSaveBased() bool { return a.SaveType != "" && a.SaveDC > 0 }

// IsMultiattack reports whether this special bundles several named attacks.
func (a *Action) IsMultiattack() bool {
	return a.Type == ActionSpecial && strings.Contains(strings.ToLower(a.Name), "multiattack")
}

// IsDamaging reports whether the action can deal damage on its own.
func (a *Action) IsDamaging() bool { return a.hasDamage || a.IsMultiattack() }
