package ruleset

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/combatsim/internal/game/dice"
)

// SpellMode is how a spell's effect is checked against its targets.
type SpellMode string

const (
	ModeAttack SpellMode = "attack" // spell attack roll vs AC
	ModeSave   SpellMode = "save"   // target saving throw vs caster DC
	ModeNone   SpellMode = "none"   // no check, e.g. Magic Missile
)

// Branch is the resolution path a spell takes.
type Branch int

const (
	BranchUtility Branch = iota
	BranchBuff
	BranchHealing
	BranchAttack
	BranchSave
	BranchNoCheck
)

// String returns the branch label used in logs.
func (b Branch) String() string {
	switch b {
	case BranchBuff:
		return "buff"
	case BranchHealing:
		return "healing"
	case BranchAttack:
		return "attack"
	case BranchSave:
		return "save"
	case BranchNoCheck:
		return "no_check"
	default:
		return "utility"
	}
}

// halfOnSaveDefaults is consulted only when a spell omits half_on_save.
var halfOnSaveDefaults = map[string]bool{
	"fireball":       true,
	"lightning bolt": true,
}

// BuffTemplate is the blueprint a buff spell stamps onto each target.
type BuffTemplate struct {
	Name     string         `yaml:"name"`
	Duration int            `yaml:"duration"` // rounds; -1 lasts the whole combat
	Bonus    int            `yaml:"bonus"`
	Dice     string         `yaml:"dice"`
	Affects  []RollCategory `yaml:"affects"`
}

// Spell is a catalog spell. It is immutable after Validate succeeds.
type Spell struct {
	Name          string        `yaml:"name"`
	Level         int           `yaml:"level"`
	School        string        `yaml:"school"`
	Description   string        `yaml:"description"`
	Mode          SpellMode     `yaml:"mode"`
	Dice          string        `yaml:"dice"`
	DamageType    string        `yaml:"damage_type"`
	SaveType      Ability       `yaml:"save_type"`
	HalfOnSave    *bool         `yaml:"half_on_save"`
	Healing       bool          `yaml:"healing"`
	AreaEffect    bool          `yaml:"area_effect"`
	Concentration bool          `yaml:"concentration"`
	IsBuff        bool          `yaml:"is_buff_spell"`
	BuffData      *BuffTemplate `yaml:"buff_data"`

	dice    dice.Expression
	hasDice bool
}

// Validate checks the spell's shape and caches its dice expression.
func (s *Spell) Validate() error {
	entity := fmt.Sprintf("spell %q", s.Name)
	if s.Name == "" {
		return invalid("spell", "name", "must not be empty")
	}
	if s.Level < 0 || s.Level > 9 {
		return invalid(entity, "level", "must be 0-9, got %d", s.Level)
	}
	switch s.Mode {
	case "":
		s.Mode = ModeNone
	case ModeAttack, ModeSave, ModeNone:
	default:
		return invalid(entity, "mode", "must be attack, save or none, got %q", s.Mode)
	}
	if s.Dice != "" {
		e, err := dice.Parse(s.Dice)
		if err != nil {
			return invalid(entity, "dice", "%v", err)
		}
		s.dice, s.hasDice = e, true
	}
	if s.IsBuff && s.Healing {
		return invalid(entity, "is_buff_spell", "a spell cannot be both buff and healing")
	}
	if s.IsBuff {
		if s.BuffData == nil {
			return invalid(entity, "buff_data", "buff spells require buff_data")
		}
		if s.BuffData.Name == "" {
			s.BuffData.Name = s.Name
		}
		if s.BuffData.Duration == 0 {
			return invalid(entity, "buff_data.duration", "must be positive or -1")
		}
		if s.BuffData.Dice != "" {
			if err := dice.Validate(s.BuffData.Dice); err != nil {
				return invalid(entity, "buff_data.dice", "%v", err)
			}
		}
		if len(s.BuffData.Affects) == 0 {
			return invalid(entity, "buff_data.affects", "must name at least one roll category")
		}
		for _, c := range s.BuffData.Affects {
			if !knownCategories[c] {
				return invalid(entity, "buff_data.affects", "unknown category %q", c)
			}
		}
	}
	if s.Healing && !s.hasDice {
		return invalid(entity, "dice", "healing spells require dice")
	}
	if s.Mode == ModeSave && s.SaveType == "" && !s.IsBuff && !s.Healing {
		return invalid(entity, "save_type", "save spells require save_type")
	}
	return nil
}

// Branch returns the resolution path in priority order:
// buff, healing, attack roll, saving throw, no-check damage, utility.
func (s *Spell) Branch() Branch {
	switch {
	case s.IsBuff:
		return BranchBuff
	case s.Healing:
		return BranchHealing
	case !s.hasDice:
		return BranchUtility
	case s.Mode == ModeAttack:
		return BranchAttack
	case s.Mode == ModeSave:
		return BranchSave
	default:
		return BranchNoCheck
	}
}

// IsCantrip reports whether the spell costs no slot.
func (s *Spell) IsCantrip() bool { return s.Level == 0 }

// IsDamaging reports whether the spell deals damage.
func (s *Spell) IsDamaging() bool {
	b := s.Branch()
	return b == BranchAttack || b == BranchSave || b == BranchNoCheck
}

// DiceFor returns the spell dice for a caster of casterLevel. Cantrip dice
// scale by tier; leveled spells are returned unchanged.
func (s *Spell) DiceFor(casterLevel int) (dice.Expression, bool) {
	if !s.hasDice {
		return dice.Expression{}, false
	}
	if s.IsCantrip() {
		return s.dice.Scaled(dice.CantripTier(casterLevel)), true
	}
	return s.dice, true
}

// HalfDamageOnSave reports whether a successful save halves damage rather
// than negating it.
func (s *Spell) HalfDamageOnSave() bool {
	if s.HalfOnSave != nil {
		return *s.HalfOnSave
	}
	return halfOnSaveDefaults[strings.ToLower(s.Name)]
}

// AddsAbilityModifier reports whether the description says the caster's
// ability modifier is added to the roll.
func (s *Spell) AddsAbilityModifier() bool {
	d := strings.ToLower(s.Description)
	return strings.Contains(d, "spellcasting ability modifier") || strings.Contains(d, "ability modifier")
}

// ExpectedHealing is the average healing for a caster whose casting
// modifier is mod. Non-healing spells return 0.
func (s *Spell) ExpectedHealing(casterLevel, mod int) int {
	if !s.Healing {
		return 0
	}
	e, _ := s.DiceFor(casterLevel)
	total := e.Average()
	if s.AddsAbilityModifier() {
		total += mod
	}
	return total
}

// ExpectedDamage is the average damage before saves or misses.
func (s *Spell) ExpectedDamage(casterLevel int) int {
	if !s.IsDamaging() {
		return 0
	}
	e, _ := s.DiceFor(casterLevel)
	return e.Average()
}
