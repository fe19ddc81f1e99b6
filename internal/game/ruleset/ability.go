package ruleset

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Ability names one of the six core ability scores.
type Ability string

const (
	Strength     Ability = "str"
	Dexterity    Ability = "dex"
	Constitution Ability = "con"
	Intelligence Ability = "int"
	Wisdom       Ability = "wis"
	Charisma     Ability = "cha"
)

// Abilities lists the six abilities in canonical order.
var Abilities = []Ability{Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma}

// MinScore and MaxScore bound a legal ability score.
const (
	MinScore = 1
	MaxScore = 30
)

var abilityAliases = map[string]Ability{
	"str": Strength, "strength": Strength,
	"dex": Dexterity, "dexterity": Dexterity,
	"con": Constitution, "constitution": Constitution,
	"int": Intelligence, "intelligence": Intelligence,
	"wis": Wisdom, "wisdom": Wisdom,
	"cha": Charisma, "charisma": Charisma,
}

// ParseAbility accepts short or long ability names in any case.
func ParseAbility(s string) (Ability, error) {
	if a, ok := abilityAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return a, nil
	}
	return "", fmt.Errorf("unknown ability %q", s)
}

// UnmarshalYAML normalises "Strength", "STR" and "str" to the same Ability.
func (a *Ability) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw == "" {
		*a = ""
		return nil
	}
	parsed, err := ParseAbility(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// AbilityMod computes the standard ability modifier using floor division: floor((score - 10) / 2).
//
// Postcondition: AbilityMod(1) == -5, AbilityMod(10) == 0, AbilityMod(30) == 10.
func AbilityMod(score int) int {
	diff := score - 10
	if diff < 0 {
		return (diff - 1) / 2
	}
	return diff / 2
}

// ProficiencyBonus returns the proficiency bonus for a character level:
// 2 + (level-1)/4, minimum 2.
func ProficiencyBonus(level int) int {
	if level < 1 {
		return 2
	}
	return 2 + (level-1)/4
}

// Scores maps each ability to its score.
type Scores map[Ability]int

// UnmarshalYAML accepts any ability alias as a key.
func (s *Scores) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]int
	if err := node.Decode(&raw); err != nil {
		return err
	}
	out := make(Scores, len(raw))
	for k, v := range raw {
		a, err := ParseAbility(k)
		if err != nil {
			return err
		}
		out[a] = v
	}
	*s = out
	return nil
}

// Validate checks that all six abilities are present and within MinScore..MaxScore.
//
// Postcondition: Returns nil or a *ValidationError naming the first bad ability
// in canonical order.
func (s Scores) Validate(entity string) error {
	for _, a := range Abilities {
		v, ok := s[a]
		if !ok {
			return invalid(entity, "abilities."+string(a), "missing")
		}
		if v < MinScore || v > MaxScore {
			return invalid(entity, "abilities."+string(a), "score %d outside %d-%d", v, MinScore, MaxScore)
		}
	}
	if len(s) != len(Abilities) {
		extra := make([]string, 0)
		for a := range s {
			if _, known := abilityAliases[string(a)]; !known {
				extra = append(extra, string(a))
			}
		}
		sort.Strings(extra)
		return invalid(entity, "abilities", "unknown abilities %v", extra)
	}
	return nil
}

// Mod returns the modifier for ability a; a missing ability yields the
// modifier of score 10.
func (s Scores) Mod(a Ability) int {
	v, ok := s[a]
	if !ok {
		return 0
	}
	return AbilityMod(v)
}

// Clone returns an independent copy.
func (s Scores) Clone() Scores {
	out := make(Scores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
