package combat

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cory-johannsen/combatsim/internal/game/combatant"
	"github.com/cory-johannsen/combatsim/internal/game/ruleset"
)

// Strike is one line of a multiattack: Count uses of Action.
type Strike struct {
	Action *ruleset.Action
	Count  int
}

var countWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
}

// Multiattack grammar. Each rule yields (count, weapon noun):
//
//	<count> [attacks] with its <noun>     "two with its claws"
//	<count> <noun> attacks                "two claw attacks"
var multiattackRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|\d+)\s+(?:attacks?\s+)?with\s+(?:its|his|her|their)\s+([a-z]+)`),
	regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|\d+)\s+([a-z]+)\s+attacks?\b`),
}

type clause struct {
	pos   int
	count int
	noun  string
}

// PlanMultiattack reads a multiattack description and maps each counted
// weapon noun to one of attacks, tolerating singular and plural forms.
// When nothing in the text maps to a known attack it falls back to the
// first attack once plus the second twice, or a lone attack twice.
func PlanMultiattack(description string, attacks []*ruleset.Action) []Strike {
	if len(attacks) == 0 {
		return nil
	}
	var clauses []clause
	for _, rule := range multiattackRules {
		for _, m := range rule.FindAllStringSubmatchIndex(description, -1) {
			word := strings.ToLower(description[m[2]:m[3]])
			n, ok := countWords[word]
			if !ok {
				n, _ = strconv.Atoi(word)
			}
			if n <= 0 {
				continue
			}
			clauses = append(clauses, clause{pos: m[0], count: n, noun: strings.ToLower(description[m[4]:m[5]])})
		}
	}
	sort.SliceStable(clauses, func(i, j int) bool { return clauses[i].pos < clauses[j].pos })

	var strikes []Strike
	seen := make(map[int]bool)
	for _, c := range clauses {
		if seen[c.pos] {
			continue
		}
		seen[c.pos] = true
		if a := matchAttack(c.noun, attacks); a != nil {
			strikes = append(strikes, Strike{Action: a, Count: c.count})
		}
	}
	if len(strikes) > 0 {
		return strikes
	}
	return fallbackStrikes(attacks)
}

func fallbackStrikes(attacks []*ruleset.Action) []Strike {
	if len(attacks) == 1 {
		return []Strike{{Action: attacks[0], Count: 2}}
	}
	return []Strike{{Action: attacks[0], Count: 1}, {Action: attacks[1], Count: 2}}
}

// matchAttack finds the attack whose name contains noun or its singular.
func matchAttack(noun string, attacks []*ruleset.Action) *ruleset.Action {
	forms := []string{noun}
	if s, ok := strings.CutSuffix(noun, "es"); ok && len(s) >= 3 {
		forms = append(forms, s)
	}
	if s, ok := strings.CutSuffix(noun, "s"); ok && len(s) >= 3 {
		forms = append(forms, s)
	}
	for _, form := range forms {
		for _, a := range attacks {
			if strings.Contains(strings.ToLower(a.Name), form) {
				return a
			}
		}
	}
	return nil
}

// multiattack runs every strike against target. Strikes are independent, so
// later ones still land after the target drops.
func (r *Resolver) multiattack(actor *combatant.Combatant, a *ruleset.Action, strikes []Strike, target *combatant.Combatant) Result {
	res := Result{Action: a.Name, Kind: KindMultiattack, Target: target.Name, Success: true}
	anyHit := false
	for _, s := range strikes {
		for i := 0; i < s.Count; i++ {
			sub := r.weaponAttack(actor, s.Action, target)
			res.Attacks = append(res.Attacks, sub)
			res.Damage += sub.Damage
			anyHit = anyHit || *sub.Hit
		}
	}
	res.Hit = boolPtr(anyHit)
	return res
}
