// Package stats derives per-combatant totals from an encounter's outbound
// log. Nothing is re-simulated; every number comes from log fields, so a
// persisted log yields the same report as the live run.
package stats

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cory-johannsen/combatsim/internal/game/combat"
)

// ActorStats are the totals for one combatant, keyed by name.
type ActorStats struct {
	Name            string `json:"name"`
	Turns           int    `json:"turns"`
	DamageDealt     int    `json:"damage_dealt"`
	DamageTaken     int    `json:"damage_taken"`
	HealingDone     int    `json:"healing_done"`
	HealingReceived int    `json:"healing_received"`
	AttackRolls     int    `json:"attack_rolls"`
	Hits            int    `json:"hits"`
	Misses          int    `json:"misses"`
	Crits           int    `json:"crits"`
	Fumbles         int    `json:"fumbles"`
	SpellsCast      int    `json:"spells_cast"`
	SlotsSpent      int    `json:"slots_spent"`
	Failures        int    `json:"failures"`
}

// Report collects ActorStats for every name seen in a log.
type Report struct {
	Rounds int                    `json:"rounds"`
	Actors map[string]*ActorStats `json:"actors"`
}

// FromJSON decodes a serialized log and builds its Report.
func FromJSON(data []byte) (*Report, error) {
	var entries []combat.LogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("stats: decoding log: %w", err)
	}
	return FromLog(entries), nil
}

// FromLog builds a Report from log entries.
//
// Damage and healing are credited per target: from target_results when an
// effect lists them, from the sub-attacks of a multiattack, and from the
// result's target otherwise. Names are assumed unique within an encounter.
func FromLog(entries []combat.LogEntry) *Report {
	r := &Report{Actors: make(map[string]*ActorStats)}
	for _, e := range entries {
		if e.Round > r.Rounds {
			r.Rounds = e.Round
		}
		if e.Type != combat.EntryAction || e.Result == nil {
			continue
		}
		r.record(e.Actor, e.Result)
	}
	return r
}

func (r *Report) actor(name string) *ActorStats {
	a, ok := r.Actors[name]
	if !ok {
		a = &ActorStats{Name: name}
		r.Actors[name] = a
	}
	return a
}

func (r *Report) record(actor string, res *combat.Result) {
	a := r.actor(actor)
	a.Turns++
	if !res.Success {
		a.Failures++
		return
	}
	if res.Kind == combat.KindSpell {
		a.SpellsCast++
		if res.SlotLevel > 0 {
			a.SlotsSpent++
		}
	}

	switch {
	case len(res.TargetResults) > 0:
		for _, tr := range res.TargetResults {
			r.credit(a, tr.Target, tr.Damage, tr.Healing)
			a.tally(tr.AttackRoll, tr.Hit, tr.Critical, tr.Fumble)
		}
	case len(res.Attacks) > 0:
		for _, sub := range res.Attacks {
			r.credit(a, sub.Target, sub.Damage, sub.Healing)
			a.tally(sub.AttackRoll, sub.Hit, sub.Critical, sub.Fumble)
		}
	default:
		r.credit(a, res.Target, res.Damage, res.Healing)
		a.tally(res.AttackRoll, res.Hit, res.Critical, res.Fumble)
	}
}

func (r *Report) credit(a *ActorStats, target string, damage, healing int) {
	if damage == 0 && healing == 0 {
		return
	}
	t := r.actor(target)
	a.DamageDealt += damage
	t.DamageTaken += damage
	a.HealingDone += healing
	t.HealingReceived += healing
}

// tally counts one attack roll. Effects without a d20 roll are skipped.
func (a *ActorStats) tally(roll int, hit *bool, crit, fumble bool) {
	if roll == 0 || hit == nil {
		return
	}
	a.AttackRolls++
	if *hit {
		a.Hits++
	} else {
		a.Misses++
	}
	if crit {
		a.Crits++
	}
	if fumble {
		a.Fumbles++
	}
}

// Actor returns the totals for name; the zero value when name never appears.
func (r *Report) Actor(name string) ActorStats {
	if a, ok := r.Actors[name]; ok {
		return *a
	}
	return ActorStats{Name: name}
}

// Sorted returns every actor's totals by damage dealt, highest first, then name.
func (r *Report) Sorted() []ActorStats {
	out := make([]ActorStats, 0, len(r.Actors))
	for _, a := range r.Actors {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DamageDealt != out[j].DamageDealt {
			return out[i].DamageDealt > out[j].DamageDealt
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// NetHPChange is healing received minus damage taken for name.
func (r *Report) NetHPChange(name string) int {
	a := r.Actor(name)
	return a.HealingReceived - a.DamageTaken
}
