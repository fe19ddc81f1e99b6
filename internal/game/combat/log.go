package combat

import "strings"

// EntryType tags a log entry.
type EntryType string

const (
	EntryRoundStart EntryType = "round_start"
	EntryAction     EntryType = "action"
)

// Failure reasons carried by unsuccessful results.
const (
	ReasonNoSlot      = "No spell slot available"
	ReasonNoTarget    = "No valid target"
	ReasonUnavailable = "Special action unavailable"
	ReasonNoAttacks   = "No attacks available"
	ReasonNoEffect    = "No effect"
	ReasonBadPlan     = "Malformed plan"
)

// LogEntry is one line of the outbound combat log: a round marker or an
// action taken by Actor.
type LogEntry struct {
	Type   EntryType `json:"type"`
	Round  int       `json:"round"`
	Actor  string    `json:"actor,omitempty"`
	Result *Result   `json:"result,omitempty"`
}

// Result is the structured outcome of one action, spell, or sub-attack.
// Downstream statistics are computed from these fields alone, so their
// meaning is stable: Damage and Healing are the totals actually applied.
type Result struct {
	Action     string `json:"action"`
	Kind       string `json:"kind"`
	Target     string `json:"target"`
	Success    bool   `json:"success"`
	Reason     string `json:"reason,omitempty"`
	SlotLevel  int    `json:"slot_level,omitempty"`
	AreaEffect bool   `json:"area_effect,omitempty"`

	Hit         *bool `json:"hit,omitempty"`
	Critical    bool  `json:"critical,omitempty"`
	Fumble      bool  `json:"fumble,omitempty"`
	AttackRoll  int   `json:"attack_roll,omitempty"`
	AttackTotal int   `json:"attack_total,omitempty"`

	SaveSuccess *bool `json:"save_success,omitempty"`
	SaveRoll    int   `json:"save_roll,omitempty"`
	SaveDC      int   `json:"save_dc,omitempty"`

	Damage     int    `json:"damage,omitempty"`
	DamageType string `json:"damage_type,omitempty"`
	Healing    int    `json:"healing,omitempty"`

	BuffApplied string   `json:"buff_applied,omitempty"`
	BuffTargets []string `json:"buff_targets,omitempty"`

	TargetResults []TargetResult `json:"target_results,omitempty"`
	// Attacks holds the sub-attacks of a multiattack, in order.
	Attacks []Result `json:"attacks,omitempty"`
}

// TargetResult is the per-target breakdown of an area effect.
type TargetResult struct {
	Target      string `json:"target"`
	Hit         *bool  `json:"hit,omitempty"`
	Critical    bool   `json:"critical,omitempty"`
	Fumble      bool   `json:"fumble,omitempty"`
	AttackRoll  int    `json:"attack_roll,omitempty"`
	AttackTotal int    `json:"attack_total,omitempty"`
	SaveSuccess *bool  `json:"save_success,omitempty"`
	SaveRoll    int    `json:"save_roll,omitempty"`
	Damage      int    `json:"damage,omitempty"`
	Healing     int    `json:"healing,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

func failure(action, kind, target, reason string) Result {
	return Result{Action: action, Kind: kind, Target: target, Success: false, Reason: reason}
}

func joinNames(names []string) string { return strings.Join(names, ", ") }
