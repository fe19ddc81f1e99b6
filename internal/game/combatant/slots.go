package combatant

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MaxSpellLevel is the highest spell level a slot can have.
const MaxSpellLevel = 9

type slotTable struct {
	max  map[int]int
	left map[int]int
}

func newSlotTable(in map[int]int) (*slotTable, error) {
	t := &slotTable{max: make(map[int]int, len(in)), left: make(map[int]int, len(in))}
	for lvl, n := range in {
		if lvl < 1 || lvl > MaxSpellLevel {
			return nil, fmt.Errorf("slot level %d outside 1-%d", lvl, MaxSpellLevel)
		}
		if n < 0 {
			return nil, fmt.Errorf("level %d slot count %d is negative", lvl, n)
		}
		t.max[lvl] = n
		t.left[lvl] = n
	}
	return t, nil
}

func (t *slotTable) remaining(level int) int { return t.left[level] }

// ParseSlotLevel reads a spell-slot key as written in catalog data. It
// accepts "1", "level_1", "level1", "1st", "2nd", "3rd" and "4th"-style keys.
func ParseSlotLevel(key string) (int, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.TrimPrefix(k, "level")
	k = strings.TrimLeft(k, "_- ")
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		k = strings.TrimSuffix(k, suffix)
	}
	lvl, err := strconv.Atoi(k)
	if err != nil || lvl < 1 || lvl > MaxSpellLevel {
		return 0, fmt.Errorf("invalid spell slot level %q", key)
	}
	return lvl, nil
}

// SlotsRemaining returns the unspent slots of level. Cantrip level 0 has none.
func (c *Combatant) SlotsRemaining(level int) int { return c.slots.remaining(level) }

// MaxSlots returns the slot count the combatant started with at level.
func (c *Combatant) MaxSlots(level int) int { return c.slots.max[level] }

// HasSlot reports whether a slot of level is free. Cantrips always have one.
func (c *Combatant) HasSlot(level int) bool {
	return level == 0 || c.slots.remaining(level) > 0
}

// UseSlot spends one slot of level. Cantrips cost nothing.
//
// Postcondition: Returns false and changes nothing when no slot is free;
// SlotsRemaining never goes negative.
func (c *Combatant) UseSlot(level int) bool {
	if level == 0 {
		return true
	}
	if c.slots.left[level] <= 0 {
		return false
	}
	c.slots.left[level]--
	return true
}

// SlotLevels returns the levels with a non-zero starting slot count, ascending.
func (c *Combatant) SlotLevels() []int {
	out := make([]int, 0, len(c.slots.max))
	for lvl, n := range c.slots.max {
		if n > 0 {
			out = append(out, lvl)
		}
	}
	sort.Ints(out)
	return out
}

// TotalSlotsRemaining sums every unspent slot.
func (c *Combatant) TotalSlotsRemaining() int {
	total := 0
	for _, n := range c.slots.left {
		total += n
	}
	return total
}

// SlotsSnapshot returns a copy of the remaining slots keyed by level.
func (c *Combatant) SlotsSnapshot() map[int]int {
	out := make(map[int]int, len(c.slots.left))
	for k, v := range c.slots.left {
		out[k] = v
	}
	return out
}
