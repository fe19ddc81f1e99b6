package buff

// Concentration is the combat-scoped registry of who is concentrating on what.
// A caster sustains at most one concentration effect across all holders;
// beginning a new one purges the old effect from every ledger that held it.
//
// It is not safe for concurrent use; one registry belongs to one encounter.
type Concentration struct {
	spells  map[string]string
	holders map[string][]*Ledger
}

// NewConcentration returns an empty registry.
func NewConcentration() *Concentration {
	return &Concentration{
		spells:  make(map[string]string),
		holders: make(map[string][]*Ledger),
	}
}

// Begin records that source now concentrates on buffName held by holders,
// ending whatever source concentrated on before.
//
// Postcondition: Returns the number of prior buffs purged across all holders.
func (c *Concentration) Begin(source, buffName string, holders []*Ledger) int {
	removed := c.End(source)
	c.spells[source] = buffName
	c.holders[source] = append([]*Ledger(nil), holders...)
	return removed
}

// End stops source's concentration and strips its buffs from every holder.
func (c *Concentration) End(source string) int {
	removed := 0
	for _, l := range c.holders[source] {
		removed += l.RemoveConcentration(source)
	}
	delete(c.spells, source)
	delete(c.holders, source)
	return removed
}

// Active returns the buff source is concentrating on. A concentration whose
// buffs have all expired is reported inactive.
func (c *Concentration) Active(source string) (string, bool) {
	name, ok := c.spells[source]
	if !ok {
		return "", false
	}
	for _, l := range c.holders[source] {
		if l.HasConcentrationFrom(source, name) {
			return name, true
		}
	}
	return "", false
}

// Reset forgets every caster without touching ledgers.
func (c *Concentration) Reset() {
	c.spells = make(map[string]string)
	c.holders = make(map[string][]*Ledger)
}
