package combat

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combatsim/internal/game/ai"
	"github.com/cory-johannsen/combatsim/internal/game/buff"
	"github.com/cory-johannsen/combatsim/internal/game/combatant"
	"github.com/cory-johannsen/combatsim/internal/game/dice"
)

// Encounter limits.
const (
	MaxRounds               = 50
	DefaultProgressInterval = 5
)

// ErrSimulationFailed wraps any fault that escapes an encounter run.
var ErrSimulationFailed = errors.New("combat: simulation failed")

// Winner names the side that won.
type Winner string

const (
	WinnerParty    Winner = "party"
	WinnerMonsters Winner = "monsters"
	WinnerUnknown  Winner = "unknown"
)

type phase int

const (
	phasePending phase = iota
	phaseRolling
	phaseOver
)

// Option configures an Encounter.
type Option func(*Encounter)

// WithSource sets the random source for every roll in the encounter.
func WithSource(src dice.Source) Option { return func(e *Encounter) { e.src = src } }

// WithLogger sets the encounter logger.
func WithLogger(l *zap.Logger) Option { return func(e *Encounter) { e.logger = l } }

// WithRoundCap lowers the round limit. Values outside 1..MaxRounds are ignored.
func WithRoundCap(n int) Option {
	return func(e *Encounter) {
		if n >= 1 && n <= MaxRounds {
			e.roundCap = n
		}
	}
}

// WithProgressInterval sets how many rounds pass between progress callbacks.
func WithProgressInterval(n int) Option {
	return func(e *Encounter) {
		if n > 0 {
			e.progressEvery = n
		}
	}
}

// WithPolicies replaces the default party and monster policies.
func WithPolicies(reg *ai.Registry) Option { return func(e *Encounter) { e.policies = reg } }

// Encounter is the turn-based state machine for one simulation.
//
// It is single-threaded: exactly one action resolves at a time, in initiative
// order. An Encounter and its combatants must not be shared across goroutines.
type Encounter struct {
	party    []*combatant.Combatant
	monsters []*combatant.Combatant
	isParty  map[*combatant.Combatant]bool

	src      dice.Source
	roller   *dice.Roller
	conc     *buff.Concentration
	resolver *Resolver
	policies *ai.Registry
	logger   *zap.Logger

	roundCap      int
	progressEvery int

	phase  phase
	order  []InitiativeEntry
	cursor int
	round  int
	winner Winner
	log    []LogEntry

	aliveCache []*combatant.Combatant
	aliveValid bool
}

// New builds an encounter between party and monsters.
//
// Precondition: both sides are non-empty and no combatant appears twice.
// Postcondition: the encounter is pending; initiative is rolled on the first NextTurn.
func New(party, monsters []*combatant.Combatant, opts ...Option) (*Encounter, error) {
	if len(party) == 0 || len(monsters) == 0 {
		return nil, fmt.Errorf("combat: both sides need at least one combatant (party=%d, monsters=%d)", len(party), len(monsters))
	}
	e := &Encounter{
		party:         append([]*combatant.Combatant(nil), party...),
		monsters:      append([]*combatant.Combatant(nil), monsters...),
		isParty:       make(map[*combatant.Combatant]bool, len(party)+len(monsters)),
		roundCap:      MaxRounds,
		progressEvery: DefaultProgressInterval,
		winner:        WinnerUnknown,
	}
	seen := make(map[*combatant.Combatant]bool)
	for i, side := range [][]*combatant.Combatant{e.party, e.monsters} {
		for _, c := range side {
			if c == nil {
				return nil, errors.New("combat: nil combatant")
			}
			if seen[c] {
				return nil, fmt.Errorf("combat: combatant %q appears twice", c.Name)
			}
			seen[c] = true
			e.isParty[c] = i == 0
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.src == nil {
		e.src = dice.NewCryptoSource()
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.policies == nil {
		e.policies = ai.DefaultRegistry(ai.NewPartyPolicy(e.logger), ai.NewMonsterPolicy(e.logger))
	}
	e.roller = dice.NewLoggedRoller(e.src, e.logger)
	e.conc = buff.NewConcentration()
	e.resolver = NewResolver(e.roller, e.conc, e.logger)
	return e, nil
}

// Round returns the current round; 0 before initiative.
func (e *Encounter) Round() int { return e.round }

// Initiative returns the turn order; empty before the first turn.
func (e *Encounter) Initiative() []InitiativeEntry {
	return append([]InitiativeEntry(nil), e.order...)
}

// Log returns a copy of the log so far.
func (e *Encounter) Log() []LogEntry { return append([]LogEntry(nil), e.log...) }

// Party returns the party roster, dead members included.
func (e *Encounter) Party() []*combatant.Combatant { return e.party }

// Monsters returns the monster roster, dead members included.
func (e *Encounter) Monsters() []*combatant.Combatant { return e.monsters }

// Concentration exposes the encounter's concentration registry.
func (e *Encounter) Concentration() *buff.Concentration { return e.conc }

// IsOver reports whether the encounter has reached a terminal state.
func (e *Encounter) IsOver() bool {
	if e.phase == phaseOver {
		return true
	}
	return e.checkOver()
}

// Winner returns the winning side, or WinnerUnknown while running or after
// the round cap.
func (e *Encounter) Winner() Winner { return e.winner }

// NextTurn advances to the next living combatant in initiative order, has
// its policy choose a plan, resolves it, and logs the result. Wrapping past
// the last combatant starts a new round and ticks every living combatant's
// buffs.
//
// Postcondition: Returns the combatant that acted, or nil if the encounter is over.
func (e *Encounter) NextTurn() *combatant.Combatant {
	switch e.phase {
	case phaseOver:
		return nil
	case phasePending:
		e.start()
	}
	if e.checkOver() {
		return nil
	}
	actor := e.advance()
	if actor == nil {
		return nil
	}
	e.takeTurn(actor)
	e.checkOver()
	return actor
}

func (e *Encounter) start() {
	all := append(append([]*combatant.Combatant(nil), e.party...), e.monsters...)
	e.order = RollInitiative(all, e.roller)
	e.phase = phaseRolling
	e.round = 1
	e.cursor = 0
	e.invalidate()
	e.logRoundStart()
	for _, entry := range e.order {
		e.logger.Debug("initiative",
			zap.String("combatant", entry.Combatant.Name),
			zap.Int("total", entry.Total),
			zap.Int("tiebreak", entry.Tiebreak),
		)
	}
}

// advance returns the next living combatant, wrapping into a new round as
// needed. It returns nil when the round cap is reached.
func (e *Encounter) advance() *combatant.Combatant {
	for {
		for e.cursor < len(e.order) {
			c := e.order[e.cursor].Combatant
			e.cursor++
			if c.IsAlive() {
				return c
			}
		}
		if e.round >= e.roundCap {
			e.logger.Info("combat: round cap reached", zap.Int("rounds", e.round))
			e.finish(WinnerUnknown)
			return nil
		}
		e.round++
		e.cursor = 0
		for _, c := range e.alive() {
			for _, name := range c.Buffs.Tick() {
				e.logger.Debug("buff expired", zap.String("combatant", c.Name), zap.String("buff", name))
			}
		}
		e.invalidate()
		e.logRoundStart()
	}
}

func (e *Encounter) takeTurn(actor *combatant.Combatant) {
	for _, name := range actor.RollRecharges(e.roller) {
		e.logger.Debug("special recharged", zap.String("actor", actor.Name), zap.String("special", name))
	}
	plan := ai.WaitPlan()
	if policy, ok := e.policies.PolicyFor(actor); ok {
		plan = policy.ChooseAction(actor, e.snapshot(actor))
	}
	res := e.dispatch(actor, plan)
	e.log = append(e.log, LogEntry{Type: EntryAction, Round: e.round, Actor: actor.Name, Result: &res})
	e.logger.Debug("turn",
		zap.Int("round", e.round),
		zap.String("actor", actor.Name),
		zap.String("plan", plan.String()),
		zap.Bool("success", res.Success),
		zap.Int("damage", res.Damage),
		zap.Int("healing", res.Healing),
	)
	// A fallen caster can no longer sustain concentration.
	for _, c := range e.order {
		if !c.Combatant.IsAlive() {
			e.conc.End(c.Combatant.ID)
		}
	}
	e.invalidate()
}

func (e *Encounter) dispatch(actor *combatant.Combatant, plan ai.Plan) Result {
	switch plan.Kind {
	case ai.Attack, ai.Special:
		if plan.Action == nil {
			return failure(plan.Kind.String(), plan.Kind.String(), "", ReasonBadPlan)
		}
		return e.resolver.ResolveAction(actor, plan.Action, plan.Targets)
	case ai.CastSpell:
		if plan.Spell == nil {
			return failure(plan.Kind.String(), KindSpell, "", ReasonBadPlan)
		}
		return e.resolver.CastSpell(actor, plan.Spell, plan.Targets)
	case ai.Wait:
		return Result{Action: KindWait, Kind: KindWait, Target: actor.Name, Success: true}
	default:
		return Result{Action: KindDefend, Kind: KindDefend, Target: actor.Name, Success: true}
	}
}

// snapshot builds the actor's view of the fight from the alive cache.
func (e *Encounter) snapshot(actor *combatant.Combatant) *ai.CombatState {
	state := &ai.CombatState{Round: e.round, Concentration: e.conc}
	side := e.isParty[actor]
	for _, c := range e.alive() {
		if e.isParty[c] == side {
			state.Allies = append(state.Allies, c)
		} else {
			state.Enemies = append(state.Enemies, c)
		}
	}
	return state
}

// alive returns the living combatants in initiative order, cached until the
// next action or round change.
func (e *Encounter) alive() []*combatant.Combatant {
	if e.aliveValid {
		return e.aliveCache
	}
	e.aliveCache = e.aliveCache[:0]
	for _, entry := range e.order {
		if entry.Combatant.IsAlive() {
			e.aliveCache = append(e.aliveCache, entry.Combatant)
		}
	}
	e.aliveValid = true
	return e.aliveCache
}

func (e *Encounter) invalidate() { e.aliveValid = false }

// checkOver ends the encounter when a whole side is down.
func (e *Encounter) checkOver() bool {
	if e.phase == phaseOver {
		return true
	}
	switch {
	case !anyAlive(e.monsters):
		e.finish(WinnerParty)
	case !anyAlive(e.party):
		e.finish(WinnerMonsters)
	default:
		return false
	}
	return true
}

func (e *Encounter) finish(w Winner) {
	e.phase = phaseOver
	e.winner = w
	for _, c := range append(append([]*combatant.Combatant(nil), e.party...), e.monsters...) {
		c.Buffs.Clear()
	}
	e.conc.Reset()
	e.logger.Info("combat: over",
		zap.String("winner", string(w)),
		zap.Int("rounds", e.round),
		zap.Int("party_hp", e.partyHP()),
	)
}

func anyAlive(cs []*combatant.Combatant) bool {
	for _, c := range cs {
		if c.IsAlive() {
			return true
		}
	}
	return false
}

func (e *Encounter) partyHP() int {
	total := 0
	for _, c := range e.party {
		if c.IsAlive() {
			total += c.HP
		}
	}
	return total
}

func (e *Encounter) logRoundStart() {
	e.log = append(e.log, LogEntry{Type: EntryRoundStart, Round: e.round})
	e.logger.Debug("round start", zap.Int("round", e.round))
}

// Progress is a point-in-time view passed to a ProgressFunc.
type Progress struct {
	Round   int    `json:"round"`
	Over    bool   `json:"over"`
	Winner  Winner `json:"winner"`
	PartyHP int    `json:"party_hp"`
}

// ProgressFunc receives progress during Run.
type ProgressFunc func(Progress)

func (e *Encounter) progress() Progress {
	return Progress{Round: e.round, Over: e.phase == phaseOver, Winner: e.winner, PartyHP: e.partyHP()}
}

// Run drives the encounter to completion. progress, if non-nil, is called
// every progress interval rounds and once at the end. Cancelling ctx stops
// the run between turns.
//
// Postcondition: on a fault, progress still receives a final update and the
// returned error wraps ErrSimulationFailed.
func (e *Encounter) Run(ctx context.Context, progress ProgressFunc) (sum *Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("combat: simulation fault",
				zap.Int("round", e.round),
				zap.String("panic", fmt.Sprint(r)),
			)
			e.notify(progress)
			sum, err = nil, fmt.Errorf("%w: %v", ErrSimulationFailed, r)
		}
	}()
	reported := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.NextTurn() == nil {
			break
		}
		if progress != nil && e.round != reported && e.round%e.progressEvery == 0 {
			reported = e.round
			progress(e.progress())
		}
	}
	e.notify(progress)
	s := e.Summary()
	return &s, nil
}

// notify delivers a final progress update, swallowing a panicking callback.
func (e *Encounter) notify(progress ProgressFunc) {
	if progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("combat: progress callback fault", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	progress(e.progress())
}
