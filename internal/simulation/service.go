// Package simulation runs catalog encounters on behalf of callers: one at a
// time synchronously, in the background on a bounded worker pool, or as
// seeded Monte-Carlo batches. Finished runs are written to a HistoryStore.
package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/cory-johannsen/combatsim/internal/game/ai"
	"github.com/cory-johannsen/combatsim/internal/game/catalog"
	"github.com/cory-johannsen/combatsim/internal/game/combat"
	"github.com/cory-johannsen/combatsim/internal/game/dice"
	"github.com/cory-johannsen/combatsim/internal/game/stats"
	"github.com/cory-johannsen/combatsim/internal/scripting"
)

// DefaultWorkers bounds concurrent background simulations.
const DefaultWorkers = 4

// Option configures a Service.
type Option func(*Service)

// WithStore sets the history store. The default is an in-memory store.
func WithStore(store HistoryStore) Option { return func(s *Service) { s.store = store } }

// WithWorkers bounds concurrent background runs.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithScripts enables Lua tactics hooks from mgr.
func WithScripts(mgr *scripting.Manager) Option { return func(s *Service) { s.scripts = mgr } }

// WithRoundCap sets the default round cap.
func WithRoundCap(n int) Option { return func(s *Service) { s.roundCap = n } }

// WithProgressInterval sets how often, in rounds, running records are updated.
func WithProgressInterval(n int) Option { return func(s *Service) { s.progressEvery = n } }

// WithSeed fixes the seed used when a request does not carry one. Zero keeps
// drawing fresh seeds.
func WithSeed(seed uint64) Option { return func(s *Service) { s.defaultSeed = seed } }

// Service runs encounters from a read-only catalog. Each run owns its
// combatants and encounter; only the bookkeeping map is shared.
type Service struct {
	catalog       *catalog.Catalog
	store         HistoryStore
	scripts       *scripting.Manager
	logger        *zap.Logger
	workers       int
	roundCap      int
	progressEvery int
	defaultSeed   uint64

	sem *semaphore.Weighted

	mu      sync.RWMutex
	running map[string]*Record

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService returns a Service over cat.
//
// Precondition: cat must be non-nil.
func NewService(cat *catalog.Catalog, logger *zap.Logger, opts ...Option) *Service {
	if cat == nil {
		panic("simulation.NewService: catalog must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		catalog:       cat,
		logger:        logger,
		workers:       DefaultWorkers,
		roundCap:      combat.MaxRounds,
		progressEvery: combat.DefaultProgressInterval,
		running:       make(map[string]*Record),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = NewMemoryStore()
	}
	s.sem = semaphore.NewWeighted(int64(s.workers))
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Catalog returns the catalog the service runs from.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

func (s *Service) seedFor(req Request) uint64 {
	switch {
	case req.Seed != 0:
		return req.Seed
	case s.defaultSeed != 0:
		return s.defaultSeed
	default:
		return dice.NewSeed()
	}
}

func (s *Service) validate(req Request) error {
	if _, ok := s.catalog.Encounter(req.EncounterID); !ok {
		return fmt.Errorf("%w: encounter %q", catalog.ErrNotFound, req.EncounterID)
	}
	if req.RoundCap < 0 || req.RoundCap > combat.MaxRounds {
		return fmt.Errorf("%w: round_cap must be 0-%d, got %d", ErrInvalidRequest, combat.MaxRounds, req.RoundCap)
	}
	return nil
}

// RunSync runs req to completion on the caller's goroutine and stores the result.
//
// Postcondition: the returned record is terminal and has been saved.
func (s *Service) RunSync(ctx context.Context, req Request) (*Record, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	rec := s.newRecord(req)
	runErr := s.execute(ctx, rec, req)
	if err := s.store.Save(context.WithoutCancel(ctx), rec); err != nil {
		return rec, fmt.Errorf("saving simulation %s: %w", rec.ID, err)
	}
	if runErr != nil {
		return rec, fmt.Errorf("simulation %s: %w", rec.ID, runErr)
	}
	return rec, nil
}

// Submit queues req on the worker pool and returns its id immediately.
// Status reports progress while it runs.
func (s *Service) Submit(ctx context.Context, req Request) (string, error) {
	if err := s.validate(req); err != nil {
		return "", err
	}
	if err := s.ctx.Err(); err != nil {
		return "", fmt.Errorf("simulation service stopped: %w", err)
	}
	rec := s.newRecord(req)
	s.mu.Lock()
	s.running[rec.ID] = rec
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.sem.Acquire(s.ctx, 1); err != nil {
			s.fail(rec, err)
			s.finish(rec)
			return
		}
		defer s.sem.Release(1)
		_ = s.execute(s.ctx, rec, req)
		s.finish(rec)
	}()
	s.logger.Info("simulation submitted",
		zap.String("id", rec.ID),
		zap.String("encounter", req.EncounterID),
		zap.Uint64("seed", rec.Seed),
	)
	return rec.ID, nil
}

// Status returns a snapshot of simulation id, in flight or from history.
func (s *Service) Status(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	rec, ok := s.running[id]
	if ok {
		snap := rec.clone()
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()
	return s.store.Get(ctx, id)
}

// History lists stored simulations, most recent first.
func (s *Service) History(ctx context.Context, limit int) ([]*Record, error) {
	return s.store.List(ctx, limit)
}

// Wait blocks until every submitted simulation has finished.
func (s *Service) Wait() { s.wg.Wait() }

// Close cancels queued and running background simulations and waits for
// their goroutines to exit.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) newRecord(req Request) *Record {
	return &Record{
		ID:          uuid.NewString(),
		EncounterID: req.EncounterID,
		Seed:        s.seedFor(req),
		State:       StatePending,
		StartedAt:   time.Now().UTC(),
	}
}

// execute runs the encounter for rec and fills in its outcome. A returned
// error has already been recorded on rec.
func (s *Service) execute(ctx context.Context, rec *Record, req Request) error {
	start := time.Now()
	s.update(rec, func(r *Record) { r.State = StateRunning })

	enc, err := s.build(rec, req)
	if err != nil {
		s.fail(rec, err)
		return err
	}
	sum, err := enc.Run(ctx, func(p combat.Progress) {
		s.update(rec, func(r *Record) { r.Round = p.Round })
	})
	if err != nil {
		s.fail(rec, err)
		return err
	}

	report := stats.FromLog(sum.Log)
	actorStats := make(map[string]stats.ActorStats, len(report.Actors))
	for name, a := range report.Actors {
		actorStats[name] = *a
	}
	s.update(rec, func(r *Record) {
		r.State = StateCompleted
		r.Round = sum.Rounds
		r.Winner = sum.Winner
		r.Rounds = sum.Rounds
		r.PartyHPRemaining = sum.PartyHPRemaining
		r.Combatants = sum.Combatants
		r.Log = sum.Log
		r.Stats = actorStats
		r.FinishedAt = time.Now().UTC()
	})
	s.logger.Info("simulation complete",
		zap.String("id", rec.ID),
		zap.String("encounter", rec.EncounterID),
		zap.Uint64("seed", rec.Seed),
		zap.String("winner", string(sum.Winner)),
		zap.Int("rounds", sum.Rounds),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// build assembles a fresh encounter for rec.
func (s *Service) build(rec *Record, req Request) (*combat.Encounter, error) {
	party, monsters, err := s.catalog.Roster(req.EncounterID)
	if err != nil {
		return nil, err
	}
	policies := ai.DefaultRegistry(ai.NewPartyPolicy(s.logger), ai.NewMonsterPolicy(s.logger))
	if s.scripts != nil {
		var profile string
		if e, ok := s.catalog.Encounter(req.EncounterID); ok {
			profile = e.Tactics
		}
		policies.Wrap(func(p ai.Policy) ai.Policy {
			return ai.NewScriptedPolicy(p, s.scripts, profile, s.logger)
		})
	}
	roundCap := s.roundCap
	if req.RoundCap > 0 {
		roundCap = req.RoundCap
	}
	return combat.New(party, monsters,
		combat.WithSource(dice.NewSeededSource(rec.Seed)),
		combat.WithLogger(s.logger.With(zap.String("simulation", rec.ID))),
		combat.WithRoundCap(roundCap),
		combat.WithProgressInterval(s.progressEvery),
		combat.WithPolicies(policies),
	)
}

func (s *Service) update(rec *Record, fn func(*Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(rec)
}

func (s *Service) fail(rec *Record, err error) {
	s.update(rec, func(r *Record) {
		r.State = StateFailed
		r.Error = err.Error()
		r.FinishedAt = time.Now().UTC()
	})
	s.logger.Error("simulation failed",
		zap.String("id", rec.ID),
		zap.Uint64("seed", rec.Seed),
		zap.Error(err),
	)
}

// finish saves a background run and drops it from the in-flight map.
func (s *Service) finish(rec *Record) {
	s.mu.RLock()
	snap := rec.clone()
	s.mu.RUnlock()
	if err := s.store.Save(context.Background(), snap); err != nil {
		s.logger.Error("saving simulation", zap.String("id", rec.ID), zap.Error(err))
		return
	}
	s.mu.Lock()
	delete(s.running, rec.ID)
	s.mu.Unlock()
}
