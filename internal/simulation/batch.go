package simulation

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/combatsim/internal/game/combat"
)

// MaxBatch bounds the replicas in one batch.
const MaxBatch = 10000

// BatchResult aggregates a Monte-Carlo batch.
type BatchResult struct {
	EncounterID    string  `json:"encounter_id"`
	Runs           int     `json:"runs"`
	BaseSeed       uint64  `json:"base_seed"`
	PartyWins      int     `json:"party_wins"`
	MonsterWins    int     `json:"monster_wins"`
	Unfinished     int     `json:"unfinished"`
	PartyWinRate   float64 `json:"party_win_rate"`
	AverageRounds  float64 `json:"average_rounds"`
	AveragePartyHP float64 `json:"average_party_hp"`
}

type replica struct {
	winner  combat.Winner
	rounds  int
	partyHP int
}

// RunBatch runs n replicas of req concurrently on the worker limit. Replica
// i uses seed base+i, so a batch is reproducible from its BaseSeed. Batch
// replicas are aggregated only, not written to history.
func (s *Service) RunBatch(ctx context.Context, req Request, n int) (*BatchResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if n < 1 || n > MaxBatch {
		return nil, fmt.Errorf("%w: batch size must be 1-%d, got %d", ErrInvalidRequest, MaxBatch, n)
	}
	base := s.seedFor(req)
	results := make([]replica, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			r := req
			r.Seed = base + uint64(i)
			rec := s.newRecord(r)
			if err := s.execute(gctx, rec, r); err != nil {
				return fmt.Errorf("replica %d (seed %d): %w", i, rec.Seed, err)
			}
			results[i] = replica{winner: rec.Winner, rounds: rec.Rounds, partyHP: rec.PartyHPRemaining}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &BatchResult{EncounterID: req.EncounterID, Runs: n, BaseSeed: base}
	totalRounds, totalHP := 0, 0
	for _, r := range results {
		switch r.winner {
		case combat.WinnerParty:
			out.PartyWins++
		case combat.WinnerMonsters:
			out.MonsterWins++
		default:
			out.Unfinished++
		}
		totalRounds += r.rounds
		totalHP += r.partyHP
	}
	out.PartyWinRate = float64(out.PartyWins) / float64(n)
	out.AverageRounds = float64(totalRounds) / float64(n)
	out.AveragePartyHP = float64(totalHP) / float64(n)
	s.logger.Info("batch complete",
		zap.String("encounter", req.EncounterID),
		zap.Int("runs", n),
		zap.Uint64("base_seed", base),
		zap.Float64("party_win_rate", out.PartyWinRate),
	)
	return out, nil
}
