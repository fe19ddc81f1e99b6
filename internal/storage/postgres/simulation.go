package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/combatsim/internal/game/combat"
	"github.com/cory-johannsen/combatsim/internal/simulation"
)

// Schema creates the simulations table. It mirrors
// migrations/000001_create_simulations.up.sql.
const Schema = `
	CREATE TABLE IF NOT EXISTS simulations (
		id                 UUID         PRIMARY KEY,
		encounter_id       TEXT         NOT NULL,
		seed               BIGINT       NOT NULL,
		state              TEXT         NOT NULL,
		round              INTEGER      NOT NULL DEFAULT 0,
		winner             TEXT         NOT NULL DEFAULT '',
		rounds             INTEGER      NOT NULL DEFAULT 0,
		party_hp_remaining INTEGER      NOT NULL DEFAULT 0,
		combatants         JSONB        NOT NULL DEFAULT '[]',
		log                JSONB        NOT NULL DEFAULT '[]',
		stats              JSONB        NOT NULL DEFAULT '{}',
		error              TEXT         NOT NULL DEFAULT '',
		started_at         TIMESTAMPTZ  NOT NULL,
		finished_at        TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_simulations_started_at ON simulations (started_at DESC);
`

// SimulationRepository stores simulation history in PostgreSQL. It
// implements simulation.HistoryStore.
type SimulationRepository struct {
	db *pgxpool.Pool
}

// NewSimulationRepository creates a SimulationRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSimulationRepository(db *pgxpool.Pool) *SimulationRepository {
	return &SimulationRepository{db: db}
}

// Ping reports whether the database answers within HealthTimeout.
func (r *SimulationRepository) Ping(ctx context.Context) error {
	return ping(ctx, r.db)
}

// Save inserts rec, or replaces the stored row with the same id.
//
// Precondition: rec.ID must be a UUID.
func (r *SimulationRepository) Save(ctx context.Context, rec *simulation.Record) error {
	combatants, log, stats, err := rec.EncodeDetail()
	if err != nil {
		return err
	}
	var finished *time.Time
	if !rec.FinishedAt.IsZero() {
		finished = &rec.FinishedAt
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO simulations
			(id, encounter_id, seed, state, round, winner, rounds, party_hp_remaining,
			 combatants, log, stats, error, started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			round = EXCLUDED.round,
			winner = EXCLUDED.winner,
			rounds = EXCLUDED.rounds,
			party_hp_remaining = EXCLUDED.party_hp_remaining,
			combatants = EXCLUDED.combatants,
			log = EXCLUDED.log,
			stats = EXCLUDED.stats,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at`,
		rec.ID, rec.EncounterID, int64(rec.Seed), string(rec.State), rec.Round,
		string(rec.Winner), rec.Rounds, rec.PartyHPRemaining,
		combatants, log, stats, rec.Error, rec.StartedAt, finished,
	)
	if err != nil {
		return fmt.Errorf("saving simulation %s: %w", rec.ID, err)
	}
	return nil
}

const selectColumns = `
	SELECT id, encounter_id, seed, state, round, winner, rounds, party_hp_remaining,
	       combatants, log, stats, error, started_at, finished_at
	FROM simulations`

// Get returns the simulation with id.
//
// Postcondition: Returns simulation.ErrNotFound if no row matches.
func (r *SimulationRepository) Get(ctx context.Context, id string) (*simulation.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, simulation.ErrNotFound
	}
	rec, err := scanRecord(r.db.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, simulation.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying simulation %s: %w", id, err)
	}
	return rec, nil
}

// List returns up to limit simulations, most recently started first. A
// limit <= 0 returns every row.
func (r *SimulationRepository) List(ctx context.Context, limit int) ([]*simulation.Record, error) {
	query := selectColumns + ` ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing simulations: %w", err)
	}
	defer rows.Close()

	var out []*simulation.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning simulation: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating simulations: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (*simulation.Record, error) {
	var (
		rec                    simulation.Record
		seed                   int64
		state, winner          string
		combatants, log, stats []byte
		finished               *time.Time
	)
	err := row.Scan(
		&rec.ID, &rec.EncounterID, &seed, &state, &rec.Round, &winner, &rec.Rounds,
		&rec.PartyHPRemaining, &combatants, &log, &stats, &rec.Error, &rec.StartedAt, &finished,
	)
	if err != nil {
		return nil, err
	}
	rec.Seed = uint64(seed)
	rec.State = simulation.State(state)
	rec.Winner = combat.Winner(winner)
	if finished != nil {
		rec.FinishedAt = finished.UTC()
	}
	rec.StartedAt = rec.StartedAt.UTC()
	if err := rec.DecodeDetail(combatants, log, stats); err != nil {
		return nil, err
	}
	return &rec, nil
}
