// Package sqlite keeps simulation history in a local SQLite file using
// database/sql and mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cory-johannsen/combatsim/internal/game/combat"
	"github.com/cory-johannsen/combatsim/internal/simulation"
)

const schema = `
CREATE TABLE IF NOT EXISTS simulations (
	id                 TEXT    PRIMARY KEY,
	encounter_id       TEXT    NOT NULL,
	seed               INTEGER NOT NULL,
	state              TEXT    NOT NULL,
	round              INTEGER NOT NULL DEFAULT 0,
	winner             TEXT    NOT NULL DEFAULT '',
	rounds             INTEGER NOT NULL DEFAULT 0,
	party_hp_remaining INTEGER NOT NULL DEFAULT 0,
	combatants         TEXT    NOT NULL DEFAULT '[]',
	log                TEXT    NOT NULL DEFAULT '[]',
	stats              TEXT    NOT NULL DEFAULT '{}',
	error              TEXT    NOT NULL DEFAULT '',
	started_at         INTEGER NOT NULL,
	finished_at        INTEGER
);
CREATE INDEX IF NOT EXISTS idx_simulations_started_at ON simulations (started_at DESC);`

// Store is a simulation.HistoryStore backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists. path may be ":memory:".
//
// Postcondition: Returns a ready Store or a non-nil error.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %q: %w", path, err)
	}
	// One connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Ping reports whether the database handle is usable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Save implements simulation.HistoryStore.
func (s *Store) Save(ctx context.Context, rec *simulation.Record) error {
	combatants, log, stats, err := rec.EncodeDetail()
	if err != nil {
		return err
	}
	var finished sql.NullInt64
	if !rec.FinishedAt.IsZero() {
		finished = sql.NullInt64{Int64: rec.FinishedAt.UnixNano(), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO simulations
			(id, encounter_id, seed, state, round, winner, rounds, party_hp_remaining,
			 combatants, log, stats, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			state = excluded.state,
			round = excluded.round,
			winner = excluded.winner,
			rounds = excluded.rounds,
			party_hp_remaining = excluded.party_hp_remaining,
			combatants = excluded.combatants,
			log = excluded.log,
			stats = excluded.stats,
			error = excluded.error,
			finished_at = excluded.finished_at`,
		rec.ID, rec.EncounterID, int64(rec.Seed), string(rec.State), rec.Round,
		string(rec.Winner), rec.Rounds, rec.PartyHPRemaining,
		string(combatants), string(log), string(stats), rec.Error,
		rec.StartedAt.UnixNano(), finished,
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

// Get implements simulation.HistoryStore.
func (s *Store) Get(ctx context.Context, id string) (*simulation.Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, simulation.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying simulation %s: %w", id, err)
	}
	return rec, nil
}

// List implements simulation.HistoryStore.
func (s *Store) List(ctx context.Context, limit int) ([]*simulation.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY started_at DESC LIMIT ?`, limit)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*simulation.Record, error) {
	var (
		rec                    simulation.Record
		seed, started          int64
		state, winner          string
		combatants, log, stats string
		finished               sql.NullInt64
	)
	err := row.Scan(
		&rec.ID, &rec.EncounterID, &seed, &state, &rec.Round, &winner, &rec.Rounds,
		&rec.PartyHPRemaining, &combatants, &log, &stats, &rec.Error, &started, &finished,
	)
	if err != nil {
		return nil, err
	}
	rec.Seed = uint64(seed)
	rec.State = simulation.State(state)
	rec.Winner = combat.Winner(winner)
	rec.StartedAt = time.Unix(0, started).UTC()
	if finished.Valid {
		rec.FinishedAt = time.Unix(0, finished.Int64).UTC()
	}
	if err := rec.DecodeDetail([]byte(combatants), []byte(log), []byte(stats)); err != nil {
		return nil, err
	}
	return &rec, nil
}
