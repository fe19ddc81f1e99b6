package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cory-johannsen/combatsim/internal/game/combat"
	"github.com/cory-johannsen/combatsim/internal/game/stats"
)

// ErrNotFound is returned when no simulation has the requested id.
var ErrNotFound = errors.New("simulation not found")

// ErrInvalidRequest wraps request validation failures.
var ErrInvalidRequest = errors.New("invalid simulation request")

// State is the lifecycle state of a submitted simulation.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Request asks for one run of a catalog encounter.
type Request struct {
	EncounterID string `json:"encounter_id"`
	// Seed replays a previous run when non-zero; zero draws a fresh seed.
	Seed uint64 `json:"seed,omitempty"`
	// RoundCap lowers the round limit; zero uses the service default.
	RoundCap int `json:"round_cap,omitempty"`
}

// Record is one simulation: its request, progress and, once finished, its
// outcome, log and derived stats.
type Record struct {
	ID               string                      `json:"id"`
	EncounterID      string                      `json:"encounter_id"`
	Seed             uint64                      `json:"seed"`
	State            State                       `json:"state"`
	Round            int                         `json:"round"`
	Winner           combat.Winner               `json:"winner,omitempty"`
	Rounds           int                         `json:"rounds"`
	PartyHPRemaining int                         `json:"party_hp_remaining"`
	Combatants       []combat.CombatantStatus    `json:"combatants,omitempty"`
	Log              []combat.LogEntry           `json:"log,omitempty"`
	Stats            map[string]stats.ActorStats `json:"stats,omitempty"`
	Error            string                      `json:"error,omitempty"`
	StartedAt        time.Time                   `json:"started_at"`
	FinishedAt       time.Time                   `json:"finished_at,omitzero"`
}

// Done reports whether the record reached a terminal state.
func (r *Record) Done() bool { return r.State == StateCompleted || r.State == StateFailed }

func (r *Record) clone() *Record {
	out := *r
	out.Combatants = append([]combat.CombatantStatus(nil), r.Combatants...)
	out.Log = append([]combat.LogEntry(nil), r.Log...)
	if r.Stats != nil {
		out.Stats = make(map[string]stats.ActorStats, len(r.Stats))
		for k, v := range r.Stats {
			out.Stats[k] = v
		}
	}
	return &out
}

// EncodeDetail serializes the combatants, log and stats columns of rec for
// a history store. Empty values encode as "[]" or "{}", never "null".
func (r *Record) EncodeDetail() (combatants, log, stats []byte, err error) {
	if combatants, err = marshalOr(r.Combatants, "[]"); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding combatants: %w", err)
	}
	if log, err = marshalOr(r.Log, "[]"); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding log: %w", err)
	}
	if stats, err = marshalOr(r.Stats, "{}"); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding stats: %w", err)
	}
	return combatants, log, stats, nil
}

// DecodeDetail is the inverse of EncodeDetail.
func (r *Record) DecodeDetail(combatants, log, stats []byte) error {
	if err := json.Unmarshal(combatants, &r.Combatants); err != nil {
		return fmt.Errorf("decoding combatants: %w", err)
	}
	if err := json.Unmarshal(log, &r.Log); err != nil {
		return fmt.Errorf("decoding log: %w", err)
	}
	if err := json.Unmarshal(stats, &r.Stats); err != nil {
		return fmt.Errorf("decoding stats: %w", err)
	}
	return nil
}

func marshalOr[T any](v T, empty string) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return []byte(empty), nil
	}
	return data, nil
}

// HistoryStore persists finished simulations.
type HistoryStore interface {
	// Save inserts or replaces rec.
	Save(ctx context.Context, rec *Record) error
	// Get returns the record with id or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)
	// List returns up to limit records, most recently started first.
	List(ctx context.Context, limit int) ([]*Record, error)
}

// MemoryStore is a HistoryStore held in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Save implements HistoryStore.
func (m *MemoryStore) Save(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec.clone()
	return nil
}

// Get implements HistoryStore.
func (m *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.clone(), nil
}

// List implements HistoryStore.
func (m *MemoryStore) List(_ context.Context, limit int) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
