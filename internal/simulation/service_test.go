package simulation_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/combatsim/internal/game/catalog"
	"github.com/cory-johannsen/combatsim/internal/game/combat"
	"github.com/cory-johannsen/combatsim/internal/game/dice"
	"github.com/cory-johannsen/combatsim/internal/scripting"
	"github.com/cory-johannsen/combatsim/internal/simulation"
)

const (
	catalogDir = "../../content/catalog"
	tacticsDir = "../../content/tactics/cult"
)

func newService(t *testing.T, opts ...simulation.Option) *simulation.Service {
	t.Helper()
	cat, err := catalog.Load(catalogDir)
	require.NoError(t, err)
	svc := simulation.NewService(cat, zaptest.NewLogger(t), opts...)
	t.Cleanup(svc.Close)
	return svc
}

func logJSON(t *testing.T, log []combat.LogEntry) string {
	t.Helper()
	data, err := json.Marshal(log)
	require.NoError(t, err)
	return string(data)
}

func TestRunSync_CompletesAndStores(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	rec, err := svc.RunSync(ctx, simulation.Request{EncounterID: "goblin-ambush", Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, simulation.StateCompleted, rec.State)
	assert.True(t, rec.Done())
	assert.Equal(t, uint64(42), rec.Seed)
	assert.NotEmpty(t, rec.Log)
	assert.NotEmpty(t, rec.Stats)
	assert.Contains(t, []combat.Winner{combat.WinnerParty, combat.WinnerMonsters, combat.WinnerUnknown}, rec.Winner)
	assert.LessOrEqual(t, rec.Rounds, combat.MaxRounds)
	assert.False(t, rec.FinishedAt.IsZero())

	stored, err := svc.Status(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Winner, stored.Winner)
	assert.Equal(t, rec.Rounds, stored.Rounds)
}

func TestRunSync_SeedReplaysRun(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	a, err := svc.RunSync(ctx, simulation.Request{EncounterID: "goblin-ambush", Seed: 7})
	require.NoError(t, err)
	b, err := svc.RunSync(ctx, simulation.Request{EncounterID: "goblin-ambush", Seed: 7})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Winner, b.Winner)
	assert.Equal(t, a.Rounds, b.Rounds)
	assert.Equal(t, a.PartyHPRemaining, b.PartyHPRemaining)
	assert.Equal(t, logJSON(t, a.Log), logJSON(t, b.Log))
}

func TestRunSync_ZeroSeedDrawsOne(t *testing.T) {
	svc := newService(t)
	rec, err := svc.RunSync(context.Background(), simulation.Request{EncounterID: "goblin-ambush"})
	require.NoError(t, err)
	assert.NotZero(t, rec.Seed)
}

func TestRunSync_RoundCap(t *testing.T) {
	svc := newService(t)
	rec, err := svc.RunSync(context.Background(), simulation.Request{EncounterID: "wyrmling-lair", Seed: 3, RoundCap: 1})
	require.NoError(t, err)
	assert.LessOrEqual(t, rec.Rounds, 1)
}

func TestRunSync_RejectsBadRequests(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.RunSync(ctx, simulation.Request{EncounterID: "no-such-fight"})
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = svc.RunSync(ctx, simulation.Request{EncounterID: "goblin-ambush", RoundCap: combat.MaxRounds + 1})
	assert.Error(t, err)
}

func TestRunSync_CancelledContextFails(t *testing.T) {
	svc := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, err := svc.RunSync(ctx, simulation.Request{EncounterID: "goblin-ambush", Seed: 1})
	require.Error(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, simulation.StateFailed, rec.State)
	assert.NotEmpty(t, rec.Error)
}

func TestSubmit_RunsInBackground(t *testing.T) {
	svc := newService(t, simulation.WithWorkers(2))
	ctx := context.Background()

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		id, err := svc.Submit(ctx, simulation.Request{EncounterID: "goblin-ambush", Seed: uint64(100 + i)})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	svc.Wait()

	for _, id := range ids {
		rec, err := svc.Status(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, simulation.StateCompleted, rec.State, id)
		assert.NotEmpty(t, rec.Stats)
	}

	history, err := svc.History(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].StartedAt.After(history[i-1].StartedAt))
	}
}

func TestSubmit_UnknownEncounter(t *testing.T) {
	svc := newService(t)
	_, err := svc.Submit(context.Background(), simulation.Request{EncounterID: "missing"})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestSubmit_AfterCloseFails(t *testing.T) {
	svc := newService(t)
	svc.Close()
	_, err := svc.Submit(context.Background(), simulation.Request{EncounterID: "goblin-ambush"})
	assert.Error(t, err)
}

func TestStatus_UnknownID(t *testing.T) {
	svc := newService(t)
	_, err := svc.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, simulation.ErrNotFound)
}

func TestRunBatch_AggregatesAndReplays(t *testing.T) {
	svc := newService(t, simulation.WithWorkers(4))
	ctx := context.Background()
	req := simulation.Request{EncounterID: "goblin-ambush", Seed: 500}

	a, err := svc.RunBatch(ctx, req, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, a.Runs)
	assert.Equal(t, uint64(500), a.BaseSeed)
	assert.Equal(t, 20, a.PartyWins+a.MonsterWins+a.Unfinished)
	assert.InDelta(t, float64(a.PartyWins)/20, a.PartyWinRate, 1e-9)
	assert.Greater(t, a.AverageRounds, 0.0)

	b, err := svc.RunBatch(ctx, req, 20)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	history, err := svc.History(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRunBatch_RejectsBadSize(t *testing.T) {
	svc := newService(t)
	_, err := svc.RunBatch(context.Background(), simulation.Request{EncounterID: "goblin-ambush"}, 0)
	assert.Error(t, err)
	_, err = svc.RunBatch(context.Background(), simulation.Request{EncounterID: "goblin-ambush"}, simulation.MaxBatch+1)
	assert.Error(t, err)
}

func TestRunSync_WithTacticsScripts(t *testing.T) {
	logger := zaptest.NewLogger(t)
	mgr := scripting.NewManager(dice.NewLoggedRoller(dice.NewSeededSource(1), logger), logger)
	t.Cleanup(mgr.Close)
	require.NoError(t, mgr.LoadDir("cult", tacticsDir, scripting.DefaultInstructionLimit))

	svc := newService(t, simulation.WithScripts(mgr))
	rec, err := svc.RunSync(context.Background(), simulation.Request{EncounterID: "wyrmling-lair", Seed: 11})
	require.NoError(t, err)
	assert.Equal(t, simulation.StateCompleted, rec.State)
}

func TestMemoryStore_ListLimitAndIsolation(t *testing.T) {
	store := simulation.NewMemoryStore()
	svc := newService(t, simulation.WithStore(store))
	ctx := context.Background()

	rec, err := svc.RunSync(ctx, simulation.Request{EncounterID: "goblin-ambush", Seed: 9})
	require.NoError(t, err)

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	got.Log = nil
	again, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, again.Log)
}
