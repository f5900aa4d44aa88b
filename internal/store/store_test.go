package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	TotalCost float64  `json:"total_cost_usd"`
	FleetIDs  []string `json:"fleet_vessel_ids"`
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "runs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func TestSaveAndLoadRun(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	want := samplePayload{TotalCost: 140000, FleetIDs: []string{"V3", "V5"}}
	id, err := s.SaveRun(ctx, KindOptimize, map[string]float64{"min_capacity": 700000}, want)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err, "run ids are uuids")

	run, err := s.LoadRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, KindOptimize, run.Kind)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 1, 0, time.UTC), run.CreatedAt)
	assert.JSONEq(t, `{"min_capacity":700000}`, string(run.Params))

	var got samplePayload
	require.NoError(t, run.DecodePayload(&got))
	assert.Equal(t, want, got)
}

func TestLoadRunNotFound(t *testing.T) {
	s := openTemp(t)
	_, err := s.LoadRun(context.Background(), uuid.NewString())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListRuns(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	var ids []string
	for _, kind := range []string{KindOptimize, KindPareto, KindOptimize, KindMCMC} {
		id, err := s.SaveRun(ctx, kind, nil, map[string]int{"n": len(ids)})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := s.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, ids[3], all[0].ID, "newest first")
	assert.Equal(t, ids[0], all[3].ID)

	opt, err := s.ListRuns(ctx, KindOptimize, 0)
	require.NoError(t, err)
	require.Len(t, opt, 2)
	assert.Equal(t, ids[2], opt[0].ID)
	assert.Equal(t, ids[0], opt[1].ID)

	limited, err := s.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, ids[3], limited[0].ID)

	none, err := s.ListRuns(ctx, KindShapley, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUnknownKind(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.SaveRun(ctx, "backtest", nil, nil)
	assert.Error(t, err)
	_, err = s.ListRuns(ctx, "backtest", 0)
	assert.Error(t, err)
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	s, err := Open(ctx, path, nil)
	require.NoError(t, err)
	id, err := s.SaveRun(ctx, KindCarbon, nil, []float64{40, 80})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path, nil)
	require.NoError(t, err)
	defer s.Close()
	run, err := s.LoadRun(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, `[40,80]`, string(run.Payload))
	assert.Equal(t, path, s.Path())
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "  ", nil)
	assert.Error(t, err)
}
