package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridrepair/core/factory"
	"github.com/kilianp07/gridrepair/core/model"
	"github.com/kilianp07/gridrepair/core/workorder"
)

func sampleRun(id string, at time.Time) RunRecord {
	return RunRecord{
		ID:        id,
		Timestamp: at,
		Steps: []model.RepairStep{
			{Step: 1, BuildingID: "B1", Category: model.CategoryHospital, Houses: 1, RepairedSegments: []string{"S1"}},
		},
		Orders: []workorder.Task{
			{BuildingID: "B1", SegmentID: "S1", Critical: true, CostTotal: 100, TimeTotalH: 2},
		},
		Phases:       []workorder.PhaseSummary{{Phase: 0, Cost: 100, TimeH: 2, Tasks: 1}},
		Feasibility:  workorder.Feasibility{NeededHours: 2, TargetHours: 16, MarginOK: true},
		UnknownKinds: map[string]int{"cable": 1},
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	// appended out of order
	for i, id := range []string{"r2", "r1", "r3"} {
		at := base.Add(time.Duration([]int{2, 1, 3}[i]) * time.Hour)
		require.NoError(t, s.Append(ctx, sampleRun(id, at)))
	}

	all, err := s.Query(ctx, RunQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"r1", "r2", "r3"}, ids(all))
	assert.Equal(t, "S1", all[0].Orders[0].SegmentID)
	assert.True(t, all[0].Feasibility.MarginOK)
	assert.Equal(t, 1, all[0].UnknownKinds["cable"])

	last2, err := s.Query(ctx, RunQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r3"}, ids(last2))

	window, err := s.Query(ctx, RunQuery{Start: base.Add(90 * time.Minute), End: base.Add(150 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, ids(window))

	latest, err := Latest(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "r3", latest.ID)

	got, err := Get(ctx, s, "r1")
	require.NoError(t, err)
	assert.Equal(t, "B1", got.Steps[0].BuildingID)

	_, err = Get(ctx, s, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func ids(recs []RunRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestRotatingJSONLStore(t *testing.T) {
	s, err := NewRotatingJSONLStore(JSONLConfig{Path: filepath.Join(t.TempDir(), "runs", "runs.jsonl")})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRotatingJSONLStore_ReadsBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.jsonl")
	s, err := NewRotatingJSONLStore(JSONLConfig{Path: path})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	require.NoError(t, s.Append(ctx, sampleRun("old", time.Unix(100, 0).UTC())))
	require.NoError(t, s.logger.Rotate())
	require.NoError(t, s.Append(ctx, sampleRun("new", time.Unix(200, 0).UTC())))

	files, err := s.files()
	require.NoError(t, err)
	assert.Len(t, files, 2)
	for _, f := range files {
		assert.True(t, strings.HasSuffix(f, ".jsonl"))
	}

	recs, err := s.Query(ctx, RunQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "new"}, ids(recs))
}

func TestRotatingJSONLStore_OversizedRecord(t *testing.T) {
	s, err := NewRotatingJSONLStore(JSONLConfig{Path: filepath.Join(t.TempDir(), "runs.jsonl"), MaxSizeMB: 1})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	big := sampleRun("big", time.Unix(100, 0).UTC())
	big.Inputs = map[string]string{"network": strings.Repeat("x", 3*megabyte/2)}
	require.NoError(t, s.Append(ctx, big))
	assert.Equal(t, 1, s.logger.MaxSize)
	require.NoError(t, s.Append(ctx, sampleRun("small", time.Unix(200, 0).UTC())))

	recs, err := s.Query(ctx, RunQuery{})
	require.NoError(t, err)
	require.Equal(t, []string{"big", "small"}, ids(recs))
	assert.Len(t, recs[0].Inputs["network"], 3*megabyte/2)
}

func TestRotatingJSONLStore_SkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0o644))
	s, err := NewRotatingJSONLStore(JSONLConfig{Path: path})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	require.NoError(t, s.Append(context.Background(), sampleRun("ok", time.Now())))
	recs, err := s.Query(context.Background(), RunQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, ids(recs))
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "runs.db")})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestSQLiteStore_ReplaceSameID(t *testing.T) {
	s, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "runs.db")})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	rec := sampleRun("r1", time.Now().UTC())
	require.NoError(t, s.Append(ctx, rec))
	rec.Feasibility.MarginOK = false
	require.NoError(t, s.Append(ctx, rec))
	recs, err := s.Query(ctx, RunQuery{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Feasibility.MarginOK)
}

func TestNew(t *testing.T) {
	s, err := New(factory.ModuleConfig{})
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, s)

	s, err = New(factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{
		"path":        filepath.Join(t.TempDir(), "runs.jsonl"),
		"max_size_mb": "5",
	}})
	require.NoError(t, err)
	js, ok := s.(*RotatingJSONLStore)
	require.True(t, ok)
	assert.Equal(t, 5, js.logger.MaxSize)
	require.NoError(t, s.Close())

	_, err = New(factory.ModuleConfig{Type: "sqlite"})
	assert.Error(t, err)

	_, err = New(factory.ModuleConfig{Type: "postgres"})
	assert.ErrorIs(t, err, factory.ErrUnknownType)
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
