// Package store persists planning runs so they can be listed and
// republished later.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/gridrepair/core/kpi"
	"github.com/kilianp07/gridrepair/core/model"
	"github.com/kilianp07/gridrepair/core/workorder"
)

// ErrNotFound is returned when no stored run matches.
var ErrNotFound = errors.New("run not found")

// RunRecord captures the outcome of one planning run.
type RunRecord struct {
	ID           string                   `json:"id"`
	Timestamp    time.Time                `json:"timestamp"`
	Inputs       map[string]string        `json:"inputs,omitempty"`
	Steps        []model.RepairStep       `json:"steps"`
	Orders       []workorder.Task         `json:"orders"`
	Phases       []workorder.PhaseSummary `json:"phases"`
	Feasibility  workorder.Feasibility    `json:"feasibility"`
	Baseline     kpi.Baseline             `json:"baseline"`
	UnknownKinds map[string]int           `json:"unknown_kinds,omitempty"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// RunQuery filters stored runs. Zero fields do not filter. Limit keeps the
// most recent matches.
type RunQuery struct {
	ID    string
	Start time.Time
	End   time.Time
	Limit int
}

func (q RunQuery) match(r RunRecord) bool {
	if q.ID != "" && r.ID != q.ID {
		return false
	}
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	return true
}

// Store persists RunRecords and supports querying. Query returns records
// oldest first.
type Store interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q RunQuery) ([]RunRecord, error)
	Close() error
}

// Latest returns the most recent stored run.
func Latest(ctx context.Context, s Store) (RunRecord, error) {
	recs, err := s.Query(ctx, RunQuery{Limit: 1})
	if err != nil {
		return RunRecord{}, err
	}
	if len(recs) == 0 {
		return RunRecord{}, ErrNotFound
	}
	return recs[len(recs)-1], nil
}

// Get returns the run with the given id.
func Get(ctx context.Context, s Store, id string) (RunRecord, error) {
	recs, err := s.Query(ctx, RunQuery{ID: id})
	if err != nil {
		return RunRecord{}, err
	}
	if len(recs) == 0 {
		return RunRecord{}, ErrNotFound
	}
	return recs[len(recs)-1], nil
}

func sortAndLimit(recs []RunRecord, limit int) []RunRecord {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].Timestamp.Equal(recs[j].Timestamp) {
			return recs[i].Timestamp.Before(recs[j].Timestamp)
		}
		return recs[i].ID < recs[j].ID
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}
	return recs
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, RunRecord) error              { return nil }
func (NopStore) Query(context.Context, RunQuery) ([]RunRecord, error) { return nil, nil }
func (NopStore) Close() error                                         { return nil }
