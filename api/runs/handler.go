// Package runs exposes stored planning runs over HTTP.
package runs

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/gridrepair/infra/store"
	"github.com/kilianp07/gridrepair/pkg/export"
)

// Summary is the list view of a stored run.
type Summary struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Steps     int       `json:"steps"`
	Orders    int       `json:"orders"`
	Cost      float64   `json:"cost"`
	MarginOK  bool      `json:"margin_ok"`
}

// Summarize builds the list view of r.
func Summarize(r store.RunRecord) Summary {
	s := Summary{ID: r.ID, Timestamp: r.Timestamp, Steps: len(r.Steps), Orders: len(r.Orders), MarginOK: r.Feasibility.MarginOK}
	for _, p := range r.Phases {
		s.Cost += p.Cost
	}
	return s
}

func authorized(r *http.Request, token string) bool {
	return token == "" || r.Header.Get("Authorization") == "Bearer "+token
}

func query(r *http.Request) store.RunQuery {
	q := store.RunQuery{ID: r.URL.Query().Get("id")}
	if s := r.URL.Query().Get("start"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			q.Start = t
		}
	}
	if s := r.URL.Query().Get("end"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			q.End = t
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			q.Limit = n
		}
	}
	return q
}

// NewListHandler serves GET /api/runs. With an id parameter the full
// record is returned, otherwise summaries filtered by start, end and limit.
// Requests must include "Authorization: Bearer <token>" when token is
// non-empty.
func NewListHandler(st store.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q := query(r)
		records, err := st.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		var body any
		if q.ID != "" {
			if len(records) == 0 {
				http.Error(w, "run not found", http.StatusNotFound)
				return
			}
			body = records[len(records)-1]
		} else {
			out := make([]Summary, len(records))
			for i, rec := range records {
				out[i] = Summarize(rec)
			}
			body = out
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(body); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// NewChartHandler serves GET /api/runs/chart: the phase chart of the run
// named by id, or of the latest run.
func NewChartHandler(st store.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var (
			rec store.RunRecord
			err error
		)
		if id := r.URL.Query().Get("id"); id != "" {
			rec, err = store.Get(r.Context(), st, id)
		} else {
			rec, err = store.Latest(r.Context(), st)
		}
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := export.WritePhaseChart(w, rec.Phases); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

// Register mounts the handlers on mux.
func Register(mux *http.ServeMux, st store.Store, token string) {
	mux.Handle("/api/runs", NewListHandler(st, token))
	mux.Handle("/api/runs/chart", NewChartHandler(st, token))
}
