// Package store persists simulated drive cycles so runs can be inspected and
// compared later.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/evpack/core/model"
)

// RunRecord is one drive cycle of one pack within a batch run.
type RunRecord struct {
	RunID       string                 `json:"run_id"`
	Timestamp   time.Time              `json:"timestamp"`
	PackID      string                 `json:"pack_id"`
	Cycle       int                    `json:"cycle"`
	Healing     string                 `json:"healing"`
	Diagnostics model.DriveDiagnostics `json:"diagnostics"`
}

// Query filters stored records. Zero fields match everything.
type Query struct {
	RunID  string
	PackID string
	Start  time.Time
	End    time.Time
}

func (q Query) match(r RunRecord) bool {
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.PackID != "" && r.PackID != q.PackID {
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

// Store persists RunRecords and supports querying.
type Store interface {
	Append(ctx context.Context, recs ...RunRecord) error
	Query(ctx context.Context, q Query) ([]RunRecord, error)
	Close() error
}

// New opens the store for backend ("jsonl" or "sqlite") at path.
func New(backend, path string) (Store, error) {
	switch backend {
	case "", "jsonl":
		return NewJSONLStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
