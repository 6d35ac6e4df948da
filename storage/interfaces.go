package storage

import (
	"context"
	"time"

	"hotel-rate-scraper/models"
)

// Store is the persistence surface the engine writes through. The dashboard
// owns the monitored_hotels table; the engine owns rate_snapshots,
// scraper_runs and scraper_run_logs.
type Store interface {
	// ActiveHotels returns every hotel with the active flag set. Consumed
	// once at the start of a session.
	ActiveHotels(ctx context.Context) ([]*models.Hotel, error)

	// BeginRun inserts a RunRecord in the running state and returns its id.
	// Completes before any per-hotel write references the run.
	BeginRun(ctx context.Context, startedAt time.Time) (int64, error)

	// WriteResult upserts the result's snapshots keyed by (hotel, checkin,
	// room type, observed day) and appends one log entry summarizing the
	// hotel's outcome. Re-applying the same result leaves the store
	// unchanged. Returns the number of snapshot rows written.
	WriteResult(ctx context.Context, runID int64, result *models.ExtractionResult) (int, error)

	// AppendLog durably records one log line for the run.
	AppendLog(ctx context.Context, entry *models.LogEntry) error

	// FinalizeRun moves the run to a terminal status. Attempted even when
	// earlier writes failed so a session is never left ambiguous.
	FinalizeRun(ctx context.Context, runID int64, status models.RunStatus, counts models.RunCounts) error

	// ReconcileStaleRuns marks running runs older than maxAge as failed and
	// appends a synthetic closing log entry to each. Returns how many runs
	// were reconciled.
	ReconcileStaleRuns(ctx context.Context, maxAge time.Duration) (int, error)

	// LastRun returns the most recently started run, or nil when none exist.
	LastRun(ctx context.Context) (*models.RunRecord, error)

	Close() error
}

// SnapshotExporter is the optional secondary sink for a session's snapshots.
type SnapshotExporter interface {
	Export(snapshots []*models.RateSnapshot) error
}
