package models

import "time"

// Hotel is one monitored competitor listing. Rows are owned by the dashboard;
// the engine only reads the active ones at the start of a session.
type Hotel struct {
	ID       int64
	Name     string
	URL      string
	Location string
	Stars    int
	Active   bool
}

// RateSnapshot is one observed nightly price for a hotel, check-in date and
// room type. Snapshots are upserted keyed by (hotel, checkin, room type,
// observed day) so re-applying the same observation never duplicates rows.
type RateSnapshot struct {
	ID           int64
	HotelID      int64
	CheckinDate  string // YYYY-MM-DD
	RoomType     string
	Price        *float64 // nil when the date is sold out / unavailable
	Currency     string
	Available    bool
	ObservedDate string // YYYY-MM-DD bucket of the observation
	RunID        int64
	CreatedAt    time.Time
}

// Outcome classifies one extraction attempt for one hotel.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

// ExtractionResult is the single, final output of the extraction pipeline for
// one hotel in one run. Append-only once written.
type ExtractionResult struct {
	HotelID   int64
	HotelName string
	ScrapedAt time.Time
	Outcome   Outcome
	Snapshots []*RateSnapshot

	// MissingDates lists requested check-in dates the page had no price for.
	// Populated for partial outcomes.
	MissingDates []string

	// FailureReason is set for failure outcomes. Structural marks failures
	// that retrying cannot fix (block page, unrecognized layout).
	FailureReason string
	Structural    bool
}

// RunStatus is the lifecycle state of a RunRecord.
type RunStatus string

const (
	RunStatusRunning             RunStatus = "running"
	RunStatusCompleted           RunStatus = "completed"
	RunStatusCompletedWithErrors RunStatus = "completed_with_errors"
	RunStatusFailed              RunStatus = "failed"
)

// RunRecord summarizes one orchestrated scraping session. Serialized by the
// control plane's status endpoint.
type RunRecord struct {
	ID               int64      `json:"id"`
	StartedAt        time.Time  `json:"startedAt"`
	FinishedAt       *time.Time `json:"finishedAt"`
	Status           RunStatus  `json:"status"`
	Attempted        int        `json:"attempted"`
	Succeeded        int        `json:"succeeded"`
	Failed           int        `json:"failed"`
	SnapshotsCreated int        `json:"snapshotsCreated"`
}

// RunCounts is the aggregate handed to FinalizeRun.
type RunCounts struct {
	Attempted        int
	Succeeded        int
	Failed           int
	SnapshotsCreated int
}

// Severity of a durable log entry.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// LogEntry is one durable log line tied to a run. Entries are written
// incrementally during a session so partial progress survives a crash.
type LogEntry struct {
	ID       int64
	RunID    int64
	At       time.Time
	Severity Severity
	Message  string
	HotelID  *int64
}

// RunSummary holds the price statistics logged when a session closes.
type RunSummary struct {
	Snapshots      int
	AvailableCount int
	MinPrice       float64
	AvgPrice       float64
	MaxPrice       float64
	ByHotel        map[int64]int
}
