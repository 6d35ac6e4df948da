package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"hotel-rate-scraper/models"
	"hotel-rate-scraper/utils"
)

// PostgresStore persists runs, snapshots and run logs to PostgreSQL. Every
// write is retried with bounded exponential backoff so connection hiccups
// degrade to a logged error instead of aborting the session.
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
	retry  *utils.RetryConfig
}

// NewPostgresStore opens a connection to PostgreSQL, creates the engine's
// tables if missing, and returns a ready-to-use store.
func NewPostgresStore(dsn string, maxRetries int, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{
		db:     db,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

// migrate creates the three engine-owned tables. monitored_hotels belongs to
// the dashboard and is only read here.
func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS scraper_runs (
			id                SERIAL PRIMARY KEY,
			started_at        TIMESTAMPTZ NOT NULL,
			finished_at       TIMESTAMPTZ,
			status            VARCHAR(30) NOT NULL DEFAULT 'running',
			attempted         INT NOT NULL DEFAULT 0,
			succeeded         INT NOT NULL DEFAULT 0,
			failed            INT NOT NULL DEFAULT 0,
			snapshots_created INT NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS rate_snapshots (
			id            SERIAL PRIMARY KEY,
			hotel_id      BIGINT       NOT NULL,
			checkin_date  DATE         NOT NULL,
			room_type     VARCHAR(50)  NOT NULL DEFAULT 'standard',
			price         NUMERIC(10,2),
			currency      VARCHAR(10)  NOT NULL DEFAULT 'EUR',
			available     BOOLEAN      NOT NULL DEFAULT FALSE,
			observed_date DATE         NOT NULL,
			run_id        BIGINT       NOT NULL REFERENCES scraper_runs(id),
			created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			UNIQUE (hotel_id, checkin_date, room_type, observed_date)
		);

		CREATE TABLE IF NOT EXISTS scraper_run_logs (
			id       SERIAL PRIMARY KEY,
			run_id   BIGINT      NOT NULL REFERENCES scraper_runs(id),
			at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			severity VARCHAR(10) NOT NULL,
			message  TEXT        NOT NULL,
			hotel_id BIGINT
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_hotel_checkin ON rate_snapshots(hotel_id, checkin_date);
		CREATE INDEX IF NOT EXISTS idx_snapshots_run           ON rate_snapshots(run_id);
		CREATE INDEX IF NOT EXISTS idx_run_logs_run            ON scraper_run_logs(run_id);
		CREATE INDEX IF NOT EXISTS idx_runs_status             ON scraper_runs(status);
	`)
	return err
}

// ActiveHotels reads the dashboard-owned target list.
func (ps *PostgresStore) ActiveHotels(ctx context.Context) ([]*models.Hotel, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT id, name, url, COALESCE(location, ''), COALESCE(stars, 0)
		FROM monitored_hotels
		WHERE active = TRUE
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: active hotels: %w", err)
	}
	defer rows.Close()

	var hotels []*models.Hotel
	for rows.Next() {
		h := &models.Hotel{Active: true}
		if err := rows.Scan(&h.ID, &h.Name, &h.URL, &h.Location, &h.Stars); err != nil {
			return nil, fmt.Errorf("postgres: scan hotel: %w", err)
		}
		hotels = append(hotels, h)
	}
	return hotels, rows.Err()
}

// BeginRun inserts the RunRecord first so every later write references an
// existing run.
func (ps *PostgresStore) BeginRun(ctx context.Context, startedAt time.Time) (int64, error) {
	var id int64
	err := ps.retry.Do(ctx, "begin-run", func() error {
		return ps.db.QueryRowContext(ctx, `
			INSERT INTO scraper_runs (started_at, status)
			VALUES ($1, $2)
			RETURNING id
		`, startedAt, models.RunStatusRunning).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("postgres: begin run: %w", err)
	}
	return id, nil
}

// WriteResult upserts the result's snapshot rows and appends one log entry
// for the hotel. The unique key makes re-application a no-op overwrite.
func (ps *PostgresStore) WriteResult(ctx context.Context, runID int64, result *models.ExtractionResult) (int, error) {
	written := 0

	const batchSize = 50
	snaps := result.Snapshots
	for i := 0; i < len(snaps); i += batchSize {
		end := i + batchSize
		if end > len(snaps) {
			end = len(snaps)
		}
		batch := snaps[i:end]

		err := ps.retry.Do(ctx, fmt.Sprintf("upsert-snapshots-hotel-%d", result.HotelID), func() error {
			return ps.upsertBatch(ctx, runID, batch)
		})
		if err != nil {
			return written, fmt.Errorf("postgres: write result: %w", err)
		}
		written += len(batch)
	}

	entry := &models.LogEntry{
		RunID:    runID,
		At:       time.Now(),
		Severity: severityFor(result),
		Message:  resultMessage(result),
		HotelID:  &result.HotelID,
	}
	if err := ps.AppendLog(ctx, entry); err != nil {
		return written, err
	}
	return written, nil
}

// snapshotConflictKey is the natural key of a snapshot row. Re-applying the
// same result overwrites rows in place instead of duplicating them.
const snapshotConflictKey = "(hotel_id, checkin_date, room_type, observed_date)"

// upsertSnapshotsQuery builds the batch upsert statement for n rows, 8
// placeholders per row in column order.
func upsertSnapshotsQuery(n int) string {
	valueStrings := make([]string, 0, n)
	for idx := 0; idx < n; idx++ {
		base := idx * 8
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
	}

	return fmt.Sprintf(`
		INSERT INTO rate_snapshots (hotel_id, checkin_date, room_type, price, currency, available, observed_date, run_id)
		VALUES %s
		ON CONFLICT %s
		DO UPDATE SET price     = EXCLUDED.price,
		              currency  = EXCLUDED.currency,
		              available = EXCLUDED.available,
		              run_id    = EXCLUDED.run_id
	`, strings.Join(valueStrings, ","), snapshotConflictKey)
}

func (ps *PostgresStore) upsertBatch(ctx context.Context, runID int64, batch []*models.RateSnapshot) error {
	valueArgs := make([]interface{}, 0, len(batch)*8)
	for _, s := range batch {
		valueArgs = append(valueArgs,
			s.HotelID, s.CheckinDate, s.RoomType, s.Price, s.Currency, s.Available, s.ObservedDate, runID)
	}

	_, err := ps.db.ExecContext(ctx, upsertSnapshotsQuery(len(batch)), valueArgs...)
	return err
}

// AppendLog durably records one log line for the run.
func (ps *PostgresStore) AppendLog(ctx context.Context, entry *models.LogEntry) error {
	err := ps.retry.Do(ctx, "append-log", func() error {
		_, execErr := ps.db.ExecContext(ctx, `
			INSERT INTO scraper_run_logs (run_id, at, severity, message, hotel_id)
			VALUES ($1, $2, $3, $4, $5)
		`, entry.RunID, entry.At, entry.Severity, entry.Message, entry.HotelID)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("postgres: append log: %w", err)
	}
	return nil
}

// finalizeRunQuery only matches runs still in the running state, so a late
// or duplicate finalize can never rewrite a terminal status.
const finalizeRunQuery = `
	UPDATE scraper_runs
	SET finished_at = NOW(),
	    status = $2,
	    attempted = $3,
	    succeeded = $4,
	    failed = $5,
	    snapshots_created = $6
	WHERE id = $1 AND status = $7
`

// FinalizeRun is the last write of a session.
func (ps *PostgresStore) FinalizeRun(ctx context.Context, runID int64, status models.RunStatus, counts models.RunCounts) error {
	err := ps.retry.Do(ctx, "finalize-run", func() error {
		_, execErr := ps.db.ExecContext(ctx, finalizeRunQuery,
			runID, status, counts.Attempted, counts.Succeeded, counts.Failed, counts.SnapshotsCreated,
			models.RunStatusRunning)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("postgres: finalize run %d: %w", runID, err)
	}
	return nil
}

// ReconcileStaleRuns closes runs a crashed process left in the running state
// so the no-overlapping-run check is never permanently stuck.
func (ps *PostgresStore) ReconcileStaleRuns(ctx context.Context, maxAge time.Duration) (int, error) {
	rows, err := ps.db.QueryContext(ctx, `
		UPDATE scraper_runs
		SET status = $1, finished_at = NOW()
		WHERE status = $2 AND started_at < NOW() - ($3 * INTERVAL '1 second')
		RETURNING id
	`, models.RunStatusFailed, models.RunStatusRunning, int(maxAge.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("postgres: reconcile stale runs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("postgres: scan reconciled run: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range ids {
		entry := &models.LogEntry{
			RunID:    id,
			At:       time.Now(),
			Severity: models.SeverityError,
			Message:  "run closed by startup reconciliation: process exited mid-session",
		}
		if err := ps.AppendLog(ctx, entry); err != nil {
			ps.logger.Warn("[storage] reconciliation log for run %d failed: %v", id, err)
		}
	}
	return len(ids), nil
}

// LastRun returns the most recently started run for the status endpoint.
func (ps *PostgresStore) LastRun(ctx context.Context) (*models.RunRecord, error) {
	r := &models.RunRecord{}
	var finished sql.NullTime
	err := ps.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, status, attempted, succeeded, failed, snapshots_created
		FROM scraper_runs
		ORDER BY started_at DESC
		LIMIT 1
	`).Scan(&r.ID, &r.StartedAt, &finished, &r.Status, &r.Attempted, &r.Succeeded, &r.Failed, &r.SnapshotsCreated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: last run: %w", err)
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return r, nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func severityFor(result *models.ExtractionResult) models.Severity {
	switch result.Outcome {
	case models.OutcomeFailure:
		return models.SeverityError
	case models.OutcomePartial:
		return models.SeverityWarn
	default:
		return models.SeverityInfo
	}
}

func resultMessage(result *models.ExtractionResult) string {
	switch result.Outcome {
	case models.OutcomeFailure:
		kind := "transient"
		if result.Structural {
			kind = "structural"
		}
		return fmt.Sprintf("%s: extraction failed (%s): %s", result.HotelName, kind, result.FailureReason)
	case models.OutcomePartial:
		return fmt.Sprintf("%s: partial — %d snapshots, %d dates without price",
			result.HotelName, len(result.Snapshots), len(result.MissingDates))
	default:
		return fmt.Sprintf("%s: success — %d snapshots", result.HotelName, len(result.Snapshots))
	}
}
