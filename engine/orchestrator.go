package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"hotel-rate-scraper/config"
	"hotel-rate-scraper/models"
	"hotel-rate-scraper/scraper"
	"hotel-rate-scraper/services"
	"hotel-rate-scraper/storage"
	"hotel-rate-scraper/utils"
)

// ErrRunInProgress is returned when a trigger arrives while a session is
// already running. Triggers are rejected, never queued.
var ErrRunInProgress = errors.New("a scraping session is already running")

// finalizeTimeout bounds the closing writes of a session. They run on a
// fresh context so a watchdog-expired session can still reach a terminal
// RunRecord.
const finalizeTimeout = 30 * time.Second

// Extractor produces exactly one classified result per hotel.
type Extractor interface {
	Extract(ctx context.Context, hotel *models.Hotel, dates []string) *models.ExtractionResult
}

// Orchestrator executes one session end to end: write-ahead RunRecord,
// per-hotel extraction with failure isolation, idempotent persistence, and
// a guaranteed terminal state however the session ends. It also owns the
// single-concurrent-run invariant.
type Orchestrator struct {
	cfg       *config.Config
	store     storage.Store
	extractor Extractor
	pause     *scraper.RateLimiter
	summary   *services.SummaryService
	exporter  storage.SnapshotExporter
	logger    *utils.Logger
	offsets   []int

	rootCtx context.Context

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// New wires an Orchestrator. rootCtx is the process lifetime: cancelling it
// aborts any in-flight session, which still attempts to finalize as failed.
// exporter may be nil.
func New(rootCtx context.Context, cfg *config.Config, store storage.Store, extractor Extractor,
	exporter storage.SnapshotExporter, logger *utils.Logger) *Orchestrator {
	offsets, err := services.ParseOffsets(cfg.CheckinOffsets)
	if err != nil {
		logger.Warn("[engine] invalid CHECKIN_OFFSETS %q, using the DAYS_AHEAD window: %v", cfg.CheckinOffsets, err)
	}
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		extractor: extractor,
		pause:     scraper.NewRateLimiter(cfg.PauseMinSeconds, cfg.PauseMaxSeconds),
		summary:   services.NewSummaryService(logger),
		exporter:  exporter,
		logger:    logger,
		offsets:   offsets,
		rootCtx:   rootCtx,
	}
}

// checkinDates resolves the session's check-in dates: explicit offsets when
// configured, otherwise the rolling J+1..J+DaysAhead window.
func (o *Orchestrator) checkinDates(started time.Time) []string {
	if len(o.offsets) > 0 {
		return services.DatesFromOffsets(started, o.offsets)
	}
	return services.CheckinDates(started, o.cfg.DaysAhead)
}

// Reconcile closes stale running runs left behind by a crash. Executed once
// at process start, before the scheduler loop begins.
func (o *Orchestrator) Reconcile(ctx context.Context) error {
	maxAge := 2 * time.Duration(o.cfg.MaxSessionMinutes) * time.Minute
	n, err := o.store.ReconcileStaleRuns(ctx, maxAge)
	if err != nil {
		return fmt.Errorf("reconcile stale runs: %w", err)
	}
	if n > 0 {
		o.logger.Warn("[engine] reconciled %d stale run(s) from a previous process", n)
	}
	return nil
}

// TriggerNow starts a session in the background and returns immediately.
// While a session is running further triggers get ErrRunInProgress.
func (o *Orchestrator) TriggerNow(reason string) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrRunInProgress
	}
	o.running = true
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			o.mu.Lock()
			o.running = false
			o.mu.Unlock()
		}()
		o.runSession(reason)
	}()
	return nil
}

// Running reports whether a session is currently in flight.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Wait blocks until any in-flight session has finished. Used on shutdown so
// the best-effort finalize can complete.
func (o *Orchestrator) Wait() { o.wg.Wait() }

// runSession is the session body. Any unexpected fault is caught here and
// folded into a failed finalization; nothing propagates to the scheduler
// loop.
func (o *Orchestrator) runSession(reason string) {
	started := time.Now()
	o.logger.Info("[engine] === session starting (%s) ===", reason)

	ctx, cancel := context.WithTimeout(o.rootCtx, time.Duration(o.cfg.MaxSessionMinutes)*time.Minute)
	defer cancel()

	runID, err := o.store.BeginRun(ctx, started)
	if err != nil {
		o.logger.Error("[engine] could not create run record, session aborted: %v", err)
		return
	}
	o.logger.Info("[engine] run %d created", runID)

	var counts models.RunCounts
	degraded := false
	var snapshots []*models.RateSnapshot

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("[engine] session panic: %v", r)
			o.finalize(runID, models.RunStatusFailed, counts, fmt.Sprintf("session aborted by unexpected fault: %v", r))
		}
	}()

	hotels, err := o.store.ActiveHotels(ctx)
	if err != nil {
		o.logger.Error("[engine] fetching active hotels failed: %v", err)
		o.finalize(runID, models.RunStatusFailed, counts, fmt.Sprintf("could not fetch active hotels: %v", err))
		return
	}
	if len(hotels) == 0 {
		o.logger.Warn("[engine] no active hotels")
		o.finalize(runID, models.RunStatusCompleted, counts, "no active hotels found")
		return
	}

	dates := o.checkinDates(started)
	o.logger.Info("[engine] run %d: %d hotel(s), %d check-in date(s) each", runID, len(hotels), len(dates))

	var mu sync.Mutex
	record := func(result *models.ExtractionResult) {
		written, werr := o.store.WriteResult(ctx, runID, result)

		mu.Lock()
		defer mu.Unlock()
		counts.Attempted++
		if result.Outcome == models.OutcomeFailure {
			counts.Failed++
		} else {
			counts.Succeeded++
		}
		counts.SnapshotsCreated += written
		for _, s := range result.Snapshots {
			s.RunID = runID
		}
		snapshots = append(snapshots, result.Snapshots...)
		if werr != nil {
			degraded = true
			o.logger.Error("[engine] persisting result for hotel %d failed: %v", result.HotelID, werr)
		}
	}

	if o.cfg.MaxConcurrency > 1 {
		o.runPooled(ctx, hotels, dates, record)
	} else {
		o.runSequential(ctx, hotels, dates, record)
	}

	status := models.RunStatusCompleted
	switch {
	case ctx.Err() != nil:
		status = models.RunStatusFailed
	case degraded:
		status = models.RunStatusCompletedWithErrors
	}

	closing := fmt.Sprintf("session finished: %d attempted, %d succeeded, %d failed, %d snapshots",
		counts.Attempted, counts.Succeeded, counts.Failed, counts.SnapshotsCreated)
	if ctx.Err() != nil {
		closing = fmt.Sprintf("session cut short (%v): %s", ctx.Err(), closing)
	}
	o.finalize(runID, status, counts, closing)

	o.summary.Print(o.summary.Build(snapshots))
	if o.exporter != nil && len(snapshots) > 0 {
		if err := o.exporter.Export(snapshots); err != nil {
			o.logger.Warn("[engine] snapshot export failed: %v", err)
		}
	}
	o.logger.Info("[engine] === session done: run %d %s in %v ===", runID, status, time.Since(started).Round(time.Second))
}

// runSequential processes hotels one by one with a randomized pause between
// them. A hotel's failure never stops the walk.
func (o *Orchestrator) runSequential(ctx context.Context, hotels []*models.Hotel, dates []string,
	record func(*models.ExtractionResult)) {
	for i, hotel := range hotels {
		if ctx.Err() != nil {
			record(cancelledResult(hotel, ctx.Err()))
			continue
		}
		record(o.extractor.Extract(ctx, hotel, dates))

		if i < len(hotels)-1 {
			// Cancellation is picked up at the top of the next iteration.
			_ = o.pause.Wait(ctx)
		}
	}
}

// runPooled processes hotels with a small bounded worker pool. The
// extractor's own rate-limit delay then applies per worker, preserving the
// request spacing of each logical stream.
func (o *Orchestrator) runPooled(ctx context.Context, hotels []*models.Hotel, dates []string,
	record func(*models.ExtractionResult)) {
	g := new(errgroup.Group)
	g.SetLimit(o.cfg.MaxConcurrency)

	for _, hotel := range hotels {
		hotel := hotel
		g.Go(func() error {
			if ctx.Err() != nil {
				record(cancelledResult(hotel, ctx.Err()))
				return nil
			}
			record(o.extractor.Extract(ctx, hotel, dates))
			return nil
		})
	}
	_ = g.Wait()
}

// finalize writes the closing log entry and the terminal RunRecord on a
// fresh context, so it still lands after a watchdog timeout or shutdown.
func (o *Orchestrator) finalize(runID int64, status models.RunStatus, counts models.RunCounts, closing string) {
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	severity := models.SeverityInfo
	if status == models.RunStatusFailed {
		severity = models.SeverityError
	} else if status == models.RunStatusCompletedWithErrors {
		severity = models.SeverityWarn
	}
	if err := o.store.AppendLog(ctx, &models.LogEntry{
		RunID:    runID,
		At:       time.Now(),
		Severity: severity,
		Message:  closing,
	}); err != nil {
		o.logger.Error("[engine] closing log entry for run %d failed: %v", runID, err)
	}

	if err := o.store.FinalizeRun(ctx, runID, status, counts); err != nil {
		o.logger.Error("[engine] finalizing run %d failed: %v", runID, err)
	}
}

// cancelledResult records a hotel that never got its extraction because the
// session was cancelled or timed out.
func cancelledResult(hotel *models.Hotel, cause error) *models.ExtractionResult {
	return &models.ExtractionResult{
		HotelID:       hotel.ID,
		HotelName:     hotel.Name,
		ScrapedAt:     time.Now(),
		Outcome:       models.OutcomeFailure,
		FailureReason: fmt.Sprintf("session cancelled before extraction: %v", cause),
	}
}
