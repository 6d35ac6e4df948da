package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"hotel-rate-scraper/utils"
)

// Window is one daily trigger range: start hour inclusive, end hour
// exclusive, in the scheduler's timezone.
type Window struct {
	StartHour int
	EndHour   int
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:00-%02d:00", w.StartHour, w.EndHour)
}

// contains reports whether t's local hour falls inside the window.
func (w Window) contains(t time.Time) bool {
	h := t.Hour()
	return h >= w.StartHour && h < w.EndHour
}

// ParseWindows parses a comma-separated list of "start-end" hour ranges,
// e.g. "9-10,18-19". Windows must be well-formed and disjoint. An empty
// spec is valid and yields no auto-triggering.
func ParseWindows(spec string) ([]Window, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var windows []Window
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		bounds := strings.Split(part, "-")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("window %q: want start-end", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
		if err != nil {
			return nil, fmt.Errorf("window %q: bad start hour: %w", part, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
		if err != nil {
			return nil, fmt.Errorf("window %q: bad end hour: %w", part, err)
		}
		if start < 0 || end > 24 || start >= end {
			return nil, fmt.Errorf("window %q: hours must satisfy 0 <= start < end <= 24", part)
		}
		windows = append(windows, Window{StartHour: start, EndHour: end})
	}

	sort.Slice(windows, func(i, j int) bool { return windows[i].StartHour < windows[j].StartHour })
	for i := 1; i < len(windows); i++ {
		if windows[i].StartHour < windows[i-1].EndHour {
			return nil, fmt.Errorf("windows %s and %s overlap", windows[i-1], windows[i])
		}
	}
	return windows, nil
}

// StartFunc launches one session without blocking the caller. It returns an
// error when a session is already running.
type StartFunc func() error

// Scheduler decides when a session auto-starts: on each coarse tick it
// checks whether now falls inside a configured window that has not yet
// fired today. Consumed window state covers the current day only and is
// reset when the date changes, so it stays bounded by the window count.
// It lives in memory, so a restart mid-window may re-trigger once; the
// idempotent persistence layer absorbs that.
type Scheduler struct {
	windows  []Window
	loc      *time.Location
	logger   *utils.Logger
	interval time.Duration
	now      func() time.Time

	day      string
	consumed map[int]struct{}
}

// New builds a Scheduler ticking once a minute on the real clock.
func New(windows []Window, loc *time.Location, logger *utils.Logger) *Scheduler {
	return &Scheduler{
		windows:  windows,
		loc:      loc,
		logger:   logger,
		interval: time.Minute,
		now:      time.Now,
		consumed: make(map[int]struct{}),
	}
}

// SetNowFunc replaces the time source, for deterministic window tests.
func (s *Scheduler) SetNowFunc(now func() time.Time) { s.now = now }

// SetInterval overrides the tick interval.
func (s *Scheduler) SetInterval(d time.Duration) { s.interval = d }

// Run drives the tick loop until ctx is cancelled. The loop only starts
// sessions; extraction never happens inline.
func (s *Scheduler) Run(ctx context.Context, start StartFunc) {
	if len(s.windows) == 0 {
		s.logger.Warn("[scheduler] no windows configured, auto-triggering disabled")
		<-ctx.Done()
		return
	}

	descs := make([]string, len(s.windows))
	for i, w := range s.windows {
		descs[i] = w.String()
	}
	s.logger.Info("[scheduler] windows %s (%s), tick every %v",
		strings.Join(descs, ", "), s.loc, s.interval)

	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.Tick(start)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Tick(start)
		}
	}
}

// Tick performs one scheduling check. Exactly one trigger is possible per
// window per calendar day, regardless of tick jitter.
func (s *Scheduler) Tick(start StartFunc) {
	now := s.now().In(s.loc)

	day := now.Format("2006-01-02")
	if day != s.day {
		s.day = day
		s.consumed = make(map[int]struct{})
	}

	for i, w := range s.windows {
		if !w.contains(now) {
			continue
		}
		if _, seen := s.consumed[i]; seen {
			return
		}
		s.consumed[i] = struct{}{}

		s.logger.Info("[scheduler] window %s open, starting session", w)
		if err := start(); err != nil {
			// The window stays consumed: a rejected trigger is not requeued.
			s.logger.Warn("[scheduler] session start rejected: %v", err)
		}
		return
	}
}
