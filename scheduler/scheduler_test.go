package scheduler

import (
	"errors"
	"testing"
	"time"

	"hotel-rate-scraper/utils"
)

func TestParseWindows(t *testing.T) {
	tests := []struct {
		spec    string
		want    int
		wantErr bool
	}{
		{"9-10,18-19", 2, false},
		{"9-10", 1, false},
		{"", 0, false},
		{"  18-19 , 9-10 ", 2, false},
		{"10-9", 0, true},
		{"9-9", 0, true},
		{"-1-5", 0, true},
		{"9-25", 0, true},
		{"banana", 0, true},
		{"9-11,10-12", 0, true}, // overlap
	}

	for _, tt := range tests {
		got, err := ParseWindows(tt.spec)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseWindows(%q): expected error, got %v", tt.spec, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseWindows(%q): unexpected error: %v", tt.spec, err)
			continue
		}
		if len(got) != tt.want {
			t.Errorf("ParseWindows(%q): got %d windows, want %d", tt.spec, len(got), tt.want)
		}
	}
}

func TestParseWindowsSorted(t *testing.T) {
	got, err := ParseWindows("18-19,9-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].StartHour != 9 || got[1].StartHour != 18 {
		t.Errorf("windows not sorted by start hour: %v", got)
	}
}

func newTestScheduler(t *testing.T, spec string) (*Scheduler, *time.Time) {
	t.Helper()
	windows, err := ParseWindows(spec)
	if err != nil {
		t.Fatalf("ParseWindows(%q): %v", spec, err)
	}
	s := New(windows, time.UTC, utils.NewLogger())
	now := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	s.SetNowFunc(func() time.Time { return now })
	return s, &now
}

func TestTickTriggersOncePerWindowPerDay(t *testing.T) {
	s, now := newTestScheduler(t, "9-10,18-19")

	starts := 0
	start := func() error { starts++; return nil }

	// Outside any window: nothing.
	*now = time.Date(2026, 3, 14, 8, 59, 0, 0, time.UTC)
	s.Tick(start)
	if starts != 0 {
		t.Fatalf("triggered outside window: %d starts", starts)
	}

	// Inside the morning window: exactly one trigger despite tick jitter.
	for min := 0; min < 60; min++ {
		*now = time.Date(2026, 3, 14, 9, min, 0, 0, time.UTC)
		s.Tick(start)
	}
	if starts != 1 {
		t.Errorf("morning window: got %d starts, want 1", starts)
	}

	// Evening window of the same day triggers independently.
	*now = time.Date(2026, 3, 14, 18, 2, 0, 0, time.UTC)
	s.Tick(start)
	s.Tick(start)
	if starts != 2 {
		t.Errorf("evening window: got %d total starts, want 2", starts)
	}

	// Next calendar day re-arms both windows.
	*now = time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	s.Tick(start)
	if starts != 3 {
		t.Errorf("next day: got %d total starts, want 3", starts)
	}
}

func TestTickRejectedStartStaysConsumed(t *testing.T) {
	s, now := newTestScheduler(t, "9-10")

	calls := 0
	start := func() error {
		calls++
		return errors.New("run in progress")
	}

	*now = time.Date(2026, 3, 14, 9, 1, 0, 0, time.UTC)
	s.Tick(start)
	s.Tick(start)

	if calls != 1 {
		t.Errorf("rejected trigger was requeued: %d calls, want 1", calls)
	}
}

func TestConsumedStateStaysBounded(t *testing.T) {
	s, now := newTestScheduler(t, "9-10,18-19")

	start := func() error { return nil }

	// A week of morning and evening triggers must not accumulate state:
	// each new day replaces the previous day's consumed entries.
	for day := 14; day < 21; day++ {
		*now = time.Date(2026, 3, day, 9, 5, 0, 0, time.UTC)
		s.Tick(start)
		*now = time.Date(2026, 3, day, 18, 5, 0, 0, time.UTC)
		s.Tick(start)

		if len(s.consumed) > len(s.windows) {
			t.Fatalf("day %d: consumed entries %d exceed window count %d",
				day, len(s.consumed), len(s.windows))
		}
	}
}

func TestWindowBoundaries(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 10}

	tests := []struct {
		hour, min int
		want      bool
	}{
		{8, 59, false},
		{9, 0, true},  // inclusive start
		{9, 59, true},
		{10, 0, false}, // exclusive end
	}

	for _, tt := range tests {
		at := time.Date(2026, 3, 14, tt.hour, tt.min, 0, 0, time.UTC)
		if got := w.contains(at); got != tt.want {
			t.Errorf("contains(%02d:%02d) = %v, want %v", tt.hour, tt.min, got, tt.want)
		}
	}
}
