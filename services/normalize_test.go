package services

import (
	"testing"
	"time"
)

func TestParseFormattedPrice(t *testing.T) {
	tests := []struct {
		raw  string
		want float64 // 0 means expect nil
	}{
		{"€ 152", 152},
		{"€152", 152},
		{"$ 99", 99},
		{"€ 1 250,50", 1250.50},
		{"€ 340", 340},
		{"152", 152},
		{"€ 0", 0},     // placeholder for unavailable
		{"", 0},
		{"—", 0},
		{"€ 5", 0},     // below plausible nightly rate
		{"€ 25000", 0}, // above plausible nightly rate
		{"sold out", 0},
	}

	for _, tt := range tests {
		got := ParseFormattedPrice(tt.raw)
		if tt.want == 0 {
			if got != nil {
				t.Errorf("ParseFormattedPrice(%q) = %v, want nil", tt.raw, *got)
			}
			continue
		}
		if got == nil {
			t.Errorf("ParseFormattedPrice(%q) = nil, want %.2f", tt.raw, tt.want)
			continue
		}
		if *got != tt.want {
			t.Errorf("ParseFormattedPrice(%q) = %.2f, want %.2f", tt.raw, *got, tt.want)
		}
	}
}

func TestCheckinDates(t *testing.T) {
	today := time.Date(2026, 2, 27, 14, 0, 0, 0, time.UTC)
	dates := CheckinDates(today, 3)

	want := []string{"2026-02-28", "2026-03-01", "2026-03-02"}
	if len(dates) != len(want) {
		t.Fatalf("got %d dates, want %d", len(dates), len(want))
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("dates[%d] = %s, want %s", i, dates[i], want[i])
		}
	}
}

func TestDatesFromOffsets(t *testing.T) {
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	dates := DatesFromOffsets(today, []int{30, 1, 7})

	want := []string{"2026-03-02", "2026-03-08", "2026-03-31"}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("dates[%d] = %s, want %s", i, dates[i], want[i])
		}
	}
}

func TestParseOffsets(t *testing.T) {
	tests := []struct {
		spec    string
		want    int
		wantErr bool
	}{
		{"1,7,30", 3, false},
		{"30", 1, false},
		{" 1 , 7 ", 2, false},
		{"", 0, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"7,banana", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseOffsets(tt.spec)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseOffsets(%q): expected error, got %v", tt.spec, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseOffsets(%q): unexpected error: %v", tt.spec, err)
			continue
		}
		if len(got) != tt.want {
			t.Errorf("ParseOffsets(%q): got %d offsets, want %d", tt.spec, len(got), tt.want)
		}
	}
}

func TestNextDay(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2026-02-28", "2026-03-01"},
		{"2026-12-31", "2027-01-01"},
		{"garbage", "garbage"},
	}
	for _, tt := range tests {
		if got := NextDay(tt.in); got != tt.want {
			t.Errorf("NextDay(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
