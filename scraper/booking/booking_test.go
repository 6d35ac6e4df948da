package booking

import (
	"testing"
	"time"

	"hotel-rate-scraper/models"
)

func TestBuildURL(t *testing.T) {
	dates := []string{"2026-03-01", "2026-03-02", "2026-03-03"}

	tests := []struct {
		url  string
		want string
	}{
		{
			"https://www.booking.com/hotel/fr/example.html",
			"https://www.booking.com/hotel/fr/example.html?checkin=2026-03-01&checkout=2026-03-04",
		},
		{
			"https://www.booking.com/hotel/fr/example.html?lang=fr",
			"https://www.booking.com/hotel/fr/example.html?lang=fr&checkin=2026-03-01&checkout=2026-03-04",
		},
	}

	for _, tt := range tests {
		if got := buildURL(tt.url, dates); got != tt.want {
			t.Errorf("buildURL(%q):\n got %q\nwant %q", tt.url, got, tt.want)
		}
	}
}

func TestBuildURLNoDates(t *testing.T) {
	url := "https://www.booking.com/hotel/fr/example.html"
	if got := buildURL(url, nil); got != url {
		t.Errorf("buildURL with no dates should return the URL unchanged, got %q", got)
	}
}

func baseResult() *models.ExtractionResult {
	return &models.ExtractionResult{HotelID: 7, HotelName: "Test", ScrapedAt: time.Now()}
}

func p(v float64) *float64 { return &v }

func TestClassifySuccess(t *testing.T) {
	dates := []string{"2026-03-01", "2026-03-02"}
	calendar := map[string]priceInfo{
		"2026-03-01": {price: p(140), available: true},
		"2026-03-02": {price: p(155), available: true},
	}

	result := classify(baseResult(), calendar, dates)

	if result.Outcome != models.OutcomeSuccess {
		t.Errorf("outcome: got %s, want success", result.Outcome)
	}
	if len(result.Snapshots) != 2 {
		t.Fatalf("snapshots: got %d, want 2", len(result.Snapshots))
	}
	if !result.Snapshots[0].Available || result.Snapshots[0].Price == nil {
		t.Error("first snapshot should be available with a price")
	}
	if len(result.MissingDates) != 0 {
		t.Errorf("missing dates: got %v, want none", result.MissingDates)
	}
}

func TestClassifyPartial(t *testing.T) {
	dates := []string{"2026-03-01", "2026-03-02", "2026-03-03"}
	calendar := map[string]priceInfo{
		"2026-03-01": {price: p(140), available: true},
		// 03-02 sold out: present but priceless
		"2026-03-02": {available: false},
		// 03-03 absent from the calendar entirely
	}

	result := classify(baseResult(), calendar, dates)

	if result.Outcome != models.OutcomePartial {
		t.Errorf("outcome: got %s, want partial", result.Outcome)
	}
	if len(result.Snapshots) != 3 {
		t.Fatalf("snapshots: got %d, want 3 (one per requested date)", len(result.Snapshots))
	}
	if len(result.MissingDates) != 2 {
		t.Errorf("missing dates: got %v, want 2 entries", result.MissingDates)
	}
	for _, s := range result.Snapshots[1:] {
		if s.Available || s.Price != nil {
			t.Errorf("date %s should be recorded unavailable without price", s.CheckinDate)
		}
	}
}

func TestMergeDays(t *testing.T) {
	calendar := make(map[string]priceInfo)

	mergeDays(calendar, []calendarDay{
		{Checkin: "2026-03-01", PriceText: "€ 152", Available: true},
		{Checkin: "2026-03-02", PriceText: "€ 0", Available: true}, // placeholder = unavailable
		{Checkin: "2026-03-03", PriceText: "€ 180", Available: false},
		{Checkin: "", PriceText: "€ 99", Available: true}, // no date, dropped
	})

	if len(calendar) != 3 {
		t.Fatalf("calendar size: got %d, want 3", len(calendar))
	}
	if info := calendar["2026-03-01"]; info.price == nil || *info.price != 152 || !info.available {
		t.Errorf("2026-03-01: got %+v, want available at 152", info)
	}
	if info := calendar["2026-03-02"]; info.available {
		t.Error("€ 0 cell must be treated as unavailable")
	}
	if info := calendar["2026-03-03"]; info.available {
		t.Error("disabled cell must stay unavailable even with a price")
	}
}

func TestMergeDaysPrefersPricedRead(t *testing.T) {
	calendar := make(map[string]priceInfo)

	mergeDays(calendar, []calendarDay{{Checkin: "2026-03-01", PriceText: "€ 152", Available: true}})
	// A later async read without the price yet must not clobber the good one.
	mergeDays(calendar, []calendarDay{{Checkin: "2026-03-01", PriceText: "", Available: true}})

	info := calendar["2026-03-01"]
	if info.price == nil || *info.price != 152 {
		t.Errorf("priced read was clobbered: %+v", info)
	}
}

func TestStructuralErrorMessage(t *testing.T) {
	err := &StructuralError{Reason: "blocking/CAPTCHA page detected"}
	if err.Error() != "blocking/CAPTCHA page detected" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
