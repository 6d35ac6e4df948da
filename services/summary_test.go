package services

import (
	"testing"

	"hotel-rate-scraper/models"
	"hotel-rate-scraper/utils"
)

func price(v float64) *float64 { return &v }

func sampleSnapshots() []*models.RateSnapshot {
	return []*models.RateSnapshot{
		{HotelID: 1, CheckinDate: "2026-03-01", Price: price(200), Available: true},
		{HotelID: 1, CheckinDate: "2026-03-02", Price: price(50), Available: true},
		{HotelID: 2, CheckinDate: "2026-03-01", Price: price(110), Available: true},
		{HotelID: 2, CheckinDate: "2026-03-02", Available: false}, // sold out
		{HotelID: 3, CheckinDate: "2026-03-01", Available: false},
	}
}

func TestSummaryCounts(t *testing.T) {
	svc := NewSummaryService(utils.NewLogger())
	s := svc.Build(sampleSnapshots())

	if s.Snapshots != 5 {
		t.Errorf("Snapshots: got %d, want 5", s.Snapshots)
	}
	if s.AvailableCount != 3 {
		t.Errorf("AvailableCount: got %d, want 3", s.AvailableCount)
	}
	if len(s.ByHotel) != 3 {
		t.Errorf("ByHotel: got %d hotels, want 3", len(s.ByHotel))
	}
}

func TestSummaryPrices(t *testing.T) {
	svc := NewSummaryService(utils.NewLogger())
	s := svc.Build(sampleSnapshots())

	if s.MinPrice != 50 {
		t.Errorf("MinPrice: got %.2f, want 50", s.MinPrice)
	}
	if s.MaxPrice != 200 {
		t.Errorf("MaxPrice: got %.2f, want 200", s.MaxPrice)
	}
	if s.AvgPrice != 120 {
		t.Errorf("AvgPrice: got %.2f, want 120", s.AvgPrice)
	}
}

func TestSummaryEmpty(t *testing.T) {
	svc := NewSummaryService(utils.NewLogger())
	s := svc.Build(nil)

	if s.Snapshots != 0 || s.AvailableCount != 0 || s.AvgPrice != 0 {
		t.Errorf("empty summary not zeroed: %+v", s)
	}
}
