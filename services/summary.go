package services

import (
	"math"

	"hotel-rate-scraper/models"
	"hotel-rate-scraper/utils"
)

// SummaryService computes and prints the price statistics for one session's
// snapshots when the run closes.
type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

// Build aggregates the session's snapshots into a RunSummary. Unavailable
// dates count toward the snapshot total but not the price stats.
func (s *SummaryService) Build(snapshots []*models.RateSnapshot) *models.RunSummary {
	summary := &models.RunSummary{
		ByHotel: make(map[int64]int),
	}

	var total float64
	for _, snap := range snapshots {
		summary.Snapshots++
		summary.ByHotel[snap.HotelID]++
		if !snap.Available || snap.Price == nil {
			continue
		}
		p := *snap.Price
		summary.AvailableCount++
		total += p
		if summary.MinPrice == 0 || p < summary.MinPrice {
			summary.MinPrice = p
		}
		if p > summary.MaxPrice {
			summary.MaxPrice = p
		}
	}

	if summary.AvailableCount > 0 {
		summary.AvgPrice = round2(total / float64(summary.AvailableCount))
		summary.MinPrice = round2(summary.MinPrice)
		summary.MaxPrice = round2(summary.MaxPrice)
	}
	return summary
}

// Print logs the summary at session close.
func (s *SummaryService) Print(summary *models.RunSummary) {
	s.logger.Info("[summary] %d snapshots across %d hotels — %d priced dates",
		summary.Snapshots, len(summary.ByHotel), summary.AvailableCount)
	if summary.AvailableCount > 0 {
		s.logger.Info("[summary] nightly rates: min %.2f | avg %.2f | max %.2f",
			summary.MinPrice, summary.AvgPrice, summary.MaxPrice)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
