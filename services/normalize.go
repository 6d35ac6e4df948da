package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateFormat is the check-in date format used in the store and in logs.
const DateFormat = "2006-01-02"

var (
	// currencyPriceRegexp captures a price following a currency symbol,
	// tolerating thousand-separator spaces and a comma decimal.
	currencyPriceRegexp = regexp.MustCompile(`[€$£]\s*(\d[\d\s]*(?:[.,]\d{1,2})?)`)
	// barePriceRegexp is the fallback when the symbol is absent from the cell.
	barePriceRegexp = regexp.MustCompile(`(\d[\d\s]*(?:[.,]\d{1,2})?)`)
)

// ParseFormattedPrice turns a calendar cell text such as "€ 152" or
// "€ 1 250,50" into a price. It returns nil for empty cells, "€ 0"
// placeholders and values outside the plausible nightly-rate band, so
// sold-out dates never produce a phantom observation.
func ParseFormattedPrice(raw string) *float64 {
	if raw == "" {
		return nil
	}
	text := strings.ReplaceAll(raw, " ", " ")
	text = strings.TrimSpace(text)

	m := currencyPriceRegexp.FindStringSubmatch(text)
	if m == nil {
		m = barePriceRegexp.FindStringSubmatch(text)
	}
	if m == nil {
		return nil
	}

	s := strings.ReplaceAll(m[1], " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	p, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	if p < 10 || p >= 10000 {
		return nil
	}
	return &p
}

// CheckinDates returns the check-in dates to observe: J+1 through J+daysAhead
// relative to today, formatted and sorted ascending.
func CheckinDates(today time.Time, daysAhead int) []string {
	dates := make([]string, 0, daysAhead)
	for i := 1; i <= daysAhead; i++ {
		dates = append(dates, today.AddDate(0, 0, i).Format(DateFormat))
	}
	return dates
}

// ParseOffsets parses a comma-separated list of day offsets such as "1,7,30".
// An empty spec is valid and yields nil; offsets must be at least 1.
func ParseOffsets(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var offsets []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("offset %q: %w", part, err)
		}
		if n < 1 {
			return nil, fmt.Errorf("offset %d: must be at least 1", n)
		}
		offsets = append(offsets, n)
	}
	return offsets, nil
}

// DatesFromOffsets builds dates from explicit day offsets, e.g. [30] for a
// J+30-only pass.
func DatesFromOffsets(today time.Time, offsets []int) []string {
	dates := make([]string, 0, len(offsets))
	for _, off := range offsets {
		dates = append(dates, today.AddDate(0, 0, off).Format(DateFormat))
	}
	sort.Strings(dates)
	return dates
}

// NextDay returns the day after a DateFormat date, used for the checkout
// query parameter. Unparseable input is returned unchanged.
func NextDay(date string) string {
	t, err := time.Parse(DateFormat, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, 1).Format(DateFormat)
}
