package booking

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"hotel-rate-scraper/config"
	"hotel-rate-scraper/models"
	"hotel-rate-scraper/scraper"
	"hotel-rate-scraper/services"
	"hotel-rate-scraper/utils"
)

const (
	// First attempt budget per hotel page. The single immediate retry gets
	// retryTimeoutFactor times this.
	attemptTimeout     = 60 * time.Second
	retryTimeoutFactor = 1.5
)

// StructuralError marks extraction failures that retrying cannot fix:
// a blocking/CAPTCHA interstitial or a page layout the calendar reader no
// longer recognizes. These are flagged distinctly in the run log.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string { return e.Reason }

// calendarDay is one cell read from the availability calendar DOM. The price
// arrives as the raw cell text and is parsed on the Go side.
type calendarDay struct {
	Checkin   string `json:"checkin"`
	PriceText string `json:"priceText"`
	Available bool   `json:"available"`
}

// Extractor drives one headless-browser extraction per hotel and classifies
// the outcome. Browser tabs are scoped per attempt and always released.
type Extractor struct {
	cfg     *config.Config
	logger  *utils.Logger
	limiter *scraper.RateLimiter

	allocCtx      context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// New creates an Extractor with a process-wide Chrome exec allocator.
// Call Close when the engine shuts down.
func New(cfg *config.Config, logger *utils.Logger, limiter *scraper.RateLimiter) *Extractor {
	chromeBin := findChromeBinary(cfg.ChromeBin)
	logger.Info("[booking] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return &Extractor{
		cfg:           cfg,
		logger:        logger,
		limiter:       limiter,
		allocCtx:      silentCtx,
		cancelBrowser: cancelSilent,
		cancelAlloc:   cancelAlloc,
	}
}

// Close releases the shared browser and its allocator.
func (e *Extractor) Close() {
	e.cancelBrowser()
	e.cancelAlloc()
}

// Extract produces exactly one ExtractionResult for the hotel: a rate-limit
// wait, then at most two browser attempts. A transient failure is retried
// once immediately with a fresh tab and a longer timeout; a structural
// failure is final on the spot.
func (e *Extractor) Extract(ctx context.Context, hotel *models.Hotel, dates []string) *models.ExtractionResult {
	result := &models.ExtractionResult{
		HotelID:   hotel.ID,
		HotelName: hotel.Name,
		ScrapedAt: time.Now(),
	}

	if err := e.limiter.Wait(ctx); err != nil {
		result.Outcome = models.OutcomeFailure
		result.FailureReason = fmt.Sprintf("cancelled before page load: %v", err)
		return result
	}

	url := buildURL(hotel.URL, dates)
	e.logger.Info("[booking] %s — loading %s", hotel.Name, url)

	calendar, err := e.attempt(ctx, url, attemptTimeout)
	if err != nil {
		var structural *StructuralError
		if errors.As(err, &structural) || ctx.Err() != nil {
			return e.classifyFailure(result, err)
		}

		e.logger.Warn("[booking] %s — transient failure, retrying with fresh tab: %v", hotel.Name, err)
		retryTimeout := time.Duration(float64(attemptTimeout) * retryTimeoutFactor)
		calendar, err = e.attempt(ctx, url, retryTimeout)
		if err != nil {
			return e.classifyFailure(result, err)
		}
	}

	result = classify(result, calendar, dates)
	e.logger.Debug("[booking] %s classified %s: %d snapshots, %d dates without price",
		hotel.Name, result.Outcome, len(result.Snapshots), len(result.MissingDates))
	return result
}

// classifyFailure finalizes a result whose page never yielded a calendar.
func (e *Extractor) classifyFailure(result *models.ExtractionResult, err error) *models.ExtractionResult {
	result.Outcome = models.OutcomeFailure
	result.FailureReason = err.Error()

	var structural *StructuralError
	if errors.As(err, &structural) {
		result.Structural = true
		e.logger.Error("[booking] %s — structural failure (operator attention): %s",
			result.HotelName, structural.Reason)
	} else {
		e.logger.Error("[booking] %s — extraction failed: %v", result.HotelName, err)
	}
	return result
}

// classify turns the raw calendar read into the final outcome. Every
// requested check-in date gets a snapshot row; dates the calendar had no
// usable price for are recorded as unavailable and enumerated as missing.
func classify(result *models.ExtractionResult, calendar map[string]priceInfo, dates []string) *models.ExtractionResult {
	observed := result.ScrapedAt.Format(services.DateFormat)

	for _, d := range dates {
		info, ok := calendar[d]
		snap := &models.RateSnapshot{
			HotelID:      result.HotelID,
			CheckinDate:  d,
			RoomType:     "standard",
			Currency:     "EUR",
			ObservedDate: observed,
		}
		if ok && info.price != nil {
			snap.Price = info.price
			snap.Available = true
		} else {
			result.MissingDates = append(result.MissingDates, d)
		}
		result.Snapshots = append(result.Snapshots, snap)
	}

	if len(result.MissingDates) == 0 {
		result.Outcome = models.OutcomeSuccess
	} else {
		result.Outcome = models.OutcomePartial
	}
	return result
}

type priceInfo struct {
	price     *float64
	available bool
}

// attempt runs one full browser pass: fresh tab, navigate, cookie banner,
// block-page check, open the date picker, read the calendar cells. The tab
// and its timeout are released on every exit path.
func (e *Extractor) attempt(parent context.Context, url string, timeout time.Duration) (map[string]priceInfo, error) {
	tabCtx, cancelTab := chromedp.NewContext(e.allocCtx)
	defer cancelTab()

	ctx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	// Propagate session cancellation into the browser attempt.
	stop := context.AfterFunc(parent, cancelTimeout)
	defer stop()

	var blocked bool
	var days []calendarDay

	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.Sleep(4*time.Second),
		chromedp.Evaluate(blockPageJS, &blocked),
	)
	if err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if blocked {
		return nil, &StructuralError{Reason: "blocking/CAPTCHA page detected"}
	}

	err = chromedp.Run(ctx,
		chromedp.Evaluate(acceptCookiesJS, nil),
		chromedp.Sleep(2*time.Second),
		chromedp.Evaluate(`window.scrollBy(0, 800)`, nil),
		chromedp.Sleep(1*time.Second),
		chromedp.Evaluate(openDatePickerJS, nil),
	)
	if err != nil {
		return nil, fmt.Errorf("open calendar: %w", err)
	}

	// Prices load async once the picker opens; poll the DOM a few times.
	calendar := make(map[string]priceInfo)
	for poll := 0; poll < 3; poll++ {
		if err := chromedp.Run(ctx,
			chromedp.Sleep(time.Duration(poll+2)*time.Second),
			chromedp.Evaluate(readCalendarJS, &days),
		); err != nil {
			return nil, fmt.Errorf("read calendar: %w", err)
		}
		mergeDays(calendar, days)
		e.logger.Debug("[booking] calendar poll %d: %d cells read, %d dates merged", poll+1, len(days), len(calendar))
		if len(calendar) >= 3 {
			break
		}
	}

	if len(calendar) == 0 {
		return nil, &StructuralError{Reason: "pricing calendar not recognized on page"}
	}
	return calendar, nil
}

// mergeDays folds one DOM read into the accumulated calendar, preferring
// cells that carry a usable price.
func mergeDays(calendar map[string]priceInfo, days []calendarDay) {
	for _, d := range days {
		if d.Checkin == "" {
			continue
		}
		price := services.ParseFormattedPrice(d.PriceText)
		available := d.Available && price != nil
		if prev, ok := calendar[d.Checkin]; ok && prev.available && !available {
			continue
		}
		calendar[d.Checkin] = priceInfo{price: price, available: available}
	}
}

// buildURL appends checkin/checkout query parameters covering the requested
// date span, keeping the hotel URL exactly as stored.
func buildURL(hotelURL string, dates []string) string {
	if len(dates) == 0 {
		return hotelURL
	}
	sep := "?"
	if strings.Contains(hotelURL, "?") {
		sep = "&"
	}
	checkout := services.NextDay(dates[len(dates)-1])
	return hotelURL + sep + "checkin=" + dates[0] + "&checkout=" + checkout
}

// findChromeBinary locates a Chrome/Chromium binary, preferring the
// configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
