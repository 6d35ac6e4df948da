package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// ScrapeWindows is a comma-separated list of daily hour ranges during
	// which a session may auto-start, e.g. "9-10,18-19". Start hour
	// inclusive, end hour exclusive, interpreted in Timezone.
	ScrapeWindows string
	Timezone      string

	MinDelaySeconds float64
	MaxDelaySeconds float64
	PauseMinSeconds float64
	PauseMaxSeconds float64

	Headless          bool
	MaxSessionMinutes int
	MaxConcurrency    int
	MaxRetries        int
	DaysAhead         int

	// CheckinOffsets optionally narrows a session to explicit day offsets,
	// e.g. "1,7,30" for a J+1/J+7/J+30 pass. Empty means the full
	// J+1..J+DaysAhead window.
	CheckinOffsets string

	ControlAddr   string
	CSVOutputPath string
	ChromeBin     string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "rates_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ScrapeWindows: getEnv("SCRAPE_WINDOWS", "9-10,18-19"),
		Timezone:      getEnv("SCHEDULE_TIMEZONE", "Europe/Paris"),

		MinDelaySeconds: getEnvFloat("MIN_DELAY_SECONDS", 1),
		MaxDelaySeconds: getEnvFloat("MAX_DELAY_SECONDS", 3),
		PauseMinSeconds: getEnvFloat("PAUSE_BETWEEN_HOTELS_MIN", 5),
		PauseMaxSeconds: getEnvFloat("PAUSE_BETWEEN_HOTELS_MAX", 12),

		Headless:          getEnvBool("HEADLESS_MODE", true),
		MaxSessionMinutes: getEnvInt("MAX_SESSION_MINUTES", 45),
		MaxConcurrency:    getEnvInt("MAX_CONCURRENCY", 1),
		MaxRetries:        getEnvInt("MAX_RETRIES", 3),
		DaysAhead:         getEnvInt("DAYS_AHEAD", 30),
		CheckinOffsets:    getEnv("CHECKIN_OFFSETS", ""),

		ControlAddr:   getEnv("CONTROL_ADDR", ":8090"),
		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", ""),
		ChromeBin:     getEnv("CHROME_BIN", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
