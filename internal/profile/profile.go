package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/calsense/server/timezone"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where calsense stores events
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// Calendar core configuration
	Timezone      string        // CALSENSE_TIMEZONE (default: Local)
	WorkStartHour int           // CALSENSE_WORK_START_HOUR (default: 9)
	WorkEndHour   int           // CALSENSE_WORK_END_HOUR (default: 17)
	LookaheadDays int           // CALSENSE_LOOKAHEAD_DAYS (default: 14)
	FetchTimeout  time.Duration // CALSENSE_FETCH_TIMEOUT (default: 5s)

	// Transport configuration
	RateLimitPerSecond float64 // CALSENSE_RATE_LIMIT_RPS (default: 10)
	RateLimitBurst     int     // CALSENSE_RATE_LIMIT_BURST (default: 20)
	RedisAddr          string  // CALSENSE_REDIS_ADDR (default: "", in-process limiter)

	// Tracing configuration
	OTLPEndpoint string // CALSENSE_OTLP_ENDPOINT (default: "", tracing export disabled)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("ignoring invalid integer env", slog.String("key", key), slog.String("value", value))
		return defaultValue
	}
	return n
}

// FromEnv loads the calendar and transport configuration from environment variables.
func (p *Profile) FromEnv() {
	p.Timezone = getEnvOrDefault("CALSENSE_TIMEZONE", "Local")
	p.WorkStartHour = getIntEnvOrDefault("CALSENSE_WORK_START_HOUR", 9)
	p.WorkEndHour = getIntEnvOrDefault("CALSENSE_WORK_END_HOUR", 17)
	p.LookaheadDays = getIntEnvOrDefault("CALSENSE_LOOKAHEAD_DAYS", 14)

	p.FetchTimeout = 5 * time.Second
	if v := os.Getenv("CALSENSE_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			p.FetchTimeout = d
		} else {
			slog.Warn("ignoring invalid duration env", slog.String("key", "CALSENSE_FETCH_TIMEOUT"), slog.String("value", v))
		}
	}

	p.RateLimitPerSecond = 10
	if v := os.Getenv("CALSENSE_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			p.RateLimitPerSecond = f
		}
	}
	p.RateLimitBurst = getIntEnvOrDefault("CALSENSE_RATE_LIMIT_BURST", 20)
	p.RedisAddr = os.Getenv("CALSENSE_REDIS_ADDR")
	p.OTLPEndpoint = os.Getenv("CALSENSE_OTLP_ENDPOINT")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.WorkStartHour < 0 || p.WorkEndHour > 24 || p.WorkStartHour >= p.WorkEndHour {
		return errors.Errorf("invalid working hours %d-%d", p.WorkStartHour, p.WorkEndHour)
	}
	if p.LookaheadDays <= 0 {
		return errors.Errorf("lookahead days must be positive, got %d", p.LookaheadDays)
	}
	if !timezone.IsValidTimezone(p.Timezone) {
		return errors.Errorf("unknown timezone %q", p.Timezone)
	}

	if p.Driver == "postgres" {
		if p.DSN == "" {
			return errors.New("dsn is required for postgres driver")
		}
		return nil
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "calsense")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/calsense"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("calsense_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
