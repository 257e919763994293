// Package config loads application configuration from environment
// variables.  Required variables are enforced by must() and missing
// values cause the program to exit with a fatal log message; policy
// knobs fall back to documented defaults.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field
// corresponds to an environment variable.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	// Booking policy.  One maximum duration applies to every creation
	// path; the slot grid shares it.
	MaxBookingHours    int // maximum booking duration in hours (MAX_BOOKING_HOURS, default 8)
	SlotGranularityMin int // slot grid granularity in minutes (SLOT_GRANULARITY_MIN, default 30)
	DayStartHour       int // first bookable hour of the day, display time (DAY_START_HOUR, default 8)
	DayEndHour         int // last bookable hour of the day, display time (DAY_END_HOUR, default 18)

	// DisplayTZOffsetMin is the fixed display-timezone offset from UTC in
	// minutes (DISPLAY_TZ_OFFSET_MIN, default 420 = UTC+7).  Storage is
	// always UTC; conversion happens at the service edges.
	DisplayTZOffsetMin int

	// StatusCheckInterval is how often the scheduler re-runs the status
	// check (STATUS_CHECK_INTERVAL, default 5m).
	StatusCheckInterval time.Duration
}

// Load reads configuration values from environment variables and
// returns a Config.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		MaxBookingHours:     envInt("MAX_BOOKING_HOURS", 8),
		SlotGranularityMin:  envInt("SLOT_GRANULARITY_MIN", 30),
		DayStartHour:        envInt("DAY_START_HOUR", 8),
		DayEndHour:          envInt("DAY_END_HOUR", 18),
		DisplayTZOffsetMin:  envInt("DISPLAY_TZ_OFFSET_MIN", 7*60),
		StatusCheckInterval: envDur("STATUS_CHECK_INTERVAL", 5*time.Minute),
	}
}

// MaxBookingDuration returns the single policy maximum for a booking's
// length.
func (c Config) MaxBookingDuration() time.Duration {
	return time.Duration(c.MaxBookingHours) * time.Hour
}

// DisplayLocation returns the fixed-offset display timezone.
func (c Config) DisplayLocation() *time.Location {
	name := "UTC"
	if c.DisplayTZOffsetMin != 0 {
		sign := "+"
		off := c.DisplayTZOffsetMin
		if off < 0 {
			sign = "-"
			off = -off
		}
		name = "UTC" + sign + strconv.Itoa(off/60)
		if off%60 != 0 {
			name += ":" + strconv.Itoa(off%60)
		}
	}
	return time.FixedZone(name, c.DisplayTZOffsetMin*60)
}

// must retrieves a required environment variable, exiting when it is
// unset or empty.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts to an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
