// Package config loads settings from an optional .env file and the
// environment. Command-line flags override what is loaded here.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"roster_parser/internal/classifier"
	"roster_parser/internal/roster"
)

// ErrInvalidThreshold is returned for commute thresholds off the 30-minute grid.
var ErrInvalidThreshold = errors.New("invalid commute threshold")

// ThresholdStep is the grid commute thresholds must sit on, in minutes.
const ThresholdStep = 30

// Config is the merged configuration for every command.
type Config struct {
	Thresholds classifier.CommuteThresholds

	// ArchiveDSN selects the run archive: a postgres:// URL or a SQLite
	// path. Empty disables archiving.
	ArchiveDSN string

	// ClickHouse is the optional trip-fact sink. Empty Host disables it.
	ClickHouse ClickHouseConfig

	NATSURL       string
	Subject       string
	ResultSubject string
	QueueGroup    string

	APIPort     int
	AuthEnabled bool
	APIKeys     []string

	LogDir string
	Debug  bool
}

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// Enabled reports whether a host is configured.
func (c ClickHouseConfig) Enabled() bool { return c.Host != "" }

// Load reads envFile (".env" when empty) into the process environment and
// builds a Config from it. A missing file is not an error.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment.
func FromEnv() (Config, error) {
	def := classifier.DefaultThresholds()
	front, err := ParseThreshold(envOrDefault("ROSTER_FRONT_COMMUTE", def.Front.String()))
	if err != nil {
		return Config{}, fmt.Errorf("ROSTER_FRONT_COMMUTE: %w", err)
	}
	back, err := ParseThreshold(envOrDefault("ROSTER_BACK_COMMUTE", def.Back.String()))
	if err != nil {
		return Config{}, fmt.Errorf("ROSTER_BACK_COMMUTE: %w", err)
	}

	return Config{
		Thresholds: classifier.CommuteThresholds{Front: front, Back: back},
		ArchiveDSN: os.Getenv("ROSTER_ARCHIVE_DSN"),
		ClickHouse: ClickHouseConfig{
			Host:     os.Getenv("CLICKHOUSE_HOST"),
			Port:     envOrDefaultInt("CLICKHOUSE_PORT", 9000),
			Database: envOrDefault("CLICKHOUSE_DATABASE", "roster"),
			User:     envOrDefault("CLICKHOUSE_USER", "default"),
			Password: os.Getenv("CLICKHOUSE_PASSWORD"),
		},
		NATSURL:       envOrDefault("NATS_URL", "nats://localhost:4222"),
		Subject:       envOrDefault("ROSTER_SUBJECT", "roster.analyze"),
		ResultSubject: envOrDefault("ROSTER_RESULT_SUBJECT", "roster.results"),
		QueueGroup:    envOrDefault("ROSTER_QUEUE_GROUP", "roster-feed"),
		APIPort:       envOrDefaultInt("API_PORT", 8080),
		AuthEnabled:   envOrDefaultBool("API_AUTH", false),
		APIKeys:       splitList(os.Getenv("API_KEYS")),
		LogDir:        os.Getenv("LOG_DIR"),
		Debug:         envOrDefaultBool("DEBUG", false),
	}, nil
}

// ParseThreshold parses a commute threshold ("HH:MM", "HHMM" or "HH.MM")
// and rejects values off the 30-minute grid.
func ParseThreshold(s string) (roster.Clock, error) {
	c, err := roster.ParseClock(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidThreshold, err)
	}
	if int(c)%ThresholdStep != 0 {
		return 0, fmt.Errorf("%w: %s is not on a %d-minute step", ErrInvalidThreshold, c, ThresholdStep)
	}
	return c, nil
}

// Thresholds parses optional front/back overrides on top of base. Empty
// strings keep the base value.
func Thresholds(base classifier.CommuteThresholds, front, back string) (classifier.CommuteThresholds, error) {
	out := base
	if front != "" {
		c, err := ParseThreshold(front)
		if err != nil {
			return base, fmt.Errorf("front: %w", err)
		}
		out.Front = c
	}
	if back != "" {
		c, err := ParseThreshold(back)
		if err != nil {
			return base, fmt.Errorf("back: %w", err)
		}
		out.Back = c
	}
	return out, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envOrDefaultBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
