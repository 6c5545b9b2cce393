// Package config loads service configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the configuration values for the room booking service.
type Config struct {
	HTTPPort             int
	SQLiteDSN            string
	SessionTTL           time.Duration
	LoginLinkTTL         time.Duration
	StoreTimeout         time.Duration
	MaxSeriesOccurrences int
	Timezone             string
	DayStartHour         int
	DayEndHour           int
	PixelsPerHour        float64
	PruneSchedule        string
}

// fileConfig mirrors Config for YAML decoding. Durations are given as Go
// duration strings.
type fileConfig struct {
	HTTPPort             *int     `yaml:"http_port"`
	SQLiteDSN            *string  `yaml:"sqlite_dsn"`
	SessionTTL           *string  `yaml:"session_ttl"`
	LoginLinkTTL         *string  `yaml:"login_link_ttl"`
	StoreTimeout         *string  `yaml:"store_timeout"`
	MaxSeriesOccurrences *int     `yaml:"max_series_occurrences"`
	Timezone             *string  `yaml:"timezone"`
	DayStartHour         *int     `yaml:"day_start_hour"`
	DayEndHour           *int     `yaml:"day_end_hour"`
	PixelsPerHour        *float64 `yaml:"pixels_per_hour"`
	PruneSchedule        *string  `yaml:"prune_schedule"`
}

// Load reads the YAML file named by ROOMBOOKING_CONFIG when set, then applies
// environment overrides. Defaults cover every field, so an empty environment
// yields a runnable configuration.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:             8080,
		SQLiteDSN:            "file:roombooking.db?_foreign_keys=on",
		SessionTTL:           24 * time.Hour,
		LoginLinkTTL:         15 * time.Minute,
		StoreTimeout:         5 * time.Second,
		MaxSeriesOccurrences: 16,
		Timezone:             "Asia/Tokyo",
		DayStartHour:         6,
		DayEndHour:           22,
		PixelsPerHour:        60,
		PruneSchedule:        "@hourly",
	}

	invalid := make([]string, 0, 2)

	if path := strings.TrimSpace(os.Getenv("ROOMBOOKING_CONFIG")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if portValue := strings.TrimSpace(os.Getenv("ROOMBOOKING_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "ROOMBOOKING_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("ROOMBOOKING_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	applyDuration := func(name string, target *time.Duration) {
		value := strings.TrimSpace(os.Getenv(name))
		if value == "" {
			return
		}
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			invalid = append(invalid, name)
			return
		}
		*target = parsed
	}
	applyDuration("ROOMBOOKING_SESSION_TTL", &cfg.SessionTTL)
	applyDuration("ROOMBOOKING_LOGIN_LINK_TTL", &cfg.LoginLinkTTL)
	applyDuration("ROOMBOOKING_STORE_TIMEOUT", &cfg.StoreTimeout)

	if maxValue := strings.TrimSpace(os.Getenv("ROOMBOOKING_MAX_SERIES_OCCURRENCES")); maxValue != "" {
		max, err := strconv.Atoi(maxValue)
		if err != nil || max <= 0 {
			invalid = append(invalid, "ROOMBOOKING_MAX_SERIES_OCCURRENCES")
		} else {
			cfg.MaxSeriesOccurrences = max
		}
	}

	if zone := strings.TrimSpace(os.Getenv("ROOMBOOKING_TIMEZONE")); zone != "" {
		cfg.Timezone = zone
	}

	applyHour := func(name string, target *int) {
		value := strings.TrimSpace(os.Getenv(name))
		if value == "" {
			return
		}
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 || parsed > 24 {
			invalid = append(invalid, name)
			return
		}
		*target = parsed
	}
	applyHour("ROOMBOOKING_DAY_START_HOUR", &cfg.DayStartHour)
	applyHour("ROOMBOOKING_DAY_END_HOUR", &cfg.DayEndHour)

	if schedule := strings.TrimSpace(os.Getenv("ROOMBOOKING_PRUNE_SCHEDULE")); schedule != "" {
		cfg.PruneSchedule = schedule
	}

	if cfg.DayStartHour >= cfg.DayEndHour {
		invalid = append(invalid, "ROOMBOOKING_DAY_START_HOUR")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		invalid = append(invalid, "ROOMBOOKING_TIMEZONE")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Location resolves the configured timezone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("設定ファイルが見つかりません: %s", path)
		}
		return fmt.Errorf("設定ファイルを読み込めません: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("設定ファイルの形式が不正です: %w", err)
	}

	if file.HTTPPort != nil {
		cfg.HTTPPort = *file.HTTPPort
	}
	if file.SQLiteDSN != nil {
		cfg.SQLiteDSN = *file.SQLiteDSN
	}
	if err := fileDuration(file.SessionTTL, &cfg.SessionTTL, "session_ttl"); err != nil {
		return err
	}
	if err := fileDuration(file.LoginLinkTTL, &cfg.LoginLinkTTL, "login_link_ttl"); err != nil {
		return err
	}
	if err := fileDuration(file.StoreTimeout, &cfg.StoreTimeout, "store_timeout"); err != nil {
		return err
	}
	if file.MaxSeriesOccurrences != nil {
		cfg.MaxSeriesOccurrences = *file.MaxSeriesOccurrences
	}
	if file.Timezone != nil {
		cfg.Timezone = *file.Timezone
	}
	if file.DayStartHour != nil {
		cfg.DayStartHour = *file.DayStartHour
	}
	if file.DayEndHour != nil {
		cfg.DayEndHour = *file.DayEndHour
	}
	if file.PixelsPerHour != nil {
		cfg.PixelsPerHour = *file.PixelsPerHour
	}
	if file.PruneSchedule != nil {
		cfg.PruneSchedule = *file.PruneSchedule
	}
	return nil
}

func fileDuration(value *string, target *time.Duration, field string) error {
	if value == nil {
		return nil
	}
	parsed, err := time.ParseDuration(*value)
	if err != nil || parsed <= 0 {
		return fmt.Errorf("設定ファイルの %s の値が不正です", field)
	}
	*target = parsed
	return nil
}
