package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnvironment(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ROOMBOOKING_CONFIG",
		"ROOMBOOKING_HTTP_PORT",
		"ROOMBOOKING_SQLITE_DSN",
		"ROOMBOOKING_SESSION_TTL",
		"ROOMBOOKING_LOGIN_LINK_TTL",
		"ROOMBOOKING_STORE_TIMEOUT",
		"ROOMBOOKING_MAX_SERIES_OCCURRENCES",
		"ROOMBOOKING_TIMEZONE",
		"ROOMBOOKING_DAY_START_HOUR",
		"ROOMBOOKING_DAY_END_HOUR",
		"ROOMBOOKING_PRUNE_SCHEDULE",
	} {
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnvironment(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:roombooking.db?_foreign_keys=on" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.SessionTTL != 24*time.Hour {
			t.Fatalf("expected default session TTL 24h, got %s", cfg.SessionTTL)
		}
		if cfg.LoginLinkTTL != 15*time.Minute {
			t.Fatalf("expected default login link TTL 15m, got %s", cfg.LoginLinkTTL)
		}
		if cfg.MaxSeriesOccurrences != 16 {
			t.Fatalf("expected default series cap 16, got %d", cfg.MaxSeriesOccurrences)
		}
		if cfg.DayStartHour != 6 || cfg.DayEndHour != 22 {
			t.Fatalf("expected default day range 6-22, got %d-%d", cfg.DayStartHour, cfg.DayEndHour)
		}
		if cfg.Timezone != "Asia/Tokyo" {
			t.Fatalf("unexpected default timezone %q", cfg.Timezone)
		}
		if cfg.PruneSchedule != "@hourly" {
			t.Fatalf("unexpected default prune schedule %q", cfg.PruneSchedule)
		}
	})

	t.Run("parses duration and numeric fields", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("ROOMBOOKING_HTTP_PORT", "9090")
		t.Setenv("ROOMBOOKING_SQLITE_DSN", "file:/tmp/roombooking.db")
		t.Setenv("ROOMBOOKING_SESSION_TTL", "12h")
		t.Setenv("ROOMBOOKING_LOGIN_LINK_TTL", "5m")
		t.Setenv("ROOMBOOKING_MAX_SERIES_OCCURRENCES", "8")
		t.Setenv("ROOMBOOKING_DAY_START_HOUR", "8")
		t.Setenv("ROOMBOOKING_DAY_END_HOUR", "20")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:/tmp/roombooking.db" {
			t.Fatalf("unexpected DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.SessionTTL != 12*time.Hour {
			t.Fatalf("expected session TTL 12h, got %s", cfg.SessionTTL)
		}
		if cfg.LoginLinkTTL != 5*time.Minute {
			t.Fatalf("expected login link TTL 5m, got %s", cfg.LoginLinkTTL)
		}
		if cfg.MaxSeriesOccurrences != 8 {
			t.Fatalf("expected series cap 8, got %d", cfg.MaxSeriesOccurrences)
		}
		if cfg.DayStartHour != 8 || cfg.DayEndHour != 20 {
			t.Fatalf("expected day range 8-20, got %d-%d", cfg.DayStartHour, cfg.DayEndHour)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("ROOMBOOKING_HTTP_PORT", "not-a-port")
		t.Setenv("ROOMBOOKING_SESSION_TTL", "-1h")

		_, err := Load()
		if err == nil {
			t.Fatal("expected an error for invalid values")
		}
		for _, name := range []string{"ROOMBOOKING_HTTP_PORT", "ROOMBOOKING_SESSION_TTL"} {
			if !strings.Contains(err.Error(), name) {
				t.Fatalf("expected %s to be named in %q", name, err.Error())
			}
		}
	})

	t.Run("rejects an inverted day range", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("ROOMBOOKING_DAY_START_HOUR", "22")
		t.Setenv("ROOMBOOKING_DAY_END_HOUR", "6")

		if _, err := Load(); err == nil {
			t.Fatal("expected an error for an inverted day range")
		}
	})

	t.Run("rejects an unknown timezone", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("ROOMBOOKING_TIMEZONE", "Mars/Olympus")

		if _, err := Load(); err == nil {
			t.Fatal("expected an error for an unknown timezone")
		}
	})
}

func TestLoader_ConfigFile(t *testing.T) {

	t.Run("file values override defaults", func(t *testing.T) {
		clearEnvironment(t)

		path := filepath.Join(t.TempDir(), "config.yaml")
		content := strings.Join([]string{
			"http_port: 9000",
			"session_ttl: 8h",
			"max_series_occurrences: 12",
			"timezone: UTC",
			"day_start_hour: 7",
			"day_end_hour: 19",
			`prune_schedule: "@daily"`,
		}, "\n")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}
		t.Setenv("ROOMBOOKING_CONFIG", path)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9000 {
			t.Fatalf("expected HTTP port 9000, got %d", cfg.HTTPPort)
		}
		if cfg.SessionTTL != 8*time.Hour {
			t.Fatalf("expected session TTL 8h, got %s", cfg.SessionTTL)
		}
		if cfg.MaxSeriesOccurrences != 12 {
			t.Fatalf("expected series cap 12, got %d", cfg.MaxSeriesOccurrences)
		}
		if cfg.Timezone != "UTC" {
			t.Fatalf("expected UTC, got %q", cfg.Timezone)
		}
		if cfg.DayStartHour != 7 || cfg.DayEndHour != 19 {
			t.Fatalf("expected day range 7-19, got %d-%d", cfg.DayStartHour, cfg.DayEndHour)
		}
		if cfg.PruneSchedule != "@daily" {
			t.Fatalf("expected @daily, got %q", cfg.PruneSchedule)
		}
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		clearEnvironment(t)

		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("http_port: 9000\n"), 0o600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}
		t.Setenv("ROOMBOOKING_CONFIG", path)
		t.Setenv("ROOMBOOKING_HTTP_PORT", "9100")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 9100 {
			t.Fatalf("expected the environment to win, got %d", cfg.HTTPPort)
		}
	})

	t.Run("missing file is reported", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("ROOMBOOKING_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

		if _, err := Load(); err == nil {
			t.Fatal("expected an error for a missing config file")
		}
	})
}

func TestConfig_Location(t *testing.T) {
	t.Parallel()

	cfg := Config{Timezone: "Asia/Tokyo"}
	if cfg.Location().String() != "Asia/Tokyo" {
		t.Fatalf("unexpected location %q", cfg.Location())
	}

	broken := Config{Timezone: "Mars/Olympus"}
	if broken.Location() != time.UTC {
		t.Fatalf("expected UTC fallback, got %q", broken.Location())
	}
}
