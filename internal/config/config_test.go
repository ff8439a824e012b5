package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"schedule-bot/pkg/logx"
)

func TestDefaults(t *testing.T) {
	cfg, err := Parse("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ReminderInterval != time.Minute || cfg.DefaultVolume != 0.1 || cfg.DatabasePath != "data/schedule.db" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.HealthAddr() != ":10000" {
		t.Fatalf("HealthAddr = %q", cfg.HealthAddr())
	}
}

func TestFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := "reminder_interval: 30s\nreminder_workers: 2\nlog_level: debug\ntimezone: Asia/Tokyo\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REMINDER_WORKERS", "8")
	t.Setenv("HEALTH_ENABLED", "false")

	cfg, err := Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ReminderInterval != 30*time.Second {
		t.Errorf("interval = %s, want file value", cfg.ReminderInterval)
	}
	if cfg.ReminderWorkers != 8 {
		t.Errorf("workers = %d, want environment value", cfg.ReminderWorkers)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if cfg.HealthAddr() != "" {
		t.Errorf("health server should be disabled")
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Asia/Tokyo" {
		t.Errorf("location = %v, %v", loc, err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing token accepted")
	}
	cfg.DiscordToken = "x"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	cfg.DefaultVolume = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("volume above 1 accepted")
	}
}

func TestParseRejectsUnknownZone(t *testing.T) {
	t.Setenv("TIMEZONE", "Mars/Olympus")
	if _, err := Parse(""); err == nil {
		t.Fatal("unknown zone accepted")
	}
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { got <- c.LogLevel }, logx.Nop())
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case lvl := <-got:
		if lvl != "debug" {
			t.Fatalf("reloaded level = %q", lvl)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
