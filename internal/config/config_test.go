package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("expected default address :8080, got %q", cfg.Server.Address)
	}
	if cfg.Analysis.TargetLow != 70 || cfg.Analysis.TargetHigh != 180 {
		t.Fatalf("expected default target range 70-180, got %v-%v", cfg.Analysis.TargetLow, cfg.Analysis.TargetHigh)
	}
	if cfg.Trend.PatternMinDays != 3 {
		t.Fatalf("expected default pattern min days 3, got %d", cfg.Trend.PatternMinDays)
	}
	if cfg.Response.Lookahead["medication"] != 6*time.Hour {
		t.Fatalf("expected 6h medication lookahead, got %v", cfg.Response.Lookahead["medication"])
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "server:\n  address: \":9090\"\nanalysis:\n  targetLow: 80\n  targetHigh: 160\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Fatalf("expected address :9090, got %q", cfg.Server.Address)
	}
	if cfg.Analysis.TargetLow != 80 || cfg.Analysis.TargetHigh != 160 {
		t.Fatalf("expected target range 80-160, got %v-%v", cfg.Analysis.TargetLow, cfg.Analysis.TargetHigh)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.MetricsAddress != ":2112" {
		t.Fatalf("expected default metrics address, got %q", cfg.Server.MetricsAddress)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GLYCO_SERVER_ADDRESS", ":7070")
	t.Setenv("GLYCO_TARGET_LOW", "65")
	t.Setenv("GLYCO_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Fatalf("expected env address :7070, got %q", cfg.Server.Address)
	}
	if cfg.Analysis.TargetLow != 65 {
		t.Fatalf("expected env target low 65, got %v", cfg.Analysis.TargetLow)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug log level, got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsInvertedRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "analysis:\n  targetLow: 200\n  targetHigh: 100\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for inverted target range")
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "logging:\n  level: verbose\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for unknown log level")
	}
}
