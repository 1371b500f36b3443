package config

import (
	"os"
	"testing"
	"time"
)

func clearForgeqEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"REDIS_URL", "FORGEQ_QUEUES", "FORGEQ_FORK", "FORGEQ_INTERVAL",
		"FORGEQ_POP_TIMEOUT", "MAX_RETRIES", "CRON_SCHEDULER_ENABLED",
		"RESULT_BACKEND_ENABLED", "LOG_LEVEL", "LOG_FORMAT",
	} {
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearForgeqEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RedisURL != "redis://localhost:6379" {
		t.Errorf("RedisURL = %q, want default", cfg.RedisURL)
	}
	if len(cfg.Queues) != 1 || cfg.Queues[0] != "default" {
		t.Errorf("Queues = %v, want [default]", cfg.Queues)
	}
	if !cfg.Fork {
		t.Errorf("Fork = false, want true by default")
	}
}

func TestLoadReadsEnv(t *testing.T) {
	clearForgeqEnv(t)
	os.Setenv("FORGEQ_QUEUES", "high, low, default")
	os.Setenv("FORGEQ_FORK", "false")
	os.Setenv("FORGEQ_INTERVAL", "250ms")
	t.Cleanup(func() { clearForgeqEnv(t) })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"high", "low", "default"}
	if len(cfg.Queues) != len(want) {
		t.Fatalf("Queues = %v, want %v", cfg.Queues, want)
	}
	for i, q := range want {
		if cfg.Queues[i] != q {
			t.Errorf("Queues[%d] = %q, want %q", i, cfg.Queues[i], q)
		}
	}
	if cfg.Fork {
		t.Errorf("Fork = true, want false")
	}
	if cfg.Interval != 250*time.Millisecond {
		t.Errorf("Interval = %v, want 250ms", cfg.Interval)
	}
}

func TestLoadRejectsNegativeMaxRetries(t *testing.T) {
	clearForgeqEnv(t)
	os.Setenv("MAX_RETRIES", "-1")
	t.Cleanup(func() { clearForgeqEnv(t) })

	if _, err := Load(); err == nil {
		t.Error("Load with negative MAX_RETRIES = nil error, want error")
	}
}
