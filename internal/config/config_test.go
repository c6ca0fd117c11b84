package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVICE_TOKEN", "secret")
	for _, key := range []string{"HOST", "PORT", "DATABASE_URL", "REDIS_URL", "PUBLIC_URL", "MIN_PARTICIPANTS", "DRAW_ATTEMPTS", "CORS_ORIGINS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:8004" {
		t.Fatalf("unexpected addr %s", cfg.Addr())
	}
	if cfg.DatabaseURL != "sqlite://stocking.db" || cfg.RedisURL != "" {
		t.Fatalf("unexpected stores %q %q", cfg.DatabaseURL, cfg.RedisURL)
	}
	if cfg.MinParticipants != 3 || cfg.DrawAttempts != 2000 {
		t.Fatalf("unexpected draw settings %d %d", cfg.MinParticipants, cfg.DrawAttempts)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVICE_TOKEN", "secret")
	t.Setenv("MIN_PARTICIPANTS", "1")
	t.Setenv("PUBLIC_URL", "https://santa.example/")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MinParticipants != 2 {
		t.Fatalf("expected minimum clamped to 2, got %d", cfg.MinParticipants)
	}
	if cfg.PublicURL != "https://santa.example" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.PublicURL)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("SERVICE_TOKEN", "secret")
	t.Setenv("DRAW_ATTEMPTS", "lots")
	if _, err := Load(); err == nil {
		t.Fatalf("expected an error for a non-numeric DRAW_ATTEMPTS")
	}

	t.Setenv("DRAW_ATTEMPTS", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected an error for zero DRAW_ATTEMPTS")
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("STOCKING_DOTENV_PROBE=from-file\nSTOCKING_DOTENV_KEEP=from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("STOCKING_DOTENV_KEEP", "from-env")
	t.Setenv("STOCKING_DOTENV_PROBE", "")
	os.Unsetenv("STOCKING_DOTENV_PROBE")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("STOCKING_DOTENV_PROBE"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := os.Getenv("STOCKING_DOTENV_KEEP"); got != "from-env" {
		t.Fatalf("expected existing env to win, got %q", got)
	}
}
