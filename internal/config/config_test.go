package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if !cfg.AutoCreateBoards {
		t.Error("expected auto-create on by default")
	}
	if cfg.SanitizeText {
		t.Error("expected sanitizer off by default")
	}
	if !cfg.OriginAllowed("https://anywhere.example") {
		t.Error("empty DOMAINS should allow any origin")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"PORT":               "9000",
		"DOMAINS":            "https://a.example, https://b.example,",
		"AUTO_CREATE_BOARDS": "false",
		"SEND_BUFFER":        "16",
		"PANZOOM_RATE":       "0",
		"BOARD_IDLE_TTL":     "30m",
		"SANITIZE_TEXT":      "true",
	}))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.AllowedOrigins)
	}
	if !cfg.OriginAllowed("https://b.example") || cfg.OriginAllowed("https://c.example") {
		t.Error("origin allow list not applied")
	}
	if cfg.AutoCreateBoards {
		t.Error("expected auto-create off")
	}
	if cfg.SendBuffer != 16 || cfg.PanZoomRate != 0 {
		t.Errorf("unexpected buffer/rate %d/%v", cfg.SendBuffer, cfg.PanZoomRate)
	}
	if cfg.BoardIdleTTL != 30*time.Minute {
		t.Errorf("expected 30m ttl, got %v", cfg.BoardIdleTTL)
	}
	if !cfg.SanitizeText {
		t.Error("expected sanitizer on")
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"PORT":               "eighty",
		"SEND_BUFFER":        "0",
		"AUTO_CREATE_BOARDS": "maybe",
		"BOARD_IDLE_TTL":     "soon",
		"PANZOOM_RATE":       "-1",
	}

	for key, value := range tests {
		_, err := FromEnv(env(map[string]string{key: value}))
		if err == nil {
			t.Errorf("%s=%s: expected error", key, value)
			continue
		}
		if !strings.Contains(err.Error(), key) {
			t.Errorf("%s=%s: error should name the key, got %v", key, value, err)
		}
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9123\n"), 0600); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	// restored after the test; godotenv never overrides a variable that is set
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9123 {
		t.Errorf("expected port from .env, got %d", cfg.Port)
	}
}
