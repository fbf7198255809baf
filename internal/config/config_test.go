package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(deepseekAPIKeyEnv, "")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(telegramTokenEnv, "")
	t.Setenv(telegramChatIDEnv, "")
	t.Setenv(deepseekModelEnv, "")

	cfg := Load()

	if cfg.Selection.WindowDays != 30 || cfg.Selection.MaxPerDay != 5 {
		t.Fatalf("unexpected selection defaults: %+v", cfg.Selection)
	}
	if cfg.Rater.Model != "deepseek-chat" {
		t.Fatalf("unexpected rater model: %s", cfg.Rater.Model)
	}
	if cfg.Rater.Timeout() != 30*time.Second {
		t.Fatalf("unexpected rater timeout: %v", cfg.Rater.Timeout())
	}
	if len(cfg.Sites) == 0 {
		t.Fatalf("expected default sites")
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	raw := `
logging:
  level: debug
selection:
  windowDays: 7
  maxPerDay: 3
rater:
  model: file-model
  timeoutSeconds: 10
sites:
  - name: custom
    scanner: arxiv-atom
    categories:
      - name: cs.LG
        url: https://export.arxiv.org/api/query
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv(deepseekAPIKeyEnv, "env-key")
	t.Setenv(deepseekModelEnv, "env-model")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(telegramTokenEnv, "")
	t.Setenv(telegramChatIDEnv, "")

	cfg := Load()

	if cfg.Logging.Level != "debug" {
		t.Fatalf("file logging level not applied: %s", cfg.Logging.Level)
	}
	if cfg.Selection.WindowDays != 7 || cfg.Selection.MaxPerDay != 3 {
		t.Fatalf("file selection not applied: %+v", cfg.Selection)
	}
	if cfg.Rater.Timeout() != 10*time.Second {
		t.Fatalf("file timeout not applied: %v", cfg.Rater.Timeout())
	}
	// Env overrides beat the file.
	if cfg.Rater.APIKey != "env-key" || cfg.Rater.Model != "env-model" {
		t.Fatalf("env overrides not applied: %+v", cfg.Rater)
	}
	if len(cfg.Sites) != 1 || cfg.Sites[0].Name != "custom" {
		t.Fatalf("file sites not applied: %+v", cfg.Sites)
	}
	// Untouched settings keep their defaults.
	if cfg.Selection.MaxResults != 300 {
		t.Fatalf("default maxResults lost: %d", cfg.Selection.MaxResults)
	}
}

func TestSchedulerLocationFallsBackToUTC(t *testing.T) {
	t.Setenv(configPathEnv, "")

	cfg := Load()
	if cfg.Scheduler.Location().String() != "UTC" {
		t.Fatalf("expected UTC fallback, got %s", cfg.Scheduler.Location())
	}
}
