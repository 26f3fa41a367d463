package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRoot(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := LoadRoot(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("LoadRoot() error = %v", err)
		}
		if cfg.Pipeline.MinPrice != 400 {
			t.Errorf("MinPrice = %d, want 400", cfg.Pipeline.MinPrice)
		}
		if cfg.Posting.DuplicateRetries != 3 {
			t.Errorf("DuplicateRetries = %d, want 3", cfg.Posting.DuplicateRetries)
		}
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pipeline.yaml")
		data := []byte(`
pipeline:
  min_price: 500
rewrite:
  provider: gemini
  courtesy_delay: 250ms
storage:
  dir: /tmp/state
  history_backend: sqlite
`)
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatalf("write config: %v", err)
		}

		cfg, err := LoadRoot(path)
		if err != nil {
			t.Fatalf("LoadRoot() error = %v", err)
		}
		if cfg.Pipeline.MinPrice != 500 {
			t.Errorf("MinPrice = %d, want 500", cfg.Pipeline.MinPrice)
		}
		if cfg.Pipeline.NovelMark != "ノベル" {
			t.Errorf("NovelMark = %q, default should survive", cfg.Pipeline.NovelMark)
		}
		if cfg.Rewrite.Provider != ProviderGemini {
			t.Errorf("Provider = %q", cfg.Rewrite.Provider)
		}
		if cfg.Rewrite.CourtesyDelay != 250*time.Millisecond {
			t.Errorf("CourtesyDelay = %v", cfg.Rewrite.CourtesyDelay)
		}
		if cfg.Storage.HistoryBackend != HistoryBackendSQLite {
			t.Errorf("HistoryBackend = %q", cfg.Storage.HistoryBackend)
		}
	})

	t.Run("unknown provider is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pipeline.yaml")
		if err := os.WriteFile(path, []byte("rewrite:\n  provider: other\n"), 0644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := LoadRoot(path); err == nil {
			t.Fatal("LoadRoot() should fail for unknown provider")
		}
	})

	t.Run("broken yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pipeline.yaml")
		if err := os.WriteFile(path, []byte("pipeline: [\n"), 0644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := LoadRoot(path); err == nil {
			t.Fatal("LoadRoot() should fail for broken yaml")
		}
	})
}

func TestEnvConfig_Require(t *testing.T) {
	t.Setenv("DMM_API_ID", "api")
	t.Setenv("DMM_AFFILIATE_ID", "aff-990")
	t.Setenv("AFFILIATE_ID", "aff")
	t.Setenv("AFFILIATE_SITE", "990")
	t.Setenv("AFFILIATE_CHANNEL", "api")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENROUTER_MODEL", "model")
	t.Setenv("OPENROUTER_SYSTEM_PROMPT", "")
	t.Setenv("OPENROUTER_USER_PROMPT_TEMPLATE", "{text}")

	env := LoadEnvConfig()

	if err := env.RequireFetch(); err != nil {
		t.Fatalf("RequireFetch() error = %v", err)
	}

	err := env.RequireSelection(Rewrite{Enabled: true, Provider: ProviderOpenRouter})
	var missing *MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("RequireSelection() error = %v, want *MissingError", err)
	}
	if len(missing.Names) != 2 || missing.Names[0] != "OPENROUTER_API_KEY" || missing.Names[1] != "OPENROUTER_SYSTEM_PROMPT" {
		t.Errorf("missing = %v", missing.Names)
	}

	if err := env.RequireSelection(Rewrite{Enabled: false}); err != nil {
		t.Errorf("RequireSelection() with rewrite disabled error = %v", err)
	}

	if err := env.RequirePosting(); err == nil {
		t.Error("RequirePosting() should fail without X credentials")
	}
}
