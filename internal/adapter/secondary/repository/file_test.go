package repository

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"maclock/internal/domain"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "nested", "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	cfg, history, err := repo.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg != domain.DefaultConfig() {
		t.Fatalf("cfg=%+v", cfg)
	}
	if !history.LastLocked.IsZero() || history.LastError != "" {
		t.Fatalf("history=%+v", history)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	repo, err := NewFileRepository(path)
	if err != nil {
		t.Fatal(err)
	}

	cfg := domain.DefaultConfig()
	cfg.BuiltInOutputName = "MacBook Pro Speakers"
	cfg.RestoreRetries = 0
	cfg.PollInterval = 250 * time.Millisecond
	locked := time.Date(2024, 3, 1, 22, 15, 0, 0, time.UTC)
	history := domain.History{LastLocked: locked, LastError: "AC power not connected"}

	if err := repo.Save(cfg, history); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temporary file left behind")
	}

	gotCfg, gotHistory, err := repo.Load()
	if err != nil {
		t.Fatal(err)
	}
	if gotCfg != cfg {
		t.Fatalf("cfg=%+v want %+v", gotCfg, cfg)
	}
	if !gotHistory.LastLocked.Equal(locked) || gotHistory.LastError != history.LastError || !gotHistory.LastUnlocked.IsZero() {
		t.Fatalf("history=%+v", gotHistory)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"pollIntervalMs": 250`) {
		t.Fatalf("unexpected encoding: %s", data)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"addr":"127.0.0.1:9000","lastAlarm":"garbage"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	repo, _ := NewFileRepository(path)
	cfg, history, err := repo.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != "127.0.0.1:9000" || cfg.RestoreRetries != domain.DefaultConfig().RestoreRetries {
		t.Fatalf("cfg=%+v", cfg)
	}
	if !history.LastAlarm.IsZero() {
		t.Fatal("unparsable time must be zero")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	repo, _ := NewFileRepository(path)
	if _, _, err := repo.Load(); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestNewFileRepositoryRequiresPath(t *testing.T) {
	if _, err := NewFileRepository(""); err == nil {
		t.Fatal("expected error")
	}
}
