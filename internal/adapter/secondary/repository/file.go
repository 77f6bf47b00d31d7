package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"maclock/internal/domain"
)

// FileRepository implements domain.ConfigRepository using a JSON file.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileRepository creates a file-based repository and its directory.
func NewFileRepository(path string) (*FileRepository, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	return &FileRepository{path: path}, nil
}

// Path returns the file backing the repository.
func (f *FileRepository) Path() string { return f.path }

// persistedData is the JSON structure on disk. Durations are stored in
// milliseconds, timestamps as RFC 3339.
type persistedData struct {
	BuiltInOutputName   string `json:"builtInOutputName,omitempty"`
	AlarmSound          string `json:"alarmSound,omitempty"`
	PollIntervalMs      int64  `json:"pollIntervalMs,omitempty"`
	RestoreRetries      *int   `json:"restoreRetries,omitempty"`
	RestoreRetryDelayMs int64  `json:"restoreRetryDelayMs,omitempty"`
	Addr                string `json:"addr,omitempty"`

	LastLocked   string `json:"lastLocked,omitempty"`
	LastUnlocked string `json:"lastUnlocked,omitempty"`
	LastAlarm    string `json:"lastAlarm,omitempty"`
	LastError    string `json:"lastError,omitempty"`
}

// Load reads the configuration and history. A missing file or missing
// fields yield defaults.
func (f *FileRepository) Load() (domain.Config, domain.History, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	config := domain.DefaultConfig()
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, domain.History{}, nil
		}
		return domain.Config{}, domain.History{}, fmt.Errorf("read config: %w", err)
	}

	var persisted persistedData
	if err := json.Unmarshal(data, &persisted); err != nil {
		return domain.Config{}, domain.History{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if persisted.BuiltInOutputName != "" {
		config.BuiltInOutputName = persisted.BuiltInOutputName
	}
	if persisted.AlarmSound != "" {
		config.AlarmSound = persisted.AlarmSound
	}
	if persisted.PollIntervalMs > 0 {
		config.PollInterval = time.Duration(persisted.PollIntervalMs) * time.Millisecond
	}
	if persisted.RestoreRetries != nil {
		config.RestoreRetries = *persisted.RestoreRetries
	}
	if persisted.RestoreRetryDelayMs > 0 {
		config.RestoreRetryDelay = time.Duration(persisted.RestoreRetryDelayMs) * time.Millisecond
	}
	if persisted.Addr != "" {
		config.Addr = persisted.Addr
	}

	history := domain.History{
		LastLocked:   parseTime(persisted.LastLocked),
		LastUnlocked: parseTime(persisted.LastUnlocked),
		LastAlarm:    parseTime(persisted.LastAlarm),
		LastError:    persisted.LastError,
	}
	return config, history, nil
}

// Save persists the configuration and history atomically.
func (f *FileRepository) Save(config domain.Config, history domain.History) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	retries := config.RestoreRetries
	persisted := persistedData{
		BuiltInOutputName:   config.BuiltInOutputName,
		AlarmSound:          config.AlarmSound,
		PollIntervalMs:      config.PollInterval.Milliseconds(),
		RestoreRetries:      &retries,
		RestoreRetryDelayMs: config.RestoreRetryDelay.Milliseconds(),
		Addr:                config.Addr,
		LastLocked:          formatTime(history.LastLocked),
		LastUnlocked:        formatTime(history.LastUnlocked),
		LastAlarm:           formatTime(history.LastAlarm),
		LastError:           history.LastError,
	}

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename tmp: %w", err)
	}

	return nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// DefaultPath returns ~/.config/maclock/config.json, falling back to the
// working directory when there is no home.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".config", "maclock", "config.json")
	}
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, "maclock-config.json")
}

// MemoryRepository keeps configuration in memory.
type MemoryRepository struct {
	mu      sync.Mutex
	config  domain.Config
	history domain.History
	saves   int
}

// NewMemoryRepository starts from config and an empty history.
func NewMemoryRepository(config domain.Config) *MemoryRepository {
	return &MemoryRepository{config: config}
}

func (m *MemoryRepository) Load() (domain.Config, domain.History, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config, m.history, nil
}

func (m *MemoryRepository) Save(config domain.Config, history domain.History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = config
	m.history = history
	m.saves++
	return nil
}

// Saves returns how often Save was called.
func (m *MemoryRepository) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
