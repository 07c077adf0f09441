package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/core"
)

// FileStore keeps the preferences record in a JSON file
type FileStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileStore creates a store backed by path
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.path
}

// Load implements core.PreferencesStore. Missing keys keep their default.
func (s *FileStore) Load() *core.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, err := s.read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("No preferences file, using defaults", zap.String("path", s.path))
		} else {
			s.logger.Warn("Failed to load preferences, using defaults", zap.String("path", s.path), zap.Error(err))
		}
		return core.DefaultPreferences()
	}
	return prefs
}

func (s *FileStore) read() (*core.Preferences, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}

	prefs := core.DefaultPreferences()
	// decoding into a populated slice overwrites in place and keeps the tail
	prefs.BlockedSenders, prefs.ToDeleteSenders, prefs.KeepCategories = nil, nil, nil
	if err := v.Unmarshal(prefs); err != nil {
		return nil, fmt.Errorf("failed to decode preferences: %w", err)
	}
	if !v.IsSet("keep_categories") {
		prefs.KeepCategories = append([]string(nil), core.DefaultKeepCategories...)
	}
	prefs.Normalize()
	return prefs, nil
}

// Save implements core.PreferencesStore
func (s *FileStore) Save(prefs *core.Preferences) bool {
	if prefs == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(prefs); err != nil {
		s.logger.Error("Failed to save preferences", zap.String("path", s.path), zap.Error(err))
		return false
	}
	s.logger.Debug("Saved preferences", zap.String("path", s.path))
	return true
}

func (s *FileStore) write(prefs *core.Preferences) error {
	b, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
