// Package persist keeps the agent's small amount of state across restarts.
package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/autopeer-io/geotrack/internal/trackagent/core"
)

// State is the persisted document.
type State struct {
	TrackingActive bool   `yaml:"trackingActive"`
	DeviceID       string `yaml:"deviceId,omitempty"`
}

// FileStore stores State as YAML in a single file.
type FileStore struct {
	path string

	mu    sync.Mutex
	state State
}

var _ core.FlagStore = (*FileStore)(nil)

// Open loads the state at path. A missing file yields the zero state.
func Open(path string) (*FileStore, error) {
	s := &FileStore{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", path, err)
	}
	return s, nil
}

// TrackingActive returns the persisted flag.
func (s *FileStore) TrackingActive() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TrackingActive, nil
}

// SetTrackingActive persists the flag.
func (s *FileStore) SetTrackingActive(active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TrackingActive = active
	return s.saveLocked()
}

// DeviceID returns the configured id if set, otherwise the persisted one,
// generating and persisting a new UUID on first use.
func (s *FileStore) DeviceID(configured string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if configured != "" {
		if s.state.DeviceID == configured {
			return configured, nil
		}
		s.state.DeviceID = configured
		return configured, s.saveLocked()
	}
	if s.state.DeviceID != "" {
		return s.state.DeviceID, nil
	}
	s.state.DeviceID = uuid.NewString()
	return s.state.DeviceID, s.saveLocked()
}

// saveLocked writes the state atomically through a temp file and rename.
func (s *FileStore) saveLocked() error {
	data, err := yaml.Marshal(&s.state)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".geotrack-state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
