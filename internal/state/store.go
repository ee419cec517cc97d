package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/badno/wcflat/internal/database"
	"github.com/google/uuid"
)

const (
	StateVersion     = "1.0"
	DefaultStateFile = "output/.wcflat-state.json"

	// MaxRuns caps the number of runs kept in the state file
	MaxRuns = 200
)

// ErrRunNotFound is returned when a run id is not in the history
var ErrRunNotFound = errors.New("run not found")

// StateFile represents the state file structure
type StateFile struct {
	Version     string                    `json:"version"`
	Runs        []*database.ConversionRun `json:"runs"`
	LastUpdated time.Time                 `json:"last_updated"`
}

// Store keeps the conversion run history in a JSON file.
// It implements database.RunRepository.
type Store struct {
	mu       sync.RWMutex
	filePath string
	state    *StateFile
}

var _ database.RunRepository = (*Store)(nil)

// NewStore creates a new state store
func NewStore(filePath string) *Store {
	if filePath == "" {
		filePath = DefaultStateFile
	}

	return &Store{
		filePath: filePath,
		state:    emptyState(),
	}
}

func emptyState() *StateFile {
	return &StateFile{
		Version: StateVersion,
		Runs:    []*database.ConversionRun{},
	}
}

// Path returns the state file location
func (s *Store) Path() string {
	return s.filePath
}

// Load reads the state from disk. A missing file yields an empty history.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.state = emptyState()
			return nil
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var state StateFile
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}
	if state.Version == "" {
		state.Version = StateVersion
	}
	if state.Runs == nil {
		state.Runs = []*database.ConversionRun{}
	}
	s.state = &state
	return nil
}

// Save writes the state to disk
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveInternal()
}

// saveInternal saves without acquiring lock (for internal use)
func (s *Store) saveInternal() error {
	s.state.LastUpdated = time.Now()

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return os.Rename(tmp, s.filePath)
}

// Add appends a run to the history and persists it
func (s *Store) Add(ctx context.Context, run *database.ConversionRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	s.state.Runs = append(s.state.Runs, run)
	if len(s.state.Runs) > MaxRuns {
		s.state.Runs = s.state.Runs[len(s.state.Runs)-MaxRuns:]
	}

	return s.saveInternal()
}

// GetRecent returns up to limit runs, newest first. A limit <= 0 returns all.
func (s *Store) GetRecent(ctx context.Context, limit int) ([]*database.ConversionRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*database.ConversionRun, len(s.state.Runs))
	copy(runs, s.state.Runs)
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if limit > 0 && limit < len(runs) {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetByID returns a single run
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*database.ConversionRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.state.Runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// Count returns the number of recorded runs
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.Runs)
}

// Clear removes all runs and persists the empty history
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Runs = []*database.ConversionRun{}
	return s.saveInternal()
}
