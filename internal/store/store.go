package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"consignment-service/internal/models"
)

// Store owns the persisted state document. Every operation runs as a full
// read-mutate-write cycle under one mutex; a failed mutation never reaches
// disk, so callers observe either the whole operation or none of it.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by the JSON document at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the current state, seeding the initial fixture if the
// document does not exist yet.
func (s *Store) Load() (*models.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*models.State, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		state := InitialState()
		if err := s.save(state); err != nil {
			return nil, fmt.Errorf("failed to seed state: %w", err)
		}
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state models.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state file: %w", err)
	}
	normalize(&state)
	return &state, nil
}

// save writes the whole document atomically: temp file in the same
// directory, then rename over the target.
func (s *Store) save(state *models.State) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Mutate loads the state, applies fn to the in-memory copy and persists
// the result. If fn returns an error nothing is written and the error is
// returned unchanged.
func (s *Store) Mutate(fn func(*models.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	return s.save(state)
}

// View loads the state and applies a read-only fn. The state passed to fn
// must not be retained or mutated.
func (s *Store) View(fn func(*models.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return err
	}
	return fn(state)
}

// Reset discards the document and re-seeds the initial fixture.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return s.save(InitialState())
}

// normalize fills in collections that older documents may lack.
func normalize(state *models.State) {
	if state.Inventory == nil {
		state.Inventory = make(map[string]int)
	}
	if state.Consignees == nil {
		state.Consignees = make(map[string][]models.ConsigneeItem)
	}
	if state.Payments == nil {
		state.Payments = make(map[string][]models.PaymentRecord)
	}
}
