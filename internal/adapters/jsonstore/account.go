// Package jsonstore persists the paper-trading account as a JSON document.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"trendBot/internal/domain"
	"trendBot/internal/ports"
)

// AccountStore implements ports.AccountStore on a single JSON file.
type AccountStore struct {
	path string
	mu   sync.Mutex
}

// NewAccountStore returns a store backed by path. The file is created on first Save.
func NewAccountStore(path string) *AccountStore {
	return &AccountStore{path: path}
}

// Path returns the backing file.
func (s *AccountStore) Path() string { return s.path }

// Load reads the stored account. A missing file is reported as ok=false.
func (s *AccountStore) Load() (domain.AccountState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.AccountState{}, false, nil
	}
	if err != nil {
		return domain.AccountState{}, false, fmt.Errorf("failed to read account file %s: %w", s.path, err)
	}

	var state domain.AccountState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.AccountState{}, false, fmt.Errorf("failed to decode account file %s: %w: %w", s.path, ports.ErrStateCorrupt, err)
	}
	if state.Positions == nil {
		state.Positions = make(map[string]*domain.Position)
	}
	for symbol, pos := range state.Positions {
		if pos == nil {
			return domain.AccountState{}, false, fmt.Errorf("account file %s: position %s is null: %w", s.path, symbol, ports.ErrStateCorrupt)
		}
		if !(pos.Size > 0) || !(pos.EntryPrice > 0) {
			return domain.AccountState{}, false, fmt.Errorf("account file %s: position %s has size %v at %v: %w", s.path, symbol, pos.Size, pos.EntryPrice, ports.ErrStateCorrupt)
		}
		pos.Symbol = symbol
	}
	return state, true, nil
}

// Save writes the state to a temporary file and renames it over the old one,
// so a crash never leaves a truncated account behind.
func (s *AccountStore) Save(state domain.AccountState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode account state: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create account directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp account file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write account state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp account file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace account file %s: %w", s.path, err)
	}
	return nil
}

var _ ports.AccountStore = (*AccountStore)(nil)
