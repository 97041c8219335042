package storage

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	statisticsFile = "statistics.json"
	installIDFile  = "install_id"
)

// Statistics counts launches and successful injections per payload.
type Statistics struct {
	OpenedCount  uint64            `json:"opened_count"`
	InjectCounts map[string]uint64 `json:"inject_counts"`
}

// TotalInjections sums the per-payload counters.
func (s Statistics) TotalInjections() uint64 {
	var total uint64
	for _, n := range s.InjectCounts {
		total += n
	}
	return total
}

// Store provides persistent file-based storage for loader state.
type Store struct {
	dataDir string
	mu      sync.RWMutex
}

// NewStore creates a Store rooted at dataDir, ensuring the directory exists.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}
	return &Store{dataDir: dataDir}, nil
}

// InstallID returns the persisted installation ID, generating one if it
// doesn't exist.
func (s *Store) InstallID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dataDir, installIDFile)
	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			return id, nil
		}
	}

	id := uuid.New().String()
	if err := os.WriteFile(path, []byte(id), 0o600); err != nil {
		return "", fmt.Errorf("write install id: %w", err)
	}
	return id, nil
}

// Statistics loads the counters. A missing or unreadable file yields zero
// counters.
func (s *Store) Statistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// IncrementOpened counts one launch.
func (s *Store) IncrementOpened() error {
	return s.update(func(st *Statistics) {
		st.OpenedCount++
	})
}

// RecordInjection counts one successful injection of name.
func (s *Store) RecordInjection(name string) error {
	return s.update(func(st *Statistics) {
		st.InjectCounts[name]++
	})
}

// ResetStatistics zeroes every counter.
func (s *Store) ResetStatistics() error {
	return s.update(func(st *Statistics) {
		*st = Statistics{InjectCounts: map[string]uint64{}}
	})
}

func (s *Store) update(fn func(*Statistics)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.load()
	fn(&st)

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal statistics: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dataDir, statisticsFile), data, 0o644); err != nil {
		return fmt.Errorf("write statistics: %w", err)
	}
	return nil
}

func (s *Store) load() Statistics {
	st := Statistics{InjectCounts: map[string]uint64{}}

	data, err := os.ReadFile(filepath.Join(s.dataDir, statisticsFile))
	if err != nil {
		return st
	}

	var loaded Statistics
	if err := json.Unmarshal(data, &loaded); err != nil {
		return st
	}
	st.OpenedCount = loaded.OpenedCount
	maps.Copy(st.InjectCounts, loaded.InjectCounts)
	return st
}
