package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultFileName = ".swap-cycler-journal.json"
)

// Storage persists journal entries to a JSON file
type Storage struct {
	filePath string
	mu       sync.RWMutex
	entries  map[string]*Entry
}

// fileFormat is the JSON structure on disk
type fileFormat struct {
	Entries []*Entry `json:"entries"`
}

// NewStorage opens the journal at filePath, defaulting to the home directory
func NewStorage(filePath string) (*Storage, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultFileName)
	}

	s := &Storage{
		filePath: filePath,
		entries:  make(map[string]*Entry),
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load journal: %w", err)
	}

	return s, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to unmarshal journal: %w", err)
	}

	for _, e := range f.Entries {
		if e != nil && e.ID != "" {
			s.entries[e.ID] = e
		}
	}
	return nil
}

// saveLocked writes every entry to disk; callers hold s.mu
func (s *Storage) saveLocked() error {
	data, err := json.MarshalIndent(fileFormat{Entries: s.sortedLocked()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// temp file + rename so a crash never leaves a truncated journal
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *Storage) sortedLocked() []*Entry {
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		if out[i].BatchID != out[j].BatchID {
			return out[i].BatchID < out[j].BatchID
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// Record stores a new entry, assigning its ID and timestamps when unset
func (s *Storage) Record(e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if _, exists := s.entries[e.ID]; exists {
		return fmt.Errorf("entry '%s' already exists", e.ID)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Updated.IsZero() {
		e.Updated = e.Timestamp
	}
	if e.Status == "" {
		e.Status = StatusPending
	}

	s.entries[e.ID] = e
	return s.saveLocked()
}

// Update replaces an existing entry
func (s *Storage) Update(e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[e.ID]; !exists {
		return fmt.Errorf("entry '%s' not found", e.ID)
	}

	s.entries[e.ID] = e
	return s.saveLocked()
}

// Get retrieves an entry by ID
func (s *Storage) Get(id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[id]
	if !exists {
		return nil, fmt.Errorf("entry '%s' not found", id)
	}
	return e, nil
}

// List returns all entries, oldest first
func (s *Storage) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedLocked()
}

// ListByBatch returns the legs of one batch in order
func (s *Storage) ListByBatch(batchID string) []*Entry {
	var out []*Entry
	for _, e := range s.List() {
		if e.BatchID == batchID {
			out = append(out, e)
		}
	}
	return out
}

// ListByStatus returns entries filtered by status
func (s *Storage) ListByStatus(status Status) []*Entry {
	var out []*Entry
	for _, e := range s.List() {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of entries
func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// FilePath returns the journal location
func (s *Storage) FilePath() string {
	return s.filePath
}
