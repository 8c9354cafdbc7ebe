/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry describes a journaled request. The Run closure is not
// persistable, so the journal keeps enough to rebuild the request after
// a restart.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	Label      string    `json:"label"`
	Barrier    bool      `json:"barrier"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Journal persists the oldest pending request across process restarts.
// At most one entry is kept at a time.
type Journal interface {
	Record(entry Entry) error
	Clear(id uuid.UUID) error
	Pending() ([]Entry, error)
}

// FileJournal stores the pending entry as a single JSON file.
type FileJournal struct {
	mu   sync.Mutex
	path string
}

// NewFileJournal creates a journal backed by the given file path.
func NewFileJournal(path string) *FileJournal {
	return &FileJournal{path: path}
}

// Record implements Journal.
func (j *FileJournal) Record(entry Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode journal entry: %w", err)
	}
	if err := os.WriteFile(j.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	return nil
}

// Clear implements Journal. Clearing an ID other than the recorded one
// is a no-op.
func (j *FileJournal) Clear(id uuid.UUID) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry, err := j.read()
	if err != nil {
		return err
	}
	if entry == nil || entry.ID != id {
		return nil
	}
	if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear journal: %w", err)
	}
	return nil
}

// Pending implements Journal.
func (j *FileJournal) Pending() ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry, err := j.read()
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	return []Entry{*entry}, nil
}

func (j *FileJournal) read() (*Entry, error) {
	data, err := os.ReadFile(j.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode journal: %w", err)
	}
	return &entry, nil
}
