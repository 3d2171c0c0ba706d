package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alecsandermergen11/SMAP-auto-download/model"
)

// Memory is a Ledger that lives for one process.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{entries: map[string]Entry{}, now: time.Now}
}

// RecordSubmission stores task, replacing an earlier entry with the same id.
func (m *Memory) RecordSubmission(ctx context.Context, task model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[task.ID] = entryFor(task, m.now())
	return nil
}

// RecordStatus updates the status of a recorded task.
func (m *Memory) RecordStatus(ctx context.Context, taskID string, status model.TaskStatus, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[taskID]
	if !ok {
		return fmt.Errorf("ledger: unknown task %s", taskID)
	}
	entry.Status = status
	entry.Message = message
	entry.UpdatedAt = m.now()
	m.entries[taskID] = entry
	return nil
}

// History returns the recorded entries.
func (m *Memory) History(ctx context.Context, aoi string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []Entry
	for _, entry := range m.entries {
		if aoi == "" || entry.AOI == aoi {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AOI != entries[j].AOI {
			return entries[i].AOI < entries[j].AOI
		}
		if !entries[i].Chunk.Start.Equal(entries[j].Chunk.Start) {
			return entries[i].Chunk.Start.Before(entries[j].Chunk.Start)
		}
		return entries[i].TaskID < entries[j].TaskID
	})
	return entries, nil
}
