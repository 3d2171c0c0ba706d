// Package ledger keeps a record of every submitted task and the statuses
// observed for it, so interrupted runs can be audited.
package ledger

import (
	"context"
	"time"

	"github.com/alecsandermergen11/SMAP-auto-download/model"
)

// Entry is one task as recorded in the ledger.
type Entry struct {
	TaskID      string
	TaskName    string
	AOI         string
	Chunk       model.DateChunk
	Status      model.TaskStatus
	Message     string
	SubmittedAt time.Time
	UpdatedAt   time.Time
}

// Period is the label of the entry's DateChunk.
func (e Entry) Period() string {
	return e.Chunk.Period()
}

// Ledger records submissions and status transitions.
type Ledger interface {
	RecordSubmission(ctx context.Context, task model.Task) error
	RecordStatus(ctx context.Context, taskID string, status model.TaskStatus, message string) error
	// History lists entries by AOI and start date; an empty aoi lists all.
	History(ctx context.Context, aoi string) ([]Entry, error)
}

func entryFor(task model.Task, now time.Time) Entry {
	submitted := task.SubmittedAt
	if submitted.IsZero() {
		submitted = now
	}
	status := task.Status
	if status == "" {
		status = model.StatusPending
	}
	return Entry{
		TaskID:      task.ID,
		TaskName:    task.Name,
		AOI:         task.AOI,
		Chunk:       task.Chunk,
		Status:      status,
		Message:     task.Message,
		SubmittedAt: submitted,
		UpdatedAt:   now,
	}
}
