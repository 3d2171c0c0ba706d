package model

import (
	"time"

	"github.com/venicegeo/geojson-go/geojson"
)

// AreaOfInterest is a dissolved boundary ready to be embedded in a task request.
type AreaOfInterest struct {
	Name     string
	Source   string
	Geometry *geojson.FeatureCollection
}

// TaskStatus is the processing state reported by AppEEARS.
type TaskStatus string

// Statuses the orchestrator acts on. Anything else the service reports
// (queued, processing, ...) is treated like StatusPending.
const (
	StatusPending TaskStatus = "pending"
	StatusDone    TaskStatus = "done"
	StatusFailed  TaskStatus = "failed"
)

// Terminal is true for statuses that remove a task from monitoring.
func (s TaskStatus) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Task is one submitted extraction job: one AOI, one DateChunk.
type Task struct {
	ID          string
	Name        string
	AOI         string
	Chunk       DateChunk
	Status      TaskStatus
	Message     string
	SubmittedAt time.Time
}

// Period is the label of the task's DateChunk.
func (t Task) Period() string {
	return t.Chunk.Period()
}

// TaskName is the name AppEEARS shows for a task of aoi over chunk.
func TaskName(aoi string, chunk DateChunk) string {
	return "SMAP_" + aoi + "_" + chunk.Period()
}
