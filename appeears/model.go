package appeears

import (
	"errors"
	"io"

	"github.com/venicegeo/geojson-go/geojson"

	"github.com/alecsandermergen11/SMAP-auto-download/model"
)

// Errors callers branch on. They are wrapped together with a util.HTTPErr.
var (
	ErrUnauthorized = errors.New("appeears: unauthorized")
	ErrNotFound     = errors.New("appeears: not found")
)

// NotFoundMessage is reported for tasks the service no longer knows about.
const NotFoundMessage = "task not found (failed or expired)"

// TaskRequest is the body of POST task.
type TaskRequest struct {
	TaskType string     `json:"task_type"`
	TaskName string     `json:"task_name"`
	Params   TaskParams `json:"params"`
}

// TaskParams holds the extraction parameters of an area task.
type TaskParams struct {
	Dates  []DateRange                `json:"dates"`
	Layers []model.Layer              `json:"layers"`
	Output Output                     `json:"output"`
	Geo    *geojson.FeatureCollection `json:"geo"`
}

// DateRange uses MM-DD-YYYY dates.
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Output selects the raster format and projection.
type Output struct {
	Format     Format `json:"format"`
	Projection string `json:"projection"`
}

// Format is the output file type.
type Format struct {
	Type model.OutputFormat `json:"type"`
}

// NewTaskRequest builds the area task for one AOI over one chunk.
func NewTaskRequest(aoi *model.AreaOfInterest, layers []model.Layer, chunk model.DateChunk) TaskRequest {
	return TaskRequest{
		TaskType: "area",
		TaskName: model.TaskName(aoi.Name, chunk),
		Params: TaskParams{
			Dates: []DateRange{{
				StartDate: chunk.Start.Format(model.APIDateLayout),
				EndDate:   chunk.End.Format(model.APIDateLayout),
			}},
			Layers: layers,
			Output: Output{
				Format:     Format{Type: model.GeoTIFF},
				Projection: model.GeographicProjection,
			},
			Geo: aoi.Geometry,
		},
	}
}

type loginResponse struct {
	Token      string `json:"token"`
	Expiration string `json:"expiration"`
}

type submitResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// TaskStatus is the answer of GET status/{id}.
type TaskStatus struct {
	TaskID   string           `json:"task_id"`
	Status   model.TaskStatus `json:"status"`
	Message  string           `json:"message,omitempty"`
	Progress interface{}      `json:"progress,omitempty"`
}

// Bundle lists the output files of a finished task.
type Bundle struct {
	TaskID string       `json:"task_id"`
	Files  []BundleFile `json:"files"`
}

// BundleFile is one downloadable output. FileName may contain '/'.
type BundleFile struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	Size     int64  `json:"file_size"`
}

// FileStream is an open download. ContentLength is -1 when unknown.
type FileStream struct {
	Body          io.ReadCloser
	ContentLength int64
}
