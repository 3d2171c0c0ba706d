package monitor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venicegeo/geojson-go/geojson"

	"github.com/alecsandermergen11/SMAP-auto-download/appeears"
	"github.com/alecsandermergen11/SMAP-auto-download/download"
	"github.com/alecsandermergen11/SMAP-auto-download/ledger"
	"github.com/alecsandermergen11/SMAP-auto-download/metrics"
	"github.com/alecsandermergen11/SMAP-auto-download/model"
	"github.com/alecsandermergen11/SMAP-auto-download/ui"
	"github.com/alecsandermergen11/SMAP-auto-download/util"
)

type reply struct {
	status  model.TaskStatus
	message string
	err     error
}

// fakeClient answers status queries from a script per task id; the last
// reply of a script repeats.
type fakeClient struct {
	submitErr map[string]error
	script    map[string][]reply
	polls     map[string]int
	bundles   map[string]int
}

func newFakeClient(script map[string][]reply) *fakeClient {
	return &fakeClient{submitErr: map[string]error{}, script: script, polls: map[string]int{}, bundles: map[string]int{}}
}

// SubmitTask names tasks "t<year>".
func (f *fakeClient) SubmitTask(ctx context.Context, req appeears.TaskRequest) (string, error) {
	if err := f.submitErr[req.TaskName]; err != nil {
		return "", err
	}
	return "t" + req.Params.Dates[0].StartDate[6:], nil
}

func (f *fakeClient) TaskStatus(ctx context.Context, taskID string) (appeears.TaskStatus, error) {
	f.polls[taskID]++
	replies := f.script[taskID]
	if len(replies) == 0 {
		return appeears.TaskStatus{TaskID: taskID, Status: model.StatusPending}, nil
	}
	r := replies[0]
	if len(replies) > 1 {
		f.script[taskID] = replies[1:]
	}
	if r.err != nil {
		return appeears.TaskStatus{}, r.err
	}
	return appeears.TaskStatus{TaskID: taskID, Status: r.status, Message: r.message}, nil
}

func (f *fakeClient) Bundle(ctx context.Context, taskID string) (appeears.Bundle, error) {
	f.bundles[taskID]++
	return appeears.Bundle{TaskID: taskID, Files: []appeears.BundleFile{
		{FileID: "sm", FileName: "SPL4SMGP.008/SM.tif"},
		{FileID: "req", FileName: "request.json"},
	}}, nil
}

type staticSource struct{}

func (staticSource) OpenFile(ctx context.Context, taskID, fileID string) (*appeears.FileStream, error) {
	return &appeears.FileStream{Body: io.NopCloser(strings.NewReader(taskID)), ContentLength: int64(len(taskID))}, nil
}

type fixture struct {
	monitor *Monitor
	client  *fakeClient
	ledger  *ledger.Memory
	waits   int
	logs    *bytes.Buffer
	output  string
}

func newFixture(t *testing.T, script map[string][]reply) *fixture {
	f := &fixture{client: newFakeClient(script), ledger: ledger.NewMemory(), logs: &bytes.Buffer{}}
	util.SetLogOutput(f.logs)
	t.Cleanup(func() { util.SetLogOutput(os.Stderr) })

	cfg := util.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	f.output = cfg.OutputDir
	log := &util.BasicLogContext{}
	f.monitor = New(cfg, f.client, download.New(cfg, staticSource{}, ui.Silent{}, log), log)
	f.monitor.Ledger = f.ledger
	f.monitor.Metrics = metrics.NewRecorder()
	f.monitor.Progress = ui.Silent{}
	f.monitor.wait = func(ctx context.Context, d time.Duration) error {
		f.waits++
		return ctx.Err()
	}
	return f
}

func testAOI() *model.AreaOfInterest {
	polygon := geojson.NewPolygon([][][]float64{{{-48, -16}, {-47, -16}, {-47, -15}, {-48, -15}, {-48, -16}}})
	feature := geojson.NewFeature(polygon, "Cerrado", map[string]interface{}{})
	return &model.AreaOfInterest{Name: "Cerrado", Geometry: geojson.NewFeatureCollection([]*geojson.Feature{feature})}
}

func twoChunks(t *testing.T) []model.DateChunk {
	start, err := model.ParseDate("2015-04-01")
	require.Nil(t, err)
	end, err := model.ParseDate("2016-02-10")
	require.Nil(t, err)
	chunks, err := model.ChunkByYear(start, end)
	require.Nil(t, err)
	return chunks
}

var layers = []model.Layer{{Product: "SPL4SMGP.008", Layer: "Geophysical_Data_sm_surface"}}

func TestProcessAOI_DoneTasksDownloadOnce(t *testing.T) {
	f := newFixture(t, map[string][]reply{
		"t2015": {{status: "processing"}, {status: model.StatusDone}},
		"t2016": {{status: model.StatusDone}},
	})

	summary, err := f.monitor.ProcessAOI(context.Background(), testAOI(), layers, twoChunks(t))
	require.Nil(t, err)
	assert.Equal(t, 2, summary.Submitted)
	assert.Equal(t, 2, summary.Done)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 2, summary.Files.Downloaded)
	assert.Equal(t, 2, summary.Files.Ignored)

	assert.Equal(t, map[string]int{"t2015": 2, "t2016": 1}, f.client.polls, "done tasks are not polled again")
	assert.Equal(t, map[string]int{"t2015": 1, "t2016": 1}, f.client.bundles)
	assert.Equal(t, 1, f.waits)

	data, err := os.ReadFile(filepath.Join(f.output, "Cerrado", "SMAP_AppEEARS", "2016-01-01_to_2016-02-10", "SPL4SMGP.008", "SM.tif"))
	require.Nil(t, err)
	assert.Equal(t, "t2016", string(data))

	entries, err := f.ledger.History(context.Background(), "Cerrado")
	require.Nil(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, model.StatusDone, entry.Status)
	}
	assert.Equal(t, "SMAP_Cerrado_2015-04-01_to_2015-12-31", entries[0].TaskName)
}

func TestProcessAOI_FailedTaskLogsMessage(t *testing.T) {
	f := newFixture(t, map[string][]reply{
		"t2015": {{status: model.StatusFailed, message: "X"}},
		"t2016": {{status: model.StatusDone}},
	})

	summary, err := f.monitor.ProcessAOI(context.Background(), testAOI(), layers, twoChunks(t))
	require.Nil(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Done)
	assert.Equal(t, 1, f.client.polls["t2015"])
	assert.Zero(t, f.client.bundles["t2015"], "failed tasks are never downloaded")
	assert.Contains(t, f.logs.String(), "failed: X")
	assert.Zero(t, f.waits)

	entries, err := f.ledger.History(context.Background(), "")
	require.Nil(t, err)
	assert.Equal(t, model.StatusFailed, entries[0].Status)
	assert.Equal(t, "X", entries[0].Message)
}

func TestProcessAOI_PollErrorKeepsTask(t *testing.T) {
	f := newFixture(t, map[string][]reply{
		"t2015": {{err: errors.New("connection reset")}, {err: errors.New("connection reset")}, {status: model.StatusDone}},
		"t2016": {{status: model.StatusDone}},
	})

	summary, err := f.monitor.ProcessAOI(context.Background(), testAOI(), layers, twoChunks(t))
	require.Nil(t, err)
	assert.Equal(t, 2, summary.Done)
	assert.Equal(t, 3, f.client.polls["t2015"])
	assert.Equal(t, 2, f.waits)
	assert.Contains(t, f.logs.String(), "connection reset")
}

func TestProcessAOI_SubmissionFailureExcluded(t *testing.T) {
	f := newFixture(t, map[string][]reply{"t2016": {{status: model.StatusDone}}})
	f.client.submitErr["SMAP_Cerrado_2015-04-01_to_2015-12-31"] = errors.New("layers: required")

	summary, err := f.monitor.ProcessAOI(context.Background(), testAOI(), layers, twoChunks(t))
	require.Nil(t, err)
	assert.Equal(t, 1, summary.Submitted)
	assert.Equal(t, 1, summary.SubmissionFailures)
	assert.Equal(t, 1, summary.Done)
	assert.NotContains(t, f.client.polls, "t2015")
	assert.Contains(t, f.logs.String(), "layers: required")
}

func TestProcessAOI_CancelledWhileWaiting(t *testing.T) {
	f := newFixture(t, map[string][]reply{})
	ctx, cancel := context.WithCancel(context.Background())
	f.monitor.wait = func(ctx context.Context, d time.Duration) error {
		f.waits++
		cancel()
		return ctx.Err()
	}

	summary, err := f.monitor.ProcessAOI(ctx, testAOI(), layers, twoChunks(t))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 2, summary.Submitted)
	assert.Equal(t, 1, f.waits)
}

func TestRun_ProcessesEveryAOI(t *testing.T) {
	f := newFixture(t, map[string][]reply{"t2015": {{status: model.StatusDone}}, "t2016": {{status: model.StatusDone}}})
	other := testAOI()
	other.Name = "Pantanal"

	summaries, err := f.monitor.Run(context.Background(), []*model.AreaOfInterest{testAOI(), other}, layers, twoChunks(t))
	require.Nil(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "Pantanal", summaries[1].AOI)
	assert.Equal(t, 2, summaries[1].Files.Skipped+summaries[1].Files.Downloaded)
}

func TestWait(t *testing.T) {
	assert.Nil(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.Is(Wait(ctx, time.Hour), context.Canceled))
}
