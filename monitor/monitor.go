// Package monitor drives one run: it submits a task per date chunk of each
// area of interest, polls the tasks in rounds and downloads what finishes.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/alecsandermergen11/SMAP-auto-download/appeears"
	"github.com/alecsandermergen11/SMAP-auto-download/download"
	"github.com/alecsandermergen11/SMAP-auto-download/ledger"
	"github.com/alecsandermergen11/SMAP-auto-download/metrics"
	"github.com/alecsandermergen11/SMAP-auto-download/model"
	"github.com/alecsandermergen11/SMAP-auto-download/ui"
	"github.com/alecsandermergen11/SMAP-auto-download/util"
)

// Client is the part of the AppEEARS API the monitor needs.
type Client interface {
	SubmitTask(ctx context.Context, req appeears.TaskRequest) (string, error)
	TaskStatus(ctx context.Context, taskID string) (appeears.TaskStatus, error)
	Bundle(ctx context.Context, taskID string) (appeears.Bundle, error)
}

// Summary is the outcome of one AOI.
type Summary struct {
	AOI                string
	Submitted          int
	Done               int
	Failed             int
	SubmissionFailures int
	Files              download.Result
}

func (s Summary) String() string {
	return fmt.Sprintf("AOI %s: %d submitted, %d done, %d failed, %d submission failures; files: %d downloaded, %d skipped, %d failed",
		s.AOI, s.Submitted, s.Done, s.Failed, s.SubmissionFailures, s.Files.Downloaded, s.Files.Skipped, s.Files.Failed)
}

// Monitor runs the submit / poll / download cycle. Ledger, Metrics and
// Progress are optional.
type Monitor struct {
	Client       Client
	Downloader   *download.Downloader
	Ledger       ledger.Ledger
	Metrics      *metrics.Recorder
	Progress     ui.Progress
	PollInterval time.Duration
	Log          util.LogContext

	wait func(ctx context.Context, d time.Duration) error
	now  func() time.Time
}

// New returns a Monitor polling every cfg.PollInterval.
func New(cfg util.Config, client Client, downloader *download.Downloader, log util.LogContext) *Monitor {
	return &Monitor{
		Client:       client,
		Downloader:   downloader,
		PollInterval: cfg.PollInterval,
		Log:          log,
	}
}

// Run processes the AOIs one after the other. It stops early only when ctx
// is cancelled.
func (m *Monitor) Run(ctx context.Context, aois []*model.AreaOfInterest, layers []model.Layer, chunks []model.DateChunk) ([]Summary, error) {
	var summaries []Summary
	for _, aoi := range aois {
		summary, err := m.ProcessAOI(ctx, aoi, layers, chunks)
		summaries = append(summaries, summary)
		if err != nil {
			return summaries, err
		}
	}
	return summaries, nil
}

// ProcessAOI submits every chunk of aoi and returns once all accepted tasks
// are done or failed.
func (m *Monitor) ProcessAOI(ctx context.Context, aoi *model.AreaOfInterest, layers []model.Layer, chunks []model.DateChunk) (Summary, error) {
	summary := Summary{AOI: aoi.Name}
	util.LogInfo(m.Log, fmt.Sprintf("Processing AOI %s (%d chunks)", aoi.Name, len(chunks)))

	tasks := m.Submit(ctx, aoi, layers, chunks)
	summary.Submitted = len(tasks)
	summary.SubmissionFailures = len(chunks) - len(tasks)

	err := m.Watch(ctx, tasks, &summary)
	util.LogInfo(m.Log, summary.String())
	return summary, err
}

// Submit creates one task per chunk. Chunks whose submission fails are
// logged and left out of the result.
func (m *Monitor) Submit(ctx context.Context, aoi *model.AreaOfInterest, layers []model.Layer, chunks []model.DateChunk) []*model.Task {
	var tasks []*model.Task
	for _, chunk := range chunks {
		if ctx.Err() != nil {
			break
		}
		req := appeears.NewTaskRequest(aoi, layers, chunk)
		id, err := m.Client.SubmitTask(ctx, req)
		if err != nil {
			util.LogAlert(m.Log, fmt.Sprintf("Skipping %s: submission failed: %v", req.TaskName, err))
			m.Metrics.SubmissionFailed()
			continue
		}
		task := &model.Task{
			ID:          id,
			Name:        req.TaskName,
			AOI:         aoi.Name,
			Chunk:       chunk,
			Status:      model.StatusPending,
			SubmittedAt: m.clock(),
		}
		util.LogInfo(m.Log, fmt.Sprintf("Submitted task %s (%s)", task.ID, task.Name))
		m.Metrics.Submitted()
		if m.Ledger != nil {
			if err = m.Ledger.RecordSubmission(ctx, *task); err != nil {
				util.LogAlert(m.Log, fmt.Sprintf("Task %s not recorded: %v", task.ID, err))
			}
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// Watch polls tasks in rounds until none is left. Every task is queried once
// per round; a round that leaves tasks behind is followed by PollInterval of
// waiting. Only a cancelled ctx ends Watch early.
func (m *Monitor) Watch(ctx context.Context, tasks []*model.Task, summary *Summary) error {
	if len(tasks) == 0 {
		return nil
	}
	var bar ui.Bar
	if m.Progress != nil {
		bar = m.Progress.Count(len(tasks), "Tasks "+tasks[0].AOI)
		defer bar.Finish()
	}

	active := tasks
	for round := 1; len(active) > 0; round++ {
		var remaining []*model.Task
		for _, task := range active {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !m.check(ctx, task, summary) {
				remaining = append(remaining, task)
				continue
			}
			if bar != nil {
				bar.Add(1)
			}
		}
		active = remaining
		if len(active) == 0 {
			break
		}
		util.LogInfo(m.Log, fmt.Sprintf("Round %d: %d tasks pending, checking again in %v", round, len(active), m.PollInterval))
		if err := m.sleep(ctx, m.PollInterval); err != nil {
			return err
		}
	}
	return nil
}

// check polls task once and reports whether it left the active set.
func (m *Monitor) check(ctx context.Context, task *model.Task, summary *Summary) bool {
	status, err := m.Client.TaskStatus(ctx, task.ID)
	if err != nil {
		if ctx.Err() == nil {
			util.LogAlert(m.Log, fmt.Sprintf("Status of task %s unavailable, retrying next round: %v", task.ID, err))
			m.Metrics.PollFailed()
		}
		return false
	}
	if status.Status != task.Status || status.Message != task.Message {
		task.Status = status.Status
		task.Message = status.Message
		m.record(ctx, task)
	}

	switch status.Status {
	case model.StatusDone:
		util.LogInfo(m.Log, fmt.Sprintf("Task %s (%s) is done", task.ID, task.Name))
		summary.Done++
		m.Metrics.Finished(model.StatusDone)
		summary.Files.Add(m.download(ctx, task))
		return true
	case model.StatusFailed:
		util.LogAlert(m.Log, fmt.Sprintf("Task %s (%s) failed: %s", task.ID, task.Name, status.Message))
		summary.Failed++
		m.Metrics.Finished(model.StatusFailed)
		return true
	}
	return false
}

// download fetches the files of a done task. A bundle that cannot be listed
// counts as one failed file; the task is not polled again.
func (m *Monitor) download(ctx context.Context, task *model.Task) download.Result {
	bundle, err := m.Client.Bundle(ctx, task.ID)
	if err != nil {
		util.LogSimpleErr(m.Log, fmt.Sprintf("Failed to list files of task %s", task.ID), err)
		m.Metrics.Files(metrics.FileFailed, 1)
		return download.Result{Failed: 1}
	}
	result := m.Downloader.DownloadFiles(ctx, *task, bundle.Files)
	util.LogInfo(m.Log, fmt.Sprintf("Task %s: %d downloaded, %d skipped, %d failed into %s",
		task.ID, result.Downloaded, result.Skipped, result.Failed, m.Downloader.PeriodDir(*task)))

	m.Metrics.Files(metrics.FileDownloaded, result.Downloaded)
	m.Metrics.Files(metrics.FileSkipped, result.Skipped)
	m.Metrics.Files(metrics.FileFailed, result.Failed)
	m.Metrics.Files(metrics.FileMirrored, result.Mirrored)
	m.Metrics.Bytes(result.Bytes)
	return result
}

func (m *Monitor) record(ctx context.Context, task *model.Task) {
	if m.Ledger == nil {
		return
	}
	if err := m.Ledger.RecordStatus(ctx, task.ID, task.Status, task.Message); err != nil {
		util.LogAlert(m.Log, fmt.Sprintf("Status of task %s not recorded: %v", task.ID, err))
	}
}

func (m *Monitor) sleep(ctx context.Context, d time.Duration) error {
	if m.wait != nil {
		return m.wait(ctx, d)
	}
	return Wait(ctx, d)
}

func (m *Monitor) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
