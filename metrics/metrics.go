package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alecsandermergen11/SMAP-auto-download/model"
)

// File results, used as the "result" label of smap_files_total.
const (
	FileDownloaded = "downloaded"
	FileSkipped    = "skipped"
	FileFailed     = "failed"
	FileMirrored   = "mirrored"
)

// Recorder holds the run's collectors on a private registry. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	Registry *prometheus.Registry

	submitted          prometheus.Counter
	submissionFailures prometheus.Counter
	outcomes           *prometheus.CounterVec
	pollErrors         prometheus.Counter
	active             prometheus.Gauge
	files              *prometheus.CounterVec
	bytes              prometheus.Counter
}

// NewRecorder creates and registers every collector.
func NewRecorder() *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smap_tasks_submitted_total",
			Help: "Tasks accepted by AppEEARS.",
		}),
		submissionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smap_submission_failures_total",
			Help: "Chunks whose task submission failed.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smap_task_outcomes_total",
			Help: "Tasks that reached a terminal status.",
		}, []string{"status"}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smap_poll_errors_total",
			Help: "Status queries that failed and were retried next round.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smap_active_tasks",
			Help: "Tasks still being monitored.",
		}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smap_files_total",
			Help: "Bundle files by what was done with them.",
		}, []string{"result"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smap_downloaded_bytes_total",
			Help: "Bytes written to disk.",
		}),
	}
	r.Registry.MustRegister(r.submitted, r.submissionFailures, r.outcomes, r.pollErrors, r.active, r.files, r.bytes)
	return r
}

// Submitted counts one accepted task.
func (r *Recorder) Submitted() {
	if r == nil {
		return
	}
	r.submitted.Inc()
	r.active.Inc()
}

// SubmissionFailed counts one rejected chunk.
func (r *Recorder) SubmissionFailed() {
	if r == nil {
		return
	}
	r.submissionFailures.Inc()
}

// Finished counts a task leaving the active set with status.
func (r *Recorder) Finished(status model.TaskStatus) {
	if r == nil {
		return
	}
	r.outcomes.WithLabelValues(string(status)).Inc()
	r.active.Dec()
}

// PollFailed counts one failed status query.
func (r *Recorder) PollFailed() {
	if r == nil {
		return
	}
	r.pollErrors.Inc()
}

// Files adds n files with result.
func (r *Recorder) Files(result string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.files.WithLabelValues(result).Add(float64(n))
}

// Bytes adds n downloaded bytes.
func (r *Recorder) Bytes(n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.bytes.Add(float64(n))
}

// NewRouter serves a health check on / and the registry on /metrics.
func NewRouter(r *Recorder) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte("OK"))
	})
	router.Handle("/metrics", promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{}))
	return router
}
