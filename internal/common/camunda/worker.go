// internal/common/camunda/worker.go
package camunda

import (
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"
)

type HandlerFunc func(client worker.JobClient, job entities.Job)

type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

// Workers keeps the job workers opened on one client so they can be closed
// together on shutdown.
type Workers struct {
	client *Client
	logger *zap.Logger

	mu      sync.Mutex
	workers map[string]worker.JobWorker
}

func NewWorkers(client *Client, log *zap.Logger) *Workers {
	return &Workers{
		client:  client,
		logger:  log,
		workers: make(map[string]worker.JobWorker),
	}
}

// Open starts polling for opts.TaskType. A second Open for the same task type
// replaces the first worker.
func (w *Workers) Open(opts WorkerOptions, handler HandlerFunc) {
	jobWorker := w.client.Zeebe().NewJobWorker().
		JobType(opts.TaskType).
		Handler(worker.JobHandler(handler)).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		Open()

	w.mu.Lock()
	if previous, ok := w.workers[opts.TaskType]; ok {
		previous.Close()
	}
	w.workers[opts.TaskType] = jobWorker
	w.mu.Unlock()

	w.logger.Info("worker started",
		zap.String("taskType", opts.TaskType),
		zap.Int("maxJobsActive", opts.MaxJobsActive),
		zap.Duration("timeout", opts.Timeout),
	)
}

func (w *Workers) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.workers)
}

// Close stops every worker and waits for in-flight jobs to return.
func (w *Workers) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for taskType, jobWorker := range w.workers {
		w.logger.Info("stopping worker", zap.String("taskType", taskType))
		jobWorker.Close()
		jobWorker.AwaitClose()
	}
	w.workers = make(map[string]worker.JobWorker)
}
