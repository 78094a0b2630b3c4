package runner

import (
	"context"
	"fmt"

	"blobcache/internal/core/logger"
	"blobcache/internal/core/tracker"
)

// JobHandler implements the job's behavior.
type JobHandler func(ctx context.Context, job *Job) error

// JobCallback is called when the job is done.
type JobCallback func(ctx context.Context, job *Job)

// JobOption is an option for a job.
type JobOption func(job *Job)

// WithJobLogger is an option for a job to set the logger.
func WithJobLogger(logger *logger.Logger) JobOption {
	return func(j *Job) {
		j.logger = logger
	}
}

// WithJobCallback is an option for a job to set the callback.
func WithJobCallback(callback JobCallback) JobOption {
	return func(j *Job) {
		j.callback = callback
	}
}

// Job is a unit of transfer work executed by a pool worker.
type Job struct {
	logger   *logger.Logger
	tracker  *tracker.Tracker
	name     string
	callback JobCallback
	handler  JobHandler
}

// NewJob creates a new job with a name and a handler.
func NewJob(name string, handler JobHandler, opts ...JobOption) *Job {
	j := &Job{
		logger:  logger.NewLogger(logger.WithName(name)),
		tracker: tracker.NewTracker(name),
		name:    name,
		handler: handler,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Name returns the name of the job.
func (j *Job) Name() string {
	return j.name
}

// Run runs the job handler.
func (j *Job) Run(ctx context.Context) error {
	if !j.tracker.IsPending() {
		return fmt.Errorf("job already started")
	}
	j.tracker.Start()

	err := j.handler(ctx, j)
	j.tracker.Update(err)

	if j.callback != nil {
		j.callback(ctx, j)
	}
	return err
}

// Tracker returns the tracker of the job.
func (j *Job) Tracker() *tracker.Tracker {
	return j.tracker
}

// Logger returns the logger of the job.
func (j *Job) Logger() *logger.Logger {
	return j.logger
}
