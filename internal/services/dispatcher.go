package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const jobTimeout = 30 * time.Second

// Job is one unit of background work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Dispatcher executes jobs on a single worker in submission order.
// Because there is exactly one worker, a job enqueued after a store
// write has returned always observes that write. Job failures are
// logged and never propagate to the request path.
type Dispatcher struct {
	jobs   chan Job
	logger *logrus.Logger

	mu     sync.Mutex
	closed bool

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

func NewDispatcher(logger *logrus.Logger, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	return &Dispatcher{
		jobs:   make(chan Job, buffer),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the worker. Safe to call once.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		go d.loop()
	})
}

// Enqueue submits a job without blocking. A full queue drops the job
// with an error log; a stopped dispatcher drops it silently save for
// a warning.
func (d *Dispatcher) Enqueue(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.WithField("job", job.Name).Warn("dispatcher stopped, dropping job")
		return
	}
	select {
	case d.jobs <- job:
	default:
		d.logger.WithField("job", job.Name).Error("dispatcher queue full, dropping job")
	}
}

// Stop closes the queue and waits for queued jobs to drain or the
// context to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.jobs)
		d.mu.Unlock()
	})
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for job := range d.jobs {
		d.run(job)
	}
}

func (d *Dispatcher) run(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"job":      job.Name,
			"duration": time.Since(start),
		}).Error("background job failed")
		return
	}
	d.logger.WithFields(logrus.Fields{
		"job":      job.Name,
		"duration": time.Since(start),
	}).Debug("background job done")
}
