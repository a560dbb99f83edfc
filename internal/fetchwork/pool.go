// Package fetchwork bounds concurrent profile retrievals behind a
// worker pool so the HTTP layer cannot stampede the upstream site no
// matter how many requests arrive at once.
package fetchwork

import (
	"context"
	"fmt"
	"sync"
	"time"

	"igprofile/pkg/instagram"
	"igprofile/pkg/logger"
)

// Fetcher retrieves a single profile
type Fetcher interface {
	FetchProfile(ctx context.Context, username string) (*instagram.Profile, error)
}

// Job is one queued retrieval. The reply channel carries exactly one
// Result and is closed by the worker.
type Job struct {
	Username string
	Ctx      context.Context
	reply    chan Result
}

// Result is the outcome of one retrieval job
type Result struct {
	Profile  *instagram.Profile
	Err      error
	Duration time.Duration
}

// Pool manages the retrieval workers
type Pool struct {
	numWorkers int
	jobQueue   chan Job
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	fetcher    Fetcher
	logger     logger.Logger
}

// NewPool creates a retrieval worker pool
func NewPool(numWorkers int, fetcher Fetcher, log logger.Logger) *Pool {
	if log == nil {
		log = logger.GetLogger()
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job, numWorkers*2),
		ctx:        ctx,
		cancel:     cancel,
		fetcher:    fetcher,
		logger:     log,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	p.logger.InfoWithFields("starting retrieval workers", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop drains the queue and shuts the workers down
func (p *Pool) Stop() {
	close(p.jobQueue)
	p.wg.Wait()
	p.cancel()
	p.logger.Info("retrieval workers stopped")
}

// Fetch queues a retrieval and blocks until its result is ready or the
// caller's context ends.
func (p *Pool) Fetch(ctx context.Context, username string) (*instagram.Profile, error) {
	job := Job{
		Username: username,
		Ctx:      ctx,
		reply:    make(chan Result, 1),
	}

	select {
	case p.jobQueue <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, fmt.Errorf("retrieval pool is shutting down")
	}

	select {
	case result := <-job.reply:
		return result.Profile, result.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// QueueSize returns the number of jobs waiting for a worker
func (p *Pool) QueueSize() int {
	return len(p.jobQueue)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		start := time.Now()
		profile, err := p.fetcher.FetchProfile(job.Ctx, job.Username)
		duration := time.Since(start)

		if err != nil {
			p.logger.DebugWithFields("retrieval job failed", map[string]interface{}{
				"worker_id": id,
				"username":  job.Username,
				"error":     err.Error(),
				"duration":  duration,
			})
		} else {
			p.logger.DebugWithFields("retrieval job completed", map[string]interface{}{
				"worker_id": id,
				"username":  job.Username,
				"duration":  duration,
			})
		}

		job.reply <- Result{Profile: profile, Err: err, Duration: duration}
		close(job.reply)
	}
}
