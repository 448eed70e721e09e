package backtest

import (
	"context"
	"runtime"
	"sync"

	"marketflow/internal/config"
	"marketflow/internal/exchange"
)

// Job is one parameter set queued for execution against a shared dataset.
type Job struct {
	ID     string
	Config config.Config
}

// WorkerPool runs backtest jobs in parallel. Every worker replays the same
// dataset; configurations are what vary between jobs.
type WorkerPool struct {
	workerCount int
	ticks       []exchange.Tick
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewWorkerPool creates a pool over the given dataset. A non-positive
// workerCount defaults to the CPU count.
func NewWorkerPool(ctx context.Context, workerCount, jobBufferSize int, ticks []exchange.Tick) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	poolCtx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workerCount: workerCount,
		ticks:       ticks,
		jobQueue:    make(chan Job, jobBufferSize),
		resultQueue: make(chan Result, jobBufferSize),
		ctx:         poolCtx,
		cancel:      cancel,
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop drains the queue, waits for the workers and closes the result
// channel.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit queues a job. It fails only when the pool context has ended.
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Results returns the channel completed jobs arrive on.
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}
			result := Run(job.Config, wp.ticks)
			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}
		case <-wp.ctx.Done():
			return
		}
	}
}
