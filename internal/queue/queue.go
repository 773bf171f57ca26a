package queue

import (
	"sync"

	"github.com/imyashkale/sitebuilder/internal/logger"
	"github.com/imyashkale/sitebuilder/internal/metrics"
)

// PipelineJob is a queued first-time site generation
type PipelineJob struct {
	SiteID            string
	Document          string
	OwnerID           string
	ExistingProjectID string
	WaitForReady      bool
}

// JobQueue manages the job queue with a channel-based system
type JobQueue struct {
	jobs   chan *PipelineJob
	closed bool
	mu     sync.Mutex
}

// NewJobQueue creates a new job queue with the specified buffer size
func NewJobQueue(bufferSize int) *JobQueue {
	return &JobQueue{
		jobs: make(chan *PipelineJob, bufferSize),
	}
}

// Enqueue adds a job to the queue without blocking.
// It fails with ErrQueueFull when the buffer is full and ErrQueueClosed after Close.
func (jq *JobQueue) Enqueue(job *PipelineJob) error {
	logger.WithFields(map[string]interface{}{
		"site_id":  job.SiteID,
		"owner_id": job.OwnerID,
	}).Debug("Enqueueing pipeline job")

	jq.mu.Lock()
	defer jq.mu.Unlock()

	if jq.closed {
		logger.WithFields(map[string]interface{}{
			"site_id": job.SiteID,
		}).Warn("Failed to enqueue job: queue is closed")
		return ErrQueueClosed
	}

	select {
	case jq.jobs <- job:
		logger.WithFields(map[string]interface{}{
			"site_id": job.SiteID,
		}).Info("Pipeline job enqueued successfully")
		return nil
	default:
		logger.WithFields(map[string]interface{}{
			"site_id": job.SiteID,
		}).Warn("Failed to enqueue job: queue is full")
		return ErrQueueFull
	}
}

// Dequeue retrieves the next job from the queue
// Returns nil if the queue is closed
func (jq *JobQueue) Dequeue() *PipelineJob {
	return <-jq.jobs
}

// Close closes the queue
func (jq *JobQueue) Close() {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	if jq.closed {
		return
	}
	jq.closed = true
	close(jq.jobs)
}

// WorkerPool manages multiple workers processing jobs
type WorkerPool struct {
	queue   *JobQueue
	workers int
	jobs    chan *PipelineJob
	wg      sync.WaitGroup
	done    chan bool
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(queue *JobQueue, numWorkers int) *WorkerPool {
	return &WorkerPool{
		queue:   queue,
		workers: numWorkers,
		jobs:    queue.jobs,
		done:    make(chan bool),
	}
}

// Start starts all workers
func (wp *WorkerPool) Start(handler func(*PipelineJob) error) {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(handler)
	}
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(handler func(*PipelineJob) error) {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobs:
			if !ok {
				logger.Debug("Worker exiting: jobs channel closed")
				return
			}
			if job != nil {
				logger.WithFields(map[string]interface{}{
					"site_id":  job.SiteID,
					"owner_id": job.OwnerID,
				}).Info("Worker processing pipeline job")

				metrics.ActiveJobs.Inc()
				err := handler(job)
				metrics.ActiveJobs.Dec()
				if err != nil {
					logger.WithFields(map[string]interface{}{
						"site_id": job.SiteID,
						"error":   err.Error(),
					}).Error("Worker failed to process pipeline job")
				} else {
					logger.WithFields(map[string]interface{}{
						"site_id": job.SiteID,
					}).Info("Worker completed pipeline job successfully")
				}
			}
		case <-wp.done:
			logger.Debug("Worker exiting: stop signal received")
			return
		}
	}
}

// Stop stops all workers
func (wp *WorkerPool) Stop() {
	close(wp.done)
	wp.wg.Wait()
}

// Wait waits for all workers to finish
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}
