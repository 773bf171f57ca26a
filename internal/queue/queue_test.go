package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobQueueEnqueueDequeue(t *testing.T) {
	q := NewJobQueue(2)

	require.NoError(t, q.Enqueue(&PipelineJob{SiteID: "a"}))
	require.NoError(t, q.Enqueue(&PipelineJob{SiteID: "b"}))

	assert.Equal(t, "a", q.Dequeue().SiteID)
	assert.Equal(t, "b", q.Dequeue().SiteID)
}

func TestJobQueueClosed(t *testing.T) {
	q := NewJobQueue(0)
	q.Close()
	q.Close()

	assert.ErrorIs(t, q.Enqueue(&PipelineJob{SiteID: "late"}), ErrQueueClosed)
}

func TestWorkerPoolProcessesAllJobs(t *testing.T) {
	q := NewJobQueue(10)
	pool := NewWorkerPool(q, 3)

	var mu sync.Mutex
	seen := map[string]bool{}
	pool.Start(func(job *PipelineJob) error {
		mu.Lock()
		defer mu.Unlock()
		seen[job.SiteID] = true
		return nil
	})

	for _, id := range []string{"s1", "s2", "s3", "s4", "s5"} {
		require.NoError(t, q.Enqueue(&PipelineJob{SiteID: id}))
	}
	q.Close()
	pool.Wait()

	assert.Len(t, seen, 5)
}

func TestJobQueueFull(t *testing.T) {
	q := NewJobQueue(1)

	require.NoError(t, q.Enqueue(&PipelineJob{SiteID: "first"}))
	assert.ErrorIs(t, q.Enqueue(&PipelineJob{SiteID: "second"}), ErrQueueFull)
}
