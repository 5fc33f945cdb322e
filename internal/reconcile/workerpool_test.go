package reconcile

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool(t *testing.T) {
	tests := []struct {
		name           string
		numTasks       int
		numWorkers     int
		expectedErrors int
	}{
		{
			name:       "Runs every task",
			numTasks:   5,
			numWorkers: 2,
		},
		{
			name:           "Failing task does not stop the pool",
			numTasks:       3,
			numWorkers:     2,
			expectedErrors: 1,
		},
		{
			name:       "Zero size still has one worker",
			numTasks:   2,
			numWorkers: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wp := NewWorkerPool(tt.numWorkers)
			defer wp.Close()

			var (
				executed atomic.Int64
				failed   atomic.Int64
				wg       sync.WaitGroup
			)
			for i := 0; i < tt.numTasks; i++ {
				wg.Add(1)
				i := i
				err := wp.AddTask(context.Background(), func() error {
					defer wg.Done()
					if i < tt.expectedErrors {
						failed.Add(1)
						return assert.AnError
					}
					time.Sleep(10 * time.Millisecond)
					executed.Add(1)
					return nil
				})
				require.NoError(t, err)
			}
			wg.Wait()

			assert.Equal(t, int64(tt.numTasks-tt.expectedErrors), executed.Load())
			assert.Equal(t, int64(tt.expectedErrors), failed.Load())
		})
	}
}

func TestWorkerPool_Closed(t *testing.T) {
	wp := NewWorkerPool(1)
	wp.Close()
	wp.Close()

	err := wp.AddTask(context.Background(), func() error {
		t.Error("task must not run")
		return nil
	})
	// The buffered channel may still accept the task; it is never run.
	if err != nil {
		assert.ErrorIs(t, err, ErrPoolClosed)
	}
}

func TestWorkerPool_CanceledContext(t *testing.T) {
	wp := NewWorkerPool(1)
	defer wp.Close()

	block := make(chan struct{})
	defer close(block)
	require.NoError(t, wp.AddTask(context.Background(), func() error { <-block; return nil }))
	require.NoError(t, wp.AddTask(context.Background(), func() error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := wp.AddTask(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
