package decision

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arhipvp/docrouter/internal/domain"
)

func pending(id string) *domain.PendingDecision {
	return &domain.PendingDecision{
		RequestID:       id,
		ResumeURL:       "http://localhost/resume",
		FolderEndpoints: []string{"a/b/c/d"},
	}
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(pending(fmt.Sprintf("req-%d", i))))
	}
	require.Equal(t, 10, q.Len())

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		d, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("req-%d", i), d.RequestID)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueueEnqueueNeverBlocks(t *testing.T) {
	q := NewQueue()

	// No consumer at all; every enqueue must return immediately.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_ = q.Enqueue(pending(fmt.Sprintf("req-%d", i)))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("enqueue blocked without a consumer")
	}
	assert.Equal(t, 1000, q.Len())
}

func TestQueueDequeueBlocksUntilItemArrives(t *testing.T) {
	q := NewQueue()

	got := make(chan *domain.PendingDecision, 1)
	go func() {
		d, err := q.Dequeue(context.Background())
		if err == nil {
			got <- d
		}
	}()

	// Give the consumer a moment to park on the empty queue.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, q.Enqueue(pending("late-arrival")))

	select {
	case d := <-got:
		assert.Equal(t, "late-arrival", d.RequestID)
	case <-time.After(5 * time.Second):
		t.Fatal("dequeue did not wake up after enqueue")
	}
}

func TestQueueDequeueRespectsContext(t *testing.T) {
	q := NewQueue()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueCloseRejectsProducersButDrainsBacklog(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.Enqueue(pending("before-close")))

	q.Close()

	assert.ErrorIs(t, q.Enqueue(pending("after-close")), ErrQueueClosed)

	d, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "before-close", d.RequestID)

	_, err = q.Dequeue(context.Background())
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue()

	var wg sync.WaitGroup
	producers, perProducer := 8, 25
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				assert.NoError(t, q.Enqueue(pending(fmt.Sprintf("p%d-i%d", p, i))))
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[string]bool)
	ctx := context.Background()
	for i := 0; i < producers*perProducer; i++ {
		d, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.False(t, seen[d.RequestID], "decision %s delivered twice", d.RequestID)
		seen[d.RequestID] = true
	}
	assert.Equal(t, 0, q.Len())
}
