package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolExecute(t *testing.T) {
	pool := NewPool(2)
	boom := errors.New("boom")

	tasks := []Task{
		{Name: "one", Execute: func(ctx context.Context) (any, error) { return 1, nil }},
		{Name: "two", Execute: func(ctx context.Context) (any, error) { return "two", nil }},
		{Name: "fails", Execute: func(ctx context.Context) (any, error) { return nil, boom }},
		{Name: "panics", Execute: func(ctx context.Context) (any, error) { panic("bad task") }},
	}

	results := pool.Execute(context.Background(), tasks)
	require.Len(t, results, 4)
	assert.Equal(t, 1, results["one"].Data)
	assert.Equal(t, "two", results["two"].Data)
	assert.ErrorIs(t, results["fails"].Err, boom)
	assert.ErrorContains(t, results["panics"].Err, "panicked")
}

func TestPoolIsReusable(t *testing.T) {
	pool := NewPool(3)
	task := []Task{{Name: "x", Execute: func(ctx context.Context) (any, error) { return true, nil }}}

	for i := 0; i < 3; i++ {
		results := pool.Execute(context.Background(), task)
		assert.Equal(t, true, results["x"].Data)
	}
	assert.Empty(t, pool.Execute(context.Background(), nil))
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool(2)
	var running, peak int32

	tasks := make([]Task, 6)
	for i := range tasks {
		tasks[i] = Task{Name: string(rune('a' + i)), Execute: func(ctx context.Context) (any, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil, nil
		}}
	}

	results := pool.Execute(context.Background(), tasks)
	assert.Len(t, results, 6)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPoolCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewPool(1).Execute(ctx, []Task{
		{Name: "a", Execute: func(ctx context.Context) (any, error) { return nil, ctx.Err() }},
		{Name: "b", Execute: func(ctx context.Context) (any, error) { return nil, ctx.Err() }},
	})
	require.Len(t, results, 2)
	assert.ErrorIs(t, results["a"].Err, context.Canceled)
	assert.ErrorIs(t, results["b"].Err, context.Canceled)
}
