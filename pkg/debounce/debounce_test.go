package debounce_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/debounce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_CoalescesBurst(t *testing.T) {
	d := debounce.New(20 * time.Millisecond)
	var runs atomic.Int32
	boom := errors.New("last")

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = d.Do(context.Background(), func(context.Context) error {
				runs.Add(1)
				return boom
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), runs.Load())
	for _, err := range errs {
		assert.ErrorIs(t, err, boom)
	}
}

func TestDo_RunsLatest(t *testing.T) {
	d := debounce.New(10 * time.Millisecond)
	var got atomic.Int32

	d.Schedule(context.Background(), func(context.Context) error { got.Store(1); return nil })
	err := d.Do(context.Background(), func(context.Context) error { got.Store(2); return nil })

	require.NoError(t, err)
	assert.Equal(t, int32(2), got.Load())
	assert.False(t, d.Pending())
}

func TestDo_SeparateWindows(t *testing.T) {
	d := debounce.New(5 * time.Millisecond)
	runs := 0
	fn := func(context.Context) error { runs++; return nil }

	require.NoError(t, d.Do(context.Background(), fn))
	require.NoError(t, d.Do(context.Background(), fn))

	assert.Equal(t, 2, runs)
}

func TestCancel(t *testing.T) {
	d := debounce.New(time.Hour)
	done := make(chan error, 1)
	go func() {
		done <- d.Do(context.Background(), func(context.Context) error { return nil })
	}()

	assert.Eventually(t, d.Pending, time.Second, time.Millisecond)
	d.Cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, debounce.ErrCanceled)
	case <-time.After(time.Second):
		t.Fatal("waiter not released")
	}
}

func TestDo_ContextDone(t *testing.T) {
	d := debounce.New(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := d.Do(ctx, func(context.Context) error { return nil })

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	d.Cancel()
}
