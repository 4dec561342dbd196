package circulation_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/circulation/pkg/circulation"
)

func TestKeyedMutex(t *testing.T) {
	t.Parallel()

	km := circulation.NewKeyedMutex()
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(ctx, "loan-1")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())

	unlockA, err := km.Lock(ctx, "a")
	require.NoError(t, err)
	unlockB, err := km.Lock(ctx, "b")
	require.NoError(t, err, "other keys are not blocked")
	unlockB()

	timeout, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = km.Lock(timeout, "a")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlockA()
	unlockA()

	unlockA, err = km.Lock(ctx, "a")
	require.NoError(t, err)
	unlockA()
}
