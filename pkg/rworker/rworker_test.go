package rworker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunBounded(t *testing.T) {
	t.Parallel()
	pool := New(3)
	require.Equal(t, 3, pool.Size())

	var running, peak int64
	results := make([]int, 50)
	err := pool.Run(context.Background(), len(results), func(_ context.Context, i int) error {
		cur := atomic.AddInt64(&running, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
				break
			}
		}
		results[i] = i * i
		atomic.AddInt64(&running, -1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(3))
	for i := range results {
		assert.Equal(t, i*i, results[i])
	}
}

func TestPool_RunFailures(t *testing.T) {
	t.Parallel()
	errBoom := errors.New("boom")
	tests := []struct {
		name string
		run  func(context.Context, int, func(context.Context, int) error) error
	}{
		{name: "pool", run: New(2).Run},
		{name: "serial", run: Serial},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			var done int64
			err := test.run(context.Background(), 10, func(_ context.Context, i int) error {
				switch i {
				case 3:
					return errBoom
				case 7:
					panic("bad task")
				}
				atomic.AddInt64(&done, 1)
				return nil
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, errBoom)
			assert.Equal(t, int64(8), atomic.LoadInt64(&done))

			failures := Failures(err)
			require.Len(t, failures, 2)
			indexes := map[int]bool{}
			for _, f := range failures {
				indexes[f.Index] = true
			}
			assert.True(t, indexes[3])
			assert.True(t, indexes[7])
		})
	}
}

func TestDefault(t *testing.T) {
	t.Parallel()
	assert.Same(t, Default(), Default())
	assert.Greater(t, Default().Size(), 0)
	assert.Nil(t, Failures(nil))
}
