// Package rworker provides a bounded worker pool shared by every detector in
// the process. The pool is sized once; concurrent Run calls compete for the
// same slots.
package rworker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// TaskError reports the failure of a single task.
type TaskError struct {
	Index int
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %d: %v", e.Index, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

var (
	defaultPool     *Pool
	defaultPoolOnce sync.Once
)

// Default returns the process wide pool sized to GOMAXPROCS.
func Default() *Pool {
	defaultPoolOnce.Do(func() {
		defaultPool = New(runtime.GOMAXPROCS(0))
	})
	return defaultPool
}

// New creates a pool running at most size tasks at once. A non-positive size
// falls back to GOMAXPROCS.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{size: size, rate: semaphore.NewWeighted(int64(size))}
}

type Pool struct {
	size int
	rate *semaphore.Weighted
}

func (p *Pool) Size() int { return p.size }

// Run executes fn for every index in [0, n) and waits for all of them. Tasks
// must not call Run on the same pool. A failing or panicking task does not
// stop the others; every failure is returned as a *TaskError joined into the
// result.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	var (
		wg   sync.WaitGroup
		mtx  sync.Mutex
		errs []error
	)
	fail := func(i int, err error) {
		mtx.Lock()
		errs = append(errs, &TaskError{Index: i, Err: err})
		mtx.Unlock()
	}

	for i := 0; i < n; i++ {
		if err := p.rate.Acquire(ctx, 1); err != nil {
			fail(i, err)
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer p.rate.Release(1)
			if err := safeCall(ctx, i, fn); err != nil {
				fail(i, err)
			}
		}(i)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Serial runs fn for every index on the calling goroutine with the same
// failure semantics as Run.
func Serial(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	var errs []error
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			errs = append(errs, &TaskError{Index: i, Err: err})
			continue
		}
		if err := safeCall(ctx, i, fn); err != nil {
			errs = append(errs, &TaskError{Index: i, Err: err})
		}
	}
	return errors.Join(errs...)
}

func safeCall(ctx context.Context, i int, fn func(ctx context.Context, i int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, i)
}

// Failures extracts the task errors joined by Run or Serial.
func Failures(err error) []*TaskError {
	if err == nil {
		return nil
	}
	var list []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		list = joined.Unwrap()
	} else {
		list = []error{err}
	}
	failures := make([]*TaskError, 0, len(list))
	for _, e := range list {
		var te *TaskError
		if errors.As(e, &te) {
			failures = append(failures, te)
		}
	}
	return failures
}
