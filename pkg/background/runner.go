// Package background runs fire-and-forget side effects whose failures must be
// observed but never reach the caller.
package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultMaxConcurrent = 32
)

// ErrStopped is logged when a task is submitted after Shutdown.
var ErrStopped = errors.New("background runner stopped")

// Task is a unit of side-effect work.
type Task func(ctx context.Context) error

// Options tunes a Runner.
type Options struct {
	// Timeout bounds every task; zero uses 10s.
	Timeout time.Duration
	// MaxConcurrent caps tasks running at once; zero uses 32.
	MaxConcurrent int64
}

// Runner executes tasks on their own goroutines with a context detached from
// the caller, so a finished HTTP request does not cancel its side effects.
type Runner struct {
	logg    *logger.Logger
	metrics *metrics.Storefront
	timeout time.Duration
	sem     *semaphore.Weighted

	// mu orders the stopped check and wg.Add in Go against Shutdown, which
	// sets stopped under mu before it waits.
	mu      sync.Mutex
	wg      sync.WaitGroup
	stopped bool
}

func NewRunner(logg *logger.Logger, m *metrics.Storefront, opts Options) *Runner {
	if logg == nil {
		logg = logger.Nop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	return &Runner{
		logg:    logg,
		metrics: m,
		timeout: opts.Timeout,
		sem:     semaphore.NewWeighted(opts.MaxConcurrent),
	}
}

// Go schedules task and returns immediately. Errors and panics are logged and
// counted under name.
func (r *Runner) Go(ctx context.Context, name string, task Task) {
	ctx = r.logg.WithField(context.WithoutCancel(ctx), "task", name)
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		r.fail(ctx, name, ErrStopped)
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		runCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		if err := r.sem.Acquire(runCtx, 1); err != nil {
			r.fail(ctx, name, fmt.Errorf("waiting for a task slot: %w", err))
			return
		}
		defer r.sem.Release(1)

		started := time.Now()
		err := r.run(runCtx, task)
		r.metrics.ObserveTask(name, time.Since(started))
		if err != nil {
			r.fail(ctx, name, err)
		}
	}()
}

func (r *Runner) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return task(ctx)
}

func (r *Runner) fail(ctx context.Context, name string, err error) {
	r.metrics.IncTaskFailure(name)
	r.logg.Error(ctx, "background task failed", err)
}

// Shutdown stops accepting tasks and waits for running ones until ctx ends.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}
