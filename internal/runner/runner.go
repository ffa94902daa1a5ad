package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Result captures execution summary.
type Result struct {
	Total    int64
	Errors   int64
	Aborted  bool
	Duration time.Duration
}

// Runner repeats one call across a pool of workers.
type Runner struct {
	opt Options
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// Run blocks until the count is reached, the duration elapses, ctx is canceled or the
// Abort predicate fires.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	var total, errs int64
	var aborted atomic.Bool

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if r.opt.Duration > 0 {
		deadlineCtx, deadlineCancel := context.WithTimeout(ctx, r.opt.Duration)
		ctx = deadlineCtx
		defer deadlineCancel()
	}

	permits := make(chan struct{}, r.opt.Concurrency)

	// Scheduler: hands out exactly TotalRequests permits so workers never overshoot.
	go func() {
		defer close(permits)
		for {
			if ctx.Err() != nil {
				return
			}
			if r.opt.TotalRequests > 0 && atomic.LoadInt64(&total) >= int64(r.opt.TotalRequests) {
				return
			}
			atomic.AddInt64(&total, 1)
			select {
			case permits <- struct{}{}:
			case <-ctx.Done():
				atomic.AddInt64(&total, -1)
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(r.opt.Concurrency)
	for i := 0; i < r.opt.Concurrency; i++ {
		go func() {
			defer wg.Done()
			for range permits {
				if r.opt.Requester != nil {
					if err := r.opt.Requester.Do(ctx); err != nil {
						atomic.AddInt64(&errs, 1)
						if r.opt.Abort != nil && r.opt.Abort(err) {
							aborted.Store(true)
							cancel()
						}
					}
				}
				if ctx.Err() != nil {
					return
				}
			}
		}()
	}
	wg.Wait()

	// Permits still buffered when the run stopped were never executed.
	for range permits {
		atomic.AddInt64(&total, -1)
	}

	return Result{
		Total:    atomic.LoadInt64(&total),
		Errors:   atomic.LoadInt64(&errs),
		Aborted:  aborted.Load(),
		Duration: time.Since(start),
	}
}
