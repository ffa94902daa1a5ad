package runner

import (
	"context"
	"time"
)

// Requester abstracts executing a single call. Implementations return an error for a
// failed call.
type Requester interface {
	Do(ctx context.Context) error
}

// RequesterFunc adapts a function to Requester.
type RequesterFunc func(ctx context.Context) error

func (f RequesterFunc) Do(ctx context.Context) error {
	return f(ctx)
}

// Options configure the Runner.
type Options struct {
	Concurrency   int           // number of worker goroutines
	TotalRequests int           // calls to execute (0 means until Duration or cancellation)
	Duration      time.Duration // overall time limit (0 means no cap)
	Requester     Requester     // call executor (required)

	// Abort, if set, stops the run after a call whose error it accepts.
	Abort func(error) bool
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.TotalRequests < 0 {
		o.TotalRequests = 0
	}
	if o.Duration < 0 {
		o.Duration = 0
	}
	// Neither a count nor a duration: run once.
	if o.TotalRequests == 0 && o.Duration == 0 {
		o.TotalRequests = 1
	}
	if o.Concurrency > o.TotalRequests && o.TotalRequests > 0 {
		o.Concurrency = o.TotalRequests
	}
}
