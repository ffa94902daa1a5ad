package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRefreshTimeout bounds one refresh once it no longer follows its starter's context.
const DefaultRefreshTimeout = 30 * time.Second

// refreshCall is one generation of the gate. done closes once token and err are set.
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// Gate lets one token refresh run at a time. Callers that arrive while a refresh is in
// flight wait for it and share its result instead of starting their own. Once the
// refresh finishes the gate reopens, so a later rejection starts a fresh refresh.
type Gate struct {
	// Timeout bounds each refresh. Zero means DefaultRefreshTimeout.
	Timeout time.Duration

	mu        sync.Mutex
	current   *refreshCall
	refreshes atomic.Int64
}

// NewGate returns an open gate.
func NewGate() *Gate {
	return &Gate{}
}

// Do runs fn unless a refresh is already running, in which case it waits for that one.
// Every caller, including the one that started the refresh, stops waiting when its own
// ctx ends and gets ctx.Err(). The refresh keeps running for the others: fn sees ctx's
// values but not its cancellation.
func (g *Gate) Do(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	g.mu.Lock()
	call := g.current
	if call == nil {
		call = &refreshCall{done: make(chan struct{})}
		g.current = call
		g.refreshes.Add(1)
		go g.run(context.WithoutCancel(ctx), call, fn)
	}
	g.mu.Unlock()

	select {
	case <-call.done:
		return call.token, call.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *Gate) run(ctx context.Context, call *refreshCall, fn func(context.Context) (string, error)) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	token, err := fn(ctx)

	g.mu.Lock()
	call.token, call.err = token, err
	g.current = nil
	g.mu.Unlock()
	close(call.done)
}

// Refreshes returns how many refreshes have actually run.
func (g *Gate) Refreshes() int64 {
	return g.refreshes.Load()
}
