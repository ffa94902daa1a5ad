package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGateSharesInFlightRefresh(t *testing.T) {
	gate := NewGate()
	release := make(chan struct{})
	var calls int64

	refresh := func(ctx context.Context) (string, error) {
		atomic.AddInt64(&calls, 1)
		<-release
		return "fresh-token", nil
	}

	const callers = 20
	results := make([]string, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			tok, err := gate.Do(context.Background(), refresh)
			if err != nil {
				t.Errorf("Do() error = %v", err)
			}
			results[i] = tok
		}(i)
	}

	// let the callers pile up behind the first refresh
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("refresh ran %d times, want 1", got)
	}
	if gate.Refreshes() != 1 {
		t.Errorf("Refreshes() = %d, want 1", gate.Refreshes())
	}
	for i, tok := range results {
		if tok != "fresh-token" {
			t.Errorf("caller %d got %q, want fresh-token", i, tok)
		}
	}
}

func TestGateReopensAfterRefresh(t *testing.T) {
	gate := NewGate()
	n := 0
	refresh := func(ctx context.Context) (string, error) {
		n++
		if n == 1 {
			return "", errors.New("refresh endpoint down")
		}
		return "second", nil
	}

	if _, err := gate.Do(context.Background(), refresh); err == nil {
		t.Fatal("first Do() error = nil, want error")
	}
	tok, err := gate.Do(context.Background(), refresh)
	if err != nil {
		t.Fatalf("second Do() error = %v", err)
	}
	if tok != "second" {
		t.Errorf("second Do() = %q, want second", tok)
	}
	if gate.Refreshes() != 2 {
		t.Errorf("Refreshes() = %d, want 2", gate.Refreshes())
	}
}

func TestGateWaiterHonoursItsDeadline(t *testing.T) {
	gate := NewGate()
	release := make(chan struct{})
	started := make(chan struct{})
	refresh := func(ctx context.Context) (string, error) {
		close(started)
		<-release
		return "fresh-token", nil
	}

	leader := make(chan string, 1)
	go func() {
		tok, _ := gate.Do(context.Background(), refresh)
		leader <- tok
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	begin := time.Now()
	tok, err := gate.Do(ctx, refresh)
	waited := time.Since(begin)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("waiter error = %v, want deadline exceeded", err)
	}
	if tok != "" {
		t.Errorf("waiter token = %q, want empty", tok)
	}
	if waited > time.Second {
		t.Errorf("waiter returned after %v, want it to stop at its deadline", waited)
	}

	close(release)
	if got := <-leader; got != "fresh-token" {
		t.Errorf("leader token = %q, want fresh-token", got)
	}
	if gate.Refreshes() != 1 {
		t.Errorf("Refreshes() = %d, want 1", gate.Refreshes())
	}
}

func TestGateLeaderCancellationDoesNotFailWaiters(t *testing.T) {
	gate := NewGate()
	release := make(chan struct{})
	started := make(chan struct{})
	refresh := func(ctx context.Context) (string, error) {
		close(started)
		select {
		case <-release:
			return "fresh-token", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := gate.Do(leaderCtx, refresh)
		leaderErr <- err
	}()
	<-started

	waiter := make(chan string, 1)
	go func() {
		tok, err := gate.Do(context.Background(), refresh)
		if err != nil {
			t.Errorf("waiter error = %v", err)
		}
		waiter <- tok
	}()

	cancelLeader()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("leader error = %v, want canceled", err)
	}

	// the waiter may join before or after the leader gives up; either way it shares one refresh
	time.Sleep(20 * time.Millisecond)
	close(release)
	if got := <-waiter; got != "fresh-token" {
		t.Errorf("waiter token = %q, want fresh-token", got)
	}
	if gate.Refreshes() != 1 {
		t.Errorf("Refreshes() = %d, want 1", gate.Refreshes())
	}
}

func TestGateRefreshTimeout(t *testing.T) {
	gate := &Gate{Timeout: 20 * time.Millisecond}
	_, err := gate.Do(context.Background(), func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Do() error = %v, want deadline exceeded", err)
	}
}
