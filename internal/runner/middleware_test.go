package runner_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/torosent/authrelay/internal/runner"
)

func TestWithLoggingReportsFailures(t *testing.T) {
	var logged []error
	logger := runner.FailureLoggerFunc(func(err error) { logged = append(logged, err) })

	fail := true
	req := runner.WithLogging(runner.RequesterFunc(func(context.Context) error {
		if fail {
			return &runner.CallError{Code: 500, Status: 500, Message: "Internal Server Error"}
		}
		return nil
	}), logger)

	if err := req.Do(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	fail = false
	if err := req.Do(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logged) != 1 {
		t.Fatalf("expected one logged failure, got %d", len(logged))
	}
	var callErr *runner.CallError
	if !errors.As(logged[0], &callErr) || callErr.Status != 500 {
		t.Fatalf("logged %v, want CallError with status 500", logged[0])
	}
}

func TestWithLoggingNilLogger(t *testing.T) {
	inner := runner.RequesterFunc(func(context.Context) error { return nil })
	if got := runner.WithLogging(inner, nil); got == nil {
		t.Fatal("WithLogging(nil) returned nil")
	}
}

func TestCallErrorMessage(t *testing.T) {
	err := &runner.CallError{Code: 401, Status: 401}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("Error() = %q", err.Error())
	}
	err.Message = "expired"
	if !strings.HasSuffix(err.Error(), "expired") {
		t.Errorf("Error() = %q", err.Error())
	}
}
