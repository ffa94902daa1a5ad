package runner

import (
	"context"
	"fmt"
)

// CallError is a call that completed but reported failure in its result envelope.
type CallError struct {
	Code    int
	Status  int
	Message string
}

func (e *CallError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("call failed: code %d (HTTP %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("call failed: code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// FailureLogger logs failed calls.
type FailureLogger interface {
	LogFailure(err error)
}

// FailureLoggerFunc adapts a function to FailureLogger.
type FailureLoggerFunc func(err error)

func (f FailureLoggerFunc) LogFailure(err error) {
	f(err)
}

type loggingRequester struct {
	inner  Requester
	logger FailureLogger
}

// WithLogging wraps a Requester to log failures.
func WithLogging(req Requester, logger FailureLogger) Requester {
	if logger == nil {
		return req
	}
	return &loggingRequester{
		inner:  req,
		logger: logger,
	}
}

func (l *loggingRequester) Do(ctx context.Context) error {
	err := l.inner.Do(ctx)
	if err != nil {
		l.logger.LogFailure(err)
	}
	return err
}
