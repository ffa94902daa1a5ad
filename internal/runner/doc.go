// Package runner repeats a call across a pool of workers.
//
// The CLI uses it for --repeat: every worker shares one client, so concurrent calls
// that hit an expired token also share one refresh.
//
//	r := runner.New(runner.Options{
//		Concurrency:   4,
//		TotalRequests: 100,
//		Requester:     runner.RequesterFunc(call),
//		Abort:         func(err error) bool { return errors.Is(err, httpclient.ErrSessionExpired) },
//	})
//	result := r.Run(ctx)
//
// Wrap a requester with [WithLogging] to report each failure as it happens.
package runner
