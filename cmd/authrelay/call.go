package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/torosent/authrelay/internal/config"
	"github.com/torosent/authrelay/internal/httpclient"
	"github.com/torosent/authrelay/internal/output"
	"github.com/torosent/authrelay/internal/response"
	"github.com/torosent/authrelay/internal/runner"
	"github.com/torosent/authrelay/internal/threshold"
)

const progressInterval = time.Second

// callFlags are the per-command request and repetition options.
type callFlags struct {
	params     []string
	data       string
	dataFile   string
	files      []string
	form       []string
	repeat     int
	duration   time.Duration
	workers    int
	stats      bool
	statsJSON  bool
	progress   bool
	noCheckOut bool
	thresholds []string
}

func (f *callFlags) register(cmd *cobra.Command, withBody, withFiles bool) {
	flags := cmd.Flags()
	flags.StringArrayVar(&f.params, "param", nil, "Query parameter in key=value form (repeatable)")
	if withBody {
		flags.StringVar(&f.data, "data", "", "Inline request body")
		flags.StringVar(&f.dataFile, "data-file", "", "Read the request body from a file")
	}
	if withFiles {
		flags.StringArrayVar(&f.files, "file", nil, "Multipart file in field=path form (repeatable)")
		flags.StringArrayVar(&f.form, "form", nil, "Multipart form field in key=value form (repeatable)")
	}
	flags.IntVar(&f.repeat, "repeat", 1, "Number of times to send the request")
	flags.DurationVar(&f.duration, "duration", 0, "Keep repeating the request for this long")
	flags.IntVar(&f.workers, "concurrency", 1, "Workers sharing the repeated calls")
	flags.BoolVar(&f.stats, "stats", false, "Print a latency and status report to stderr")
	flags.BoolVar(&f.statsJSON, "stats-json", false, "Print the report as JSON to stdout instead of the response")
	flags.BoolVar(&f.progress, "progress", false, "Show a live progress line while repeating")
	flags.BoolVar(&f.noCheckOut, "no-check-out", false, "Do not end the session when the push-out code is returned")
	flags.StringArrayVar(&f.thresholds, "threshold", nil, "Fail the run unless the assertion holds, e.g. 'latency:p99 < 500' (repeatable)")
}

// requestConfig turns the flags into a RequestConfig for method and target.
func (f *callFlags) requestConfig(method, target string) (httpclient.RequestConfig, error) {
	rc := httpclient.RequestConfig{Method: method, URL: target}

	if len(f.params) > 0 {
		params := url.Values{}
		for _, entry := range f.params {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return rc, fmt.Errorf("invalid param %q: expected key=value", entry)
			}
			params.Add(strings.TrimSpace(key), value)
		}
		rc.Params = params
	}

	if f.data != "" || f.dataFile != "" {
		src, err := httpclient.NewBodySource(f.data, f.dataFile)
		if err != nil {
			return rc, err
		}
		rc.Data = src
	}

	for _, entry := range f.files {
		field, path, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(field) == "" || strings.TrimSpace(path) == "" {
			return rc, fmt.Errorf("invalid file %q: expected field=path", entry)
		}
		rc.Files = append(rc.Files, httpclient.FilePart{Field: strings.TrimSpace(field), Path: strings.TrimSpace(path)})
	}
	if len(f.form) > 0 {
		form, err := config.ParseKeyValues(f.form)
		if err != nil {
			return rc, fmt.Errorf("form: %w", err)
		}
		rc.Form = form
	}
	return rc, nil
}

func newMethodCmd(s streams, name, method, short string, withBody bool) *cobra.Command {
	var f callFlags
	cmd := &cobra.Command{
		Use:   name + " PATH",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := f.requestConfig(method, args[0])
			if err != nil {
				return err
			}
			return executeCall(cmd, s, rc, f)
		},
	}
	f.register(cmd, withBody, false)
	return cmd
}

func newUploadCmd(s streams) *cobra.Command {
	var f callFlags
	cmd := &cobra.Command{
		Use:   "upload PATH --file field=path [--form key=value]",
		Short: "POST a multipart form with files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(f.files) == 0 {
				return errors.New("at least one --file is required")
			}
			rc, err := f.requestConfig("POST", args[0])
			if err != nil {
				return err
			}
			return executeCall(cmd, s, rc, f)
		},
	}
	f.register(cmd, false, true)
	return cmd
}

func newCallCmd(s streams) *cobra.Command {
	var f callFlags
	cmd := &cobra.Command{
		Use:   "call METHOD PATH",
		Short: "Send a request with any method",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := f.requestConfig(args[0], args[1])
			if err != nil {
				return err
			}
			return executeCall(cmd, s, rc, f)
		},
	}
	f.register(cmd, true, true)
	return cmd
}

func executeCall(cmd *cobra.Command, s streams, rc httpclient.RequestConfig, f callFlags) error {
	if f.repeat < 1 {
		return errors.New("--repeat must be at least 1")
	}
	ctx := cmd.Context()
	a, err := newApp(cmd, s)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.withClient(ctx); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(f.thresholds)
	if err != nil {
		return err
	}

	if f.repeat == 1 && f.duration == 0 && !f.stats && !f.statsJSON && len(thresholds) == 0 {
		raw, err := a.client.Request(ctx, rc, !f.noCheckOut)
		if err != nil {
			return err
		}
		if err := output.PrintEnvelope(s.out, raw, output.Format(a.cfg.Output)); err != nil {
			return err
		}
		return envelopeError(raw)
	}
	return a.repeatCall(ctx, rc, f, thresholds)
}

// repeatCall runs the call through the runner and reports on the whole run.
func (a *app) repeatCall(ctx context.Context, rc httpclient.RequestConfig, f callFlags, thresholds []threshold.Threshold) error {
	var last atomic.Pointer[response.Raw]
	call := runner.RequesterFunc(func(ctx context.Context) error {
		raw, err := a.client.Request(ctx, rc, !f.noCheckOut)
		if err != nil {
			return err
		}
		last.Store(raw)
		return envelopeError(raw)
	})

	total := f.repeat
	if f.duration > 0 && total == 1 {
		total = 0
	}
	r := runner.New(runner.Options{
		Concurrency:   f.workers,
		TotalRequests: total,
		Duration:      f.duration,
		Requester: runner.WithLogging(call, runner.FailureLoggerFunc(func(err error) {
			a.logger.Debug("call failed", "error", err)
		})),
		Abort: func(err error) bool { return errors.Is(err, httpclient.ErrSessionExpired) },
	})

	var progress *output.ProgressReporter
	if f.progress {
		progress = output.NewProgressReporter(a.collector, progressInterval, a.streams.err)
		progress.Start()
	}
	a.collector.Start()
	result := r.Run(ctx)
	if progress != nil {
		progress.Stop()
	}
	stats := a.collector.Stats(result.Duration)

	if f.statsJSON {
		if err := output.PrintJSONReport(a.streams.out, stats); err != nil {
			return err
		}
	} else if raw := last.Load(); raw != nil {
		if err := output.PrintEnvelope(a.streams.out, raw, output.Format(a.cfg.Output)); err != nil {
			return err
		}
	}
	if !f.statsJSON {
		output.PrintReport(a.streams.err, stats)
	}
	results := threshold.Evaluate(thresholds, stats)
	if len(results) > 0 {
		fmt.Fprintln(a.streams.err, "\nThresholds:")
		for _, res := range results {
			fmt.Fprintf(a.streams.err, "  %s\n", res.Message)
		}
	}

	switch {
	case result.Aborted:
		return httpclient.ErrSessionExpired
	case result.Errors > 0:
		return fmt.Errorf("%d of %d calls failed", result.Errors, result.Total)
	case len(threshold.Failed(results)) > 0:
		return fmt.Errorf("%d of %d thresholds failed", len(threshold.Failed(results)), len(results))
	}
	return nil
}

// envelopeError reports a failed envelope as a CallError so the exit status is non-zero.
func envelopeError(raw *response.Raw) error {
	if raw == nil || raw.OK {
		return nil
	}
	return &runner.CallError{Code: raw.Code, Status: raw.Status, Message: raw.Message}
}
