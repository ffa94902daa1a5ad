package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/torosent/authrelay/internal/auth"
	"github.com/torosent/authrelay/internal/config"
	"github.com/torosent/authrelay/internal/httpclient"
	"github.com/torosent/authrelay/internal/logging"
	"github.com/torosent/authrelay/internal/metrics"
	"github.com/torosent/authrelay/internal/session"
	"github.com/torosent/authrelay/internal/tracing"
)

// app is everything a command needs, built from the resolved configuration.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	files     *session.FileStore
	store     *session.Store
	collector *metrics.Collector
	tracing   *tracing.Provider
	client    *httpclient.Client
	streams   streams

	closers []func()
}

// newApp loads configuration and the persisted session. Client construction is left
// to withClient so session-only commands skip it.
func newApp(cmd *cobra.Command, s streams) (*app, error) {
	cfg, err := config.NewLoader().Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(s.err, cfg.LogLevel, logging.Format(cfg.LogFormat))
	if err != nil {
		return nil, err
	}

	files := session.NewFileStore(cfg.SessionFile)
	state, err := files.Load()
	if err != nil {
		return nil, err
	}
	if cfg.AppURL != "" {
		state.AppURL = cfg.AppURL
	}
	store := session.NewStore(state)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		files:   files,
		store:   store,
		streams: s,
	}
	a.closers = append(a.closers, files.Bind(store, func(err error) {
		logger.Error("persist session", "path", files.Path(), "error", err)
	}))
	a.closers = append(a.closers, store.OnLogout(func(reason string) {
		logger.Warn("signed out", "reason", reason)
	}))
	return a, nil
}

// withClient builds the HTTP client, tracing and metrics.
func (a *app) withClient(ctx context.Context) error {
	tp, err := tracing.Init(ctx, a.cfg.Tracing)
	if err != nil {
		return err
	}
	a.tracing = tp
	a.closers = append(a.closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("tracing shutdown", "error", err)
		}
	})

	refresher, err := buildRefresher(a.cfg, a.logger)
	if err != nil {
		return err
	}

	a.collector = metrics.NewCollector()
	client, err := httpclient.New(httpclient.Options{
		Store:             a.store,
		Provider:          auth.NewSessionProvider(a.store, a.cfg.TokenHeader, a.cfg.TokenScheme),
		Refresher:         refresher,
		Timeout:           a.cfg.Timeout,
		PushOutCode:       a.cfg.PushOutCode,
		UploadTokenHeader: a.cfg.UploadTokenHeader,
		Headers:           a.cfg.Headers,
		Retries:           a.cfg.Retries,
		RetryWait:         a.cfg.RetryWait,
		RetryMaxWait:      a.cfg.RetryMaxWait,
		RateLimit:         float64(a.cfg.RateLimit),
		Logger:            a.logger,
		Tracing:           tp,
		Collector:         a.collector,
	})
	if err != nil {
		return err
	}
	a.client = client
	return nil
}

// Close runs cleanup in reverse order of registration.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
