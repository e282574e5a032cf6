package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"modelgate/internal/config"
	"modelgate/internal/httpapi"
	"modelgate/internal/launcher"
	"modelgate/internal/manager"
	"modelgate/internal/ollama"
	"modelgate/internal/registry"
)

// run wires the components and serves until ctx is cancelled or a signal
// arrives.
func run(ctx context.Context, cfg config.Config, logOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logOut)

	httpapi.SetLogger(logger)
	httpapi.SetRequestLogLevel(cfg.LogLevel)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(*cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)

	client := ollama.New(ollama.Config{
		BaseURL:         cfg.DaemonURL,
		ProbeTimeout:    cfg.ProbeTimeout(),
		TagsTimeout:     cfg.CatalogTimeout(),
		PullTimeout:     cfg.FetchTimeout(),
		GenerateTimeout: cfg.GenerateTimeout(),
		Logger:          &logger,
	})
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Model:      cfg.Model,
		InstanceID: cfg.InstanceID,
		Probe:      client,
		Launcher: launcher.New(launcher.Config{
			Bin:      cfg.DaemonBin,
			Args:     cfg.DaemonArgs,
			Attempts: cfg.LaunchAttempts,
			Interval: cfg.LaunchInterval(),
			LockPath: cfg.LaunchLockPath,
			Probe:    client,
			Logger:   &logger,
		}),
		Catalog:      registry.NewCatalog(client, &logger),
		Fetcher:      client,
		Generator:    client,
		FetchTimeout: cfg.FetchTimeout(),
		Logger:       &logger,
	})
	defer mgr.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("daemon", cfg.DaemonURL).Str("model", cfg.Model).Str("instance_id", mgr.InstanceID()).Msg("modelgate listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if *cfg.BootstrapOnStart {
		go mgr.Bootstrap(ctx)
	}

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down")
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
