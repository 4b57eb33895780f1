package cli

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"archplan/internal/config"
	"archplan/internal/engine"
	"archplan/internal/httpapi"
	"archplan/internal/model"
	"archplan/internal/plan"
	"archplan/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the change-plan execution server",
		Long: `Start the HTTP server and the single-writer execution loop.

Configuration comes from the environment (and an optional .env file);
the --db flag overrides STORE_PATH.

Example:
  archplan serve --db ./archplan.db
  archplan serve --db :memory: --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite status database (overrides STORE_PATH)")

	return cmd
}

func runServe(opts *ServeOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if opts.Database != "" {
		cfg.Store.Path = opts.Database
	}
	setupLogging(cfg.Logging, opts.Verbose)

	slog.Info("opening status store", "path", cfg.Store.Path)
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open status store", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing status store", "error", closeErr)
		}
	}()

	maxSeq, err := st.MaxSeq(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read store state", err)
	}

	eng := engine.NewWithClock(st, model.NewMemory(), engine.UUIDv7Generator{},
		engine.NewClockAt(maxSeq), engine.Config{
			MaxChanges:               cfg.Engine.MaxChanges,
			ProcessingTimeout:        cfg.Engine.ProcessingTimeout,
			DefaultDuplicateStrategy: plan.Strategy(cfg.Engine.DefaultDuplicateStrategy),
			StrictSchema:             cfg.Engine.StrictSchema,
			IdempotencyTTL:           cfg.Engine.IdempotencyTTL,
		})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineDone := make(chan error, 1)
	go func() {
		engineDone <- eng.Run(ctx)
	}()

	go retentionSweep(ctx, st, cfg.Retention, cfg.Engine.IdempotencyTTL)

	handler := httpapi.NewHandler(eng, cfg.Server.MaxPayloadBytes)
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           httpapi.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		serverDone <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitCommandError, "http server failed", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}

	eng.Stop()
	if err := <-engineDone; err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("engine stopped with error", "error", err)
	}
	return nil
}

func setupLogging(cfg config.LoggingConfig, verbose bool) {
	level := slog.LevelInfo
	if verbose || cfg.Level == "debug" {
		level = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// retentionSweep evicts expired operations on a fixed interval until
// the context ends.
func retentionSweep(ctx context.Context, st *store.Store, cfg config.RetentionConfig, idempotencyTTL time.Duration) {
	if cfg.SweepInterval <= 0 {
		return
	}
	policy := store.RetentionPolicy{
		MaxAge:         cfg.MaxAge,
		MaxCount:       cfg.MaxCount,
		PollGrace:      cfg.PollGrace,
		IdempotencyTTL: idempotencyTTL,
	}
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := st.Evict(ctx, time.Now(), policy)
			if err != nil {
				slog.Error("retention sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("retention sweep", "evicted", removed)
			}
		}
	}
}
