package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hperssn/focusbean/internal/auth"
	"github.com/hperssn/focusbean/internal/catalog"
	"github.com/hperssn/focusbean/internal/clock"
	"github.com/hperssn/focusbean/internal/config"
	"github.com/hperssn/focusbean/internal/economy"
	"github.com/hperssn/focusbean/internal/events"
	httpapi "github.com/hperssn/focusbean/internal/http"
	"github.com/hperssn/focusbean/internal/plan"
	"github.com/hperssn/focusbean/internal/runner"
	"github.com/hperssn/focusbean/internal/storage"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "focusbean",
		Short:         "Pomodoro focus timer with points, streaks and a shop",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), envFile)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd.Context(), envFile)
		},
	})
	return root
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func migrate(ctx context.Context, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)

	repo, err := storage.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("schema up to date", "driver", cfg.Database.Driver)
	return nil
}

func serve(ctx context.Context, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	repo, err := storage.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer repo.Close()

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return err
	}

	sysClock := clock.System{}
	bus := events.NewBus(0)
	ledger := economy.NewLedger(repo, cat, bus, economy.WithLogger(logger))

	// plans is assigned below; the manager only reads it once serving.
	var plans *plan.Service
	manager := runner.NewSessionManager(ledger, planSource(func(ctx context.Context, userID string) (int, error) {
		return plans.PlanMinutes(ctx, userID)
	}), bus,
		runner.WithTickInterval(cfg.Session.TickInterval),
		runner.WithLogger(logger),
	)
	defer manager.Shutdown()
	plans = plan.NewService(repo, bus,
		plan.WithLogger(logger),
		plan.WithListener(manager.PlanChanged),
	)

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, sysClock)
	api := &httpapi.Server{
		Accounts:          auth.NewService(repo, tokens, sysClock, logger),
		Plans:             plans,
		Sessions:          manager,
		Ledger:            ledger,
		Catalog:           cat,
		Events:            bus,
		Tokens:            tokens,
		TrustedUserHeader: cfg.Auth.TrustedUserHeader,
		Logger:            logger,
	}

	// Event streams only end when their request context does.
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()
	srv := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     api.Routes(),
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelRequests)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Server.Addr, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type planSource func(ctx context.Context, userID string) (int, error)

func (f planSource) PlanMinutes(ctx context.Context, userID string) (int, error) {
	return f(ctx, userID)
}
