package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bizflowhq/bizflow-backend/internal/app/downgrade"
	"github.com/bizflowhq/bizflow-backend/internal/config"
	"github.com/bizflowhq/bizflow-backend/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting downgrade-runner", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := downgrade.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}
	defer app.Close()

	// One sweep at startup so a missed schedule never leaves expired
	// subscriptions active for another day.
	if err := app.RunOnce(ctx); err != nil {
		logger.Error("initial sweep failed", sl.Err(err))
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc("0 1 * * *", func() {
		if err := app.RunOnce(ctx); err != nil {
			logger.Error("scheduled sweep failed", sl.Err(err))
		}
	}); err != nil {
		logger.Error("failed to schedule sweep", sl.Err(err))
		os.Exit(1)
	}
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("downgrade-runner stopped gracefully")
}
