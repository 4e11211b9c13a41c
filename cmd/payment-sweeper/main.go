package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	paymentsweeper "github.com/magabrotheeeer/music-premium/internal/app/payment-sweeper"
	"github.com/magabrotheeeer/music-premium/internal/config"
	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.Info("starting payment-sweeper", slog.String("env", cfg.Env), slog.Duration("interval", cfg.Sweeper.Interval))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := paymentsweeper.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize payment-sweeper", sl.Err(err))
		os.Exit(1)
	}
	if err := app.Run(ctx); err != nil {
		logger.Error("payment-sweeper stopped with error", sl.Err(err))
		os.Exit(1)
	}
}
