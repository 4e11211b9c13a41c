package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	historyconsumer "github.com/magabrotheeeer/music-premium/internal/app/history-consumer"
	"github.com/magabrotheeeer/music-premium/internal/config"
	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.Info("starting history-consumer", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := historyconsumer.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize history-consumer", sl.Err(err))
		os.Exit(1)
	}
	if err := app.Run(ctx); err != nil {
		logger.Error("history-consumer stopped with error", sl.Err(err))
		os.Exit(1)
	}
}
