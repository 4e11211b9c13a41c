// Package paymentsweeper периодически помечает просроченные платёжные намерения.
package paymentsweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/music-premium/internal/config"
	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
	"github.com/magabrotheeeer/music-premium/internal/services/sweeper"
	"github.com/magabrotheeeer/music-premium/internal/storage"
)

// App приложение sweeper.
type App struct {
	service *sweeper.Service
	db      *storage.Storage
	logger  *slog.Logger
}

// New подключает хранилище.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "paymentsweeper.New"

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := storage.WaitForDB(ctx, db, 10, 3*time.Second); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &App{
		service: sweeper.NewService(db, logger, cfg.Sweeper.Interval),
		db:      db,
		logger:  logger,
	}, nil
}

// Run выполняет проходы до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.service.Run(ctx)

	a.logger.Info("shutting down payment sweeper")
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return nil
}
