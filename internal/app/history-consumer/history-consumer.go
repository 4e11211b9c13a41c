// Package historyconsumer сохраняет события history.played из RabbitMQ
// в историю прослушиваний.
package historyconsumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/music-premium/internal/config"
	"github.com/magabrotheeeer/music-premium/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
	historyservice "github.com/magabrotheeeer/music-premium/internal/services/history"
	"github.com/magabrotheeeer/music-premium/internal/storage"
)

const historyQueue = "history.played"

// App потребитель очереди истории.
type App struct {
	service *historyservice.Service
	db      *storage.Storage
	conn    *amqp.Connection
	ch      *amqp.Channel
	logger  *slog.Logger
}

// New подключает брокер и хранилище.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "historyconsumer.New"

	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("%s: rabbitmq url is not set", op)
	}
	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetEventQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := storage.WaitForDB(ctx, db, 10, 3*time.Second); err != nil {
		_ = db.Close()
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &App{
		service: historyservice.New(logger, db, nil),
		db:      db,
		conn:    conn,
		ch:      ch,
		logger:  logger,
	}, nil
}

// Handle сохраняет одно сообщение. Битые сообщения подтверждаются и теряются,
// ошибка хранилища возвращает сообщение в очередь.
func (a *App) Handle(ctx context.Context, body []byte) error {
	err := a.service.Persist(ctx, body)
	if errors.Is(err, historyservice.ErrInvalidMessage) {
		a.logger.Warn("dropping malformed history message", sl.Err(err))
		return nil
	}
	return err
}

// Run потребляет очередь до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, historyQueue, func(body []byte) error {
		return a.Handle(ctx, body)
	})
	if err != nil {
		closeResources(a.ch, a.conn, a.logger)
		_ = a.db.Close()
		return err
	}
	a.logger.Info("history consumer started", slog.String("queue", historyQueue))

	<-ctx.Done()

	a.logger.Info("shutting down history consumer")
	closeResources(a.ch, a.conn, a.logger)
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}
