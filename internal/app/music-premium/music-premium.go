package musicpremium

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/music-premium/internal/cache"
	"github.com/magabrotheeeer/music-premium/internal/config"
	"github.com/magabrotheeeer/music-premium/internal/http/handlers/health"
	"github.com/magabrotheeeer/music-premium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/music-premium/internal/lib/jwt"
	"github.com/magabrotheeeer/music-premium/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
	"github.com/magabrotheeeer/music-premium/internal/migrations"
	"github.com/magabrotheeeer/music-premium/internal/paymentprovider"
	historyservice "github.com/magabrotheeeer/music-premium/internal/services/history"
	paymentservice "github.com/magabrotheeeer/music-premium/internal/services/payment"
	"github.com/magabrotheeeer/music-premium/internal/services/playback"
	"github.com/magabrotheeeer/music-premium/internal/storage"
)

// publisher общий интерфейс издателя событий для сервисов.
type publisher interface {
	Publish(routingKey string, message any) error
}

// App HTTP API сервиса.
type App struct {
	server  *http.Server
	logger  *slog.Logger
	db      *storage.Storage
	cache   *cache.Cache
	history *historyservice.Service
	conn    *amqp.Connection
	ch      *amqp.Channel
}

// New подключает хранилища, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "musicpremium.New"

	loc, err := time.LoadLocation(cfg.Sepay.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s: load gateway timezone: %w", op, err)
	}

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}

	var events publisher
	if cfg.RabbitMQ.URL != "" {
		app.conn, err = rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.ch, err = rabbitmq.SetupChannel(app.conn, rabbitmq.GetEventQueues())
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		events = rabbitmq.NewPublisher(app.ch)
		logger.Info("event publishing enabled", slog.String("exchange", rabbitmq.EventsExchange))
	} else {
		logger.Warn("rabbitmq url is not set, listening history is written directly")
	}

	gateway := paymentprovider.NewClient(cfg.Sepay)
	if !gateway.Configured() {
		logger.Warn("gateway api key is not set, manual payment verification disabled")
	}

	app.history = historyservice.New(logger, db, events)
	payments := paymentservice.New(logger, db, gateway, events, loc)
	playbackService := playback.New(logger, cache.NewPlayerStore(cacheRedis, cfg.Player.SessionTTL), app.history)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Payments:      payments,
		Playback:      playbackService,
		History:       app.history,
		Tokens:        jwt.NewJWTMaker(cfg.JWTToken.SecretKey, cfg.JWTToken.TokenTTL),
		Limiter:       middlewarectx.NewRateLimiter(cfg.HTTPServer.RateLimit, cfg.HTTPServer.RateBurst),
		WebhookAPIKey: cfg.Sepay.WebhookAPIKey,
		HealthChecks: map[string]health.Checker{
			"postgres": db.DB.PingContext,
			"redis":    cacheRedis.Ping,
		},
	})

	app.server = &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}
	return app, nil
}

// Run запускает сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

// close дожидается фоновых записей истории и закрывает соединения.
func (a *App) close() {
	if a.history != nil {
		a.history.Wait()
	}
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
