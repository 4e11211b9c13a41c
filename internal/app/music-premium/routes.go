// Package musicpremium собирает HTTP API сервиса: плеер, история прослушиваний,
// платежи и подписка.
package musicpremium

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/music-premium/internal/http/handlers/health"
	historyhandlers "github.com/magabrotheeeer/music-premium/internal/http/handlers/history"
	"github.com/magabrotheeeer/music-premium/internal/http/handlers/payment/paymentcreate"
	"github.com/magabrotheeeer/music-premium/internal/http/handlers/payment/paymentlist"
	"github.com/magabrotheeeer/music-premium/internal/http/handlers/payment/paymentstatus"
	"github.com/magabrotheeeer/music-premium/internal/http/handlers/payment/paymentverify"
	"github.com/magabrotheeeer/music-premium/internal/http/handlers/payment/paymentwebhook"
	playerhandlers "github.com/magabrotheeeer/music-premium/internal/http/handlers/player"
	"github.com/magabrotheeeer/music-premium/internal/http/handlers/subscription/read"
	"github.com/magabrotheeeer/music-premium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/music-premium/internal/lib/jwt"
	historyservice "github.com/magabrotheeeer/music-premium/internal/services/history"
	paymentservice "github.com/magabrotheeeer/music-premium/internal/services/payment"
	"github.com/magabrotheeeer/music-premium/internal/services/playback"
)

// Deps зависимости маршрутов.
type Deps struct {
	Payments      *paymentservice.Service
	Playback      *playback.Service
	History       *historyservice.Service
	Tokens        jwt.Maker
	Limiter       *middlewarectx.RateLimiter
	WebhookAPIKey string
	HealthChecks  map[string]health.Checker
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	webhook := paymentwebhook.New(logger, d.Payments, d.WebhookAPIKey)

	r.Route("/api/v1", func(r chi.Router) {
		// Webhook шлюза (без JWT, проверка по ключу в заголовке)
		r.Post("/payments/webhook", webhook.ServeHTTP)
		r.Get("/payments/webhook", webhook.Probe)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Tokens, logger))
			r.Use(d.Limiter.Middleware(logger))

			r.Post("/payments", paymentcreate.New(logger, d.Payments).ServeHTTP)
			r.Get("/payments", paymentlist.New(logger, d.Payments).ServeHTTP)
			status := paymentstatus.New(logger, d.Payments)
			r.Get("/payments/status", status.ServeHTTP)
			r.Get("/payments/{id}", status.ServeHTTP)
			r.Post("/payments/{id}/verify", paymentverify.New(logger, d.Payments).ServeHTTP)

			r.Get("/subscription", read.New(logger, d.Payments).ServeHTTP)

			history := historyhandlers.New(logger, d.History)
			r.Get("/history", history.List)
			r.Delete("/history", history.Clear)

			r.Route("/player", playerhandlers.New(logger, d.Playback).Routes)
		})
	})

	r.Get("/health", health.New(logger, d.HealthChecks).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
