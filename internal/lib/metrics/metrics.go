// Package metrics объявляет счётчики Prometheus сервиса.
// Счётчики регистрируются в реестре по умолчанию и отдаются на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "music_premium"

var (
	// WebhookOutcomes результаты обработки webhook шлюза.
	WebhookOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "webhook_outcomes_total",
		Help:      "Webhook notifications by reconciliation outcome.",
	}, []string{"outcome"})

	// VerifyOutcomes результаты ручной проверки платежа.
	VerifyOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "verify_outcomes_total",
		Help:      "Manual payment verifications by resulting status.",
	}, []string{"status"})

	// GatewayRetries повторные запросы к API шлюза после 429.
	GatewayRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "rate_limit_retries_total",
		Help:      "Gateway requests retried after a rate-limit response.",
	})

	// HistoryWriteFailures неудачные записи истории прослушиваний.
	HistoryWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "history",
		Name:      "write_failures_total",
		Help:      "Listening-history writes that failed and were dropped.",
	})

	// PlayerOperations операции над сессией плеера.
	PlayerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "player",
		Name:      "operations_total",
		Help:      "Player session operations by name.",
	}, []string{"op"})
)
