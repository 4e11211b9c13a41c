// Package payment сверяет банковские переводы с платёжными намерениями
// и продлевает премиум-подписку.
//
// Три точки входа: webhook шлюза (ProcessWebhook), опрос статуса
// пользователем (Status) и ручная проверка через API шлюза (Verify).
// Двойное зачисление исключено тем, что завершить можно только
// намерение в статусе pending.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/music-premium/internal/lib/period"
	"github.com/magabrotheeeer/music-premium/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
	"github.com/magabrotheeeer/music-premium/internal/models"
	"github.com/magabrotheeeer/music-premium/internal/paymentprovider"
	"github.com/magabrotheeeer/music-premium/internal/storage"
)

// IntentTTL время жизни платёжного намерения.
const IntentTTL = 15 * time.Minute

var (
	// ErrInvalidPlan неизвестный тариф.
	ErrInvalidPlan = errors.New("invalid plan")
	// ErrActiveSubscription у пользователя уже есть действующая подписка.
	ErrActiveSubscription = errors.New("subscription is already active")
	// ErrNotFound намерение не найдено или принадлежит другому пользователю.
	ErrNotFound = errors.New("payment not found")
)

// Repository хранилище намерений и подписок.
type Repository interface {
	ReplacePendingPayment(ctx context.Context, p models.Payment) (*models.Payment, int, error)
	GetPaymentForUser(ctx context.Context, userID, paymentID, transactionCode string) (*models.Payment, error)
	ListPaymentsByUser(ctx context.Context, userID string) ([]*models.Payment, error)
	FindPendingByCode(ctx context.Context, code string) (*models.Payment, error)
	ListPendingPayments(ctx context.Context) ([]*models.Payment, error)
	FailPayment(ctx context.Context, paymentID string, paidAmount int64, note string) error
	CompletePayment(ctx context.Context, paymentID string, c models.PaymentCompletion,
		extend func(current *models.Subscription) models.Subscription) (*models.Subscription, error)
	GetSubscription(ctx context.Context, userID string) (*models.Subscription, error)
}

// Gateway API списка транзакций шлюза.
type Gateway interface {
	Configured() bool
	ListTransactions(ctx context.Context) ([]paymentprovider.Transaction, error)
}

// EventPublisher публикует доменные события. Может быть nil.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// Service сервис сверки платежей.
type Service struct {
	log     *slog.Logger
	repo    Repository
	gateway Gateway
	events  EventPublisher
	loc     *time.Location
	now     func() time.Time
}

// New создаёт сервис. loc часовой пояс дат шлюза, nil означает UTC.
func New(log *slog.Logger, repo Repository, gateway Gateway, events EventPublisher, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		log:     log,
		repo:    repo,
		gateway: gateway,
		events:  events,
		loc:     loc,
		now:     time.Now,
	}
}

// CompletedEvent событие payment.completed.
type CompletedEvent struct {
	PaymentID        string        `json:"payment_id"`
	UserID           string        `json:"user_id"`
	PlanID           models.PlanID `json:"plan_id"`
	PaidAmount       int64         `json:"paid_amount"`
	CurrentPeriodEnd time.Time     `json:"current_period_end"`
}

// CreatePayment отменяет прежние pending-намерения пользователя и создаёт новое
// одной операцией хранилища.
func (s *Service) CreatePayment(ctx context.Context, userID string, planID models.PlanID) (*models.Payment, error) {
	const op = "payment.CreatePayment"

	plan, ok := models.FindPlan(planID)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPlan)
	}

	now := s.now()
	sub, err := s.repo.GetSubscription(ctx, userID)
	switch {
	case err == nil:
		if sub.Status == models.SubscriptionActive && sub.CurrentPeriodEnd.After(now) {
			return nil, fmt.Errorf("%s: %w", op, ErrActiveSubscription)
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created, cancelled, err := s.repo.ReplacePendingPayment(ctx, models.Payment{
		UserID:          userID,
		PlanID:          plan.ID,
		Amount:          plan.Price,
		TransactionCode: GenerateTransactionCode(userID, plan.ID, now),
		Status:          models.PaymentPending,
		ExpiresAt:       now.Add(IntentTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cancelled > 0 {
		s.log.Info("superseded pending payments cancelled", slog.String("user_id", userID), slog.Int("count", cancelled))
	}
	return created, nil
}

// Status возвращает намерение пользователя по ID или коду транзакции.
// Просроченное pending-намерение отдаётся как expired. Ничего не записывает.
func (s *Service) Status(ctx context.Context, userID, paymentID, transactionCode string) (*models.Payment, error) {
	const op = "payment.Status"
	p, err := s.repo.GetPaymentForUser(ctx, userID, paymentID, transactionCode)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.Status = p.EffectiveStatus(s.now())
	return p, nil
}

// ListPayments возвращает историю намерений пользователя, новые первыми.
func (s *Service) ListPayments(ctx context.Context, userID string) ([]*models.Payment, error) {
	const op = "payment.ListPayments"
	list, err := s.repo.ListPaymentsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	now := s.now()
	for _, p := range list {
		p.Status = p.EffectiveStatus(now)
	}
	return list, nil
}

// Subscription возвращает подписку пользователя.
func (s *Service) Subscription(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "payment.Subscription"
	sub, err := s.repo.GetSubscription(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// complete завершает намерение и продлевает подписку.
func (s *Service) complete(ctx context.Context, p *models.Payment, c models.PaymentCompletion) (*models.Subscription, error) {
	const op = "payment.complete"

	plan, ok := models.FindPlan(p.PlanID)
	if !ok {
		return nil, fmt.Errorf("%s: payment %s: %w", op, p.ID, ErrInvalidPlan)
	}

	sub, err := s.repo.CompletePayment(ctx, p.ID, c, nextSubscription(s.now(), plan))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("payment completed",
		slog.String("payment_id", p.ID),
		slog.String("user_id", p.UserID),
		slog.Time("period_end", sub.CurrentPeriodEnd),
	)
	s.publishCompleted(p, c, sub)
	return sub, nil
}

func (s *Service) publishCompleted(p *models.Payment, c models.PaymentCompletion, sub *models.Subscription) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(rabbitmq.RoutingPaymentCompleted, CompletedEvent{
		PaymentID:        p.ID,
		UserID:           p.UserID,
		PlanID:           p.PlanID,
		PaidAmount:       c.PaidAmount,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	})
	if err != nil {
		s.log.Error("failed to publish payment completed event", sl.Err(err), slog.String("payment_id", p.ID))
	}
}

// nextSubscription строит подписку после оплаты тарифа plan.
// Период продлевается от более поздней из дат now и текущего окончания.
func nextSubscription(now time.Time, plan models.Plan) func(current *models.Subscription) models.Subscription {
	return func(current *models.Subscription) models.Subscription {
		var currentEnd time.Time
		if current != nil {
			currentEnd = current.CurrentPeriodEnd
		}
		return models.Subscription{
			Status:             models.SubscriptionActive,
			PlanID:             plan.ID,
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   period.Extend(now, currentEnd, plan.Interval),
		}
	}
}
