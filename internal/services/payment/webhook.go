package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/magabrotheeeer/music-premium/internal/lib/metrics"
	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
	"github.com/magabrotheeeer/music-premium/internal/models"
	"github.com/magabrotheeeer/music-premium/internal/paymentprovider"
	"github.com/magabrotheeeer/music-premium/internal/storage"
)

// WebhookOutcome итог обработки уведомления шлюза.
type WebhookOutcome string

const (
	OutcomeIgnoredOutgoing  WebhookOutcome = "ignored_outgoing"
	OutcomeNoCode           WebhookOutcome = "no_code"
	OutcomeNotFound         WebhookOutcome = "not_found"
	OutcomeInsufficient     WebhookOutcome = "insufficient_amount"
	OutcomeAlreadyProcessed WebhookOutcome = "already_processed"
	OutcomeCompleted        WebhookOutcome = "completed"
)

var outcomeMessages = map[WebhookOutcome]string{
	OutcomeIgnoredOutgoing:  "Ignored outgoing transaction",
	OutcomeNoCode:           "No transaction code found",
	OutcomeNotFound:         "Payment not found or already processed",
	OutcomeInsufficient:     "Insufficient amount",
	OutcomeAlreadyProcessed: "Payment not found or already processed",
	OutcomeCompleted:        "Payment processed successfully",
}

// WebhookResult результат обработки уведомления.
type WebhookResult struct {
	Outcome   WebhookOutcome
	Message   string
	PaymentID string
}

func newWebhookResult(outcome WebhookOutcome, paymentID string) WebhookResult {
	metrics.WebhookOutcomes.WithLabelValues(string(outcome)).Inc()
	return WebhookResult{Outcome: outcome, Message: outcomeMessages[outcome], PaymentID: paymentID}
}

// ProcessWebhook обрабатывает уведомление шлюза о переводе.
//
// Нераспознанные и нерелевантные уведомления не считаются ошибкой: шлюз
// не должен повторять доставку. Ошибка возвращается только при сбое хранилища.
func (s *Service) ProcessWebhook(ctx context.Context, n paymentprovider.Notification) (WebhookResult, error) {
	const op = "payment.ProcessWebhook"
	log := s.log.With(sl.Op(op), slog.Int64("gateway_tx_id", n.ID))

	if n.TransferType != paymentprovider.TransferIn {
		return newWebhookResult(OutcomeIgnoredOutgoing, ""), nil
	}

	content := n.Content
	if content == "" {
		content = n.Description
	}
	token, ok := ExtractCode(NormalizeDescription(content))
	if !ok {
		log.Info("no transaction code in transfer content", slog.String("content", content))
		return newWebhookResult(OutcomeNoCode, ""), nil
	}

	p, err := s.resolvePending(ctx, token, content)
	if err != nil {
		return WebhookResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if p == nil {
		log.Info("no pending payment for transaction code", slog.String("code", token))
		return newWebhookResult(OutcomeNotFound, ""), nil
	}
	log = log.With(slog.String("payment_id", p.ID))

	paid := paymentprovider.MinorUnits(n.TransferAmount)
	if n.TransferAmount < float64(p.Amount) {
		note := fmt.Sprintf("insufficient amount: %s < %d", strconv.FormatFloat(n.TransferAmount, 'f', -1, 64), p.Amount)
		err := s.repo.FailPayment(ctx, p.ID, paid, note)
		if errors.Is(err, storage.ErrAlreadyProcessed) {
			return newWebhookResult(OutcomeAlreadyProcessed, p.ID), nil
		}
		if err != nil {
			return WebhookResult{}, fmt.Errorf("%s: %w", op, err)
		}
		log.Warn("payment failed", slog.String("note", note))
		return newWebhookResult(OutcomeInsufficient, p.ID), nil
	}

	now := s.now()
	_, err = s.complete(ctx, p, models.PaymentCompletion{
		GatewayTransactionID: strconv.FormatInt(n.ID, 10),
		ReferenceCode:        n.ReferenceCode,
		PaidAmount:           paid,
		PaidAt:               paymentprovider.ParseTransactionDate(n.TransactionDate, s.loc, now),
	})
	if errors.Is(err, storage.ErrAlreadyProcessed) {
		return newWebhookResult(OutcomeAlreadyProcessed, p.ID), nil
	}
	if err != nil {
		return WebhookResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return newWebhookResult(OutcomeCompleted, p.ID), nil
}

// resolvePending ищет pending-намерение: сначала точным запросом по коду,
// затем через MatchIntent по всем pending.
func (s *Service) resolvePending(ctx context.Context, token, content string) (*models.Payment, error) {
	p, err := s.repo.FindPendingByCode(ctx, token)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	pending, err := s.repo.ListPendingPayments(ctx)
	if err != nil {
		return nil, err
	}
	return MatchIntent(content, pending), nil
}
