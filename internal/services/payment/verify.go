package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/music-premium/internal/lib/metrics"
	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
	"github.com/magabrotheeeer/music-premium/internal/models"
	"github.com/magabrotheeeer/music-premium/internal/paymentprovider"
	"github.com/magabrotheeeer/music-premium/internal/storage"
)

// VerifyResult результат ручной проверки.
type VerifyResult struct {
	Success bool                 `json:"success"`
	Status  models.PaymentStatus `json:"status"`
	Message string               `json:"message"`
}

func verifyResult(success bool, status models.PaymentStatus, msg string) VerifyResult {
	metrics.VerifyOutcomes.WithLabelValues(string(status)).Inc()
	return VerifyResult{Success: success, Status: status, Message: msg}
}

// Verify ищет перевод по намерению пользователя в API шлюза и при
// совпадении завершает намерение так же, как webhook.
//
// Недоступность шлюза и отсутствие перевода дают статус pending без ошибки.
// Ошибка возвращается для чужого или несуществующего намерения, при сбое
// хранилища и при отмене ctx.
func (s *Service) Verify(ctx context.Context, userID, paymentID string) (VerifyResult, error) {
	const op = "payment.Verify"
	log := s.log.With(sl.Op(op), slog.String("payment_id", paymentID))

	p, err := s.repo.GetPaymentForUser(ctx, userID, paymentID, "")
	if errors.Is(err, storage.ErrNotFound) {
		return VerifyResult{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return VerifyResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if res, done := s.settled(p); done {
		return res, nil
	}

	if !s.gateway.Configured() {
		return verifyResult(false, models.PaymentPending, "Payment verification not available"), nil
	}

	txs, err := s.gateway.ListTransactions(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return VerifyResult{}, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		log.Warn("gateway transaction list unavailable", sl.Err(err))
		if errors.Is(err, paymentprovider.ErrRateLimited) {
			return verifyResult(false, models.PaymentPending, "Too many requests. Please try again in a few seconds."), nil
		}
		return verifyResult(false, models.PaymentPending, "Cannot verify payment at this time"), nil
	}

	tx := MatchTransaction(p.TransactionCode, p.Amount, txs)
	if tx == nil {
		return verifyResult(false, models.PaymentPending,
			"Payment not found. Please ensure you transferred the correct amount with the correct content."), nil
	}

	now := s.now()
	_, err = s.complete(ctx, p, models.PaymentCompletion{
		GatewayTransactionID: tx.ID,
		ReferenceCode:        tx.ReferenceNumber,
		PaidAmount:           paymentprovider.MinorUnits(tx.AmountInValue()),
		PaidAt:               paymentprovider.ParseTransactionDate(tx.TransactionDate, s.loc, now),
	})
	if errors.Is(err, storage.ErrAlreadyProcessed) {
		// намерение завершено параллельно, например webhook
		current, err := s.repo.GetPaymentForUser(ctx, userID, paymentID, "")
		if err != nil {
			return VerifyResult{}, fmt.Errorf("%s: %w", op, err)
		}
		res, _ := s.settled(current)
		return res, nil
	}
	if err != nil {
		return VerifyResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return verifyResult(true, models.PaymentCompleted, "Payment verified successfully"), nil
}

// settled возвращает результат для намерения, которое не нужно проверять в шлюзе.
func (s *Service) settled(p *models.Payment) (VerifyResult, bool) {
	switch status := p.EffectiveStatus(s.now()); status {
	case models.PaymentCompleted:
		return verifyResult(true, status, "Payment already completed"), true
	case models.PaymentExpired:
		return verifyResult(false, status, "Payment expired"), true
	case models.PaymentPending:
		return VerifyResult{Success: false, Status: status}, false
	default:
		return verifyResult(false, status, "Payment is "+string(status)), true
	}
}
