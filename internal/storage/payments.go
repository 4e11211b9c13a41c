package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/music-premium/internal/models"
)

const paymentColumns = `id, user_id, plan_id, amount, transaction_code, status, expires_at,
	paid_amount, paid_at, gateway_transaction_id, gateway_reference_code, note, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var (
		p             models.Payment
		paidAmount    sql.NullInt64
		paidAt        sql.NullTime
		gatewayTxID   sql.NullString
		gatewayRefCod sql.NullString
		note          sql.NullString
	)
	err := row.Scan(&p.ID, &p.UserID, &p.PlanID, &p.Amount, &p.TransactionCode, &p.Status, &p.ExpiresAt,
		&paidAmount, &paidAt, &gatewayTxID, &gatewayRefCod, &note, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if paidAmount.Valid {
		p.PaidAmount = &paidAmount.Int64
	}
	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}
	if gatewayTxID.Valid {
		p.GatewayTransactionID = &gatewayTxID.String
	}
	if gatewayRefCod.Valid {
		p.GatewayReferenceCode = &gatewayRefCod.String
	}
	if note.Valid {
		p.Note = &note.String
	}
	return &p, nil
}

func scanPayments(rows *sql.Rows) ([]*models.Payment, error) {
	defer func() {
		_ = rows.Close()
	}()
	var result []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ReplacePendingPayment в одной транзакции отменяет pending-намерения
// пользователя и вставляет p. Вызовы для одного пользователя выполняются
// по очереди (advisory lock), поэтому pending-намерение остаётся одно.
// Возвращает созданное намерение и количество отменённых.
func (s *Storage) ReplacePendingPayment(ctx context.Context, p models.Payment) (*models.Payment, int, error) {
	const op = "storage.ReplacePendingPayment"
	if err := checkCtx(ctx, op); err != nil {
		return nil, 0, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, p.UserID); err != nil {
		return nil, 0, fmt.Errorf("%s: lock: %w", op, err)
	}

	cancel := `UPDATE payments SET status = $1, updated_at = NOW()
			   WHERE user_id = $2 AND status = $3`
	result, err := tx.ExecContext(ctx, cancel, models.PaymentCancelled, p.UserID, models.PaymentPending)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: cancel: %w", op, err)
	}
	cancelled, err := result.RowsAffected()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	insert := `INSERT INTO payments (id, user_id, plan_id, amount, transaction_code, status, expires_at)
			   VALUES ($1, $2, $3, $4, $5, $6, $7)
			   RETURNING ` + paymentColumns
	created, err := scanPayment(tx.QueryRowContext(ctx, insert,
		uuid.New(), p.UserID, p.PlanID, p.Amount, p.TransactionCode, p.Status, p.ExpiresAt))
	if err != nil {
		return nil, 0, fmt.Errorf("%s: insert: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("%s: commit: %w", op, err)
	}
	return created, int(cancelled), nil
}

// GetPaymentForUser ищет намерение пользователя по ID или коду транзакции.
// Чужие намерения не находятся.
func (s *Storage) GetPaymentForUser(ctx context.Context, userID, paymentID, transactionCode string) (*models.Payment, error) {
	const op = "storage.GetPaymentForUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var row *sql.Row
	switch {
	case paymentID != "":
		id, err := uuid.Parse(paymentID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND user_id = $2`
		row = s.DB.QueryRowContext(ctx, query, id, userID)
	case transactionCode != "":
		query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_code = $1 AND user_id = $2`
		row = s.DB.QueryRowContext(ctx, query, transactionCode, userID)
	default:
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPaymentsByUser возвращает намерения пользователя, новые первыми.
func (s *Storage) ListPaymentsByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	const op = "storage.ListPaymentsByUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + paymentColumns + ` FROM payments
			  WHERE user_id = $1
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result, err := scanPayments(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindPendingByCode ищет pending-намерение по точному коду транзакции.
func (s *Storage) FindPendingByCode(ctx context.Context, code string) (*models.Payment, error) {
	const op = "storage.FindPendingByCode"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + paymentColumns + ` FROM payments
			  WHERE transaction_code = $1 AND status = $2`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, code, models.PaymentPending))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPendingPayments возвращает все намерения в статусе pending, старые первыми.
func (s *Storage) ListPendingPayments(ctx context.Context) ([]*models.Payment, error) {
	const op = "storage.ListPendingPayments"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + paymentColumns + ` FROM payments
			  WHERE status = $1
			  ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, query, models.PaymentPending)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result, err := scanPayments(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FailPayment переводит pending-намерение в failed с примечанием.
// Если намерение уже не pending, возвращает ErrAlreadyProcessed.
func (s *Storage) FailPayment(ctx context.Context, paymentID string, paidAmount int64, note string) error {
	const op = "storage.FailPayment"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `UPDATE payments
			  SET status = $1, paid_amount = $2, note = $3, updated_at = NOW()
			  WHERE id::text = $4 AND status = $5`
	result, err := s.DB.ExecContext(ctx, query, models.PaymentFailed, paidAmount, note, paymentID, models.PaymentPending)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrAlreadyProcessed)
	}
	return nil
}

// CompletePayment в одной транзакции переводит намерение pending→completed
// и создаёт или продлевает подписку пользователя.
//
// extend получает текущую подписку (nil, если её нет) и возвращает новую.
// Переход выполняется условным UPDATE ... WHERE status = 'pending': если
// запись уже обработана, возвращается ErrAlreadyProcessed и подписка не меняется.
// Конец периода в базе не уменьшается.
func (s *Storage) CompletePayment(ctx context.Context, paymentID string, c models.PaymentCompletion,
	extend func(current *models.Subscription) models.Subscription) (*models.Subscription, error) {
	const op = "storage.CompletePayment"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var userID string
	query := `UPDATE payments
			  SET status = $1, paid_amount = $2, paid_at = $3,
			      gateway_transaction_id = $4, gateway_reference_code = $5, updated_at = NOW()
			  WHERE id::text = $6 AND status = $7
			  RETURNING user_id`
	err = tx.QueryRowContext(ctx, query, models.PaymentCompleted, c.PaidAmount, c.PaidAt,
		nullString(c.GatewayTransactionID), nullString(c.ReferenceCode), paymentID, models.PaymentPending).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyProcessed)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	current, err := scanSubscription(tx.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 FOR UPDATE`, userID))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		current = nil
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	next := extend(current)
	upsert := `INSERT INTO subscriptions (user_id, status, plan_id, current_period_start, current_period_end)
			   VALUES ($1, $2, $3, $4, $5)
			   ON CONFLICT (user_id) DO UPDATE
			   SET status = EXCLUDED.status,
			       plan_id = EXCLUDED.plan_id,
			       current_period_start = EXCLUDED.current_period_start,
			       current_period_end = GREATEST(subscriptions.current_period_end, EXCLUDED.current_period_end),
			       updated_at = NOW()
			   RETURNING ` + subscriptionColumns
	saved, err := scanSubscription(tx.QueryRowContext(ctx, upsert,
		userID, next.Status, next.PlanID, next.CurrentPeriodStart, next.CurrentPeriodEnd))
	if err != nil {
		return nil, fmt.Errorf("%s: upsert subscription: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}
	return saved, nil
}

// ExpireStalePayments переводит просроченные pending-намерения в expired.
func (s *Storage) ExpireStalePayments(ctx context.Context, now time.Time) (int, error) {
	const op = "storage.ExpireStalePayments"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `UPDATE payments SET status = $1, updated_at = NOW()
			  WHERE status = $2 AND expires_at < $3`
	result, err := s.DB.ExecContext(ctx, query, models.PaymentExpired, models.PaymentPending, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
