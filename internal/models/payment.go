// Package models содержит доменные структуры сервиса: платёжные намерения,
// подписки, тарифы и записи истории прослушиваний.
package models

import "time"

// PaymentStatus статус платёжного намерения.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
	// PaymentExpired вычисляется при чтении, в хранилище не записывается
	// (кроме фонового sweeper).
	PaymentExpired PaymentStatus = "expired"
)

// Payment представляет ожидаемый банковский перевод, созданный до поступления денег.
type Payment struct {
	ID                   string        `json:"id"`
	UserID               string        `json:"user_id"`
	PlanID               PlanID        `json:"plan_id"`
	Amount               int64         `json:"amount"`
	TransactionCode      string        `json:"transaction_code"`
	Status               PaymentStatus `json:"status"`
	ExpiresAt            time.Time     `json:"expires_at"`
	PaidAmount           *int64        `json:"paid_amount,omitempty"`
	PaidAt               *time.Time    `json:"paid_at,omitempty"`
	GatewayTransactionID *string       `json:"gateway_transaction_id,omitempty"`
	GatewayReferenceCode *string       `json:"gateway_reference_code,omitempty"`
	Note                 *string       `json:"note,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// EffectiveStatus возвращает статус с учётом ленивого истечения:
// pending с прошедшим ExpiresAt отдаётся как expired.
func (p *Payment) EffectiveStatus(now time.Time) PaymentStatus {
	if p.Status == PaymentPending && p.ExpiresAt.Before(now) {
		return PaymentExpired
	}
	return p.Status
}

// PaymentCompletion данные шлюза о найденном переводе.
type PaymentCompletion struct {
	GatewayTransactionID string
	ReferenceCode        string
	PaidAmount           int64
	PaidAt               time.Time
}
