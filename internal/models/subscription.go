package models

import "time"

// SubscriptionActive единственный статус подписки в рамках сервиса.
const SubscriptionActive = "active"

// Subscription премиум-подписка пользователя, не более одной на пользователя.
// CurrentPeriodEnd только сдвигается вперёд.
type Subscription struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Status             string    `json:"status"`
	PlanID             PlanID    `json:"plan_id"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	CreatedAt          time.Time `json:"created_at"`
}
