package models

import "github.com/magabrotheeeer/music-premium/internal/lib/period"

// PlanID идентификатор тарифа.
type PlanID string

const (
	PlanMonthly PlanID = "monthly"
	PlanYearly  PlanID = "yearly"
)

// Plan описывает тариф премиум-подписки.
type Plan struct {
	ID       PlanID          `json:"id"`
	Name     string          `json:"name"`
	Price    int64           `json:"price"`
	Interval period.Interval `json:"-"`
}

var plans = []Plan{
	{ID: PlanMonthly, Name: "Premium Monthly", Price: 2000, Interval: period.Interval{Months: 1}},
	{ID: PlanYearly, Name: "Premium Yearly", Price: 29000, Interval: period.Interval{Years: 1}},
}

// FindPlan ищет тариф по идентификатору.
func FindPlan(id PlanID) (Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
