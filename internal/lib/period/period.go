// Package period считает границы оплаченных периодов подписки.
package period

import "time"

// Interval календарная длительность тарифа.
type Interval struct {
	Years  int
	Months int
	Days   int
}

// AddTo прибавляет интервал к t по календарю (time.AddDate).
func (i Interval) AddTo(t time.Time) time.Time {
	return t.AddDate(i.Years, i.Months, i.Days)
}

// Extend возвращает новую дату окончания периода.
// Отсчёт ведётся от более поздней из двух дат: now и текущего окончания,
// поэтому оставшееся оплаченное время не теряется, а конец периода не уменьшается.
// Нулевой currentEnd означает, что подписки ещё нет.
func Extend(now, currentEnd time.Time, iv Interval) time.Time {
	base := now
	if currentEnd.After(now) {
		base = currentEnd
	}
	return iv.AddTo(base)
}
