// Package sweeper периодически переводит просроченные pending-намерения
// в статус expired. Чтение статуса и без него отдаёт expired, sweeper
// только приводит хранилище в соответствие.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
)

// Repository хранилище платёжных намерений.
type Repository interface {
	ExpireStalePayments(ctx context.Context, now time.Time) (int, error)
}

// Service фоновый обработчик просроченных намерений.
type Service struct {
	repo     Repository
	log      *slog.Logger
	interval time.Duration
	now      func() time.Time
}

// NewService создаёт сервис с периодом interval.
func NewService(repo Repository, log *slog.Logger, interval time.Duration) *Service {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Service{
		repo:     repo,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

// Run выполняет проход сразу и затем каждые interval до отмены ctx.
func (s *Service) Run(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce помечает expired все pending-намерения с истёкшим сроком.
func (s *Service) RunOnce(ctx context.Context) int {
	const op = "sweeper.RunOnce"
	n, err := s.repo.ExpireStalePayments(ctx, s.now())
	if err != nil {
		s.log.Error("failed to expire stale payments", sl.Op(op), sl.Err(err))
		return 0
	}
	if n > 0 {
		s.log.Info("stale payments expired", "count", n)
	}
	return n
}
