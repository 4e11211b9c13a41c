// Package history записывает историю прослушиваний.
//
// Запись выполняется в фоне и не влияет на воспроизведение: ошибки
// только логируются. Повторные прослушивания одного трека не схлопываются.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/music-premium/internal/lib/metrics"
	"github.com/magabrotheeeer/music-premium/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
	"github.com/magabrotheeeer/music-premium/internal/models"
)

const (
	// DefaultLimit размер страницы истории по умолчанию.
	DefaultLimit = 20
	// MaxLimit наибольший размер страницы.
	MaxLimit = 100

	writeTimeout = 5 * time.Second
)

// ErrInvalidMessage сообщение очереди не удалось разобрать.
var ErrInvalidMessage = errors.New("invalid history message")

// Repository хранилище истории.
type Repository interface {
	AddListeningHistory(ctx context.Context, userID, songID string, playedAt time.Time) (*models.ListeningHistoryEntry, error)
	ListListeningHistory(ctx context.Context, userID string, limit int) ([]*models.ListeningHistoryEntry, error)
	ClearListeningHistory(ctx context.Context, userID string) (int, error)
}

// Publisher публикует события в брокер.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// PlayedMessage сообщение history.played.
type PlayedMessage struct {
	UserID   string    `json:"user_id"`
	SongID   string    `json:"song_id"`
	PlayedAt time.Time `json:"played_at"`
}

// Service сервис истории прослушиваний.
type Service struct {
	log    *slog.Logger
	repo   Repository
	events Publisher
	now    func() time.Time
	wg     sync.WaitGroup
}

// New создаёт сервис. При events == nil записи пишутся прямо в хранилище.
func New(log *slog.Logger, repo Repository, events Publisher) *Service {
	return &Service{
		log:    log,
		repo:   repo,
		events: events,
		now:    time.Now,
	}
}

// RecordPlay фиксирует начало воспроизведения трека. Не блокирует вызывающего.
func (s *Service) RecordPlay(userID, songID string) {
	const op = "history.RecordPlay"
	if userID == "" || songID == "" {
		return
	}
	msg := PlayedMessage{UserID: userID, SongID: songID, PlayedAt: s.now()}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.record(msg); err != nil {
			metrics.HistoryWriteFailures.Inc()
			s.log.Warn("failed to record play", sl.Op(op), sl.Err(err),
				slog.String("user_id", userID), slog.String("song_id", songID))
		}
	}()
}

func (s *Service) record(msg PlayedMessage) error {
	if s.events != nil {
		return s.events.Publish(rabbitmq.RoutingHistoryPlayed, msg)
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_, err := s.repo.AddListeningHistory(ctx, msg.UserID, msg.SongID, msg.PlayedAt)
	return err
}

// Wait ждёт завершения фоновых записей.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Persist сохраняет сообщение history.played из очереди.
// Битое сообщение возвращает ErrInvalidMessage.
func (s *Service) Persist(ctx context.Context, body []byte) error {
	const op = "history.Persist"
	var msg PlayedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidMessage, err)
	}
	if msg.UserID == "" || msg.SongID == "" {
		return fmt.Errorf("%s: %w: empty user or song", op, ErrInvalidMessage)
	}
	if msg.PlayedAt.IsZero() {
		msg.PlayedAt = s.now()
	}
	if _, err := s.repo.AddListeningHistory(ctx, msg.UserID, msg.SongID, msg.PlayedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// List возвращает последние записи пользователя, новые первыми.
// limit вне диапазона 1..MaxLimit заменяется значением по умолчанию или MaxLimit.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]*models.ListeningHistoryEntry, error) {
	const op = "history.List"
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	list, err := s.repo.ListListeningHistory(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if list == nil {
		list = []*models.ListeningHistoryEntry{}
	}
	return list, nil
}

// Clear удаляет всю историю пользователя.
func (s *Service) Clear(ctx context.Context, userID string) (int, error) {
	const op = "history.Clear"
	n, err := s.repo.ClearListeningHistory(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
