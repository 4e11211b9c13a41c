// Package playback хранит сессию плеера пользователя и применяет к ней
// операции движка очереди. Каждая операция загружает состояние, меняет его
// одним вызовом движка и сохраняет обратно.
package playback

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/music-premium/internal/lib/metrics"
	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
	"github.com/magabrotheeeer/music-premium/internal/player"
)

// Event событие аудиоплеера клиента.
type Event string

const (
	EventStarted Event = "started"
	EventEnded   Event = "ended"
	EventPaused  Event = "paused"
)

// ErrUnknownEvent неизвестный тип события.
var ErrUnknownEvent = errors.New("unknown playback event")

// StateStore хранилище сессий плеера.
type StateStore interface {
	Load(ctx context.Context, userID string) (player.State, bool, error)
	Save(ctx context.Context, userID string, st player.State) error
}

// Recorder фиксирует начало воспроизведения.
type Recorder interface {
	RecordPlay(userID, songID string)
}

// EventResult ответ на событие плеера.
type EventResult struct {
	State player.State `json:"state"`
	// Restart true, если текущий трек нужно проиграть сначала.
	Restart bool `json:"restart"`
}

const lockStripes = 64

// Service сервис сессий плеера.
type Service struct {
	log      *slog.Logger
	store    StateStore
	recorder Recorder
	opts     []player.Option

	// операции одного пользователя в пределах процесса выполняются по очереди
	locks [lockStripes]sync.Mutex
}

// New создаёт сервис.
func New(log *slog.Logger, store StateStore, recorder Recorder, opts ...player.Option) *Service {
	return &Service{
		log:      log,
		store:    store,
		recorder: recorder,
		opts:     opts,
	}
}

func (s *Service) lock(userID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	mu := &s.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// apply загружает сессию, применяет fn и сохраняет результат.
func (s *Service) apply(ctx context.Context, op, userID string, fn func(p *player.Player)) (player.State, error) {
	unlock := s.lock(userID)
	defer unlock()

	st, ok, err := s.store.Load(ctx, userID)
	if err != nil {
		return player.State{}, fmt.Errorf("%s: %w", op, err)
	}
	var p *player.Player
	if ok {
		p = player.Restore(st, s.opts...)
	} else {
		p = player.New(s.opts...)
	}

	fn(p)

	next := p.State()
	if err := s.store.Save(ctx, userID, next); err != nil {
		return player.State{}, fmt.Errorf("%s: %w", op, err)
	}
	metrics.PlayerOperations.WithLabelValues(op).Inc()
	return next, nil
}

// State возвращает сессию пользователя. Отсутствующая сессия пустая.
func (s *Service) State(ctx context.Context, userID string) (player.State, error) {
	const op = "playback.State"
	st, ok, err := s.store.Load(ctx, userID)
	if err != nil {
		return player.State{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return player.New().State(), nil
	}
	return player.Restore(st).State(), nil
}

// SetQueue заменяет очередь.
func (s *Service) SetQueue(ctx context.Context, userID string, trackIDs []string) (player.State, error) {
	return s.apply(ctx, "set_queue", userID, func(p *player.Player) { p.SetQueue(trackIDs) })
}

// SetActive делает трек активным. Наличие трека в очереди не проверяется.
func (s *Service) SetActive(ctx context.Context, userID, trackID string) (player.State, error) {
	return s.apply(ctx, "set_active", userID, func(p *player.Player) { p.SetActive(trackID) })
}

func (s *Service) ToggleShuffle(ctx context.Context, userID string) (player.State, error) {
	return s.apply(ctx, "toggle_shuffle", userID, func(p *player.Player) { p.ToggleShuffle() })
}

func (s *Service) SetRepeatMode(ctx context.Context, userID string, mode player.RepeatMode) (player.State, error) {
	return s.apply(ctx, "set_repeat", userID, func(p *player.Player) { p.SetRepeatMode(mode) })
}

func (s *Service) Next(ctx context.Context, userID string) (player.State, error) {
	return s.apply(ctx, "next", userID, func(p *player.Player) { p.PlayNext() })
}

func (s *Service) Previous(ctx context.Context, userID string) (player.State, error) {
	return s.apply(ctx, "previous", userID, func(p *player.Player) { p.PlayPrevious() })
}

func (s *Service) AddToUpNext(ctx context.Context, userID, trackID string) (player.State, error) {
	return s.apply(ctx, "up_next_add", userID, func(p *player.Player) { p.AddToUpNext(trackID) })
}

func (s *Service) RemoveFromUpNext(ctx context.Context, userID, trackID string) (player.State, error) {
	return s.apply(ctx, "up_next_remove", userID, func(p *player.Player) { p.RemoveFromUpNext(trackID) })
}

func (s *Service) ClearUpNext(ctx context.Context, userID string) (player.State, error) {
	return s.apply(ctx, "up_next_clear", userID, func(p *player.Player) { p.ClearUpNext() })
}

// Reset очищает очередь, активный трек и up next. Shuffle и режим повтора сохраняются.
func (s *Service) Reset(ctx context.Context, userID string) (player.State, error) {
	return s.apply(ctx, "reset", userID, func(p *player.Player) { p.Reset() })
}

// HandleEvent обрабатывает событие аудиоплеера.
//
// started записывает прослушивание активного трека, ended применяет
// политику окончания трека, paused ничего не меняет.
func (s *Service) HandleEvent(ctx context.Context, userID string, ev Event) (EventResult, error) {
	const op = "playback.HandleEvent"

	switch ev {
	case EventStarted:
		st, err := s.State(ctx, userID)
		if err != nil {
			return EventResult{}, fmt.Errorf("%s: %w", op, err)
		}
		if st.ActiveTrack == "" {
			s.log.Debug("playback started without active track", sl.Op(op), slog.String("user_id", userID))
			return EventResult{State: st}, nil
		}
		s.recorder.RecordPlay(userID, st.ActiveTrack)
		return EventResult{State: st}, nil

	case EventEnded:
		var restart bool
		st, err := s.apply(ctx, "track_ended", userID, func(p *player.Player) { restart = p.TrackEnded() })
		if err != nil {
			return EventResult{}, fmt.Errorf("%s: %w", op, err)
		}
		return EventResult{State: st, Restart: restart}, nil

	case EventPaused:
		st, err := s.State(ctx, userID)
		if err != nil {
			return EventResult{}, fmt.Errorf("%s: %w", op, err)
		}
		return EventResult{State: st}, nil

	default:
		return EventResult{}, fmt.Errorf("%s: %w: %q", op, ErrUnknownEvent, ev)
	}
}
