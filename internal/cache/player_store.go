package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/music-premium/internal/player"
)

const playerKeyPrefix = "player:"

// PlayerStore хранит снимки состояния плеера по пользователям.
// Каждое сохранение продлевает TTL сессии.
type PlayerStore struct {
	cache *Cache
	ttl   time.Duration
}

// NewPlayerStore создаёт хранилище сессий плеера.
func NewPlayerStore(c *Cache, ttl time.Duration) *PlayerStore {
	return &PlayerStore{cache: c, ttl: ttl}
}

// Load возвращает сохранённое состояние. Для пользователя без сессии
// возвращается пустое состояние и false.
func (s *PlayerStore) Load(ctx context.Context, userID string) (player.State, bool, error) {
	const op = "cache.PlayerStore.Load"
	var st player.State
	found, err := s.cache.Get(ctx, playerKey(userID), &st)
	if err != nil {
		return player.State{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return st, found, nil
}

// Save сохраняет состояние.
func (s *PlayerStore) Save(ctx context.Context, userID string, st player.State) error {
	const op = "cache.PlayerStore.Save"
	if err := s.cache.Set(ctx, playerKey(userID), st, s.ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func playerKey(userID string) string {
	return playerKeyPrefix + userID
}
