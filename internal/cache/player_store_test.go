package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/music-premium/internal/player"
)

func TestPlayerStore_SaveLoad(t *testing.T) {
	c, mr := setupTestCache(t)
	store := NewPlayerStore(c, time.Hour)
	ctx := context.Background()

	st := player.State{
		Queue:         []string{"b", "a"},
		OriginalQueue: []string{"a", "b"},
		ActiveTrack:   "a",
		Shuffled:      true,
		RepeatMode:    player.RepeatAll,
		UpNext:        []string{"c"},
	}
	require.NoError(t, store.Save(ctx, "user-1", st))
	assert.True(t, mr.Exists("player:user-1"))
	assert.Equal(t, time.Hour, mr.TTL("player:user-1"))

	got, found, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, st, got)
}

func TestPlayerStore_LoadMissing(t *testing.T) {
	c, _ := setupTestCache(t)
	store := NewPlayerStore(c, time.Hour)

	_, found, err := store.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPlayerStore_ExpiredSession(t *testing.T) {
	c, mr := setupTestCache(t)
	store := NewPlayerStore(c, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "user-1", player.State{ActiveTrack: "a"}))
	mr.FastForward(2 * time.Minute)

	_, found, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, found)
}
