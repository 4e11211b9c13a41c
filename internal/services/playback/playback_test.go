package playback

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
	"github.com/magabrotheeeer/music-premium/internal/player"
)

// memStore хранит сессии в памяти.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]player.State
	loadErr  error
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string]player.State{}}
}

func (m *memStore) Load(_ context.Context, userID string) (player.State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return player.State{}, false, m.loadErr
	}
	st, ok := m.sessions[userID]
	return st, ok, nil
}

func (m *memStore) Save(_ context.Context, userID string, st player.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = st
	return nil
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordPlay(userID, songID string) {
	m.Called(userID, songID)
}

func newTestService() (*Service, *memStore, *MockRecorder) {
	store := newMemStore()
	rec := new(MockRecorder)
	return New(sl.Discard(), store, rec), store, rec
}

func TestService_StateOfNewUser(t *testing.T) {
	s, _, _ := newTestService()
	st, err := s.State(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, st.Queue)
	assert.Equal(t, player.RepeatOff, st.RepeatMode)
}

func TestService_OperationsPersist(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newTestService()

	_, err := s.SetQueue(ctx, "user-1", []string{"a", "b", "c"})
	require.NoError(t, err)
	_, err = s.SetActive(ctx, "user-1", "a")
	require.NoError(t, err)
	st, err := s.Next(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "b", st.ActiveTrack)

	st, err = s.Previous(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "a", st.ActiveTrack)

	_, err = s.SetRepeatMode(ctx, "user-1", player.RepeatAll)
	require.NoError(t, err)
	_, err = s.AddToUpNext(ctx, "user-1", "z")
	require.NoError(t, err)

	saved := store.sessions["user-1"]
	assert.Equal(t, "a", saved.ActiveTrack)
	assert.Equal(t, player.RepeatAll, saved.RepeatMode)
	assert.Equal(t, []string{"z"}, saved.UpNext)

	st, err = s.RemoveFromUpNext(ctx, "user-1", "z")
	require.NoError(t, err)
	assert.Empty(t, st.UpNext)

	_, err = s.AddToUpNext(ctx, "user-1", "y")
	require.NoError(t, err)
	st, err = s.ClearUpNext(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, st.UpNext)
}

func TestService_ToggleShuffleTwiceRestores(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService()
	queue := []string{"a", "b", "c", "d", "e"}

	_, err := s.SetQueue(ctx, "user-1", queue)
	require.NoError(t, err)
	st, err := s.ToggleShuffle(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, st.Shuffled)
	assert.ElementsMatch(t, queue, st.Queue)

	st, err = s.ToggleShuffle(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, st.Shuffled)
	assert.Equal(t, queue, st.Queue)
}

func TestService_Reset(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newTestService()
	_, err := s.SetQueue(ctx, "user-1", []string{"a", "b"})
	require.NoError(t, err)
	_, err = s.SetActive(ctx, "user-1", "a")
	require.NoError(t, err)
	_, err = s.AddToUpNext(ctx, "user-1", "c")
	require.NoError(t, err)
	_, err = s.SetRepeatMode(ctx, "user-1", player.RepeatAll)
	require.NoError(t, err)
	_, err = s.ToggleShuffle(ctx, "user-1")
	require.NoError(t, err)

	st, err := s.Reset(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, st.Queue)
	assert.Empty(t, st.OriginalQueue)
	assert.Empty(t, st.ActiveTrack)
	assert.Empty(t, st.UpNext)
	assert.Equal(t, player.RepeatAll, st.RepeatMode)
	assert.True(t, st.Shuffled)

	saved := store.sessions["user-1"]
	assert.Equal(t, player.RepeatAll, saved.RepeatMode)
	assert.Empty(t, saved.Queue)
}

func TestService_LoadError(t *testing.T) {
	s, store, _ := newTestService()
	store.loadErr = errors.New("redis down")

	_, err := s.Next(context.Background(), "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
}

func TestService_HandleEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("started records active track", func(t *testing.T) {
		s, _, rec := newTestService()
		rec.On("RecordPlay", "user-1", "a").Once()
		_, err := s.SetQueue(ctx, "user-1", []string{"a", "b"})
		require.NoError(t, err)
		_, err = s.SetActive(ctx, "user-1", "a")
		require.NoError(t, err)

		res, err := s.HandleEvent(ctx, "user-1", EventStarted)
		require.NoError(t, err)
		assert.Equal(t, "a", res.State.ActiveTrack)
		rec.AssertExpectations(t)
	})

	t.Run("started without active track records nothing", func(t *testing.T) {
		s, _, rec := newTestService()
		_, err := s.HandleEvent(ctx, "user-1", EventStarted)
		require.NoError(t, err)
		rec.AssertNotCalled(t, "RecordPlay", mock.Anything, mock.Anything)
	})

	t.Run("ended with repeat one asks for restart", func(t *testing.T) {
		s, _, _ := newTestService()
		_, err := s.SetQueue(ctx, "user-1", []string{"a", "b"})
		require.NoError(t, err)
		_, err = s.SetActive(ctx, "user-1", "a")
		require.NoError(t, err)
		_, err = s.SetRepeatMode(ctx, "user-1", player.RepeatOne)
		require.NoError(t, err)

		res, err := s.HandleEvent(ctx, "user-1", EventEnded)
		require.NoError(t, err)
		assert.True(t, res.Restart)
		assert.Equal(t, "a", res.State.ActiveTrack)
	})

	t.Run("ended with repeat off advances", func(t *testing.T) {
		s, _, _ := newTestService()
		_, err := s.SetQueue(ctx, "user-1", []string{"a", "b"})
		require.NoError(t, err)
		_, err = s.SetActive(ctx, "user-1", "a")
		require.NoError(t, err)

		res, err := s.HandleEvent(ctx, "user-1", EventEnded)
		require.NoError(t, err)
		assert.False(t, res.Restart)
		assert.Equal(t, "b", res.State.ActiveTrack)
	})

	t.Run("paused changes nothing", func(t *testing.T) {
		s, _, rec := newTestService()
		_, err := s.SetActive(ctx, "user-1", "a")
		require.NoError(t, err)

		res, err := s.HandleEvent(ctx, "user-1", EventPaused)
		require.NoError(t, err)
		assert.Equal(t, "a", res.State.ActiveTrack)
		rec.AssertNotCalled(t, "RecordPlay", mock.Anything, mock.Anything)
	})

	t.Run("unknown event", func(t *testing.T) {
		s, _, _ := newTestService()
		_, err := s.HandleEvent(ctx, "user-1", Event("seeked"))
		assert.ErrorIs(t, err, ErrUnknownEvent)
	})
}

func TestService_ConcurrentOperationsOnOneUser(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddToUpNext(ctx, "user-1", string(rune('a'+i)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := s.State(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, st.UpNext, 20)
}
