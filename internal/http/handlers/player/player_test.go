package player

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/music-premium/internal/http/middlewarectx"
	engine "github.com/magabrotheeeer/music-premium/internal/player"
	"github.com/magabrotheeeer/music-premium/internal/services/playback"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) state(args mock.Arguments) (engine.State, error) {
	return args.Get(0).(engine.State), args.Error(1)
}

func (m *MockService) State(ctx context.Context, userID string) (engine.State, error) {
	return m.state(m.Called(ctx, userID))
}

func (m *MockService) SetQueue(ctx context.Context, userID string, trackIDs []string) (engine.State, error) {
	return m.state(m.Called(ctx, userID, trackIDs))
}

func (m *MockService) SetActive(ctx context.Context, userID, trackID string) (engine.State, error) {
	return m.state(m.Called(ctx, userID, trackID))
}

func (m *MockService) ToggleShuffle(ctx context.Context, userID string) (engine.State, error) {
	return m.state(m.Called(ctx, userID))
}

func (m *MockService) SetRepeatMode(ctx context.Context, userID string, mode engine.RepeatMode) (engine.State, error) {
	return m.state(m.Called(ctx, userID, mode))
}

func (m *MockService) Next(ctx context.Context, userID string) (engine.State, error) {
	return m.state(m.Called(ctx, userID))
}

func (m *MockService) Previous(ctx context.Context, userID string) (engine.State, error) {
	return m.state(m.Called(ctx, userID))
}

func (m *MockService) AddToUpNext(ctx context.Context, userID, trackID string) (engine.State, error) {
	return m.state(m.Called(ctx, userID, trackID))
}

func (m *MockService) RemoveFromUpNext(ctx context.Context, userID, trackID string) (engine.State, error) {
	return m.state(m.Called(ctx, userID, trackID))
}

func (m *MockService) ClearUpNext(ctx context.Context, userID string) (engine.State, error) {
	return m.state(m.Called(ctx, userID))
}

func (m *MockService) Reset(ctx context.Context, userID string) (engine.State, error) {
	return m.state(m.Called(ctx, userID))
}

func (m *MockService) HandleEvent(ctx context.Context, userID string, ev playback.Event) (playback.EventResult, error) {
	args := m.Called(ctx, userID, ev)
	return args.Get(0).(playback.EventResult), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newRouter(service *MockService, userID string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middlewarectx.UserID, userID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/player", New(newNoopLogger(), service).Routes)
	return r
}

func TestPlayerHandlers(t *testing.T) {
	st := engine.State{
		Queue:         []string{"a", "b"},
		OriginalQueue: []string{"a", "b"},
		ActiveTrack:   "a",
		RepeatMode:    engine.RepeatOff,
		UpNext:        []string{},
	}

	tests := []struct {
		name           string
		method         string
		target         string
		body           string
		setupMocks     func(*MockService)
		expectedStatus int
	}{
		{
			name: "get state", method: http.MethodGet, target: "/player",
			setupMocks: func(s *MockService) {
				s.On("State", mock.Anything, "user-1").Return(st, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "set queue", method: http.MethodPut, target: "/player/queue", body: `{"track_ids":["a","b"]}`,
			setupMocks: func(s *MockService) {
				s.On("SetQueue", mock.Anything, "user-1", []string{"a", "b"}).Return(st, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "set queue with empty id", method: http.MethodPut, target: "/player/queue", body: `{"track_ids":["a",""]}`,
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "set active", method: http.MethodPut, target: "/player/active", body: `{"track_id":"b"}`,
			setupMocks: func(s *MockService) {
				s.On("SetActive", mock.Anything, "user-1", "b").Return(st, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "set active without id", method: http.MethodPut, target: "/player/active", body: `{}`,
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "toggle shuffle", method: http.MethodPost, target: "/player/shuffle",
			setupMocks: func(s *MockService) {
				s.On("ToggleShuffle", mock.Anything, "user-1").Return(st, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "set repeat", method: http.MethodPut, target: "/player/repeat", body: `{"mode":"one"}`,
			setupMocks: func(s *MockService) {
				s.On("SetRepeatMode", mock.Anything, "user-1", engine.RepeatOne).Return(st, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "unknown repeat mode", method: http.MethodPut, target: "/player/repeat", body: `{"mode":"twice"}`,
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "next", method: http.MethodPost, target: "/player/next",
			setupMocks: func(s *MockService) {
				s.On("Next", mock.Anything, "user-1").Return(st, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "previous", method: http.MethodPost, target: "/player/previous",
			setupMocks: func(s *MockService) {
				s.On("Previous", mock.Anything, "user-1").Return(st, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "add to up next", method: http.MethodPost, target: "/player/up-next", body: `{"track_id":"z"}`,
			setupMocks: func(s *MockService) {
				s.On("AddToUpNext", mock.Anything, "user-1", "z").Return(st, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "remove from up next", method: http.MethodDelete, target: "/player/up-next/z",
			setupMocks: func(s *MockService) {
				s.On("RemoveFromUpNext", mock.Anything, "user-1", "z").Return(st, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "clear up next", method: http.MethodDelete, target: "/player/up-next",
			setupMocks: func(s *MockService) {
				s.On("ClearUpNext", mock.Anything, "user-1").Return(st, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "reset", method: http.MethodDelete, target: "/player",
			setupMocks: func(s *MockService) {
				s.On("Reset", mock.Anything, "user-1").Return(st, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "store unavailable", method: http.MethodPost, target: "/player/next",
			setupMocks: func(s *MockService) {
				s.On("Next", mock.Anything, "user-1").Return(engine.State{}, errors.New("redis down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name: "invalid json", method: http.MethodPut, target: "/player/queue", body: `{`,
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			tt.setupMocks(service)

			req := httptest.NewRequest(tt.method, tt.target, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			newRouter(service, "user-1").ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			service.AssertExpectations(t)
		})
	}
}

func TestPlayerHandlers_TrackEndedRestart(t *testing.T) {
	service := new(MockService)
	service.On("HandleEvent", mock.Anything, "user-1", playback.EventEnded).Return(playback.EventResult{
		State:   engine.State{Queue: []string{"a"}, OriginalQueue: []string{"a"}, ActiveTrack: "a", RepeatMode: engine.RepeatOne},
		Restart: true,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/player/events", bytes.NewBufferString(`{"type":"ended"}`))
	w := httptest.NewRecorder()
	newRouter(service, "user-1").ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data playback.EventResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Restart)
	assert.Equal(t, "a", resp.Data.State.ActiveTrack)
}

func TestPlayerHandlers_UnknownEvent(t *testing.T) {
	service := new(MockService)
	req := httptest.NewRequest(http.MethodPost, "/player/events", bytes.NewBufferString(`{"type":"seeked"}`))
	w := httptest.NewRecorder()
	newRouter(service, "user-1").ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"status":"Error","error":"field Type must be one of: started ended paused"}`, w.Body.String())
}

func TestPlayerHandlers_Unauthorized(t *testing.T) {
	service := new(MockService)
	req := httptest.NewRequest(http.MethodGet, "/player", nil)
	w := httptest.NewRecorder()
	newRouter(service, "").ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
