package history

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/music-premium/internal/lib/metrics"
	"github.com/magabrotheeeer/music-premium/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
	"github.com/magabrotheeeer/music-premium/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) AddListeningHistory(ctx context.Context, userID, songID string, playedAt time.Time) (*models.ListeningHistoryEntry, error) {
	args := m.Called(ctx, userID, songID, playedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ListeningHistoryEntry), args.Error(1)
}

func (m *MockRepository) ListListeningHistory(ctx context.Context, userID string, limit int) ([]*models.ListeningHistoryEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ListeningHistoryEntry), args.Error(1)
}

func (m *MockRepository) ClearListeningHistory(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, message any) error {
	return m.Called(routingKey, message).Error(0)
}

var playedAt = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestService(repo *MockRepository, pub Publisher) *Service {
	s := New(sl.Discard(), repo, pub)
	s.now = func() time.Time { return playedAt }
	return s
}

func TestRecordPlay_WritesDirectly(t *testing.T) {
	repo := new(MockRepository)
	repo.On("AddListeningHistory", mock.Anything, "user-1", "song-1", playedAt).
		Return(&models.ListeningHistoryEntry{ID: "h1"}, nil).Twice()

	s := newTestService(repo, nil)
	s.RecordPlay("user-1", "song-1")
	s.RecordPlay("user-1", "song-1")
	s.Wait()

	repo.AssertNumberOfCalls(t, "AddListeningHistory", 2)
}

func TestRecordPlay_FailureIsSwallowed(t *testing.T) {
	repo := new(MockRepository)
	repo.On("AddListeningHistory", mock.Anything, "user-1", "song-1", playedAt).
		Return(nil, errors.New("db down")).Once()

	before := testutil.ToFloat64(metrics.HistoryWriteFailures)
	s := newTestService(repo, nil)
	assert.NotPanics(t, func() {
		s.RecordPlay("user-1", "song-1")
		s.Wait()
	})
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.HistoryWriteFailures))
}

func TestRecordPlay_PublishesWhenBrokerConfigured(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)
	pub.On("Publish", rabbitmq.RoutingHistoryPlayed, PlayedMessage{UserID: "user-1", SongID: "song-1", PlayedAt: playedAt}).
		Return(nil).Once()

	s := newTestService(repo, pub)
	s.RecordPlay("user-1", "song-1")
	s.Wait()

	pub.AssertExpectations(t)
	repo.AssertNotCalled(t, "AddListeningHistory", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordPlay_IgnoresEmptyIDs(t *testing.T) {
	repo := new(MockRepository)
	s := newTestService(repo, nil)
	s.RecordPlay("", "song-1")
	s.RecordPlay("user-1", "")
	s.Wait()
	repo.AssertNotCalled(t, "AddListeningHistory", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPersist(t *testing.T) {
	tests := []struct {
		name       string
		body       []byte
		setupMocks func(*MockRepository)
		wantErr    error
	}{
		{
			name: "valid message",
			body: mustJSON(t, PlayedMessage{UserID: "user-1", SongID: "song-1", PlayedAt: playedAt}),
			setupMocks: func(r *MockRepository) {
				r.On("AddListeningHistory", mock.Anything, "user-1", "song-1", playedAt).
					Return(&models.ListeningHistoryEntry{ID: "h1"}, nil).Once()
			},
		},
		{
			name:    "broken json",
			body:    []byte("{"),
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "missing song",
			body:    mustJSON(t, PlayedMessage{UserID: "user-1"}),
			wantErr: ErrInvalidMessage,
		},
		{
			name: "storage error is returned for requeue",
			body: mustJSON(t, PlayedMessage{UserID: "user-1", SongID: "song-1", PlayedAt: playedAt}),
			setupMocks: func(r *MockRepository) {
				r.On("AddListeningHistory", mock.Anything, "user-1", "song-1", playedAt).
					Return(nil, errors.New("db down")).Once()
			},
			wantErr: errors.New("db down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			if tt.setupMocks != nil {
				tt.setupMocks(repo)
			}
			err := newTestService(repo, nil).Persist(context.Background(), tt.body)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
			} else {
				require.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestList_ClampsLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{in: 0, want: DefaultLimit},
		{in: -5, want: DefaultLimit},
		{in: 10, want: 10},
		{in: 1000, want: MaxLimit},
	}
	for _, tt := range tests {
		repo := new(MockRepository)
		repo.On("ListListeningHistory", mock.Anything, "user-1", tt.want).Return(nil, nil).Once()

		list, err := newTestService(repo, nil).List(context.Background(), "user-1", tt.in)
		require.NoError(t, err)
		assert.NotNil(t, list)
		repo.AssertExpectations(t)
	}
}

func TestClear(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ClearListeningHistory", mock.Anything, "user-1").Return(3, nil).Once()

	n, err := newTestService(repo, nil).Clear(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
