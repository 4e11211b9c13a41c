package paymentlist

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/music-premium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/music-premium/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ListPayments(ctx context.Context, userID string) ([]*models.Payment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func serve(t *testing.T, service *MockService, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil)
	req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, userID))
	w := httptest.NewRecorder()
	New(newNoopLogger(), service).ServeHTTP(w, req)
	return w
}

func TestPaymentListHandler_Success(t *testing.T) {
	now := time.Now().UTC()
	service := new(MockService)
	service.On("ListPayments", mock.Anything, "user-1").Return([]*models.Payment{
		{ID: "pay-2", Status: models.PaymentCompleted, CreatedAt: now},
		{ID: "pay-1", Status: models.PaymentExpired, CreatedAt: now.Add(-time.Hour)},
	}, nil).Once()

	w := serve(t, service, "user-1")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string           `json:"status"`
		Data   []models.Payment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "OK", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "pay-2", resp.Data[0].ID)
	assert.Equal(t, models.PaymentExpired, resp.Data[1].Status)
}

func TestPaymentListHandler_Empty(t *testing.T) {
	service := new(MockService)
	service.On("ListPayments", mock.Anything, "user-1").Return(nil, nil).Once()

	w := serve(t, service, "user-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK","data":[]}`, w.Body.String())
}

func TestPaymentListHandler_Errors(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		w := serve(t, new(MockService), "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("storage error", func(t *testing.T) {
		service := new(MockService)
		service.On("ListPayments", mock.Anything, "user-1").Return(nil, errors.New("db down")).Once()

		w := serve(t, service, "user-1")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"status":"Error","error":"failed to fetch payment history"}`, w.Body.String())
	})
}
