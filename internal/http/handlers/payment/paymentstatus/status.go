// Package paymentstatus отдаёт статус платёжного намерения пользователю
// для автообновления страницы оплаты.
package paymentstatus

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/music-premium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/music-premium/internal/http/response"
	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
	"github.com/magabrotheeeer/music-premium/internal/models"
	paymentservice "github.com/magabrotheeeer/music-premium/internal/services/payment"
)

// Status ответ со статусом намерения.
type Status struct {
	ID              string               `json:"id"`
	Status          models.PaymentStatus `json:"status"`
	TransactionCode string               `json:"transaction_code"`
	Amount          int64                `json:"amount"`
	PlanID          models.PlanID        `json:"plan_id"`
	PaidAt          *time.Time           `json:"paid_at,omitempty"`
	ExpiresAt       time.Time            `json:"expires_at"`
}

// Service определяет интерфейс чтения статуса.
type Service interface {
	Status(ctx context.Context, userID, paymentID, transactionCode string) (*models.Payment, error)
}

// Handler обрабатывает запросы статуса платежа.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Статус платежа
// @Description Возвращает статус намерения по ID из пути или по payment_id / transaction_code из query. Просроченное ожидающее намерение отдаётся как expired
// @Tags Payments
// @Produce  json
// @Param id path string false "ID платежа"
// @Param payment_id query string false "ID платежа"
// @Param transaction_code query string false "Код транзакции"
// @Success 200 {object} response.Response{data=Status}
// @Failure 400 {object} response.ErrorResponse "Не указан ни ID, ни код"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Платёж не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /payments/{id} [get]
// @Router /payments/status [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.status"
	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		log.Error("user id not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	paymentID := chi.URLParam(r, "id")
	if paymentID == "" {
		paymentID = r.URL.Query().Get("payment_id")
	}
	code := r.URL.Query().Get("transaction_code")
	if paymentID == "" && code == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("payment_id or transaction_code required"))
		return
	}

	p, err := h.service.Status(r.Context(), userID, paymentID, code)
	if errors.Is(err, paymentservice.ErrNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("payment not found"))
		return
	}
	if err != nil {
		log.Error("failed to read payment status", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, response.OKWithData(Status{
		ID:              p.ID,
		Status:          p.Status,
		TransactionCode: p.TransactionCode,
		Amount:          p.Amount,
		PlanID:          p.PlanID,
		PaidAt:          p.PaidAt,
		ExpiresAt:       p.ExpiresAt,
	}))
}
