// Package paymentverify обрабатывает ручную проверку оплаты через API шлюза.
package paymentverify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/music-premium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/music-premium/internal/http/response"
	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
	paymentservice "github.com/magabrotheeeer/music-premium/internal/services/payment"
)

// Service определяет интерфейс ручной проверки.
type Service interface {
	Verify(ctx context.Context, userID, paymentID string) (paymentservice.VerifyResult, error)
}

// Handler обрабатывает запросы ручной проверки платежа.
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
// @Summary Проверить оплату
// @Description Ищет перевод в списке транзакций шлюза и при совпадении завершает платёж. Недоступность шлюза и отсутствие перевода возвращают статус pending
// @Tags Payments
// @Produce  json
// @Param id path string true "ID платежа"
// @Success 200 {object} response.Response{data=paymentservice.VerifyResult}
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Платёж не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка записи результата"
// @Router /payments/{id}/verify [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.verify"
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
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("payment id required"))
		return
	}

	res, err := h.service.Verify(r.Context(), userID, paymentID)
	if errors.Is(err, paymentservice.ErrNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("payment not found"))
		return
	}
	if err != nil {
		log.Error("failed to verify payment", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to verify payment"))
		return
	}

	log.Info("payment verification finished", slog.String("payment_id", paymentID), slog.String("status", string(res.Status)))
	render.JSON(w, r, response.OKWithData(res))
}
