// Package read отдаёт премиум-подписку текущего пользователя.
package read

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/music-premium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/music-premium/internal/http/response"
	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
	"github.com/magabrotheeeer/music-premium/internal/models"
	paymentservice "github.com/magabrotheeeer/music-premium/internal/services/payment"
)

// Result ответ с подпиской. Subscription отсутствует, если пользователь ни разу не платил.
type Result struct {
	Active       bool                 `json:"active"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
}

// Service описывает интерфейс чтения подписки.
type Service interface {
	Subscription(ctx context.Context, userID string) (*models.Subscription, error)
}

// Handler обрабатывает запросы на получение подписки пользователя.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис платежей, владеющий подписками
	now     func() time.Time
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		now:     time.Now,
	}
}

// ServeHTTP godoc
// @Summary Подписка пользователя
// @Description Возвращает премиум-подписку и признак того, что она действует сейчас
// @Tags Subscription
// @Produce  json
// @Success 200 {object} response.Response{data=Result}
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscription [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.read"

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

	sub, err := h.service.Subscription(r.Context(), userID)
	if errors.Is(err, paymentservice.ErrNotFound) {
		render.JSON(w, r, response.OKWithData(Result{Active: false}))
		return
	}
	if err != nil {
		log.Error("failed to read subscription", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read subscription"))
		return
	}

	active := sub.Status == models.SubscriptionActive && sub.CurrentPeriodEnd.After(h.now())
	render.JSON(w, r, response.OKWithData(Result{Active: active, Subscription: sub}))
}
