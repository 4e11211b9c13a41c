// Package paymentcreate обрабатывает создание платёжного намерения
// на премиум-подписку.
package paymentcreate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/music-premium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/music-premium/internal/http/response"
	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
	"github.com/magabrotheeeer/music-premium/internal/models"
	paymentservice "github.com/magabrotheeeer/music-premium/internal/services/payment"
)

// Request запрос на создание платежа.
type Request struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// Intent данные для перевода, которые показываются пользователю.
type Intent struct {
	ID                  string    `json:"id"`
	TransactionCode     string    `json:"transaction_code"`
	Amount              int64     `json:"amount"`
	PlanName            string    `json:"plan_name"`
	ExpiresAt           time.Time `json:"expires_at"`
	TransferDescription string    `json:"transfer_description"`
}

// Service определяет интерфейс для работы с платежами.
type Service interface {
	CreatePayment(ctx context.Context, userID string, planID models.PlanID) (*models.Payment, error)
}

// Handler обрабатывает запросы на создание платёжных намерений.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис сверки платежей
	validate *validator.Validate // Валидатор структуры входящих данных
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать платёж
// @Description Отменяет прежние ожидающие платежи пользователя и создаёт новое намерение с кодом для банковского перевода
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Тариф"
// @Success 200 {object} response.Response{data=Intent} "Намерение создано"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или неизвестный тариф"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "Подписка уже активна"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /payments [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.create"
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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	p, err := h.service.CreatePayment(r.Context(), userID, models.PlanID(req.PlanID))
	switch {
	case errors.Is(err, paymentservice.ErrInvalidPlan):
		log.Warn("invalid plan", slog.String("plan_id", req.PlanID))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid plan"))
		return
	case errors.Is(err, paymentservice.ErrActiveSubscription):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error("already have active subscription"))
		return
	case err != nil:
		log.Error("failed to create payment", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to create payment"))
		return
	}

	plan, _ := models.FindPlan(p.PlanID)
	log.Info("payment intent created", slog.String("payment_id", p.ID), slog.String("code", p.TransactionCode))
	render.JSON(w, r, response.OKWithData(Intent{
		ID:                  p.ID,
		TransactionCode:     p.TransactionCode,
		Amount:              p.Amount,
		PlanName:            plan.Name,
		ExpiresAt:           p.ExpiresAt,
		TransferDescription: paymentservice.TransferDescription(p.TransactionCode),
	}))
}
