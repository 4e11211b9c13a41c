// Package paymentwebhook принимает уведомления шлюза о банковских переводах.
//
// Ответы смещены в сторону успеха: нераспознанный или нерелевантный перевод
// подтверждается кодом 200, чтобы шлюз не повторял доставку. 500 отдаётся
// только при сбое записи, тогда повторная доставка нужна.
package paymentwebhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
	"github.com/magabrotheeeer/music-premium/internal/paymentprovider"
	paymentservice "github.com/magabrotheeeer/music-premium/internal/services/payment"
)

const apiKeyScheme = "Apikey "

// Response тело ответа шлюзу.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Service обработка уведомления.
type Service interface {
	ProcessWebhook(ctx context.Context, n paymentprovider.Notification) (paymentservice.WebhookResult, error)
}

// Handler обработчик webhook шлюза.
type Handler struct {
	log      *slog.Logger
	service  Service
	apiKey   string // Пустой ключ отключает проверку заголовка
	validate *validator.Validate
}

// New создаёт Handler. apiKey сравнивается с заголовком "Authorization: Apikey <key>".
func New(log *slog.Logger, service Service, apiKey string) *Handler {
	if apiKey == "" {
		log.Warn("webhook api key is not configured, authorization check disabled")
	}
	return &Handler{
		log:      log,
		service:  service,
		apiKey:   apiKey,
		validate: validator.New(),
	}
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.apiKey == "" {
		return true
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, apiKeyScheme) {
		return false
	}
	key := strings.TrimPrefix(header, apiKeyScheme)
	return subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) == 1
}

// ServeHTTP godoc
// @Summary Webhook шлюза
// @Description Принимает уведомление о переводе, находит платёжное намерение по коду в назначении платежа и завершает его
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param Authorization header string false "Apikey <secret>"
// @Param request body paymentprovider.Notification true "Уведомление шлюза"
// @Success 200 {object} Response "Уведомление обработано или проигнорировано"
// @Failure 400 {object} Response "Некорректное тело"
// @Failure 401 {object} Response "Неверный ключ"
// @Failure 500 {object} Response "Ошибка записи, шлюз повторит доставку"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if !h.authorized(r) {
		log.Warn("invalid or missing webhook api key")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, Response{Success: false, Message: "Unauthorized"})
		return
	}

	var n paymentprovider.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		log.Error("failed to decode webhook payload", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, Response{Success: false, Message: "Invalid payload"})
		return
	}
	if err := h.validate.Struct(n); err != nil {
		log.Error("webhook payload validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, Response{Success: false, Message: "Invalid payload"})
		return
	}

	res, err := h.service.ProcessWebhook(r.Context(), n)
	if err != nil {
		log.Error("failed to process webhook", sl.Err(err), slog.Int64("gateway_tx_id", n.ID))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, Response{Success: false, Message: "Internal server error"})
		return
	}

	log.Info("webhook handled",
		slog.String("outcome", string(res.Outcome)),
		slog.Int64("gateway_tx_id", n.ID),
		slog.String("payment_id", res.PaymentID),
	)
	render.JSON(w, r, Response{Success: true, Message: res.Message})
}

// Probe godoc
// @Summary Проверка доступности webhook
// @Tags Payments
// @Produce  json
// @Success 200 {object} map[string]string
// @Router /payments/webhook [get]
func (h *Handler) Probe(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status":  "ok",
		"message": "webhook endpoint is active",
	})
}
