// Package history реализует HTTP-обработчики чтения и очистки истории прослушиваний.
package history

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/music-premium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/music-premium/internal/http/response"
	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
	"github.com/magabrotheeeer/music-premium/internal/models"
)

// Service история прослушиваний.
type Service interface {
	List(ctx context.Context, userID string, limit int) ([]*models.ListeningHistoryEntry, error)
	Clear(ctx context.Context, userID string) (int, error)
}

// Handler обработчики истории.
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

// List godoc
// @Summary История прослушиваний
// @Description Последние прослушивания пользователя, новые первыми
// @Tags History
// @Produce  json
// @Param limit query int false "Размер страницы, по умолчанию 20"
// @Success 200 {object} response.Response{data=[]models.ListeningHistoryEntry}
// @Failure 400 {object} response.ErrorResponse "Некорректный limit"
// @Failure 401 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /history [get]
// @Security BearerAuth
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.history.list"
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

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	list, err := h.service.List(r.Context(), userID, limit)
	if err != nil {
		log.Error("failed to list history", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to fetch listening history"))
		return
	}
	render.JSON(w, r, response.OKWithData(list))
}

// Clear godoc
// @Summary Очистить историю прослушиваний
// @Tags History
// @Produce  json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /history [delete]
// @Security BearerAuth
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.history.clear"
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

	n, err := h.service.Clear(r.Context(), userID)
	if err != nil {
		log.Error("failed to clear history", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to clear listening history"))
		return
	}
	log.Info("listening history cleared", slog.Int("deleted", n))
	render.JSON(w, r, response.OKWithData(map[string]int{"deleted": n}))
}
