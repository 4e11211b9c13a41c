// Package player реализует HTTP-обработчики сессии плеера: очередь,
// активный трек, перемешивание, режим повтора, переходы и события аудиоплеера.
//
// Каждый обработчик применяет одну операцию и возвращает итоговое состояние.
package player

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/music-premium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/music-premium/internal/http/response"
	"github.com/magabrotheeeer/music-premium/internal/lib/sl"
	engine "github.com/magabrotheeeer/music-premium/internal/player"
	"github.com/magabrotheeeer/music-premium/internal/services/playback"
)

// QueueRequest новая очередь.
type QueueRequest struct {
	TrackIDs []string `json:"track_ids" validate:"max=1000,dive,required"`
}

// TrackRequest запрос с одним треком.
type TrackRequest struct {
	TrackID string `json:"track_id" validate:"required"`
}

// RepeatRequest режим повтора.
type RepeatRequest struct {
	Mode string `json:"mode" validate:"required,oneof=off all one"`
}

// EventRequest событие аудиоплеера.
type EventRequest struct {
	Type string `json:"type" validate:"required,oneof=started ended paused"`
}

// Service операции над сессией плеера.
type Service interface {
	State(ctx context.Context, userID string) (engine.State, error)
	SetQueue(ctx context.Context, userID string, trackIDs []string) (engine.State, error)
	SetActive(ctx context.Context, userID, trackID string) (engine.State, error)
	ToggleShuffle(ctx context.Context, userID string) (engine.State, error)
	SetRepeatMode(ctx context.Context, userID string, mode engine.RepeatMode) (engine.State, error)
	Next(ctx context.Context, userID string) (engine.State, error)
	Previous(ctx context.Context, userID string) (engine.State, error)
	AddToUpNext(ctx context.Context, userID, trackID string) (engine.State, error)
	RemoveFromUpNext(ctx context.Context, userID, trackID string) (engine.State, error)
	ClearUpNext(ctx context.Context, userID string) (engine.State, error)
	Reset(ctx context.Context, userID string) (engine.State, error)
	HandleEvent(ctx context.Context, userID string, ev playback.Event) (playback.EventResult, error)
}

// Handler обработчики сессии плеера.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// Routes монтирует обработчики на r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.GetState)
	r.Delete("/", h.Reset)
	r.Put("/queue", h.SetQueue)
	r.Put("/active", h.SetActive)
	r.Post("/shuffle", h.ToggleShuffle)
	r.Put("/repeat", h.SetRepeat)
	r.Post("/next", h.Next)
	r.Post("/previous", h.Previous)
	r.Post("/events", h.Event)
	r.Post("/up-next", h.AddToUpNext)
	r.Delete("/up-next", h.ClearUpNext)
	r.Delete("/up-next/{trackID}", h.RemoveFromUpNext)
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request, log *slog.Logger) (string, bool) {
	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		log.Error("user id not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
	}
	return userID, ok
}

// decode читает и валидирует тело запроса. При ошибке ответ уже записан.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid request body"))
			return false
		}
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(verrs))
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, log *slog.Logger, data any, err error) {
	if err != nil {
		log.Error("player operation failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("player session unavailable"))
		return
	}
	render.JSON(w, r, response.OKWithData(data))
}

// GetState godoc
// @Summary Состояние плеера
// @Tags Player
// @Produce  json
// @Success 200 {object} response.Response{data=engine.State}
// @Failure 401 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /player [get]
// @Security BearerAuth
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.player.state")
	userID, ok := h.user(w, r, log)
	if !ok {
		return
	}
	st, err := h.service.State(r.Context(), userID)
	h.respond(w, r, log, st, err)
}

// SetQueue godoc
// @Summary Заменить очередь
// @Description Активный трек не меняется
// @Tags Player
// @Accept  json
// @Produce  json
// @Param request body QueueRequest true "Треки"
// @Success 200 {object} response.Response{data=engine.State}
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /player/queue [put]
// @Security BearerAuth
func (h *Handler) SetQueue(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.player.queue")
	userID, ok := h.user(w, r, log)
	if !ok {
		return
	}
	var req QueueRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	st, err := h.service.SetQueue(r.Context(), userID, req.TrackIDs)
	h.respond(w, r, log, st, err)
}

// SetActive godoc
// @Summary Выбрать трек
// @Tags Player
// @Accept  json
// @Produce  json
// @Param request body TrackRequest true "Трек"
// @Success 200 {object} response.Response{data=engine.State}
// @Failure 422 {object} response.ErrorResponse
// @Router /player/active [put]
// @Security BearerAuth
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.player.active")
	userID, ok := h.user(w, r, log)
	if !ok {
		return
	}
	var req TrackRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	st, err := h.service.SetActive(r.Context(), userID, req.TrackID)
	h.respond(w, r, log, st, err)
}

// ToggleShuffle godoc
// @Summary Переключить перемешивание
// @Description Повторное переключение восстанавливает исходный порядок
// @Tags Player
// @Produce  json
// @Success 200 {object} response.Response{data=engine.State}
// @Router /player/shuffle [post]
// @Security BearerAuth
func (h *Handler) ToggleShuffle(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.player.shuffle")
	userID, ok := h.user(w, r, log)
	if !ok {
		return
	}
	st, err := h.service.ToggleShuffle(r.Context(), userID)
	h.respond(w, r, log, st, err)
}

// SetRepeat godoc
// @Summary Режим повтора
// @Tags Player
// @Accept  json
// @Produce  json
// @Param request body RepeatRequest true "off, all или one"
// @Success 200 {object} response.Response{data=engine.State}
// @Failure 422 {object} response.ErrorResponse
// @Router /player/repeat [put]
// @Security BearerAuth
func (h *Handler) SetRepeat(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.player.repeat")
	userID, ok := h.user(w, r, log)
	if !ok {
		return
	}
	var req RepeatRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	mode, err := engine.ParseRepeatMode(req.Mode)
	if err != nil {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}
	st, err := h.service.SetRepeatMode(r.Context(), userID, mode)
	h.respond(w, r, log, st, err)
}

// Next godoc
// @Summary Следующий трек
// @Tags Player
// @Produce  json
// @Success 200 {object} response.Response{data=engine.State}
// @Router /player/next [post]
// @Security BearerAuth
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.player.next")
	userID, ok := h.user(w, r, log)
	if !ok {
		return
	}
	st, err := h.service.Next(r.Context(), userID)
	h.respond(w, r, log, st, err)
}

// Previous godoc
// @Summary Предыдущий трек
// @Description С первого трека переходит на последний при любом режиме повтора
// @Tags Player
// @Produce  json
// @Success 200 {object} response.Response{data=engine.State}
// @Router /player/previous [post]
// @Security BearerAuth
func (h *Handler) Previous(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.player.previous")
	userID, ok := h.user(w, r, log)
	if !ok {
		return
	}
	st, err := h.service.Previous(r.Context(), userID)
	h.respond(w, r, log, st, err)
}

// Event godoc
// @Summary Событие аудиоплеера
// @Description started записывает прослушивание, ended применяет политику окончания трека, paused ничего не меняет
// @Tags Player
// @Accept  json
// @Produce  json
// @Param request body EventRequest true "Событие"
// @Success 200 {object} response.Response{data=playback.EventResult}
// @Failure 422 {object} response.ErrorResponse
// @Router /player/events [post]
// @Security BearerAuth
func (h *Handler) Event(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.player.event")
	userID, ok := h.user(w, r, log)
	if !ok {
		return
	}
	var req EventRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	res, err := h.service.HandleEvent(r.Context(), userID, playback.Event(req.Type))
	h.respond(w, r, log, res, err)
}

// AddToUpNext godoc
// @Summary Добавить в «далее»
// @Tags Player
// @Accept  json
// @Produce  json
// @Param request body TrackRequest true "Трек"
// @Success 200 {object} response.Response{data=engine.State}
// @Router /player/up-next [post]
// @Security BearerAuth
func (h *Handler) AddToUpNext(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.player.up_next_add")
	userID, ok := h.user(w, r, log)
	if !ok {
		return
	}
	var req TrackRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	st, err := h.service.AddToUpNext(r.Context(), userID, req.TrackID)
	h.respond(w, r, log, st, err)
}

// RemoveFromUpNext godoc
// @Summary Убрать из «далее»
// @Tags Player
// @Produce  json
// @Param trackID path string true "Трек"
// @Success 200 {object} response.Response{data=engine.State}
// @Router /player/up-next/{trackID} [delete]
// @Security BearerAuth
func (h *Handler) RemoveFromUpNext(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.player.up_next_remove")
	userID, ok := h.user(w, r, log)
	if !ok {
		return
	}
	st, err := h.service.RemoveFromUpNext(r.Context(), userID, chi.URLParam(r, "trackID"))
	h.respond(w, r, log, st, err)
}

// ClearUpNext godoc
// @Summary Очистить «далее»
// @Tags Player
// @Produce  json
// @Success 200 {object} response.Response{data=engine.State}
// @Router /player/up-next [delete]
// @Security BearerAuth
func (h *Handler) ClearUpNext(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.player.up_next_clear")
	userID, ok := h.user(w, r, log)
	if !ok {
		return
	}
	st, err := h.service.ClearUpNext(r.Context(), userID)
	h.respond(w, r, log, st, err)
}

// Reset godoc
// @Summary Очистить очередь плеера
// @Tags Player
// @Produce  json
// @Success 200 {object} response.Response{data=engine.State}
// @Failure 500 {object} response.ErrorResponse
// @Router /player [delete]
// @Security BearerAuth
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.player.reset")
	userID, ok := h.user(w, r, log)
	if !ok {
		return
	}
	st, err := h.service.Reset(r.Context(), userID)
	h.respond(w, r, log, st, err)
}
