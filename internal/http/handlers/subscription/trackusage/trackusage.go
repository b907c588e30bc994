// Package trackusage реализует HTTP-обработчик учёта использования
// функций приложения: сканирований, экспортов и вызовов API.
package trackusage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/leafguard/leafguard-api/internal/http/middlewarectx"
	"github.com/leafguard/leafguard-api/internal/http/response"
	"github.com/leafguard/leafguard-api/internal/lib/sl"
	"github.com/leafguard/leafguard-api/internal/models"
	"github.com/leafguard/leafguard-api/internal/services/usage"
)

// Service описывает интерфейс бизнес-логики учёта использования.
type Service interface {
	Record(ctx context.Context, userUID, feature string) error
}

// Handler управляет HTTP-запросами на учёт использования.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Учесть использование функции
// @Description Инкрементирует счётчики использования для функции scan, export или apiCall.
// @Tags Usage
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyUsageRequest true "Имя функции"
// @Success 200 {object} map[string]any "Использование учтено"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или неизвестная функция"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscriptions/track-usage [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.trackusage"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.Record(r.Context(), userUID, req.Feature); err != nil {
		if errors.Is(err, usage.ErrInvalidFeature) {
			log.Error("unknown usage feature", slog.String("feature", req.Feature))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown usage feature"))
			return
		}
		log.Error("failed to record usage", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not record usage"))
		return
	}

	log.Info("usage recorded",
		slog.String("user_uid", userUID),
		slog.String("feature", req.Feature))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"recorded": true,
	}))
}
