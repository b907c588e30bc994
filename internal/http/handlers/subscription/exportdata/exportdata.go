// Package exportdata реализует HTTP-обработчик выгрузки данных аккаунта:
// снимок подписки и статистику использования одним JSON-файлом.
// Доступ закрыт возможностью dataExport, проверка выполняется middleware.
package exportdata

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/leafguard/leafguard-api/internal/http/middlewarectx"
	"github.com/leafguard/leafguard-api/internal/http/response"
	"github.com/leafguard/leafguard-api/internal/lib/sl"
	"github.com/leafguard/leafguard-api/internal/services/subscription"
	"github.com/leafguard/leafguard-api/internal/services/usage"
)

// Service описывает интерфейс чтения снимка подписки.
type Service interface {
	Get(ctx context.Context, userUID string) (*subscription.Snapshot, error)
}

// UsageRecorder описывает интерфейс учёта факта выгрузки.
type UsageRecorder interface {
	Record(ctx context.Context, userUID, feature string) error
}

// Handler управляет HTTP-запросами на выгрузку данных аккаунта.
type Handler struct {
	log     *slog.Logger
	service Service
	usage   UsageRecorder
}

// New создает новый Handler с переданными логгером и сервисами.
func New(log *slog.Logger, service Service, usage UsageRecorder) *Handler {
	return &Handler{
		log:     log,
		service: service,
		usage:   usage,
	}
}

// ServeHTTP godoc
// @Summary Выгрузить данные аккаунта
// @Description Возвращает подписку и статистику использования как скачиваемый JSON. Требует активную подписку с возможностью dataExport.
// @Tags Subscriptions
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Выгрузка данных"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Возможность недоступна"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscriptions/export [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.exportdata"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	snapshot, err := h.service.Get(r.Context(), userUID)
	if err != nil {
		log.Error("failed to read subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not export account data"))
		return
	}

	// Сбой учёта не должен ломать уже разрешённую выгрузку.
	if err := h.usage.Record(r.Context(), userUID, usage.FeatureExport); err != nil {
		log.Warn("failed to record export usage", sl.Err(err))
	}

	w.Header().Set("Content-Disposition", `attachment; filename="leafguard-export.json"`)
	render.JSON(w, r, response.StatusOKWithData(snapshot))
}
