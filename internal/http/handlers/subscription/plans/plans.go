// Package plans реализует публичный HTTP-обработчик каталога планов
// подписки с ценами и списком преимуществ Pro.
package plans

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/leafguard/leafguard-api/internal/http/response"
	"github.com/leafguard/leafguard-api/internal/models"
)

// Handler отдает статический каталог планов.
type Handler struct {
	log *slog.Logger
}

// New создает новый Handler с переданным логгером.
func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// ServeHTTP godoc
// @Summary Получить каталог планов подписки
// @Description Возвращает планы с ценами и список преимуществ Pro. Авторизация не требуется.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} map[string]any "Каталог планов"
// @Router /subscriptions/plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"plans":    models.DefaultPlans(),
		"benefits": models.DefaultBenefits(),
	}))
}
