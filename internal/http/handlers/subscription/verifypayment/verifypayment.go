// Package verifypayment реализует HTTP-обработчик применения
// подтверждённого платежа к подписке пользователя.
//
// Подпись платежа проверяется раньше, в VerifySignatureMiddleware:
// сюда запрос приходит только с уже подтверждённой подписью.
// Повторная отправка того же платежа безопасна и возвращает
// текущий снимок подписки без продления.
package verifypayment

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/leafguard/leafguard-api/internal/http/middlewarectx"
	"github.com/leafguard/leafguard-api/internal/http/response"
	"github.com/leafguard/leafguard-api/internal/lib/sl"
	"github.com/leafguard/leafguard-api/internal/models"
	"github.com/leafguard/leafguard-api/internal/services/subscription"
)

// Service описывает интерфейс бизнес-логики применения платежа.
type Service interface {
	ApplyPayment(ctx context.Context, userUID string, req models.DummyVerifyRequest) (*subscription.Snapshot, error)
}

// Handler управляет HTTP-запросами на подтверждение платежа.
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
// @Summary Подтвердить платёж и активировать подписку
// @Description Применяет оплаченный платёж: создает или продлевает подписку и продвигает роль до pro.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyVerifyRequest true "Данные платежа из шлюза"
// @Success 200 {object} map[string]any "Снимок подписки после применения платежа"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или подпись"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера или шлюза"
// @Router /subscriptions/verify-payment [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.verifypayment"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyVerifyRequest
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

	snapshot, err := h.service.ApplyPayment(r.Context(), userUID, req)
	if err != nil {
		log.Error("failed to apply payment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not verify payment"))
		return
	}

	log.Info("payment applied",
		slog.String("payment_id", req.RazorpayPaymentID),
		slog.String("plan", req.Plan))
	render.JSON(w, r, response.StatusOKWithData(snapshot))
}
