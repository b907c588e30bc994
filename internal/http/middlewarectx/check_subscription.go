package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/leafguard/leafguard-api/internal/http/response"
	"github.com/leafguard/leafguard-api/internal/lib/sl"
)

// AccessChecker определяет интерфейс для проверки действующего Pro-доступа.
type AccessChecker interface {
	CheckAccess(ctx context.Context, userUID string) (bool, error)
	CheckFeatureAccess(ctx context.Context, userUID, feature string) (bool, error)
}

// SubscriptionMiddleware создает middleware, пускающее дальше только
// пользователей с действующей подпиской или ролью admin.
// Проверка живая: сравниваются даты, а не хранимый статус, поэтому
// stale-active подписка будет отклонена (и роль владельца лениво понижена
// сервисом) даже до прохода свипера.
func SubscriptionMiddleware(log *slog.Logger, access AccessChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.SubscriptionMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			userUID, ok := r.Context().Value(UserUID).(string)
			if !ok || userUID == "" {
				log.Error("user identification missing")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			allowed, err := access.CheckAccess(r.Context(), userUID)
			if err != nil {
				log.Error("failed to check subscription access", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}
			if !allowed {
				log.Info("access denied: no active subscription",
					slog.String("user_uid", userUID))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("active subscription required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// FeatureAccessMiddleware создает middleware, проверяющее доступ
// к конкретной возможности Pro-подписки.
func FeatureAccessMiddleware(log *slog.Logger, access AccessChecker, feature string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.FeatureAccessMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			userUID, ok := r.Context().Value(UserUID).(string)
			if !ok || userUID == "" {
				log.Error("user identification missing")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			allowed, err := access.CheckFeatureAccess(r.Context(), userUID, feature)
			if err != nil {
				log.Error("failed to check feature access", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}
			if !allowed {
				log.Info("feature access denied",
					slog.String("user_uid", userUID),
					slog.String("feature", feature))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("subscription feature not available"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
