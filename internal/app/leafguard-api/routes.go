package leafguardapi

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/leafguard/leafguard-api/internal/http/handlers/auth/login"
	"github.com/leafguard/leafguard-api/internal/http/handlers/auth/register"
	"github.com/leafguard/leafguard-api/internal/http/handlers/subscription/cancel"
	"github.com/leafguard/leafguard-api/internal/http/handlers/subscription/createorder"
	"github.com/leafguard/leafguard-api/internal/http/handlers/subscription/exportdata"
	"github.com/leafguard/leafguard-api/internal/http/handlers/subscription/listall"
	"github.com/leafguard/leafguard-api/internal/http/handlers/subscription/plans"
	"github.com/leafguard/leafguard-api/internal/http/handlers/subscription/read"
	"github.com/leafguard/leafguard-api/internal/http/handlers/subscription/trackusage"
	"github.com/leafguard/leafguard-api/internal/http/handlers/subscription/verifypayment"
	"github.com/leafguard/leafguard-api/internal/http/middlewarectx"
	authservice "github.com/leafguard/leafguard-api/internal/services/auth"
	orderservice "github.com/leafguard/leafguard-api/internal/services/order"
	subservice "github.com/leafguard/leafguard-api/internal/services/subscription"
	usageservice "github.com/leafguard/leafguard-api/internal/services/usage"
)

// RegisterRoutes регистрирует все маршруты приложения.
//
// Порядок middleware на verify-payment существенный: подпись платежа
// проверяется до того, как обработчик коснётся жизненного цикла подписки.
func RegisterRoutes(r chi.Router, logger *slog.Logger, gatewaySecret string,
	authService *authservice.Service,
	orderService *orderservice.Service,
	subscriptionService *subservice.Service,
	usageService *usageservice.Service,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)
		r.Get("/subscriptions/plans", plans.New(logger).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/subscriptions/create-order", createorder.New(logger, orderService).ServeHTTP)
			r.With(middlewarectx.VerifySignatureMiddleware(gatewaySecret, logger)).
				Post("/subscriptions/verify-payment", verifypayment.New(logger, subscriptionService).ServeHTTP)
			r.Get("/subscriptions/me", read.New(logger, subscriptionService).ServeHTTP)
			r.With(
				middlewarectx.SubscriptionMiddleware(logger, subscriptionService),
				middlewarectx.FeatureAccessMiddleware(logger, subscriptionService, "dataExport"),
			).Get("/subscriptions/export", exportdata.New(logger, subscriptionService, usageService).ServeHTTP)
			r.Post("/subscriptions/cancel", cancel.New(logger, subscriptionService).ServeHTTP)
			r.Post("/subscriptions/track-usage", trackusage.New(logger, usageService).ServeHTTP)
			r.Get("/subscriptions/all", listall.New(logger, subscriptionService).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
