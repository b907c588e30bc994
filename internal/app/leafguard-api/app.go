// Package leafguardapi собирает и запускает HTTP API движка подписок.
package leafguardapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/leafguard/leafguard-api/internal/cache"
	"github.com/leafguard/leafguard-api/internal/config"
	"github.com/leafguard/leafguard-api/internal/lib/clock"
	libjwt "github.com/leafguard/leafguard-api/internal/lib/jwt"
	"github.com/leafguard/leafguard-api/internal/migrations"
	"github.com/leafguard/leafguard-api/internal/razorpay"
	authservice "github.com/leafguard/leafguard-api/internal/services/auth"
	orderservice "github.com/leafguard/leafguard-api/internal/services/order"
	subservice "github.com/leafguard/leafguard-api/internal/services/subscription"
	usageservice "github.com/leafguard/leafguard-api/internal/services/usage"
	"github.com/leafguard/leafguard-api/internal/storage/repository"
)

// App инкапсулирует HTTP-сервер и подключения к внешним ресурсам.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

// New создает приложение: подключает БД и Redis, прогоняет миграции,
// собирает сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	clk := clock.RealClock{}
	jwtMaker := libjwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	gateway := razorpay.NewClient(cfg.KeyID, cfg.KeySecret, cfg.APIURL, cfg.Razorpay.Timeout)

	authService := authservice.New(db, jwtMaker)
	orderService := orderservice.New(gateway, logger, clk)
	subscriptionService := subservice.New(db, gateway, cacheRedis, logger, clk)
	usageService := usageservice.New(db, logger, clk)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg.KeySecret,
		authService, orderService, subscriptionService, usageService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

// Run запускает HTTP-сервер и блокирует до отмены ctx или ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close database", slog.Any("err", closeErr))
		}
		return err
	}
}
