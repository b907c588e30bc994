// Package sweeper собирает и запускает фоновый сервис сверки подписок.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/leafguard/leafguard-api/internal/config"
	"github.com/leafguard/leafguard-api/internal/lib/clock"
	"github.com/leafguard/leafguard-api/internal/rabbitmq"
	sweeperservice "github.com/leafguard/leafguard-api/internal/services/sweeper"
	usageservice "github.com/leafguard/leafguard-api/internal/services/usage"
	"github.com/leafguard/leafguard-api/internal/storage/repository"
)

// App представляет приложение фоновой сверки.
type App struct {
	sweeperService *sweeperservice.Service
	cfg            *config.Config
	conn           *amqp.Connection
	ch             *amqp.Channel
	db             *repository.Storage
	logger         *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения сверки.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	queues := rabbitmq.GetEntitlementQueues()
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	clk := clock.RealClock{}
	usageService := usageservice.New(db, logger, clk)
	publisher := rabbitmq.NewPublisher(ch)
	sweeperService := sweeperservice.New(db, usageService, publisher, logger, clk)

	return &App{
		sweeperService: sweeperService,
		cfg:            cfg,
		conn:           conn,
		ch:             ch,
		db:             db,
		logger:         logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run запускает циклы сверки и блокирует до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	go a.sweeperService.RunExpirySweepLoop(ctx, a.cfg.ExpiryInterval)
	go a.sweeperService.RunMonthlyResetLoop(ctx, a.cfg.ResetInterval)

	<-ctx.Done()

	a.logger.Info("shutting down sweeper service")

	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close database", slog.Any("err", err))
	}
	closeResources(a.ch, a.conn, a.logger)

	return nil
}
