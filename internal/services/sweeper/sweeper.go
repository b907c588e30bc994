// Package sweeper реализует фоновую сверку подписок: ежедневное
// закрытие истёкших и ежемесячный сброс счётчиков сканирований.
//
// Свипер не единственный механизм закрытия: проверка доступа лениво
// понижает роль при первом же запросе с недействующей подпиской.
// Свипер подчищает остальные строки и публикует события об истечении.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/leafguard/leafguard-api/internal/lib/clock"
	"github.com/leafguard/leafguard-api/internal/lib/sl"
	"github.com/leafguard/leafguard-api/internal/models"
	"github.com/leafguard/leafguard-api/internal/rabbitmq"
)

var (
	expiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leafguard_sweeper_expired_subscriptions_total",
		Help: "Subscriptions moved to expired by the sweep.",
	})
	publishFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leafguard_sweeper_publish_failures_total",
		Help: "Expired events that could not be published to RabbitMQ.",
	})
	monthlyResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leafguard_sweeper_monthly_resets_total",
		Help: "Completed monthly usage counter resets.",
	})
)

// Repository описывает используемую часть хранилища.
type Repository interface {
	ExpireDueSubscriptions(ctx context.Context, now time.Time) ([]*models.ExpiredEvent, error)
}

// UsageResetter сбрасывает месячные счётчики использования.
type UsageResetter interface {
	ResetMonthlyCounters(ctx context.Context) (int64, error)
}

// Publisher публикует события в брокер сообщений.
type Publisher interface {
	Publish(exchange, routingKey string, message any) error
}

// Service фоновая сверка подписок.
type Service struct {
	repo      Repository
	usage     UsageResetter
	publisher Publisher
	log       *slog.Logger
	clock     clock.Clock

	// Месяц последнего выполненного сброса, чтобы не сбрасывать дважды.
	lastResetMonth time.Month
	lastResetYear  int
}

// New создает новый экземпляр Service.
func New(repo Repository, usage UsageResetter, publisher Publisher, log *slog.Logger, clk clock.Clock) *Service {
	now := clk.Now()
	return &Service{
		repo:           repo,
		usage:          usage,
		publisher:      publisher,
		log:            log,
		clock:          clk,
		lastResetMonth: now.Month(),
		lastResetYear:  now.Year(),
	}
}

// RunExpirySweepLoop запускает цикл ежедневного закрытия истёкших подписок.
// Первый проход выполняется сразу, дальше по тикеру. Блокирует до отмены ctx.
func (s *Service) RunExpirySweepLoop(ctx context.Context, interval time.Duration) {
	s.RunExpirySweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunExpirySweep(ctx)
		}
	}
}

// RunExpirySweep выполняет один проход: помечает истёкшие активные подписки
// как expired, понижает роли владельцев и публикует события об истечении.
// Проход идемпотентен: условный UPDATE второй раз те же строки не возьмёт,
// поэтому одновременный запуск двух свиперов безопасен.
func (s *Service) RunExpirySweep(ctx context.Context) {
	s.log.Info("starting subscription expiry sweep")

	expired, err := s.repo.ExpireDueSubscriptions(ctx, s.clock.Now())
	if err != nil {
		s.log.Error("expiry sweep failed", sl.Err(err))
		return
	}
	if len(expired) == 0 {
		s.log.Info("no subscriptions to expire")
		return
	}

	expiredTotal.Add(float64(len(expired)))
	s.log.Info("expired subscriptions", slog.Int("count", len(expired)))

	for _, event := range expired {
		if err := s.publisher.Publish(rabbitmq.ExchangeName, "expired", event); err != nil {
			publishFailedTotal.Inc()
			s.log.Error("failed to publish expired event",
				slog.String("user_uid", event.UserUID), sl.Err(err))
		}
	}
}

// RunMonthlyResetLoop запускает цикл проверки смены календарного месяца.
// Проверка дешёвая и выполняется чаще самого сброса: сброс происходит
// только когда месяц на часах отличается от месяца последнего сброса.
func (s *Service) RunMonthlyResetLoop(ctx context.Context, interval time.Duration) {
	s.RunMonthlyReset(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunMonthlyReset(ctx)
		}
	}
}

// RunMonthlyReset сбрасывает месячные счётчики, если календарный месяц
// сменился с момента последнего сброса. Иначе ничего не делает.
func (s *Service) RunMonthlyReset(ctx context.Context) {
	now := s.clock.Now()
	if now.Month() == s.lastResetMonth && now.Year() == s.lastResetYear {
		return
	}

	s.log.Info("starting monthly usage counter reset",
		slog.String("month", now.Month().String()))

	reset, err := s.usage.ResetMonthlyCounters(ctx)
	if err != nil {
		s.log.Error("monthly reset failed", sl.Err(err))
		return
	}

	s.lastResetMonth = now.Month()
	s.lastResetYear = now.Year()
	monthlyResetsTotal.Inc()
	s.log.Info("monthly usage counters reset", slog.Int64("users_affected", reset))
}
