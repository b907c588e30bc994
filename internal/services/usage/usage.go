// Package usage отвечает за учёт использования функций приложения:
// сканирования листьев, экспорт данных и вызовы API.
package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leafguard/leafguard-api/internal/lib/clock"
	"github.com/leafguard/leafguard-api/internal/models"
)

// ErrInvalidFeature возвращается для неизвестного имени функции.
// Счётчики при этом не меняются.
var ErrInvalidFeature = errors.New("invalid usage feature")

// Имена учитываемых функций в формате запроса клиента.
const (
	FeatureScan    = "scan"
	FeatureExport  = "export"
	FeatureAPICall = "apiCall"
)

// Repository описывает используемую часть хранилища.
type Repository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	IncrementScanUsage(ctx context.Context, userUID string, now time.Time) error
	IncrementExportUsage(ctx context.Context, userUID string) error
	IncrementAPICallUsage(ctx context.Context, userUID string) error
	IncrementSubscriptionScanCount(ctx context.Context, userUID string) error
	ResetMonthlyScanCounts(ctx context.Context) (int64, error)
}

// Service бизнес-логика учёта использования.
type Service struct {
	repo  Repository
	log   *slog.Logger
	clock clock.Clock
}

// New создает новый экземпляр Service.
func New(repo Repository, log *slog.Logger, clk clock.Clock) *Service {
	return &Service{
		repo:  repo,
		log:   log,
		clock: clk,
	}
}

// Record учитывает одно использование функции feature пользователем.
// Инкременты выполняются атомарно на стороне БД: два одновременных
// сканирования дают ровно +2 без потерянных обновлений.
func (s *Service) Record(ctx context.Context, userUID, feature string) error {
	const op = "services.usage.Record"

	switch feature {
	case FeatureScan:
		if err := s.repo.IncrementScanUsage(ctx, userUID, s.clock.Now()); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		// Зеркальный счётчик на подписке; отсутствие подписки не ошибка.
		if err := s.repo.IncrementSubscriptionScanCount(ctx, userUID); err != nil {
			s.log.Warn("failed to increment subscription scan count",
				slog.String("user_uid", userUID))
		}
	case FeatureExport:
		if err := s.repo.IncrementExportUsage(ctx, userUID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	case FeatureAPICall:
		if err := s.repo.IncrementAPICallUsage(ctx, userUID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	default:
		return fmt.Errorf("%s: %w: %q", op, ErrInvalidFeature, feature)
	}
	return nil
}

// CheckScanQuota сообщает, может ли пользователь выполнить ещё одно
// сканирование. Бесплатный тариф ограничен пятью сканированиями
// в календарный месяц; pro и admin не ограничены.
func (s *Service) CheckScanQuota(ctx context.Context, userUID string) (bool, error) {
	const op = "services.usage.CheckScanQuota"

	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if user.Role != models.RoleUser {
		return true, nil
	}
	return user.UsageStats.ScansThisMonth < models.FreeMonthlyScanLimit, nil
}

// ResetMonthlyCounters обнуляет месячные счётчики сканирований у всех
// пользователей. Вызывается свипером при смене календарного месяца.
func (s *Service) ResetMonthlyCounters(ctx context.Context) (int64, error) {
	const op = "services.usage.ResetMonthlyCounters"

	reset, err := s.repo.ResetMonthlyScanCounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("monthly scan counters reset", slog.Int64("users_affected", reset))
	return reset, nil
}
