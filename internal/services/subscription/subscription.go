// Package subscription управляет жизненным циклом подписки: применение
// оплаченного платежа, отмена, чтение снимка и проверки доступа.
//
// Подтверждение подписи платежа выполняется раньше, в middleware:
// сюда запрос попадает только с уже проверенной подписью.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leafguard/leafguard-api/internal/lib/clock"
	"github.com/leafguard/leafguard-api/internal/lib/sl"
	"github.com/leafguard/leafguard-api/internal/models"
	"github.com/leafguard/leafguard-api/internal/razorpay"
	"github.com/leafguard/leafguard-api/internal/services/order"
	"github.com/leafguard/leafguard-api/internal/storage/repository"
)

// TTL кеша снимка подписки. Снимок инвалидируется при любой мутации,
// TTL — страховка на случай пропущенной инвалидации.
const snapshotTTL = 5 * time.Minute

// Число повторных попыток условного продления при гонке двух платежей.
const maxExtendRetries = 3

// Repository описывает используемую часть хранилища.
type Repository interface {
	GetSubscriptionByUserUID(ctx context.Context, userUID string) (*models.Subscription, error)
	CreateSubscription(ctx context.Context, sub models.Subscription) (int, error)
	ReplaceSubscription(ctx context.Context, sub models.Subscription) (int, error)
	ExtendSubscription(ctx context.Context, userUID, plan string,
		prevEndDate, newEndDate time.Time, details models.PaymentDetails) error
	CancelSubscription(ctx context.Context, userUID string) error
	ListAllSubscriptions(ctx context.Context, status string, limit, offset int) ([]*models.Subscription, error)
	CountSubscriptions(ctx context.Context, status string) (int, error)
	RecordAppliedPayment(ctx context.Context, paymentID, orderID, userUID string, now time.Time) (bool, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	DemoteProUser(ctx context.Context, userUID string) error
}

// Gateway описывает используемую часть клиента платёжного шлюза.
type Gateway interface {
	FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error)
}

// SnapshotCache кеш снимков подписки.
type SnapshotCache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Snapshot снимок состояния подписки и использования пользователя.
// IsActive всегда вычисляется на момент запроса и в кеш не попадает.
type Snapshot struct {
	HasSubscription bool                 `json:"has_subscription"`
	IsActive        bool                 `json:"is_active"`
	Role            string               `json:"role"`
	Subscription    *models.Subscription `json:"subscription,omitempty"`
	Usage           models.UsageStats    `json:"usage"`
}

// ListResult страница админского списка подписок.
type ListResult struct {
	Subscriptions []*models.Subscription `json:"subscriptions"`
	Total         int                    `json:"total"`
	Page          int                    `json:"page"`
	Pages         int                    `json:"pages"`
}

// Service бизнес-логика жизненного цикла подписки.
type Service struct {
	repo    Repository
	gateway Gateway
	cache   SnapshotCache
	log     *slog.Logger
	clock   clock.Clock
}

// New создает новый экземпляр Service.
func New(repo Repository, gateway Gateway, cache SnapshotCache, log *slog.Logger, clk clock.Clock) *Service {
	return &Service{
		repo:    repo,
		gateway: gateway,
		cache:   cache,
		log:     log,
		clock:   clk,
	}
}

// ApplyPayment применяет подтверждённый платёж к подписке пользователя.
//
// Порядок строгий: сначала заказ заново читается из шлюза (ни одной локальной
// записи до успешного ответа), затем платёж регистрируется в леджере
// applied_payments. Повторное применение того же payment_id — no-op:
// возвращается текущий снимок без продления.
func (s *Service) ApplyPayment(ctx context.Context, userUID string, req models.DummyVerifyRequest) (*Snapshot, error) {
	const op = "services.subscription.ApplyPayment"
	log := s.log.With(slog.String("op", op), slog.String("order_id", req.RazorpayOrderID))

	now := s.clock.Now()

	gatewayOrder, err := s.gateway.FetchOrder(ctx, req.RazorpayOrderID)
	if err != nil {
		log.Error("failed to fetch order from gateway", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	applied, err := s.repo.RecordAppliedPayment(ctx, req.RazorpayPaymentID, req.RazorpayOrderID, userUID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !applied {
		log.Info("payment already applied, skipping extension",
			slog.String("payment_id", req.RazorpayPaymentID))
		return s.Get(ctx, userUID)
	}

	details := buildPaymentDetails(req, gatewayOrder)

	if err := s.upsertSubscription(ctx, userUID, req.Plan, now, details); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Invalidate(cacheKey(userUID)); err != nil {
		log.Warn("failed to invalidate subscription cache", sl.Err(err))
	}

	log.Info("payment applied",
		slog.String("payment_id", req.RazorpayPaymentID),
		slog.String("plan", req.Plan))

	return s.Get(ctx, userUID)
}

// upsertSubscription создаёт, продлевает или перезаписывает подписку так,
// чтобы у пользователя всегда была ровно одна строка.
func (s *Service) upsertSubscription(ctx context.Context, userUID, plan string,
	now time.Time, details models.PaymentDetails) error {
	sub, err := s.repo.GetSubscriptionByUserUID(ctx, userUID)
	if err != nil {
		if !errors.Is(err, repository.ErrSubscriptionNotFound) {
			return err
		}
		_, err = s.repo.CreateSubscription(ctx, models.Subscription{
			UserUID:        userUID,
			Plan:           plan,
			Status:         models.StatusActive,
			StartDate:      now,
			EndDate:        models.AddPlanDuration(now, plan),
			Features:       models.AllFeatures(),
			PaymentDetails: details,
		})
		return err
	}

	if !sub.IsActive(now) {
		// Истёкшая или отменённая подписка: новый период с текущего момента.
		_, err = s.repo.ReplaceSubscription(ctx, models.Subscription{
			UserUID:        userUID,
			Plan:           plan,
			Status:         models.StatusActive,
			StartDate:      now,
			EndDate:        models.AddPlanDuration(now, plan),
			Features:       models.AllFeatures(),
			PaymentDetails: details,
		})
		return err
	}

	// Активная подписка: аддитивное продление от max(now, end_date).
	// Обновление условное по прочитанной end_date; при гонке перечитываем.
	for attempt := 0; ; attempt++ {
		newEnd := sub.Extend(plan, now)
		err = s.repo.ExtendSubscription(ctx, userUID, plan, sub.EndDate, newEnd, details)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrStaleEndDate) || attempt >= maxExtendRetries {
			return err
		}
		sub, err = s.repo.GetSubscriptionByUserUID(ctx, userUID)
		if err != nil {
			return err
		}
	}
}

// Cancel помечает подписку пользователя отменённой.
// Дата окончания и роль не трогаются: доступ действует до конца периода.
func (s *Service) Cancel(ctx context.Context, userUID string) error {
	const op = "services.subscription.Cancel"

	if err := s.repo.CancelSubscription(ctx, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Invalidate(cacheKey(userUID)); err != nil {
		s.log.Warn("failed to invalidate subscription cache", sl.Err(err))
	}
	s.log.Info("subscription canceled", slog.String("user_uid", userUID))
	return nil
}

// Get возвращает снимок подписки и использования пользователя.
// Снимок кешируется в Redis; IsActive вычисляется на каждый запрос,
// чтобы кешированное значение не пережило дату окончания.
func (s *Service) Get(ctx context.Context, userUID string) (*Snapshot, error) {
	const op = "services.subscription.Get"

	var snapshot Snapshot
	found, err := s.cache.Get(cacheKey(userUID), &snapshot)
	if err != nil {
		s.log.Warn("subscription cache read failed", sl.Err(err))
	}
	if found {
		snapshot.IsActive = snapshot.Subscription != nil && snapshot.Subscription.IsActive(s.clock.Now())
		return &snapshot, nil
	}

	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	snapshot = Snapshot{
		Role:  user.Role,
		Usage: user.UsageStats,
	}
	sub, err := s.repo.GetSubscriptionByUserUID(ctx, userUID)
	if err != nil && !errors.Is(err, repository.ErrSubscriptionNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sub != nil {
		snapshot.HasSubscription = true
		snapshot.Subscription = sub
	}

	if err := s.cache.Set(cacheKey(userUID), snapshot, snapshotTTL); err != nil {
		s.log.Warn("subscription cache write failed", sl.Err(err))
	}

	snapshot.IsActive = sub != nil && sub.IsActive(s.clock.Now())
	return &snapshot, nil
}

// ListAll возвращает страницу подписок с фильтром по статусу. Только для админа.
func (s *Service) ListAll(ctx context.Context, status string, page, limit int) (*ListResult, error) {
	const op = "services.subscription.ListAll"

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	subs, err := s.repo.ListAllSubscriptions(ctx, status, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	total, err := s.repo.CountSubscriptions(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return &ListResult{
		Subscriptions: subs,
		Total:         total,
		Page:          page,
		Pages:         pages,
	}, nil
}

// CheckAccess сообщает, есть ли у пользователя Pro-доступ прямо сейчас.
// Админ проходит всегда. Для пользователя с ролью pro и недействующей
// подпиской выполняется ленивое понижение роли до user: свипер мог ещё
// не добежать до этой строки.
func (s *Service) CheckAccess(ctx context.Context, userUID string) (bool, error) {
	const op = "services.subscription.CheckAccess"

	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if user.Role == models.RoleAdmin {
		return true, nil
	}

	sub, err := s.repo.GetSubscriptionByUserUID(ctx, userUID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return false, s.demoteIfPro(ctx, user)
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if sub.IsActive(s.clock.Now()) {
		return true, nil
	}
	return false, s.demoteIfPro(ctx, user)
}

// CheckFeatureAccess сообщает, доступна ли пользователю конкретная
// возможность Pro. Админ проходит всегда.
func (s *Service) CheckFeatureAccess(ctx context.Context, userUID, feature string) (bool, error) {
	const op = "services.subscription.CheckFeatureAccess"

	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if user.Role == models.RoleAdmin {
		return true, nil
	}

	sub, err := s.repo.GetSubscriptionByUserUID(ctx, userUID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return sub.IsActive(s.clock.Now()) && sub.Features.Has(feature), nil
}

func (s *Service) demoteIfPro(ctx context.Context, user *models.User) error {
	if user.Role != models.RolePro {
		return nil
	}
	if err := s.repo.DemoteProUser(ctx, user.UID); err != nil {
		return fmt.Errorf("demote pro user: %w", err)
	}
	if err := s.cache.Invalidate(cacheKey(user.UID)); err != nil {
		s.log.Warn("failed to invalidate subscription cache", sl.Err(err))
	}
	s.log.Info("lazily demoted user with inactive subscription",
		slog.String("user_uid", user.UID))
	return nil
}

func buildPaymentDetails(req models.DummyVerifyRequest, gatewayOrder *razorpay.Order) models.PaymentDetails {
	details := models.PaymentDetails{
		PaymentID: req.RazorpayPaymentID,
		OrderID:   req.RazorpayOrderID,
		Amount:    gatewayOrder.Amount / 100,
		Currency:  gatewayOrder.Currency,
		Receipt:   gatewayOrder.Receipt,
	}
	if req.CouponCode != "" {
		coupon := req.CouponCode
		details.CouponUsed = &coupon
		details.DiscountApplied = details.Amount < fullPlanPrice(req.Plan)
	}
	return details
}

func fullPlanPrice(plan string) int {
	if plan == models.PlanAnnual {
		return order.PriceAnnual
	}
	return order.PriceMonthly
}

func cacheKey(userUID string) string {
	return "subscription:" + userUID
}
