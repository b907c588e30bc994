package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leafguard/leafguard-api/internal/models"
)

const subscriptionColumns = `id, user_uid, plan, status, start_date, end_date,
			      unlimited_scans, advanced_analytics, data_export,
			      historical_data, premium_support, api_access,
			      payment_id, order_id, amount, currency, receipt,
			      coupon_used, discount_applied, scan_count, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	var couponUsed sql.NullString
	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.Plan, &sub.Status,
		&sub.StartDate, &sub.EndDate,
		&sub.Features.UnlimitedScans, &sub.Features.AdvancedAnalytics,
		&sub.Features.DataExport, &sub.Features.HistoricalData,
		&sub.Features.PremiumSupport, &sub.Features.APIAccess,
		&sub.PaymentDetails.PaymentID, &sub.PaymentDetails.OrderID,
		&sub.PaymentDetails.Amount, &sub.PaymentDetails.Currency,
		&sub.PaymentDetails.Receipt, &couponUsed,
		&sub.PaymentDetails.DiscountApplied, &sub.ScanCount,
		&sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	if couponUsed.Valid {
		sub.PaymentDetails.CouponUsed = &couponUsed.String
	}
	return &sub, nil
}

// GetSubscriptionByUserUID возвращает подписку пользователя.
func (s *Storage) GetSubscriptionByUserUID(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByUserUID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_uid = $1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// CreateSubscription вставляет новую подписку и продвигает роль владельца
// до pro в одной транзакции. Уникальный индекс по user_uid гарантирует
// не более одной подписки на пользователя.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (int, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO subscriptions (user_uid, plan, status, start_date, end_date,
			      payment_id, order_id, amount, currency, receipt,
			      coupon_used, discount_applied)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			  RETURNING id`
	var newID int
	err = tx.QueryRowContext(ctx, query,
		sub.UserUID, sub.Plan, sub.Status, sub.StartDate, sub.EndDate,
		sub.PaymentDetails.PaymentID, sub.PaymentDetails.OrderID,
		sub.PaymentDetails.Amount, sub.PaymentDetails.Currency,
		sub.PaymentDetails.Receipt, sub.PaymentDetails.CouponUsed,
		sub.PaymentDetails.DiscountApplied).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	promote := `UPDATE users
			  SET role = 'pro', updated_at = now()
			  WHERE uid = $1 AND role <> 'admin'`
	if _, err = tx.ExecContext(ctx, promote, sub.UserUID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReplaceSubscription перезаписывает неактивную подписку пользователя новой
// (повторная покупка после истечения или отмены) и продвигает роль до pro.
func (s *Storage) ReplaceSubscription(ctx context.Context, sub models.Subscription) (int, error) {
	const op = "storage.ReplaceSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `UPDATE subscriptions
			  SET plan = $1, status = $2, start_date = $3, end_date = $4,
			      payment_id = $5, order_id = $6, amount = $7, currency = $8,
			      receipt = $9, coupon_used = $10, discount_applied = $11,
			      updated_at = now()
			  WHERE user_uid = $12
			  RETURNING id`
	var id int
	err = tx.QueryRowContext(ctx, query,
		sub.Plan, sub.Status, sub.StartDate, sub.EndDate,
		sub.PaymentDetails.PaymentID, sub.PaymentDetails.OrderID,
		sub.PaymentDetails.Amount, sub.PaymentDetails.Currency,
		sub.PaymentDetails.Receipt, sub.PaymentDetails.CouponUsed,
		sub.PaymentDetails.DiscountApplied, sub.UserUID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	promote := `UPDATE users
			  SET role = 'pro', updated_at = now()
			  WHERE uid = $1 AND role <> 'admin'`
	if _, err = tx.ExecContext(ctx, promote, sub.UserUID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// ExtendSubscription продлевает активную подписку до новой даты окончания.
// Обновление условное: строка меняется только пока end_date равна prevEndDate.
// Если два продления пришли почти одновременно, второе получит ErrStaleEndDate
// и обязано перечитать подписку — так исключается недопродление по устаревшей дате.
func (s *Storage) ExtendSubscription(ctx context.Context, userUID, plan string,
	prevEndDate, newEndDate time.Time, details models.PaymentDetails) error {
	const op = "storage.ExtendSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET plan = $1, status = 'active', end_date = $2,
			      payment_id = $3, order_id = $4, amount = $5, currency = $6,
			      receipt = $7, coupon_used = $8, discount_applied = $9,
			      updated_at = now()
			  WHERE user_uid = $10 AND end_date = $11`
	res, err := s.DB.ExecContext(ctx, query,
		plan, newEndDate,
		details.PaymentID, details.OrderID, details.Amount, details.Currency,
		details.Receipt, details.CouponUsed, details.DiscountApplied,
		userUID, prevEndDate)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrStaleEndDate)
	}
	return nil
}

// CancelSubscription помечает подписку отменённой. Дата окончания и роль
// не меняются: доступ сохраняется до естественного истечения.
func (s *Storage) CancelSubscription(ctx context.Context, userUID string) error {
	const op = "storage.CancelSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = 'canceled', updated_at = now()
			  WHERE user_uid = $1`
	res, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
	}
	return nil
}

// ExpireDueSubscriptions помечает истёкшие активные подписки как expired
// и понижает роли их владельцев с pro до user в одной транзакции.
// Условие status = 'active' AND end_date < $1 делает операцию идемпотентной:
// повторный запуск по тем же строкам ничего не меняет.
func (s *Storage) ExpireDueSubscriptions(ctx context.Context, now time.Time) ([]*models.ExpiredEvent, error) {
	const op = "storage.ExpireDueSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `UPDATE subscriptions
			  SET status = 'expired', updated_at = now()
			  WHERE status = 'active' AND end_date < $1
			  RETURNING id, user_uid, plan, end_date`
	rows, err := tx.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var expired []*models.ExpiredEvent
	for rows.Next() {
		var ev models.ExpiredEvent
		if err := rows.Scan(&ev.SubscriptionID, &ev.UserUID, &ev.Plan, &ev.EndDate); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ev.ExpiredAt = now
		expired = append(expired, &ev)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	demote := `UPDATE users
			  SET role = 'user', updated_at = now()
			  WHERE uid = $1 AND role = 'pro'`
	for _, ev := range expired {
		if _, err := tx.ExecContext(ctx, demote, ev.UserUID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return expired, nil
}

// IncrementSubscriptionScanCount атомарно увеличивает зеркальный счётчик
// сканирований на подписке пользователя, если она есть.
func (s *Storage) IncrementSubscriptionScanCount(ctx context.Context, userUID string) error {
	const op = "storage.IncrementSubscriptionScanCount"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET scan_count = scan_count + 1, updated_at = now()
			  WHERE user_uid = $1`
	_, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListAllSubscriptions возвращает список подписок с пагинацией
// и необязательным фильтром по статусу. Используется админским эндпоинтом.
func (s *Storage) ListAllSubscriptions(ctx context.Context, status string, limit, offset int) ([]*models.Subscription, error) {
	const op = "storage.ListAllSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE ($1 = '' OR status = $1)
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountSubscriptions возвращает количество подписок с учётом фильтра по статусу.
func (s *Storage) CountSubscriptions(ctx context.Context, status string) (int, error) {
	const op = "storage.CountSubscriptions"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM subscriptions WHERE ($1 = '' OR status = $1)`
	var total int
	if err := s.DB.QueryRowContext(ctx, query, status).Scan(&total); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, nil
}
