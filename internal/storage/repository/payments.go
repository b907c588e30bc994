package repository

import (
	"context"
	"fmt"
	"time"
)

// RecordAppliedPayment записывает платёж в журнал применённых платежей.
// payment_id — первичный ключ: один реальный платёж применяется не более
// одного раза. Возвращает false, если платёж уже был применён ранее —
// повторное подтверждение того же платежа обязано стать no-op.
func (s *Storage) RecordAppliedPayment(ctx context.Context, paymentID, orderID, userUID string, now time.Time) (bool, error) {
	const op = "storage.RecordAppliedPayment"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO applied_payments (payment_id, order_id, user_uid, applied_at)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (payment_id) DO NOTHING`
	res, err := s.DB.ExecContext(ctx, query, paymentID, orderID, userUID, now)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}
