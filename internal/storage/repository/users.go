package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leafguard/leafguard-api/internal/models"
)

// RegisterUser сохраняет нового пользователя в базу данных и возвращает его UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (email, username, password_hash, role)
			  VALUES ($1, $2, $3, $4)
			  RETURNING uid`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.Username, user.PasswordHash, user.Role).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUserByUsername возвращает пользователя по его username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, role,
			      total_scans, scans_this_month, last_scan_date,
			      exports_count, api_calls_count, created_at
			  FROM users
			  WHERE username = $1`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, username), op)
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, role,
			      total_scans, scans_this_month, last_scan_date,
			      exports_count, api_calls_count, created_at
			  FROM users
			  WHERE uid = $1`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, userUID), op)
}

func (s *Storage) scanUser(row *sql.Row, op string) (*models.User, error) {
	u := &models.User{}
	var lastScanDate sql.NullTime
	if err := row.Scan(&u.UID, &u.Email, &u.Username, &u.PasswordHash, &u.Role,
		&u.UsageStats.TotalScans, &u.UsageStats.ScansThisMonth, &lastScanDate,
		&u.UsageStats.ExportsCount, &u.UsageStats.APICallsCount, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if lastScanDate.Valid {
		u.UsageStats.LastScanDate = &lastScanDate.Time
	}
	return u, nil
}

// UpdateUserRole устанавливает роль пользователя.
func (s *Storage) UpdateUserRole(ctx context.Context, userUID, role string) error {
	const op = "storage.UpdateUserRole"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET role = $1, updated_at = now()
			  WHERE uid = $2`
	_, err := s.DB.ExecContext(ctx, query, role, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DemoteProUser понижает роль pro до user. Условие role = 'pro' гарантирует,
// что admin никогда не понижается, а повторное понижение — no-op.
func (s *Storage) DemoteProUser(ctx context.Context, userUID string) error {
	const op = "storage.DemoteProUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET role = 'user', updated_at = now()
			  WHERE uid = $1 AND role = 'pro'`
	_, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IncrementScanUsage атомарно увеличивает счётчики сканирований пользователя
// и отмечает дату последнего сканирования. Инкремент выполняется на стороне
// базы, а не чтением-изменением-записью, поэтому параллельные запросы
// одного пользователя не теряют обновлений.
func (s *Storage) IncrementScanUsage(ctx context.Context, userUID string, now time.Time) error {
	const op = "storage.IncrementScanUsage"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET total_scans = total_scans + 1,
			      scans_this_month = scans_this_month + 1,
			      last_scan_date = $1,
			      updated_at = now()
			  WHERE uid = $2`
	res, err := s.DB.ExecContext(ctx, query, now, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// IncrementExportUsage атомарно увеличивает счётчик экспортов.
func (s *Storage) IncrementExportUsage(ctx context.Context, userUID string) error {
	const op = "storage.IncrementExportUsage"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET exports_count = exports_count + 1, updated_at = now()
			  WHERE uid = $1`
	res, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// IncrementAPICallUsage атомарно увеличивает счётчик вызовов API.
func (s *Storage) IncrementAPICallUsage(ctx context.Context, userUID string) error {
	const op = "storage.IncrementAPICallUsage"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET api_calls_count = api_calls_count + 1, updated_at = now()
			  WHERE uid = $1`
	res, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// ResetMonthlyScanCounts обнуляет месячные счётчики сканирований у всех
// пользователей. TotalScans не затрагивается. Возвращает число строк.
func (s *Storage) ResetMonthlyScanCounts(ctx context.Context) (int64, error) {
	const op = "storage.ResetMonthlyScanCounts"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET scans_this_month = 0, updated_at = now()
			  WHERE scans_this_month <> 0`
	res, err := s.DB.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return affected, nil
}
