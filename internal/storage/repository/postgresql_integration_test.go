package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leafguard/leafguard-api/internal/models"
)

func TestStorage_RegisterAndGetUser(t *testing.T) {
	tests := []struct {
		name     string
		user     models.User
		wantRole string
		wantErr  bool
	}{
		{
			name: "successful register and fetch",
			user: models.User{
				Email:        "grower@example.com",
				Username:     "grower",
				PasswordHash: "hashedpassword",
				Role:         models.RoleUser,
			},
			wantRole: models.RoleUser,
			wantErr:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			uid, err := storage.RegisterUser(context.Background(), tt.user)
			require.NoError(t, err)
			require.NotEmpty(t, uid)

			got, err := storage.GetUser(context.Background(), uid)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.user.Email, got.Email)
			assert.Equal(t, tt.user.Username, got.Username)
			assert.Equal(t, tt.wantRole, got.Role)
			assert.Equal(t, 0, got.UsageStats.ScansThisMonth)
		})
	}
}

func TestStorage_GetUserByUsername_NotFound(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	got, err := storage.GetUserByUsername(context.Background(), "nonexistent")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUserNotFound)
	assert.Nil(t, got)
}

func TestStorage_CreateSubscription(t *testing.T) {
	startDate := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		role     string
		wantRole string
	}{
		{
			name:     "user is promoted to pro",
			role:     models.RoleUser,
			wantRole: models.RolePro,
		},
		{
			name:     "admin keeps admin role",
			role:     models.RoleAdmin,
			wantRole: models.RoleAdmin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			userUID := uuid.New().String()
			factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", tt.role)

			sub := models.Subscription{
				UserUID:   userUID,
				Plan:      models.PlanMonthly,
				Status:    models.StatusActive,
				StartDate: startDate,
				EndDate:   endDate,
				Features:  models.AllFeatures(),
				PaymentDetails: models.PaymentDetails{
					PaymentID: "pay_create_1",
					OrderID:   "order_create_1",
					Amount:    999,
					Currency:  "INR",
					Receipt:   "s_test_receipt",
				},
			}
			id, err := storage.CreateSubscription(context.Background(), sub)
			require.NoError(t, err)
			assert.Positive(t, id)

			got, err := storage.GetSubscriptionByUserUID(context.Background(), userUID)
			require.NoError(t, err)
			assert.Equal(t, models.PlanMonthly, got.Plan)
			assert.Equal(t, models.StatusActive, got.Status)
			assert.True(t, got.EndDate.Equal(endDate))
			assert.True(t, got.Features.UnlimitedScans)

			verification := NewTestVerification(storage)
			verification.VerifyUserRole(t, userUID, tt.wantRole)
		})
	}
}

func TestStorage_GetSubscriptionByUserUID_NotFound(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	userUID := uuid.New().String()
	factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", "user")

	got, err := storage.GetSubscriptionByUserUID(context.Background(), userUID)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSubscriptionNotFound)
	assert.Nil(t, got)
}

func TestStorage_ExtendSubscription(t *testing.T) {
	startDate := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	newEndDate := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	details := models.PaymentDetails{
		PaymentID: "pay_extend_1",
		OrderID:   "order_extend_1",
		Amount:    999,
		Currency:  "INR",
		Receipt:   "s_extend_receipt",
	}

	tests := []struct {
		name        string
		prevEndDate time.Time
		wantErr     error
	}{
		{
			name:        "successful extension from current end date",
			prevEndDate: endDate,
			wantErr:     nil,
		},
		{
			name:        "stale end date returns error",
			prevEndDate: endDate.AddDate(0, -1, 0),
			wantErr:     ErrStaleEndDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			userUID := uuid.New().String()
			factory.CreateUserWithSubscription(t, userUID, "testuser", models.PlanMonthly,
				models.StatusActive, startDate, endDate)

			err := storage.ExtendSubscription(context.Background(), userUID, models.PlanMonthly,
				tt.prevEndDate, newEndDate, details)

			if tt.wantErr != nil {
				require.Error(t, err)
				require.ErrorIs(t, err, tt.wantErr)

				got, err := storage.GetSubscriptionByUserUID(context.Background(), userUID)
				require.NoError(t, err)
				assert.True(t, got.EndDate.Equal(endDate), "end date must not move on stale update")
			} else {
				require.NoError(t, err)

				got, err := storage.GetSubscriptionByUserUID(context.Background(), userUID)
				require.NoError(t, err)
				assert.True(t, got.EndDate.Equal(newEndDate))
				assert.Equal(t, "pay_extend_1", got.PaymentDetails.PaymentID)
			}
		})
	}
}

func TestStorage_ReplaceSubscription(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	userUID := uuid.New().String()
	factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", "user")
	factory.CreateSubscription(t, userUID, models.PlanMonthly, models.StatusExpired,
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), "pay_old")

	newStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	newEnd := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	sub := models.Subscription{
		UserUID:   userUID,
		Plan:      models.PlanAnnual,
		Status:    models.StatusActive,
		StartDate: newStart,
		EndDate:   newEnd,
		PaymentDetails: models.PaymentDetails{
			PaymentID: "pay_replace_1",
			OrderID:   "order_replace_1",
			Amount:    9990,
			Currency:  "INR",
			Receipt:   "s_replace_receipt",
		},
	}

	id, err := storage.ReplaceSubscription(context.Background(), sub)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := storage.GetSubscriptionByUserUID(context.Background(), userUID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanAnnual, got.Plan)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.True(t, got.StartDate.Equal(newStart))
	assert.True(t, got.EndDate.Equal(newEnd))

	verification := NewTestVerification(storage)
	verification.VerifyUserRole(t, userUID, models.RolePro)
}

func TestStorage_CancelSubscription(t *testing.T) {
	startDate := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		setup   func(t *testing.T, factory *TestDataFactory) string
		wantErr error
	}{
		{
			name: "successful cancel keeps end date and role",
			setup: func(t *testing.T, factory *TestDataFactory) string {
				userUID := uuid.New().String()
				factory.CreateUserWithSubscription(t, userUID, "testuser", models.PlanMonthly,
					models.StatusActive, startDate, endDate)
				return userUID
			},
			wantErr: nil,
		},
		{
			name: "cancel without subscription",
			setup: func(t *testing.T, factory *TestDataFactory) string {
				userUID := uuid.New().String()
				factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", "user")
				return userUID
			},
			wantErr: ErrSubscriptionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			userUID := tt.setup(t, factory)

			err := storage.CancelSubscription(context.Background(), userUID)

			if tt.wantErr != nil {
				require.Error(t, err)
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)

				verification := NewTestVerification(storage)
				verification.VerifySubscriptionStatus(t, userUID, models.StatusCanceled)
				verification.VerifyUserRole(t, userUID, models.RolePro)

				got, err := storage.GetSubscriptionByUserUID(context.Background(), userUID)
				require.NoError(t, err)
				assert.True(t, got.EndDate.Equal(endDate))
			}
		})
	}
}

func TestStorage_ExpireDueSubscriptions(t *testing.T) {
	now := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)
	pastStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	pastEnd := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	futureEnd := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)

	dueUID := uuid.New().String()
	factory.CreateUser(t, dueUID, "dueuser", "due@example.com", "hashedpassword", "pro")
	factory.CreateSubscription(t, dueUID, models.PlanMonthly, models.StatusActive, pastStart, pastEnd, "pay_due")

	adminUID := uuid.New().String()
	factory.CreateUser(t, adminUID, "adminuser", "admin@example.com", "hashedpassword", "admin")
	factory.CreateSubscription(t, adminUID, models.PlanMonthly, models.StatusActive, pastStart, pastEnd, "pay_admin")

	activeUID := uuid.New().String()
	factory.CreateUser(t, activeUID, "activeuser", "active@example.com", "hashedpassword", "pro")
	factory.CreateSubscription(t, activeUID, models.PlanMonthly, models.StatusActive, pastStart, futureEnd, "pay_active")

	canceledUID := uuid.New().String()
	factory.CreateUser(t, canceledUID, "canceleduser", "canceled@example.com", "hashedpassword", "pro")
	factory.CreateSubscription(t, canceledUID, models.PlanMonthly, models.StatusCanceled, pastStart, pastEnd, "pay_canceled")

	expired, err := storage.ExpireDueSubscriptions(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, expired, 2)

	expiredUIDs := make(map[string]bool)
	for _, ev := range expired {
		expiredUIDs[ev.UserUID] = true
		assert.True(t, ev.ExpiredAt.Equal(now))
	}
	assert.True(t, expiredUIDs[dueUID])
	assert.True(t, expiredUIDs[adminUID])
	assert.False(t, expiredUIDs[activeUID])
	assert.False(t, expiredUIDs[canceledUID], "canceled rows are left for their natural end")

	verification := NewTestVerification(storage)
	verification.VerifySubscriptionStatus(t, dueUID, models.StatusExpired)
	verification.VerifyUserRole(t, dueUID, models.RoleUser)
	verification.VerifyUserRole(t, adminUID, models.RoleAdmin)
	verification.VerifyUserRole(t, activeUID, models.RolePro)

	// Повторный запуск по тем же строкам ничего не меняет.
	again, err := storage.ExpireDueSubscriptions(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestStorage_RecordAppliedPayment(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	userUID := uuid.New().String()
	factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", "user")

	applied, err := storage.RecordAppliedPayment(context.Background(), "pay_once_1", "order_once_1", userUID, now)
	require.NoError(t, err)
	assert.True(t, applied)

	verification := NewTestVerification(storage)
	verification.VerifyAppliedPaymentExists(t, "pay_once_1")

	// Тот же payment_id второй раз не применяется.
	applied, err = storage.RecordAppliedPayment(context.Background(), "pay_once_1", "order_once_1", userUID, now)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestStorage_IncrementScanUsage(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		setup   func(t *testing.T, factory *TestDataFactory) string
		wantErr error
	}{
		{
			name: "increments both counters and marks last scan",
			setup: func(t *testing.T, factory *TestDataFactory) string {
				userUID := uuid.New().String()
				factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", "user")
				return userUID
			},
			wantErr: nil,
		},
		{
			name:    "unknown user",
			setup:   func(_ *testing.T, _ *TestDataFactory) string { return uuid.New().String() },
			wantErr: ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			userUID := tt.setup(t, factory)

			err := storage.IncrementScanUsage(context.Background(), userUID, now)

			if tt.wantErr != nil {
				require.Error(t, err)
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			err = storage.IncrementScanUsage(context.Background(), userUID, now)
			require.NoError(t, err)

			got, err := storage.GetUser(context.Background(), userUID)
			require.NoError(t, err)
			assert.Equal(t, 2, got.UsageStats.TotalScans)
			assert.Equal(t, 2, got.UsageStats.ScansThisMonth)
			require.NotNil(t, got.UsageStats.LastScanDate)
			assert.True(t, got.UsageStats.LastScanDate.Equal(now))
		})
	}
}

func TestStorage_ResetMonthlyScanCounts(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	firstUID := uuid.New().String()
	factory.CreateUser(t, firstUID, "first", "first@example.com", "hashedpassword", "user")
	secondUID := uuid.New().String()
	factory.CreateUser(t, secondUID, "second", "second@example.com", "hashedpassword", "user")

	require.NoError(t, storage.IncrementScanUsage(context.Background(), firstUID, now))
	require.NoError(t, storage.IncrementScanUsage(context.Background(), firstUID, now))
	require.NoError(t, storage.IncrementScanUsage(context.Background(), secondUID, now))

	affected, err := storage.ResetMonthlyScanCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	got, err := storage.GetUser(context.Background(), firstUID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UsageStats.ScansThisMonth)
	assert.Equal(t, 2, got.UsageStats.TotalScans, "total scans survive the monthly reset")

	// Повторный сброс не трогает уже нулевые строки.
	affected, err = storage.ResetMonthlyScanCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestStorage_DemoteProUser(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		wantRole string
	}{
		{name: "pro is demoted to user", role: "pro", wantRole: "user"},
		{name: "admin is never demoted", role: "admin", wantRole: "admin"},
		{name: "user stays user", role: "user", wantRole: "user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			userUID := uuid.New().String()
			factory.CreateUser(t, userUID, "testuser", "test@example.com", "hashedpassword", tt.role)

			err := storage.DemoteProUser(context.Background(), userUID)
			require.NoError(t, err)

			verification := NewTestVerification(storage)
			verification.VerifyUserRole(t, userUID, tt.wantRole)
		})
	}
}

func TestStorage_ListAllSubscriptions(t *testing.T) {
	startDate := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	type args struct {
		status string
		limit  int
		offset int
	}

	tests := []struct {
		name      string
		args      args
		wantCount int
		wantTotal int
	}{
		{
			name:      "list all without filter",
			args:      args{status: "", limit: 10, offset: 0},
			wantCount: 3,
			wantTotal: 3,
		},
		{
			name:      "filter by expired status",
			args:      args{status: models.StatusExpired, limit: 10, offset: 0},
			wantCount: 1,
			wantTotal: 1,
		},
		{
			name:      "pagination caps page size",
			args:      args{status: "", limit: 2, offset: 0},
			wantCount: 2,
			wantTotal: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			statuses := []string{models.StatusActive, models.StatusActive, models.StatusExpired}
			for i, status := range statuses {
				userUID := uuid.New().String()
				username := "user" + string(rune('a'+i))
				factory.CreateUser(t, userUID, username, username+"@example.com", "hashedpassword", "pro")
				factory.CreateSubscription(t, userUID, models.PlanMonthly, status,
					startDate, endDate, "pay_list_"+username)
			}

			got, err := storage.ListAllSubscriptions(context.Background(), tt.args.status, tt.args.limit, tt.args.offset)
			require.NoError(t, err)
			assert.Len(t, got, tt.wantCount)

			total, err := storage.CountSubscriptions(context.Background(), tt.args.status)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}
