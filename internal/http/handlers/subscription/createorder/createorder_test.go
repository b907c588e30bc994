package createorder

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/leafguard/leafguard-api/internal/http/middlewarectx"
	"github.com/leafguard/leafguard-api/internal/models"
	"github.com/leafguard/leafguard-api/internal/services/order"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) CreateOrder(ctx context.Context, userUID string, req models.DummyOrderRequest) (*order.Result, error) {
	args := m.Called(ctx, userUID, req)
	if res := args.Get(0); res != nil {
		return res.(*order.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCreateOrderHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешное создание заказа",
			body:    `{"plan":"monthly","coupon_code":"PLANT15"}`,
			userUID: "uid-123",
			setupMock: func(m *MockService) {
				m.On("CreateOrder", mock.Anything, "uid-123",
					models.DummyOrderRequest{Plan: "monthly", CouponCode: "PLANT15"}).
					Return(&order.Result{
						OrderID: "order_abc", Amount: 849, Currency: "INR",
						Receipt: "s_uid_x", DiscountApplied: true,
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"order_id":"order_abc"`,
		},
		{
			name:           "неизвестный план не проходит валидацию",
			body:           `{"plan":"weekly"}`,
			userUID:        "uid-123",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
		{
			name:           "нет идентификации пользователя",
			body:           `{"plan":"monthly"}`,
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"unauthorized"`,
		},
		{
			name:    "ошибка шлюза",
			body:    `{"plan":"annual"}`,
			userUID: "uid-123",
			setupMock: func(m *MockService) {
				m.On("CreateOrder", mock.Anything, "uid-123",
					models.DummyOrderRequest{Plan: "annual"}).
					Return(nil, errors.New("gateway timeout"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"could not create payment order"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(newNoopLogger(), mockService)

			req := httptest.NewRequest(http.MethodPost, "/subscriptions/create-order", strings.NewReader(tt.body))
			if tt.userUID != "" {
				ctx := context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID)
				req = req.WithContext(ctx)
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
