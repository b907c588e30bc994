// Package order реализует создание заказа в платёжном шлюзе для выбранного плана.
//
// Заказ не сохраняется локально: при подтверждении платежа он заново
// запрашивается из шлюза, поэтому сбой или таймаут при создании заказа
// не оставляет за собой никакого частичного состояния.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/leafguard/leafguard-api/internal/lib/clock"
	"github.com/leafguard/leafguard-api/internal/lib/sl"
	"github.com/leafguard/leafguard-api/internal/models"
	"github.com/leafguard/leafguard-api/internal/razorpay"
)

// ErrInvalidPlan возвращается для неизвестного плана подписки.
var ErrInvalidPlan = errors.New("invalid subscription plan")

// Цены планов в основных единицах валюты (INR).
const (
	PriceMonthly = 999
	PriceAnnual  = 9990

	currency = "INR"
	// Жёсткое ограничение шлюза на длину квитанции.
	maxReceiptLen = 40
)

// Допустимые купоны. Неизвестный купон не ошибка: он просто не даёт скидку.
var validCoupons = map[string]struct{}{
	"PLANT15": {},
	"NEWYEAR": {},
}

// Gateway описывает используемую часть клиента платёжного шлюза.
type Gateway interface {
	CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error)
}

// Result данные созданного заказа, возвращаемые клиенту.
type Result struct {
	OrderID         string `json:"order_id"`
	Amount          int    `json:"amount"` // В основных единицах валюты
	Currency        string `json:"currency"`
	Receipt         string `json:"receipt"`
	DiscountApplied bool   `json:"discount_applied"`
}

// Service бизнес-логика создания заказов.
type Service struct {
	gateway Gateway
	log     *slog.Logger
	clock   clock.Clock
}

// New создает новый экземпляр Service.
func New(gateway Gateway, log *slog.Logger, clk clock.Clock) *Service {
	return &Service{
		gateway: gateway,
		log:     log,
		clock:   clk,
	}
}

// CreateOrder создаёт заказ в шлюзе для плана из запроса.
// При валидном купоне применяется скидка 15% с округлением вниз.
func (s *Service) CreateOrder(ctx context.Context, userUID string, req models.DummyOrderRequest) (*Result, error) {
	amount, err := planPrice(req.Plan)
	if err != nil {
		return nil, err
	}

	discountApplied := false
	if req.CouponCode != "" {
		if _, ok := validCoupons[strings.ToUpper(req.CouponCode)]; ok {
			amount = amount * 85 / 100
			discountApplied = true
		}
	}

	receipt := buildReceipt(userUID, s.clock.Now().UnixMilli())

	order, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderRequest{
		Amount:   amount * 100, // шлюз принимает сумму в пайсах
		Currency: currency,
		Receipt:  receipt,
		Notes: map[string]string{
			"user_uid": userUID,
			"plan":     req.Plan,
			"coupon":   req.CouponCode,
		},
	})
	if err != nil {
		s.log.Error("failed to create order in gateway", sl.Err(err))
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.log.Info("created gateway order",
		slog.String("order_id", order.ID),
		slog.String("receipt", receipt),
		slog.Bool("discount_applied", discountApplied))

	return &Result{
		OrderID:         order.ID,
		Amount:          order.Amount / 100,
		Currency:        order.Currency,
		Receipt:         order.Receipt,
		DiscountApplied: discountApplied,
	}, nil
}

func planPrice(plan string) (int, error) {
	switch plan {
	case models.PlanMonthly:
		return PriceMonthly, nil
	case models.PlanAnnual:
		return PriceAnnual, nil
	default:
		return 0, ErrInvalidPlan
	}
}

// buildReceipt собирает идентификатор квитанции из короткого префикса UID
// и компактной метки времени в base36. Итог никогда не длиннее 40 символов.
func buildReceipt(userUID string, unixMilli int64) string {
	shortUID := userUID
	if len(shortUID) > 8 {
		shortUID = shortUID[:8]
	}
	receipt := "s_" + shortUID + "_" + strconv.FormatInt(unixMilli, 36)
	if len(receipt) > maxReceiptLen {
		receipt = receipt[:maxReceiptLen]
	}
	return receipt
}
