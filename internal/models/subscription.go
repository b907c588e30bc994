package models

import "time"

// Планы подписки.
const (
	PlanMonthly = "monthly"
	PlanAnnual  = "annual"
)

// Статусы подписки. Хранимый статус — подсказка для выборок и аудита;
// авторитетный ответ "действует ли подписка" даёт только IsActive
// со сравнением дат на текущий момент.
const (
	StatusActive   = "active"
	StatusCanceled = "canceled"
	StatusExpired  = "expired"
)

// Subscription представляет оплаченную подписку пользователя.
// У пользователя может быть не более одной подписки (уникальный индекс по user_uid).
// Инвариант: EndDate >= StartDate.
type Subscription struct {
	ID             int            // Идентификатор записи
	UserUID        string         // Владелец подписки
	Plan           string         // monthly или annual
	Status         string         // active, canceled или expired
	StartDate      time.Time      // Дата начала подписки
	EndDate        time.Time      // Дата окончания подписки
	Features       FeatureSet     // Набор возможностей Pro
	PaymentDetails PaymentDetails // Детали последнего применённого платежа
	ScanCount      int            // Зеркальный счётчик сканирований по подписке
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FeatureSet фиксированный набор флагов возможностей Pro-подписки.
// В текущем дизайне все флаги истинны для любой оплаченной подписки.
type FeatureSet struct {
	UnlimitedScans    bool `json:"unlimited_scans"`
	AdvancedAnalytics bool `json:"advanced_analytics"`
	DataExport        bool `json:"data_export"`
	HistoricalData    bool `json:"historical_data"`
	PremiumSupport    bool `json:"premium_support"`
	APIAccess         bool `json:"api_access"`
}

// AllFeatures возвращает полный набор возможностей Pro.
func AllFeatures() FeatureSet {
	return FeatureSet{
		UnlimitedScans:    true,
		AdvancedAnalytics: true,
		DataExport:        true,
		HistoricalData:    true,
		PremiumSupport:    true,
		APIAccess:         true,
	}
}

// Has сообщает, входит ли возможность feature в набор.
func (f FeatureSet) Has(feature string) bool {
	switch feature {
	case "unlimitedScans":
		return f.UnlimitedScans
	case "advancedAnalytics":
		return f.AdvancedAnalytics
	case "dataExport":
		return f.DataExport
	case "historicalData":
		return f.HistoricalData
	case "premiumSupport":
		return f.PremiumSupport
	case "apiAccess":
		return f.APIAccess
	default:
		return false
	}
}

// PaymentDetails детали платежа, применённого к подписке.
type PaymentDetails struct {
	PaymentID       string  `json:"payment_id"`       // Идентификатор платежа в шлюзе
	OrderID         string  `json:"order_id"`         // Идентификатор заказа в шлюзе
	Amount          int     `json:"amount"`           // Сумма в основных единицах валюты
	Currency        string  `json:"currency"`         // Код валюты, например INR
	Receipt         string  `json:"receipt"`          // Квитанция заказа (не длиннее 40 символов)
	CouponUsed      *string `json:"coupon_used"`      // Применённый купон, nil если не было
	DiscountApplied bool    `json:"discount_applied"` // Была ли применена скидка
}

// IsActive сообщает, действует ли подписка на момент now.
// Хранимый Status сам по себе не гарантирует действительность:
// между запусками свипера подписка может быть stale-active,
// поэтому сравнение с EndDate обязательно при каждой живой проверке.
func (s *Subscription) IsActive(now time.Time) bool {
	return s.Status == StatusActive && !now.After(s.EndDate)
}

// Extend возвращает новую дату окончания при продлении подписки планом plan.
// Продление аддитивно: отсчёт идёт от максимума из now и текущей EndDate,
// чтобы досрочная оплата не съедала оставшиеся дни.
func (s *Subscription) Extend(plan string, now time.Time) time.Time {
	base := s.EndDate
	if now.After(base) {
		base = now
	}
	return AddPlanDuration(base, plan)
}

// AddPlanDuration прибавляет длительность плана к дате.
// Используется календарная арифметика time.AddDate: +1 месяц или +1 год
// с нормализацией Go (31 января + 1 месяц = 2/3 марта в зависимости от года).
// Поведение совпадает во всех местах, где считается дата окончания.
func AddPlanDuration(date time.Time, plan string) time.Time {
	if plan == PlanAnnual {
		return date.AddDate(1, 0, 0)
	}
	return date.AddDate(0, 1, 0)
}
