package models

// DummyOrderRequest используется для приёма запроса на создание заказа из JSON.
type DummyOrderRequest struct {
	Plan       string `json:"plan" validate:"required,oneof=monthly annual"` // План подписки
	CouponCode string `json:"coupon_code,omitempty" validate:"omitempty"`    // Купон (опционально)
}

// DummyVerifyRequest используется для приёма данных подтверждения платежа.
// Имена полей повторяют формат callback-а Razorpay.
type DummyVerifyRequest struct {
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`       // Идентификатор платежа
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`         // Идентификатор заказа
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`        // Подпись платежа
	Plan              string `json:"plan" validate:"required,oneof=monthly annual"` // Оплаченный план
	CouponCode        string `json:"coupon_code,omitempty" validate:"omitempty"`    // Купон (опционально)
}

// DummyUsageRequest используется для приёма запроса на учёт использования функции.
type DummyUsageRequest struct {
	Feature string `json:"feature" validate:"required"` // scan, export или apiCall
}

// DummyRegisterRequest используется для приёма данных регистрации.
type DummyRegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`       // Электронная почта
	Username string `json:"username" validate:"required,alphanum"` // Имя пользователя
	Password string `json:"password" validate:"required,min=8"`    // Пароль
}

// DummyLoginRequest используется для приёма данных входа.
type DummyLoginRequest struct {
	Username string `json:"username" validate:"required"` // Имя пользователя
	Password string `json:"password" validate:"required"` // Пароль
}
