package razorpay

// CreateOrderRequest запрос на создание заказа в шлюзе.
// Amount указывается в минимальных единицах валюты (пайсах).
type CreateOrderRequest struct {
	Amount   int               `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"` // Не длиннее 40 символов — требование Razorpay
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order заказ, как его возвращает шлюз.
type Order struct {
	ID       string `json:"id"`
	Amount   int    `json:"amount"` // В минимальных единицах валюты
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}
