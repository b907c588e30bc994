package models

import "time"

// ExpiredEvent событие об истёкшей подписке, публикуется свипером в RabbitMQ.
type ExpiredEvent struct {
	SubscriptionID int       `json:"subscription_id"`
	UserUID        string    `json:"user_uid"`
	Plan           string    `json:"plan"`
	EndDate        time.Time `json:"end_date"`
	ExpiredAt      time.Time `json:"expired_at"`
}
