package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature проверяет подпись платежа Razorpay.
//
// Ожидаемая подпись — hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
// Сравнение выполняется за постоянное время через hmac.Equal.
// Функция чистая: несовпадение — это false, а не ошибка; секрет не логируется.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
