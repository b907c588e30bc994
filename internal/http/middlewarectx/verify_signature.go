package middlewarectx

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/leafguard/leafguard-api/internal/http/response"
	"github.com/leafguard/leafguard-api/internal/razorpay"
)

// Поля callback-а, достаточные для проверки подписи. Остальное тело
// запроса разбирает обработчик.
type signaturePayload struct {
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// VerifySignatureMiddleware проверяет HMAC-подпись платёжного callback-а
// до того, как запрос дойдёт до обработчика. При неполных полях или
// несовпадении подписи запрос отклоняется с 400 без каких-либо мутаций.
//
// Тело запроса читается целиком и восстанавливается, чтобы обработчик
// мог разобрать его повторно.
func VerifySignatureMiddleware(secret string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.VerifySignatureMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			body, err := io.ReadAll(r.Body)
			if err != nil {
				log.Error("failed to read request body")
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error("failed to read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			var payload signaturePayload
			if err := json.Unmarshal(body, &payload); err != nil {
				log.Error("failed to decode request body")
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error("invalid request body"))
				return
			}
			if payload.RazorpayPaymentID == "" || payload.RazorpayOrderID == "" || payload.RazorpaySignature == "" {
				log.Error("missing payment verification fields")
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error("missing payment verification fields"))
				return
			}

			if !razorpay.VerifySignature(secret, payload.RazorpayOrderID,
				payload.RazorpayPaymentID, payload.RazorpaySignature) {
				log.Error("payment signature mismatch",
					slog.String("order_id", payload.RazorpayOrderID),
					slog.String("payment_id", payload.RazorpayPaymentID))
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error("payment signature verification failed"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
