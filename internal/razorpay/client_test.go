package razorpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key_id", user)
		assert.Equal(t, "key_secret", pass)

		var req CreateOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 99900, req.Amount)
		assert.Equal(t, "INR", req.Currency)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Order{
			ID:       "order_ABC123",
			Amount:   req.Amount,
			Currency: req.Currency,
			Receipt:  req.Receipt,
			Status:   "created",
		})
	}))
	defer srv.Close()

	client := NewClient("key_id", "key_secret", srv.URL, 5*time.Second)
	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		Amount:   99900,
		Currency: "INR",
		Receipt:  "s_user1234_abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "order_ABC123", order.ID)
	assert.Equal(t, 99900, order.Amount)
}

func TestClient_CreateOrder_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient("key_id", "key_secret", srv.URL, 5*time.Second)
	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{Amount: 100, Currency: "INR"})
	assert.Error(t, err)
	assert.Nil(t, order)
}

func TestClient_FetchOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/orders/order_ABC123", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Order{
			ID:       "order_ABC123",
			Amount:   84900,
			Currency: "INR",
			Status:   "paid",
		})
	}))
	defer srv.Close()

	client := NewClient("key_id", "key_secret", srv.URL, 5*time.Second)
	order, err := client.FetchOrder(context.Background(), "order_ABC123")
	require.NoError(t, err)
	assert.Equal(t, 84900, order.Amount)
	assert.Equal(t, "paid", order.Status)
}

func TestClient_FetchOrder_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient("key_id", "key_secret", srv.URL, 50*time.Millisecond)
	order, err := client.FetchOrder(context.Background(), "order_slow")
	assert.Error(t, err)
	assert.Nil(t, order)
}
