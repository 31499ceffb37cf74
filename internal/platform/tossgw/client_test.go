package tossgw

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	cfgpkg "github.com/vibestack/billing/pkg/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(&cfgpkg.Config{Toss: cfgpkg.TossConfig{SecretKey: "test_sk", BaseURL: srv.URL}})
}

func TestConfirmPayment_Success(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payments/confirm", r.URL.Path)
		require.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Basic "))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "pay_1", body["paymentKey"])

		json.NewEncoder(w).Encode(Payment{
			PaymentKey:  "pay_1",
			OrderID:     "ord_1",
			Status:      "DONE",
			TotalAmount: 15000,
			Currency:    "KRW",
		})
	})

	p, err := c.ConfirmPayment(context.Background(), "pay_1", "ord_1", 15000)
	require.NoError(t, err)
	require.Equal(t, "DONE", p.Status)
	require.Equal(t, int64(15000), p.TotalAmount)
	require.Equal(t, "KRW", p.Currency)
}

func TestConfirmPayment_APIError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "ALREADY_PROCESSED_PAYMENT",
			"message": "이미 처리된 결제 입니다.",
		})
	})

	_, err := c.ConfirmPayment(context.Background(), "pay_1", "ord_1", 15000)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ALREADY_PROCESSED_PAYMENT")
}

func TestConfirmPayment_UnexpectedStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.ConfirmPayment(context.Background(), "pay_1", "ord_1", 15000)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 502")
}
