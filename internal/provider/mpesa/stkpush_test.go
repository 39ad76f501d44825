package mpesa_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mpesa-payment-service/internal/domain"
	"mpesa-payment-service/internal/provider/mpesa"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newGateway(t *testing.T, pushHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok"}`))
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", pushHandler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestInitiateSTKPush(t *testing.T) {
	var captured mpesa.STKPushRequest
	srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{
			"MerchantRequestID":"29115-34620561-1",
			"CheckoutRequestID":"ws_CO_191220191020363925",
			"ResponseCode":"0",
			"ResponseDescription":"Success. Request accepted for processing",
			"CustomerMessage":"Success. Request accepted for processing"
		}`))
	})

	client := mpesa.NewClient(testConfig(srv.URL), nil, zap.NewNop())

	resp, err := client.InitiateSTKPush(context.Background(), "254712345678", "ORD-1", "Payment for ORD-1", 500)
	require.NoError(t, err)

	assert.Equal(t, "ws_CO_191220191020363925", resp.CheckoutRequestID)
	assert.Equal(t, "29115-34620561-1", resp.MerchantRequestID)

	assert.Equal(t, "174379", captured.BusinessShortCode)
	assert.Equal(t, "CustomerPayBillOnline", captured.TransactionType)
	assert.Equal(t, 500, captured.Amount)
	assert.Equal(t, "254712345678", captured.PartyA)
	assert.Equal(t, "254712345678", captured.PhoneNumber)
	assert.Equal(t, "174379", captured.PartyB)
	assert.Equal(t, "ORD-1", captured.AccountReference)
	assert.Equal(t, "https://example.com/api/v1/payments/callback", captured.CallBackURL)

	// Password is base64(shortcode + passkey + timestamp).
	decoded, err := base64.StdEncoding.DecodeString(captured.Password)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(decoded), "174379passkey"))
	assert.Equal(t, captured.Timestamp, strings.TrimPrefix(string(decoded), "174379passkey"))
	assert.Len(t, captured.Timestamp, 14)
}

func TestInitiateSTKPushGatewayRejection(t *testing.T) {
	srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{
			"requestId":"1234-5678",
			"errorCode":"400.002.02",
			"errorMessage":"Bad Request - Invalid CallBackURL"
		}`))
	})

	client := mpesa.NewClient(testConfig(srv.URL), nil, zap.NewNop())

	_, err := client.InitiateSTKPush(context.Background(), "254712345678", "ORD-1", "desc", 500)
	var initErr *domain.InitiationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "400.002.02", initErr.Code)
	assert.Contains(t, initErr.Error(), "Invalid CallBackURL")
}

func TestInitiateSTKPushNonZeroResponseCode(t *testing.T) {
	srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"MerchantRequestID":"mr-1",
			"CheckoutRequestID":"ws_CO_1",
			"ResponseCode":"1",
			"ResponseDescription":"Unable to process request"
		}`))
	})

	client := mpesa.NewClient(testConfig(srv.URL), nil, zap.NewNop())

	_, err := client.InitiateSTKPush(context.Background(), "254712345678", "ORD-1", "desc", 500)
	var initErr *domain.InitiationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "1", initErr.Code)
}

func TestInitiateSTKPushRoundsAmount(t *testing.T) {
	var captured mpesa.STKPushRequest
	srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"MerchantRequestID":"mr","CheckoutRequestID":"ws_CO_2","ResponseCode":"0"}`))
	})

	client := mpesa.NewClient(testConfig(srv.URL), nil, zap.NewNop())

	_, err := client.InitiateSTKPush(context.Background(), "254712345678", "ORD-1", "desc", 499.6)
	require.NoError(t, err)
	assert.Equal(t, 500, captured.Amount)
}
