package mpesa_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mpesa-payment-service/internal/domain"
	"mpesa-payment-service/internal/provider/mpesa"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newQueryGateway(t *testing.T, queryHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok"}`))
	})
	mux.HandleFunc("/mpesa/stkpushquery/v1/query", queryHandler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestQuerySTKStatusCompleted(t *testing.T) {
	var captured mpesa.STKQueryRequest
	srv := newQueryGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{
			"ResponseCode":"0",
			"ResponseDescription":"The service request has been accepted successsfully",
			"MerchantRequestID":"mr-1",
			"CheckoutRequestID":"ws_CO_123",
			"ResultCode":"0",
			"ResultDesc":"The service request is processed successfully."
		}`))
	})

	client := mpesa.NewClient(testConfig(srv.URL), nil, zap.NewNop())

	resp, err := client.QuerySTKStatus(context.Background(), "ws_CO_123")
	require.NoError(t, err)
	assert.Equal(t, "0", resp.ResponseCode)
	assert.Equal(t, "0", resp.ResultCode)

	assert.Equal(t, "ws_CO_123", captured.CheckoutRequestID)
	assert.Equal(t, "174379", captured.BusinessShortCode)
	assert.NotEmpty(t, captured.Password)
	assert.Len(t, captured.Timestamp, 14)
}

func TestQuerySTKStatusStillProcessing(t *testing.T) {
	srv := newQueryGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{
			"requestId":"1234-5678",
			"errorCode":"500.001.1001",
			"errorMessage":"The transaction is being processed"
		}`))
	})

	client := mpesa.NewClient(testConfig(srv.URL), nil, zap.NewNop())

	_, err := client.QuerySTKStatus(context.Background(), "ws_CO_123")
	require.ErrorIs(t, err, mpesa.ErrTransactionProcessing)
}

func TestQuerySTKStatusCancelled(t *testing.T) {
	srv := newQueryGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"ResponseCode":"0",
			"ResponseDescription":"The service request has been accepted successsfully",
			"MerchantRequestID":"mr-1",
			"CheckoutRequestID":"ws_CO_123",
			"ResultCode":"1032",
			"ResultDesc":"Request cancelled by user"
		}`))
	})

	client := mpesa.NewClient(testConfig(srv.URL), nil, zap.NewNop())

	resp, err := client.QuerySTKStatus(context.Background(), "ws_CO_123")
	require.NoError(t, err)
	assert.Equal(t, "1032", resp.ResultCode)
	assert.Equal(t, "Request cancelled by user", resp.ResultDesc)
}

func TestQuerySTKStatusGatewayFailure(t *testing.T) {
	srv := newQueryGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{
			"requestId":"1234-5678",
			"errorCode":"400.002.02",
			"errorMessage":"Bad Request - Invalid CheckoutRequestID"
		}`))
	})

	client := mpesa.NewClient(testConfig(srv.URL), nil, zap.NewNop())

	_, err := client.QuerySTKStatus(context.Background(), "bogus")
	var pollErr *domain.PollError
	require.ErrorAs(t, err, &pollErr)
	assert.Contains(t, pollErr.Error(), "Invalid CheckoutRequestID")
}

func TestQuerySTKStatusUnreachable(t *testing.T) {
	srv := newQueryGateway(t, func(w http.ResponseWriter, r *http.Request) {})
	url := srv.URL
	srv.Close()

	client := mpesa.NewClient(testConfig(url), nil, zap.NewNop())

	_, err := client.QuerySTKStatus(context.Background(), "ws_CO_123")
	var pollErr *domain.PollError
	require.ErrorAs(t, err, &pollErr)
}
