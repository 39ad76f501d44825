package mpesa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"mpesa-payment-service/internal/domain"

	"go.uber.org/zap"
)

const stkQueryPath = "/mpesa/stkpushquery/v1/query"

// ErrTransactionProcessing means the gateway has not resolved the STK prompt
// yet; the caller should poll again later.
var ErrTransactionProcessing = errors.New("transaction is still being processed")

type STKQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type STKQueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

// QuerySTKStatus asks the gateway for the current state of a tracking
// identifier. The query endpoint requires a password bound to the current
// timestamp, not the original request's. Returns ErrTransactionProcessing
// while the prompt is still open.
func (c *Client) QuerySTKStatus(ctx context.Context, checkoutRequestID string) (*STKQueryResponse, error) {
	ts := timestamp(time.Now())

	request := STKQueryRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(ts),
		Timestamp:         ts,
		CheckoutRequestID: checkoutRequestID,
	}

	status, body, err := c.postJSON(ctx, stkQueryPath, request)
	if err != nil {
		var authErr *domain.AuthError
		if errors.As(err, &authErr) {
			return nil, &domain.PollError{Description: authErr.Reason, Err: err}
		}
		return nil, &domain.PollError{Err: err}
	}

	if status == http.StatusUnauthorized {
		return nil, &domain.PollError{Description: "gateway rejected refreshed token"}
	}

	if status != http.StatusOK {
		var gwErr gatewayError
		_ = json.Unmarshal(body, &gwErr)
		if gwErr.ErrorCode == domain.ErrorCodeProcessing {
			return nil, ErrTransactionProcessing
		}
		c.logger.Warn("stk query rejected by gateway",
			zap.String("checkout_request_id", checkoutRequestID),
			zap.Int("http_status", status),
			zap.String("error_code", gwErr.ErrorCode),
			zap.String("error_message", gwErr.ErrorMessage))
		return nil, &domain.PollError{Description: gwErr.ErrorMessage}
	}

	var response STKQueryResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &domain.PollError{Description: "unparseable gateway response", Err: err}
	}

	c.logger.Info("stk query result",
		zap.String("checkout_request_id", checkoutRequestID),
		zap.String("response_code", response.ResponseCode),
		zap.String("result_code", response.ResultCode))

	return &response, nil
}
