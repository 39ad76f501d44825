package mpesa

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"mpesa-payment-service/internal/domain"

	"go.uber.org/zap"
)

const stkPushPath = "/mpesa/stkpush/v1/processrequest"

type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// InitiateSTKPush prompts the customer's phone to approve the payment. The
// phone number must already be in canonical 254... form. A non-nil response
// carries the gateway-assigned tracking identifiers.
func (c *Client) InitiateSTKPush(ctx context.Context, phoneNumber, orderRef, description string, amount float64) (*STKPushResponse, error) {
	ts := timestamp(time.Now())

	request := STKPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(ts),
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int(math.Round(amount)),
		PartyA:            phoneNumber,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phoneNumber,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  orderRef,
		TransactionDesc:   description,
	}

	c.logger.Info("initiating stk push",
		zap.String("order_reference", orderRef),
		zap.String("phone_number", phoneNumber),
		zap.Int("amount", request.Amount))

	status, body, err := c.postJSON(ctx, stkPushPath, request)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		return nil, &domain.AuthError{Reason: "gateway rejected refreshed token"}
	}

	if status != http.StatusOK {
		var gwErr gatewayError
		_ = json.Unmarshal(body, &gwErr)
		c.logger.Warn("stk push rejected by gateway",
			zap.String("order_reference", orderRef),
			zap.Int("http_status", status),
			zap.String("error_code", gwErr.ErrorCode),
			zap.String("error_message", gwErr.ErrorMessage))
		return nil, &domain.InitiationError{Code: gwErr.ErrorCode, Description: gwErr.ErrorMessage}
	}

	var response STKPushResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &domain.InitiationError{Description: "unparseable gateway response"}
	}

	if response.ResponseCode != "0" {
		return nil, &domain.InitiationError{Code: response.ResponseCode, Description: response.ResponseDescription}
	}

	c.logger.Info("stk push accepted",
		zap.String("order_reference", orderRef),
		zap.String("checkout_request_id", response.CheckoutRequestID),
		zap.String("merchant_request_id", response.MerchantRequestID))

	return &response, nil
}
