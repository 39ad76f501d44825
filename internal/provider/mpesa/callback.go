package mpesa

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// STKCallbackEnvelope is the notification pushed by the gateway when the
// customer completes, cancels, or fails the STK prompt.
type STKCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackResult is the validated, typed view of a callback notification.
type CallbackResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Success           bool

	// Populated from CallbackMetadata on success only.
	Amount          float64
	ReceiptNumber   string
	PhoneNumber     string
	TransactionDate string
}

// ParseSTKCallback validates the nested envelope into a typed result. A body
// that does not carry Body.stkCallback (no tracking identifier) is an error;
// the receiver still acknowledges the gateway regardless.
func ParseSTKCallback(payload []byte) (*CallbackResult, error) {
	var envelope STKCallbackEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("malformed callback body: %w", err)
	}

	cb := envelope.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return nil, fmt.Errorf("callback body missing Body.stkCallback")
	}

	result := &CallbackResult{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
		Success:           cb.ResultCode == 0,
	}

	// Metadata values arrive untyped: amounts and phone numbers as JSON
	// numbers, receipt numbers as strings.
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			if v, ok := item.Value.(float64); ok {
				result.Amount = v
			}
		case "MpesaReceiptNumber":
			if v, ok := item.Value.(string); ok {
				result.ReceiptNumber = v
			}
		case "PhoneNumber":
			result.PhoneNumber = metadataString(item.Value)
		case "TransactionDate":
			result.TransactionDate = metadataString(item.Value)
		}
	}

	return result, nil
}

func metadataString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
