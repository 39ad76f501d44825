package domain

import (
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusTimeout   PaymentStatus = "timeout"
)

// IsTerminal reports whether the status permits no further transitions.
func (s PaymentStatus) IsTerminal() bool {
	return s != PaymentStatusPending
}

// Daraja result codes observed on STK push callbacks and query responses.
const (
	ResultCodeSuccess           = 0
	ResultCodeInsufficientFunds = 1
	ResultCodeCancelledByUser   = 1032
	ResultCodeTimeout           = 1037
)

// ErrorCodeProcessing is the top-level error code the query endpoint returns
// while the STK prompt is still open on the customer's phone.
const ErrorCodeProcessing = "500.001.1001"

// PaymentRequest is one attempt to collect money from a customer via STK push.
// CheckoutRequestID is the gateway-assigned tracking identifier; a record only
// exists once initiation succeeded and the identifier is known.
type PaymentRequest struct {
	ID                string        `json:"id" db:"id"`
	CheckoutRequestID string        `json:"checkout_request_id" db:"checkout_request_id"`
	MerchantRequestID string        `json:"merchant_request_id" db:"merchant_request_id"`
	OrderReference    string        `json:"order_reference" db:"order_reference"`
	PhoneNumber       string        `json:"phone_number" db:"phone_number"`
	Amount            float64       `json:"amount" db:"amount"`
	Status            PaymentStatus `json:"status" db:"status"`

	ResultCode        *string `json:"result_code,omitempty" db:"result_code"`
	ResultDescription *string `json:"result_description,omitempty" db:"result_description"`
	ReceiptNumber     *string `json:"receipt_number,omitempty" db:"receipt_number"`

	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}

// StatusForCallbackCode maps an STK callback result code to a terminal status.
// Only the explicit user-cancel code maps to cancelled; every other non-zero
// code, known or not, is a failure.
func StatusForCallbackCode(code int) PaymentStatus {
	switch code {
	case ResultCodeSuccess:
		return PaymentStatusCompleted
	case ResultCodeCancelledByUser:
		return PaymentStatusCancelled
	default:
		return PaymentStatusFailed
	}
}

// StatusForQueryCode maps an STK query result code to a status. The query
// endpoint distinguishes timeouts, which the callback path does not report.
func StatusForQueryCode(code int) PaymentStatus {
	switch code {
	case ResultCodeSuccess:
		return PaymentStatusCompleted
	case ResultCodeCancelledByUser:
		return PaymentStatusCancelled
	case ResultCodeTimeout:
		return PaymentStatusTimeout
	default:
		return PaymentStatusFailed
	}
}
