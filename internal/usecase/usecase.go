package usecase

import (
	"context"
	"crypto/rand"
	"time"

	"mpesa-payment-service/internal/provider/mpesa"
	"mpesa-payment-service/pkg/client"

	"github.com/oklog/ulid/v2"
)

// Gateway is the slice of the Daraja client the usecases need.
type Gateway interface {
	InitiateSTKPush(ctx context.Context, phoneNumber, orderRef, description string, amount float64) (*mpesa.STKPushResponse, error)
	QuerySTKStatus(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error)
}

// OrderNotifier delivers best-effort payment outcome notifications.
type OrderNotifier interface {
	NotifyPaymentResult(ctx context.Context, n *client.OrderNotification) error
}

// notifyTimeout bounds fire-and-forget notification delivery, which runs on
// a detached context after the originating request completed.
const notifyTimeout = 20 * time.Second

func newPaymentID() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0))
	return "pay_" + id.String()
}
