package usecase_test

import (
	"context"
	"sync"
	"time"

	"mpesa-payment-service/internal/domain"
	"mpesa-payment-service/internal/provider/mpesa"
	"mpesa-payment-service/pkg/client"
)

// fakeRepo is an in-memory PaymentRepository with the same conditional
// resolve semantics as the Postgres implementation.
type fakeRepo struct {
	mu       sync.Mutex
	payments map[string]*domain.PaymentRequest
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{payments: make(map[string]*domain.PaymentRequest)}
}

func (r *fakeRepo) Create(ctx context.Context, payment *domain.PaymentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment.CreatedAt = time.Now()
	cp := *payment
	r.payments[payment.CheckoutRequestID] = &cp
	return nil
}

func (r *fakeRepo) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.PaymentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[checkoutRequestID]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	cp := *payment
	return &cp, nil
}

func (r *fakeRepo) GetByOrderReference(ctx context.Context, orderReference string) ([]*domain.PaymentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.PaymentRequest
	for _, p := range r.payments {
		if p.OrderReference == orderReference {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) Resolve(ctx context.Context, checkoutRequestID string, status domain.PaymentStatus, resultCode, resultDescription string, receiptNumber *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[checkoutRequestID]
	if !ok || payment.Status != domain.PaymentStatusPending {
		return false, nil
	}
	now := time.Now()
	payment.Status = status
	payment.ResultCode = &resultCode
	payment.ResultDescription = &resultDescription
	if receiptNumber != nil {
		payment.ReceiptNumber = receiptNumber
	}
	payment.ResolvedAt = &now
	return true, nil
}

// fakeGateway records calls so tests can assert the gateway was (not)
// contacted.
type fakeGateway struct {
	mu sync.Mutex

	pushResp  *mpesa.STKPushResponse
	pushErr   error
	queryResp *mpesa.STKQueryResponse
	queryErr  error

	pushCalls  int
	queryCalls int

	lastPhone    string
	lastOrderRef string
	lastAmount   float64
}

func (g *fakeGateway) InitiateSTKPush(ctx context.Context, phoneNumber, orderRef, description string, amount float64) (*mpesa.STKPushResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pushCalls++
	g.lastPhone = phoneNumber
	g.lastOrderRef = orderRef
	g.lastAmount = amount
	return g.pushResp, g.pushErr
}

func (g *fakeGateway) QuerySTKStatus(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queryCalls++
	return g.queryResp, g.queryErr
}

func (g *fakeGateway) calls() (push, query int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pushCalls, g.queryCalls
}

// fakeNotifier delivers notifications to a channel so tests can wait for the
// fire-and-forget goroutine.
type fakeNotifier struct {
	notifications chan *client.OrderNotification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{notifications: make(chan *client.OrderNotification, 8)}
}

func (n *fakeNotifier) NotifyPaymentResult(ctx context.Context, notification *client.OrderNotification) error {
	n.notifications <- notification
	return nil
}
