package usecase

import (
	"context"
	"fmt"

	"mpesa-payment-service/internal/domain"
	"mpesa-payment-service/internal/repository"

	"go.uber.org/zap"
)

type InitiateUsecase struct {
	paymentRepo repository.PaymentRepository
	gateway     Gateway
	logger      *zap.Logger
}

func NewInitiateUsecase(paymentRepo repository.PaymentRepository, gateway Gateway, logger *zap.Logger) *InitiateUsecase {
	return &InitiateUsecase{
		paymentRepo: paymentRepo,
		gateway:     gateway,
		logger:      logger,
	}
}

// Initiate validates the request, submits an STK push, and persists a pending
// record keyed by the gateway's tracking identifier. Validation failures
// reject before any network call; gateway rejections persist nothing because
// no tracking identifier exists. A failed initiation is never retried here:
// the request password is timestamp-bound, so the caller must start over.
func (uc *InitiateUsecase) Initiate(ctx context.Context, req *domain.InitiateRequest) (*domain.PaymentRequest, error) {
	if err := req.Validate(); err != nil {
		uc.logger.Warn("initiate request rejected",
			zap.String("order_reference", req.OrderReference),
			zap.Error(err))
		return nil, err
	}

	resp, err := uc.gateway.InitiateSTKPush(ctx, req.PhoneNumber, req.OrderReference, req.Description, req.Amount)
	if err != nil {
		return nil, err
	}

	payment := &domain.PaymentRequest{
		ID:                newPaymentID(),
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		OrderReference:    req.OrderReference,
		PhoneNumber:       req.PhoneNumber,
		Amount:            req.Amount,
		Status:            domain.PaymentStatusPending,
	}

	if err := uc.paymentRepo.Create(ctx, payment); err != nil {
		uc.logger.Error("failed to persist payment record",
			zap.String("checkout_request_id", payment.CheckoutRequestID),
			zap.String("order_reference", payment.OrderReference),
			zap.Error(err))
		return nil, fmt.Errorf("failed to persist payment record: %w", err)
	}

	uc.logger.Info("payment initiated",
		zap.String("payment_id", payment.ID),
		zap.String("checkout_request_id", payment.CheckoutRequestID),
		zap.String("order_reference", payment.OrderReference),
		zap.Float64("amount", payment.Amount))

	return payment, nil
}

// Get returns a stored payment record by tracking identifier.
func (uc *InitiateUsecase) Get(ctx context.Context, checkoutRequestID string) (*domain.PaymentRequest, error) {
	return uc.paymentRepo.GetByCheckoutRequestID(ctx, checkoutRequestID)
}

// ListByOrder returns all payment attempts recorded against an order, newest
// first. An order can accumulate several attempts (cancelled, timed out,
// retried), so this is a list rather than a single record.
func (uc *InitiateUsecase) ListByOrder(ctx context.Context, orderReference string) ([]*domain.PaymentRequest, error) {
	return uc.paymentRepo.GetByOrderReference(ctx, orderReference)
}
