package usecase

import (
	"context"
	"strconv"

	"mpesa-payment-service/internal/domain"
	"mpesa-payment-service/internal/provider/mpesa"
	"mpesa-payment-service/internal/repository"
	"mpesa-payment-service/pkg/client"

	"go.uber.org/zap"
)

type CallbackUsecase struct {
	paymentRepo repository.PaymentRepository
	notifier    OrderNotifier
	logger      *zap.Logger
}

func NewCallbackUsecase(paymentRepo repository.PaymentRepository, notifier OrderNotifier, logger *zap.Logger) *CallbackUsecase {
	return &CallbackUsecase{
		paymentRepo: paymentRepo,
		notifier:    notifier,
		logger:      logger,
	}
}

// ProcessSTKCallback applies a gateway notification to the stored record.
// Errors returned here are for logging only: the HTTP handler acknowledges
// the gateway unconditionally, since a non-200 only provokes redelivery.
func (uc *CallbackUsecase) ProcessSTKCallback(ctx context.Context, payload []byte) error {
	result, err := mpesa.ParseSTKCallback(payload)
	if err != nil {
		uc.logger.Error("unparseable stk callback",
			zap.Int("payload_size", len(payload)),
			zap.Error(err))
		return err
	}

	status := domain.StatusForCallbackCode(result.ResultCode)

	uc.logger.Info("stk callback received",
		zap.String("checkout_request_id", result.CheckoutRequestID),
		zap.Int("result_code", result.ResultCode),
		zap.String("result_desc", result.ResultDesc),
		zap.String("status", string(status)))

	var receipt *string
	if result.ReceiptNumber != "" {
		receipt = &result.ReceiptNumber
	}

	resolved, err := uc.paymentRepo.Resolve(ctx,
		result.CheckoutRequestID,
		status,
		strconv.Itoa(result.ResultCode),
		result.ResultDesc,
		receipt,
	)
	if err != nil {
		uc.logger.Error("failed to resolve payment from callback",
			zap.String("checkout_request_id", result.CheckoutRequestID),
			zap.Error(err))
		return err
	}

	if !resolved {
		// Either an unknown tracking id (log for manual reconciliation) or
		// a duplicate delivery for an already resolved record (no-op).
		payment, err := uc.paymentRepo.GetByCheckoutRequestID(ctx, result.CheckoutRequestID)
		if err != nil {
			uc.logger.Warn("callback for unknown tracking id",
				zap.String("checkout_request_id", result.CheckoutRequestID),
				zap.Int("result_code", result.ResultCode))
			return nil
		}
		uc.logger.Info("duplicate callback ignored",
			zap.String("checkout_request_id", result.CheckoutRequestID),
			zap.String("status", string(payment.Status)))
		return nil
	}

	if status == domain.PaymentStatusCompleted {
		payment, err := uc.paymentRepo.GetByCheckoutRequestID(ctx, result.CheckoutRequestID)
		if err != nil {
			uc.logger.Error("resolved payment not readable for notification",
				zap.String("checkout_request_id", result.CheckoutRequestID),
				zap.Error(err))
			return nil
		}
		go uc.notifyOrderService(payment, result)
	}

	return nil
}

// notifyOrderService marks the linked order confirmed on the order service.
// Runs detached: a failure here must never delay or fail the gateway ack.
func (uc *CallbackUsecase) notifyOrderService(payment *domain.PaymentRequest, result *mpesa.CallbackResult) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	n := &client.OrderNotification{
		OrderReference:    payment.OrderReference,
		CheckoutRequestID: payment.CheckoutRequestID,
		Status:            string(payment.Status),
		Amount:            result.Amount,
		ReceiptNumber:     result.ReceiptNumber,
		PhoneNumber:       result.PhoneNumber,
	}
	if n.Amount == 0 {
		n.Amount = payment.Amount
	}

	if err := uc.notifier.NotifyPaymentResult(ctx, n); err != nil {
		uc.logger.Error("order notification failed",
			zap.String("order_reference", payment.OrderReference),
			zap.String("checkout_request_id", payment.CheckoutRequestID),
			zap.Error(err))
	}
}
