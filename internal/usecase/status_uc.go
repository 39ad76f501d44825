package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"mpesa-payment-service/internal/domain"
	"mpesa-payment-service/internal/provider/mpesa"
	"mpesa-payment-service/internal/repository"
	"mpesa-payment-service/pkg/client"

	"go.uber.org/zap"
)

// StatusView is the poll result surfaced to the caller. A pending status is
// distinguishable from a failed one so the caller can keep polling.
type StatusView struct {
	TrackingID        string               `json:"trackingId"`
	Status            domain.PaymentStatus `json:"status"`
	ResultCode        string               `json:"resultCode,omitempty"`
	ResultDescription string               `json:"resultDescription,omitempty"`
	CheckedAt         time.Time            `json:"checkedAt"`
}

type StatusUsecase struct {
	paymentRepo repository.PaymentRepository
	gateway     Gateway
	notifier    OrderNotifier
	logger      *zap.Logger
}

func NewStatusUsecase(paymentRepo repository.PaymentRepository, gateway Gateway, notifier OrderNotifier, logger *zap.Logger) *StatusUsecase {
	return &StatusUsecase{
		paymentRepo: paymentRepo,
		gateway:     gateway,
		notifier:    notifier,
		logger:      logger,
	}
}

// CheckStatus queries the gateway for the current state of a tracking
// identifier, used when the callback is delayed or lost. Terminal outcomes
// are written through the conditional resolve, so a callback that already
// resolved the record always wins; the stored record remains the source of
// truth for the returned view.
func (uc *StatusUsecase) CheckStatus(ctx context.Context, checkoutRequestID string) (*StatusView, error) {
	view := &StatusView{
		TrackingID: checkoutRequestID,
		CheckedAt:  time.Now().UTC(),
	}

	resp, err := uc.gateway.QuerySTKStatus(ctx, checkoutRequestID)
	switch {
	case errors.Is(err, mpesa.ErrTransactionProcessing):
		view.Status = domain.PaymentStatusPending
		return view, nil
	case err != nil:
		return nil, err
	}

	if resp.ResponseCode != "0" {
		// The gateway acknowledged the query but could not report an
		// outcome. Surface its description verbatim without touching the
		// stored record.
		view.Status = domain.PaymentStatusFailed
		view.ResultCode = resp.ResponseCode
		view.ResultDescription = resp.ResponseDescription
		return view, nil
	}

	resultCode, err := strconv.Atoi(resp.ResultCode)
	if err != nil {
		return nil, &domain.PollError{Description: "non-numeric result code: " + resp.ResultCode}
	}

	status := domain.StatusForQueryCode(resultCode)
	view.Status = status
	view.ResultCode = resp.ResultCode
	view.ResultDescription = resp.ResultDesc

	resolved, err := uc.paymentRepo.Resolve(ctx, checkoutRequestID, status, resp.ResultCode, resp.ResultDesc, nil)
	if err != nil {
		uc.logger.Error("failed to resolve payment from poll",
			zap.String("checkout_request_id", checkoutRequestID),
			zap.Error(err))
	}

	// Re-read so a concurrent callback's terminal state takes precedence in
	// the view as well as in storage.
	payment, repoErr := uc.paymentRepo.GetByCheckoutRequestID(ctx, checkoutRequestID)
	if repoErr == nil && payment.Status.IsTerminal() {
		view.Status = payment.Status
		if payment.ResultCode != nil {
			view.ResultCode = *payment.ResultCode
		}
		if payment.ResultDescription != nil {
			view.ResultDescription = *payment.ResultDescription
		}
	}

	if resolved && status == domain.PaymentStatusCompleted && payment != nil {
		uc.logger.Info("payment resolved via poll",
			zap.String("checkout_request_id", checkoutRequestID),
			zap.String("status", string(status)))
		go uc.notifyOrderService(payment)
	}

	return view, nil
}

func (uc *StatusUsecase) notifyOrderService(payment *domain.PaymentRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	n := &client.OrderNotification{
		OrderReference:    payment.OrderReference,
		CheckoutRequestID: payment.CheckoutRequestID,
		Status:            string(payment.Status),
		Amount:            payment.Amount,
		PhoneNumber:       payment.PhoneNumber,
	}
	if payment.ReceiptNumber != nil {
		n.ReceiptNumber = *payment.ReceiptNumber
	}

	if err := uc.notifier.NotifyPaymentResult(ctx, n); err != nil {
		uc.logger.Error("order notification failed",
			zap.String("order_reference", payment.OrderReference),
			zap.String("checkout_request_id", payment.CheckoutRequestID),
			zap.Error(err))
	}
}
