package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"mpesa-payment-service/internal/domain"
	"mpesa-payment-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	initiateUC *usecase.InitiateUsecase
	statusUC   *usecase.StatusUsecase
	logger     *zap.Logger
}

func NewPaymentHandler(initiateUC *usecase.InitiateUsecase, statusUC *usecase.StatusUsecase, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		initiateUC: initiateUC,
		statusUC:   statusUC,
		logger:     logger,
	}
}

// HandleInitiate starts an STK push for an order.
func (h *PaymentHandler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	var req domain.InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid initiate body", zap.Error(err))
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payment, err := h.initiateUC.Initiate(r.Context(), &req)
	if err != nil {
		h.respondInitiateError(w, &req, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"trackingId":        payment.CheckoutRequestID,
		"merchantRequestId": payment.MerchantRequestID,
		"orderReference":    payment.OrderReference,
		"status":            payment.Status,
	})
}

func (h *PaymentHandler) respondInitiateError(w http.ResponseWriter, req *domain.InitiateRequest, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		respondError(w, http.StatusBadRequest, validationErr.Error())
		return
	}

	h.logger.Error("initiate failed",
		zap.String("order_reference", req.OrderReference),
		zap.Error(err))

	var initErr *domain.InitiationError
	if errors.As(err, &initErr) {
		respondError(w, http.StatusInternalServerError, initErr.Error())
		return
	}

	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		respondError(w, http.StatusInternalServerError, "payment service unavailable")
		return
	}

	respondError(w, http.StatusInternalServerError, "payment service unavailable")
}

// HandleStatus polls the gateway for the current state of a tracking id.
func (h *PaymentHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingId")
	if trackingID == "" {
		respondError(w, http.StatusBadRequest, "trackingId is required")
		return
	}

	view, err := h.statusUC.CheckStatus(r.Context(), trackingID)
	if err != nil {
		h.logger.Error("status check failed",
			zap.String("tracking_id", trackingID),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "status check failed")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// HandleGet returns the stored payment record for a tracking id.
func (h *PaymentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingId")

	payment, err := h.initiateUC.Get(r.Context(), trackingID)
	if errors.Is(err, domain.ErrPaymentNotFound) {
		respondError(w, http.StatusNotFound, "payment not found")
		return
	}
	if err != nil {
		h.logger.Error("payment lookup failed",
			zap.String("tracking_id", trackingID),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "payment lookup failed")
		return
	}

	respondJSON(w, http.StatusOK, payment)
}

// HandleListByOrder returns every payment attempt recorded for an order.
func (h *PaymentHandler) HandleListByOrder(w http.ResponseWriter, r *http.Request) {
	orderReference := chi.URLParam(r, "orderReference")

	payments, err := h.initiateUC.ListByOrder(r.Context(), orderReference)
	if err != nil {
		h.logger.Error("order payments lookup failed",
			zap.String("order_reference", orderReference),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "payment lookup failed")
		return
	}
	if payments == nil {
		payments = []*domain.PaymentRequest{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"orderReference": orderReference,
		"payments":       payments,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
