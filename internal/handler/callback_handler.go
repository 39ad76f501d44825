package handler

import (
	"io"
	"net/http"

	"mpesa-payment-service/internal/usecase"

	"go.uber.org/zap"
)

type CallbackHandler struct {
	callbackUC *usecase.CallbackUsecase
	logger     *zap.Logger
}

func NewCallbackHandler(callbackUC *usecase.CallbackUsecase, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{
		callbackUC: callbackUC,
		logger:     logger,
	}
}

// HandleSTKCallback receives the gateway's push notification. The gateway
// must always see a 200 with the fixed acknowledgement body: anything else
// triggers redelivery, and processing failures are an internal concern.
func (h *CallbackHandler) HandleSTKCallback(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read callback payload",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
		h.acknowledge(w)
		return
	}

	if err := h.callbackUC.ProcessSTKCallback(r.Context(), payload); err != nil {
		// Logged upstream; the ack below is unconditional.
		h.logger.Warn("callback processing failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
	}

	h.acknowledge(w)
}

// acknowledge writes the fixed response the gateway expects.
func (h *CallbackHandler) acknowledge(w http.ResponseWriter) {
	respondJSON(w, http.StatusOK, map[string]any{
		"ResultCode": 0,
		"ResultDesc": "Accepted",
	})
}
