package client

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"mpesa-payment-service/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderClient notifies the order service when a payment resolves. Delivery
// is best effort: failures are logged and never block acknowledging the
// payment gateway.
type OrderClient struct {
	cfg        config.OrderConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func NewOrderClient(cfg config.OrderConfig, logger *zap.Logger) *OrderClient {
	return &OrderClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// OrderNotification is the payload posted to the order service webhook.
type OrderNotification struct {
	EventID           string  `json:"event_id"`
	OrderReference    string  `json:"order_reference"`
	CheckoutRequestID string  `json:"checkout_request_id"`
	Status            string  `json:"status"`
	Amount            float64 `json:"amount"`
	ReceiptNumber     string  `json:"receipt_number,omitempty"`
	PhoneNumber       string  `json:"phone_number,omitempty"`
	Timestamp         int64   `json:"timestamp"`
}

// NotifyPaymentResult posts the notification, signing the body so the order
// service can verify origin. A zero-value webhook URL disables delivery.
func (c *OrderClient) NotifyPaymentResult(ctx context.Context, n *OrderNotification) error {
	if c.cfg.WebhookURL == "" {
		return nil
	}

	n.EventID = uuid.NewString()
	n.Timestamp = time.Now().Unix()

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal order notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build order notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Timestamp", strconv.FormatInt(n.Timestamp, 10))
	if c.cfg.SigningSecret != "" {
		req.Header.Set("X-Signature", c.sign(payload))
	}

	c.logger.Info("notifying order service",
		zap.String("order_reference", n.OrderReference),
		zap.String("status", n.Status),
		zap.String("event_id", n.EventID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("order notification failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("order service returned %d: %s", resp.StatusCode, string(body))
	}

	c.logger.Info("order service notified",
		zap.String("order_reference", n.OrderReference),
		zap.String("event_id", n.EventID))
	return nil
}

func (c *OrderClient) sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.SigningSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
