package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mpesa-payment-service/config"
	"mpesa-payment-service/internal/cache"
	"mpesa-payment-service/internal/domain"

	"go.uber.org/zap"
)

// tokenTTL keeps cached tokens comfortably inside the gateway's one hour
// expiry window.
const tokenTTL = 50 * time.Minute

type Client struct {
	cfg        config.MpesaConfig
	baseURL    string
	httpClient *http.Client
	tokens     cache.TokenCache
	logger     *zap.Logger
}

// NewClient builds a Daraja API client. tokens may be nil, in which case a
// fresh bearer token is fetched for every request.
func NewClient(cfg config.MpesaConfig, tokens cache.TokenCache, logger *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		baseURL:    cfg.BaseURL(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		logger:     logger,
	}
}

// AccessToken returns a bearer token, preferring the shared cache.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.tokens != nil {
		token, err := c.tokens.Get(ctx)
		if err != nil {
			c.logger.Warn("token cache read failed, fetching fresh token", zap.Error(err))
		} else if token != "" {
			return token, nil
		}
	}

	token, err := c.fetchToken(ctx)
	if err != nil {
		return "", err
	}

	if c.tokens != nil {
		if err := c.tokens.Set(ctx, token, tokenTTL); err != nil {
			c.logger.Warn("token cache write failed", zap.Error(err))
		}
	}
	return token, nil
}

// InvalidateToken drops the cached token after the gateway rejected it.
func (c *Client) InvalidateToken(ctx context.Context) {
	if c.tokens == nil {
		return
	}
	if err := c.tokens.Delete(ctx); err != nil {
		c.logger.Warn("token cache invalidation failed", zap.Error(err))
	}
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	if c.cfg.ConsumerKey == "" || c.cfg.ConsumerSecret == "" {
		return "", &domain.AuthError{Reason: "consumer credentials not configured"}
	}

	url := c.baseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &domain.AuthError{Reason: "building token request", Err: err}
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.AuthError{Reason: "token endpoint unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &domain.AuthError{Reason: fmt.Sprintf("token endpoint returned %d: %s", resp.StatusCode, string(body))}
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &domain.AuthError{Reason: "decoding token response", Err: err}
	}
	if result.AccessToken == "" {
		return "", &domain.AuthError{Reason: "token response missing access_token"}
	}
	return result.AccessToken, nil
}

// timestamp returns the gateway's wall-clock request timestamp format.
func timestamp(now time.Time) string {
	return now.Format("20060102150405")
}

// password derives the request password bound to the given timestamp.
// Never logged: it embeds the passkey.
func (c *Client) password(ts string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.Passkey + ts))
}

// postJSON submits an authenticated request. A 401 invalidates the cached
// token and retries exactly once with a fresh one. The response body and
// status are returned for endpoint-specific interpretation.
func (c *Client) postJSON(ctx context.Context, path string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return 0, nil, err
	}

	status, respBody, err := c.doPost(ctx, path, token, body)
	if err != nil {
		return 0, nil, err
	}

	if status == http.StatusUnauthorized {
		c.logger.Info("bearer token rejected, refreshing once", zap.String("path", path))
		c.InvalidateToken(ctx)
		token, err = c.fetchToken(ctx)
		if err != nil {
			return 0, nil, err
		}
		if c.tokens != nil {
			if err := c.tokens.Set(ctx, token, tokenTTL); err != nil {
				c.logger.Warn("token cache write failed", zap.Error(err))
			}
		}
		return c.doPost(ctx, path, token, body)
	}

	return status, respBody, nil
}

func (c *Client) doPost(ctx context.Context, path, token string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

// gatewayError is the error body Daraja returns on non-2xx responses.
type gatewayError struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}
