package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vaidarjogo/go-confirmation-service/internal/metrics"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/config"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/errors"
	"github.com/vaidarjogo/go-confirmation-service/internal/shared/logger"
)

// SendResult is the outcome of a successful send
type SendResult struct {
	MessageID string
}

// Client talks to the WhatsApp Business Cloud API. Transient failures (rate
// limit, timeout, connectivity, 5xx) are retried up to MaxRetries times with
// a fixed delay; permanent failures (bad address, auth, rejected content)
// fail immediately. All retries happen synchronously inside one Send call.
type Client struct {
	config     config.WhatsAppConfig
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new WhatsApp client
func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayMS <= 0 {
		cfg.RetryDelayMS = 5000
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Send delivers one text message to a phone number, retrying transient
// failures. The returned error is a *errors.TransportError when the provider
// rejected the message.
func (c *Client) Send(ctx context.Context, phone, text string) (*SendResult, error) {
	var lastErr error

	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 1 {
			c.log.Warn("Retrying WhatsApp send", "phone", phone, "attempt", attempt, "delay_ms", c.config.RetryDelayMS)
			metrics.TransportRetries.Inc()

			select {
			case <-time.After(time.Duration(c.config.RetryDelayMS) * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := c.doSend(ctx, phone, text)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if errors.IsPermanent(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("send failed after %d attempts: %w", c.config.MaxRetries, lastErr)
}

func (c *Client) doSend(ctx context.Context, phone, text string) (*SendResult, error) {
	payload := sendRequest{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "text",
		Text:             textBody{Body: text},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/messages", c.config.APIURL, c.config.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network-level failures are always retryable
		return nil, &errors.TransportError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil && resp.StatusCode < 300 {
		return nil, &errors.TransportError{Status: resp.StatusCode, Message: "invalid response body", Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result := &SendResult{}
		if len(parsed.Messages) > 0 {
			result.MessageID = parsed.Messages[0].ID
		}
		return result, nil
	}

	message := "provider error"
	if parsed.Error != nil {
		message = parsed.Error.Message
	}

	return nil, &errors.TransportError{
		Permanent: isPermanentStatus(resp.StatusCode),
		Status:    resp.StatusCode,
		Message:   message,
	}
}

// isPermanentStatus classifies provider HTTP statuses. Rate limiting (429),
// timeouts (408) and server errors are worth retrying; client errors are not.
func isPermanentStatus(status int) bool {
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return false
	case status >= 500:
		return false
	default:
		return true
	}
}

// AccountStatus queries the provider for phone-number account health
func (c *Client) AccountStatus(ctx context.Context) (map[string]interface{}, error) {
	url := fmt.Sprintf("%s/%s", c.config.APIURL, c.config.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("account status returned %d", resp.StatusCode)
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return status, nil
}

// VerifyWebhook answers the provider's webhook verification handshake,
// returning the challenge to echo back and whether verification passed.
func (c *Client) VerifyWebhook(mode, token, challenge string) (string, bool) {
	if mode == "subscribe" && token == c.config.VerifyToken {
		return challenge, true
	}
	return "", false
}

// NormalizePhone canonicalizes a contact address: strips transport suffixes
// and non-digits, and applies the default country code (55) to bare local
// numbers so stored phones and webhook senders compare equal.
func NormalizePhone(phone string) string {
	if i := strings.IndexByte(phone, '@'); i >= 0 {
		phone = phone[:i]
	}

	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	normalized := digits.String()
	if len(normalized) == 10 || len(normalized) == 11 {
		normalized = "55" + normalized
	}
	return normalized
}
