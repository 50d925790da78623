package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/authgate/authgate"
	"github.com/cenkalti/backoff/v5"
)

// SMSConfig configures SMSClient.
type SMSConfig struct {
	// Endpoint receives POSTed JSON messages.
	Endpoint string
	APIKey   string
	Sender   string
	Timeout  time.Duration
}

// SMSClient sends one-time codes through an HTTP SMS gateway.
type SMSClient struct {
	config SMSConfig
	client *http.Client
}

type smsRequest struct {
	To      string `json:"to"`
	Sender  string `json:"sender,omitempty"`
	Message string `json:"message"`
}

// NewSMSClient returns an SMSClient. A nil httpClient gets one with cfg.Timeout.
func NewSMSClient(cfg SMSConfig, httpClient *http.Client) (*SMSClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("sms: endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &SMSClient{config: cfg, client: httpClient}, nil
}

// Send implements Sender. 4xx gateway replies are permanent; 5xx and
// transport errors are retried.
func (c *SMSClient) Send(ctx context.Context, n authgate.Notification) error {
	if n.Kind != authgate.NotifySendOTP {
		return backoff.Permanent(fmt.Errorf("sms: unsupported kind %q", n.Kind))
	}
	if n.Code == "" || n.To == "" {
		return backoff.Permanent(errors.New("sms: send-otp job without code or recipient"))
	}

	body, err := json.Marshal(smsRequest{
		To:      n.To,
		Sender:  c.config.Sender,
		Message: fmt.Sprintf("Your verification code is %s. It expires in 5 minutes.", n.Code),
	})
	if err != nil {
		return backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}
