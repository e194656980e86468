package wagate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jax91/bot-iptv-whatsapp/app/config"

	"github.com/samber/do"
)

// Sender delivers one outbound text. Conversation and notification code
// depend on this, not on the concrete gateway client.
type Sender interface {
	Send(ctx context.Context, recipient, text string) error
}

// Client talks to a WhatsApp HTTP gateway.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

var _ Sender = (*Client)(nil)

func NewClient(di *do.Injector) (*Client, error) {
	return &Client{
		cfg: do.MustInvoke[*config.Config](di),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type sendRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

func (c *Client) Send(ctx context.Context, recipient, text string) error {
	body, err := json.Marshal(sendRequest{To: recipient, Text: text})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.Gateway.BaseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Gateway.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Gateway.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway send: unexpected status %d", resp.StatusCode)
	}

	return nil
}

// Healthy reports whether the gateway answers its health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.Gateway.BaseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
