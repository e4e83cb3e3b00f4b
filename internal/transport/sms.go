package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/advisio/messaging-core/internal/domain"
)

// SMSSender abstracts the external SMS transport.
type SMSSender interface {
	SendSMS(ctx context.Context, msg domain.SMSMessage) error
}

// HTTPSMSGateway delivers SMS by POSTing to the SMS provider's relay.
type HTTPSMSGateway struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPSMSGateway(baseURL string, timeout time.Duration) *HTTPSMSGateway {
	return &HTTPSMSGateway{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (g *HTTPSMSGateway) SendSMS(ctx context.Context, msg domain.SMSMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send sms request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected sms provider status: %d", resp.StatusCode)
	}
	return nil
}

// compile-time check that HTTPSMSGateway implements SMSSender
var _ SMSSender = (*HTTPSMSGateway)(nil)
