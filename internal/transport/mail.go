// Package transport holds the outbound delivery collaborators: the mail and
// SMS gateways the queue consumers call into. Both are behind interfaces so
// tests control delivery behaviour without network calls.
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

// Mailer abstracts the external mail transport.
type Mailer interface {
	SendMail(ctx context.Context, msg domain.EmailMessage) error
}

// HTTPMailGateway delivers mail by POSTing to the mail relay service.
// The base URL is injected from config so tests can point to a local mock.
type HTTPMailGateway struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPMailGateway(baseURL string, timeout time.Duration) *HTTPMailGateway {
	return &HTTPMailGateway{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SendMail posts the message to the relay and expects a 2xx response.
func (g *HTTPMailGateway) SendMail(ctx context.Context, msg domain.EmailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send mail request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected mail relay status: %d", resp.StatusCode)
	}
	return nil
}

// compile-time check that HTTPMailGateway implements Mailer
var _ Mailer = (*HTTPMailGateway)(nil)
