package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// HTTPGateway pushes notifications to an external push gateway over HTTPS.
// Requests are authenticated with OAuth2 client credentials.
type HTTPGateway struct {
	client     *http.Client
	gatewayURL string
}

// HTTPGatewayConfig holds the settings for an HTTP push gateway
type HTTPGatewayConfig struct {
	GatewayURL   string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// NewHTTPGateway creates a push gateway client. The OAuth2 token is fetched
// lazily and refreshed automatically by the underlying token source.
func NewHTTPGateway(cfg HTTPGatewayConfig) *HTTPGateway {
	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	client := creds.Client(context.Background())
	client.Timeout = timeout

	return &HTTPGateway{
		client:     client,
		gatewayURL: cfg.GatewayURL,
	}
}

// Send posts the notification to the push gateway
func (g *HTTPGateway) Send(ctx context.Context, n *Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return &DeliveryError{Message: fmt.Sprintf("marshal notification: %v", err), Permanent: true}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Message: fmt.Sprintf("build request: %v", err), Permanent: true}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		// Network errors and timeouts are worth retrying
		return &DeliveryError{Message: err.Error()}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	return classifyStatus(resp.StatusCode)
}

// classifyStatus maps an HTTP status to a delivery outcome. 2xx is success,
// 429 and 5xx are transient, other 4xx are permanent.
func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout:
		return &DeliveryError{Message: "gateway throttled", StatusCode: status}
	case status >= 500:
		return &DeliveryError{Message: "gateway unavailable", StatusCode: status}
	default:
		return &DeliveryError{Message: "gateway rejected notification", StatusCode: status, Permanent: true}
	}
}
