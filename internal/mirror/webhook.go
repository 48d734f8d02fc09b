package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"edge-tradesim/internal/httputil"
)

// Webhook POSTs each envelope as JSON to a fixed URL.
type Webhook struct {
	url        string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewWebhook(url string, retry httputil.RetryConfig) *Webhook {
	return &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      retry,
	}
}

func (w *Webhook) Enabled() bool { return w.url != "" }

func (w *Webhook) Send(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	resp, err := httputil.Do(ctx, w.httpClient, w.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", env.ID)
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("mirror rejected %s: HTTP %d", env.ID, resp.StatusCode)
	}
	return nil
}
