// Package httpnotify delivers notifications to the notification service over HTTP.
package httpnotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-accounts-nosql/internal/domain"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RequestIDHeader carries the inbound request id so both services' logs can be correlated.
const RequestIDHeader = "unique_id"

// Client POSTs notifications as JSON to a fixed URL.
type Client struct {
	url  string
	http *http.Client
}

// New returns a Client. A nil httpClient uses http.DefaultClient; timeouts come from the caller's context.
func New(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{url: url, http: httpClient}
}

func (c *Client) Send(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if id := chimiddleware.GetReqID(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify %q: %w", n.Action, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify %q: unexpected status %d", n.Action, resp.StatusCode)
	}
	return nil
}
