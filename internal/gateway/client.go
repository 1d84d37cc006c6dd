package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const defaultTimeout = 15 * time.Second

// httpClient is the JSON transport shared by the redirect gateways. Every
// request waits on the limiter first.
type httpClient struct {
	name    string
	http    *http.Client
	limiter *rate.Limiter
}

func newHTTPClient(name string, rps float64, client *http.Client) *httpClient {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if rps <= 0 {
		rps = 5
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &httpClient{name: name, http: client, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// do sends req and decodes a JSON answer into out. Status codes are mapped to
// ErrUnavailable (429, 5xx) or ErrDeclined (other 4xx).
func (c *httpClient) do(ctx context.Context, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w: %v", c.name, ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%s: %w: %v", c.name, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: %w: read body: %v", c.name, ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%s: %w: HTTP %d", c.name, ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%s: %w: HTTP %d: %s", c.name, ErrDeclined, resp.StatusCode, truncate(body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: %w: %v", c.name, ErrInvalidResponse, err)
	}
	return nil
}

func jsonRequest(ctx context.Context, method, url string, payload any) (*http.Request, []byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, body, nil
}

func truncate(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max])
	}
	return string(b)
}
