package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// apiClient is the shared bearer-token JSON client the connectors build on.
type apiClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func newAPIClient(httpClient *http.Client, baseURL, apiKey string) (*apiClient, error) {
	if baseURL == "" || apiKey == "" {
		return nil, fmt.Errorf("api url and api key are required")
	}
	if httpClient == nil {
		// http.DefaultClient has no timeout; never wait on a dead endpoint
		// longer than the caller's context plus this bound.
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &apiClient{httpClient: httpClient, baseURL: baseURL, apiKey: apiKey}, nil
}

// do sends a JSON request and decodes the JSON response into out (when out is
// non-nil). Non-2xx statuses are returned as errors.
func (c *apiClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ping hits the conventional /test endpoint every connected system exposes.
func (c *apiClient) ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/test", nil, nil)
}
