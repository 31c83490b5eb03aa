package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUpstream is wrapped around every registry-side failure: timeouts,
// connection errors and non-2xx responses.
var ErrUpstream = errors.New("nid registry request failed")

const maxUpstreamResponse = 1 << 20

// Client speaks the registry's single-call contract. The timeout is a hard
// ceiling per request; a slow registry surfaces as an upstream error, never
// a hung handler.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type upstreamRequest struct {
	Username         string         `json:"username"`
	Password         string         `json:"password"`
	Identify         Identify       `json:"identify"`
	Verify           map[string]any `json:"verify"`
	VerificationType Type           `json:"verificationType"`
}

// Verify performs one registry call. The error chain always includes
// ErrUpstream for registry-side failures so callers can map them uniformly.
func (c *Client) Verify(ctx context.Context, creds Credentials, req Request, typ Type) (Result, error) {
	payload, err := json.Marshal(upstreamRequest{
		Username:         creds.Username,
		Password:         creds.Password,
		Identify:         req.Identify,
		Verify:           req.Verify,
		VerificationType: typ,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode verification request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build verification request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamResponse))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read response: %w", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %w", ErrUpstream, err)
	}
	return result, nil
}
