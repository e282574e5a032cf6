// Package ctl is the client side of the modelgate HTTP API, used by the
// modelgatectl command.
package ctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"modelgate/pkg/types"
)

// Client calls one modelgate instance.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a Client for baseURL. Timeout=0: callers bound each call
// with a context deadline.
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: &http.Client{Timeout: 0}}
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (types.HealthResponse, error) {
	var out types.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

// Status calls GET /api/status.
func (c *Client) Status(ctx context.Context) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

// WhoAmI calls GET /api/whoami.
func (c *Client) WhoAmI(ctx context.Context) (types.WhoAmIResponse, error) {
	var out types.WhoAmIResponse
	err := c.do(ctx, http.MethodGet, "/api/whoami", nil, &out)
	return out, err
}

// Chat calls POST /api/chat. A 400 is returned as a payload with
// Success=false, not as an error.
func (c *Client) Chat(ctx context.Context, prompt string) (types.ChatResponse, error) {
	var out types.ChatResponse
	err := c.do(ctx, http.MethodPost, "/api/chat", types.ChatRequest{Prompt: prompt}, &out)
	return out, err
}

// WaitReady polls /api/status every interval until it reports ready or ctx
// ends. onUpdate, if set, sees every successful poll. Transport errors are
// reported to onErr and polling continues.
func (c *Client) WaitReady(ctx context.Context, interval time.Duration, onUpdate func(types.StatusResponse), onErr func(error)) (types.StatusResponse, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		st, err := c.Status(ctx)
		if err == nil {
			if onUpdate != nil {
				onUpdate(st)
			}
			if st.Ready {
				return st, nil
			}
		} else if onErr != nil && ctx.Err() == nil {
			onErr(err)
		}
		select {
		case <-ctx.Done():
			return st, fmt.Errorf("not ready: %w", ctx.Err())
		case <-t.C:
		}
	}
}

// do sends one request and decodes a JSON reply. Any status other than 200
// and 400 is an error.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
