// Package ollama is a minimal client for the local Ollama daemon API: the
// liveness probe, the local model list, model pulls and non-streaming
// generation. Every call carries its own context deadline; the underlying
// http.Client has no global timeout.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"modelgate/pkg/types"
)

// Default per-call timeouts.
const (
	DefaultProbeTimeout    = 2 * time.Second
	DefaultTagsTimeout     = 5 * time.Second
	DefaultPullTimeout     = 10 * time.Minute
	DefaultGenerateTimeout = 120 * time.Second
)

// Config configures a Client. Zero durations fall back to the defaults above.
type Config struct {
	BaseURL         string
	ProbeTimeout    time.Duration
	TagsTimeout     time.Duration
	PullTimeout     time.Duration
	GenerateTimeout time.Duration
	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Client talks to one daemon endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	probeTO    time.Duration
	tagsTO     time.Duration
	pullTO     time.Duration
	generateTO time.Duration
	log        zerolog.Logger
}

// New constructs a Client.
func New(cfg Config) *Client {
	cli := cfg.HTTPClient
	if cli == nil {
		tr := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		// Timeout=0: each request carries its own context deadline.
		cli = &http.Client{Transport: tr, Timeout: 0}
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cli,
		probeTO:    orDefault(cfg.ProbeTimeout, DefaultProbeTimeout),
		tagsTO:     orDefault(cfg.TagsTimeout, DefaultTagsTimeout),
		pullTO:     orDefault(cfg.PullTimeout, DefaultPullTimeout),
		generateTO: orDefault(cfg.GenerateTimeout, DefaultGenerateTimeout),
		log:        zerolog.Nop(),
	}
	if cfg.Logger != nil {
		c.log = cfg.Logger.With().Str("component", "ollama").Logger()
	}
	return c
}

// BaseURL returns the daemon endpoint this client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// Alive reports whether the daemon answers the model list endpoint with a 2xx
// within the probe timeout. It never returns an error.
func (c *Client) Alive(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.probeTO)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Msg("probe failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Tags returns the models stored locally by the daemon.
func (c *Client) Tags(ctx context.Context) ([]types.DaemonModel, error) {
	ctx, cancel := context.WithTimeout(ctx, c.tagsTO)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp)
	}
	var out types.TagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	return out.Models, nil
}

// Pull downloads model into the daemon and blocks until the daemon reports
// completion, an error, or the pull timeout elapses. onProgress, if non-nil,
// receives every progress line of the stream.
func (c *Client) Pull(ctx context.Context, model string, onProgress func(types.PullProgress)) error {
	ctx, cancel := context.WithTimeout(ctx, c.pullTO)
	defer cancel()
	body, _ := json.Marshal(types.PullRequest{Name: model, Stream: true})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("pull %s: %w", model, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp)
	}
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	done := false
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var p types.PullProgress
		if err := json.Unmarshal(line, &p); err != nil {
			c.log.Debug().Str("line", string(line)).Msg("unparsable pull line")
			continue
		}
		if p.Error != "" {
			return &PullError{Model: model, Msg: p.Error}
		}
		if p.Status == "success" {
			done = true
		}
		if onProgress != nil {
			onProgress(p)
		}
	}
	if err := sc.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("read pull stream: %w", err)
	}
	if !done {
		return fmt.Errorf("pull %s: stream ended without success", model)
	}
	return nil
}

// Generate sends prompt to model and returns the full completion text.
// A 404 from the daemon is reported as a model-not-found error.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.generateTO)
	defer cancel()
	body, _ := json.Marshal(types.GenerateRequest{Model: model, Prompt: prompt, Stream: false})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("generate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", ErrModelNotFound(model)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newStatusError(resp)
	}
	var out types.GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if out.Error != "" {
		return "", errors.New(out.Error)
	}
	return out.Response, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
