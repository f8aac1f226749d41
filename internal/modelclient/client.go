package modelclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	localerrors "github.com/localdocs/localdocs/internal/errors"
)

// Client is a blocking HTTP client for the model server's embed/chat
// endpoints, wrapped in a circuit breaker, with connection-pooled
// transport and context-scoped per-request timeouts.
type Client struct {
	httpClient *http.Client
	transport  *http.Transport
	baseURL    string
	timeout    time.Duration
	breaker    *localerrors.CircuitBreaker
}

// New creates a Client. cfg's BaseURL is normalized per NormalizeBaseURL.
func New(cfg Config) *Client {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.PoolSize,
		MaxIdleConnsPerHost: cfg.PoolSize,
		MaxConnsPerHost:     cfg.PoolSize * 2,
		IdleConnTimeout:     90 * time.Second,
		Proxy:               nil, // proxy disabled
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		transport:  transport,
		baseURL:    NormalizeBaseURL(cfg.BaseURL),
		timeout:    cfg.Timeout,
		breaker: localerrors.NewCircuitBreaker("modelclient",
			localerrors.WithMaxFailures(orDefault(cfg.BreakerTripThreshold, DefaultBreakerTripThreshold)),
			localerrors.WithResetTimeout(orDefaultDuration(cfg.BreakerCooldown, DefaultBreakerCooldown)),
		),
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

// NormalizeBaseURL canonicalizes a raw base URL: trim, add
// http:// if no scheme, strip trailing slash, ensure exactly one trailing
// /api. Empty input falls back to DefaultBaseURL. Override precedence
// (OLLAMA_BASE_URL > OLLAMA_HOST > default) is the caller's responsibility
// (internal/config applies it before this is called).
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultBaseURL
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	raw = strings.TrimRight(raw, "/")
	if strings.HasSuffix(raw, "/api") {
		return raw
	}
	return raw + "/api"
}

// Close releases idle connections.
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}

// Embed embeds one or more input strings with model, returning vectors in
// the same order.
func (c *Client) Embed(ctx context.Context, model string, input []string) ([][]float32, error) {
	var body embedRequest
	body.Model = model
	if len(input) == 1 {
		body.Input = input[0]
	} else {
		body.Input = input
	}
	body.Truncate = true

	var resp embedResponse
	if err := c.breaker.Execute(func() error {
		return c.doJSON(ctx, http.MethodPost, "/embed", body, &resp)
	}); err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}

// Chat performs a non-streaming chat call, returning the assistant's
// message content.
func (c *Client) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	body := chatRequest{Model: model, Messages: messages, Stream: false}

	var resp chatResponse
	if err := c.breaker.Execute(func() error {
		return c.doJSON(ctx, http.MethodPost, "/chat", body, &resp)
	}); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("model server error: %s", resp.Error)
	}
	return resp.Message.Content, nil
}

// ChatStream performs a streaming chat call, invoking onDelta for each
// non-empty content delta and returning the accumulated content. The
// response is newline-delimited JSON; each line is either `data: <json>` or
// raw JSON, terminated by literal "[DONE]" or a record with done=true. A
// record carrying a non-empty error field terminates the stream with
// failure.
func (c *Client) ChatStream(ctx context.Context, model string, messages []Message, onDelta func(string)) (string, error) {
	body := chatRequest{Model: model, Messages: messages, Stream: true}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var accumulated strings.Builder
	err = c.breaker.Execute(func() error {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
			return NewHTTPError(resp.StatusCode, respBody)
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			line = strings.TrimPrefix(line, "data:")
			line = strings.TrimSpace(line)
			if line == "[DONE]" {
				break
			}

			var rec chatResponse
			if jsonErr := json.Unmarshal([]byte(line), &rec); jsonErr != nil {
				continue
			}
			if rec.Error != "" {
				return fmt.Errorf("model server stream error: %s", rec.Error)
			}
			if rec.Message.Content != "" {
				accumulated.WriteString(rec.Message.Content)
				onDelta(rec.Message.Content)
			}
			if rec.Done {
				break
			}
		}
		return scanner.Err()
	})
	if err != nil {
		return "", err
	}
	return accumulated.String(), nil
}

// ListModels returns the installed models, per /api/tags.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var resp modelListResponse
	if err := c.breaker.Execute(func() error {
		return c.doJSON(ctx, http.MethodGet, "/tags", nil, &resp)
	}); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

// doJSON issues a request with an optional JSON body, decoding a JSON
// response into out. Non-2xx responses are wrapped as *HTTPError carrying
// the status code and a truncated body.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return NewHTTPError(resp.StatusCode, body)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// IsTimeout reports whether err represents an HTTP client timeout
// (context deadline exceeded while waiting on the model server), the
// signal the embedding pipeline's retry/split policy keys off.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
