package engine

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

	"github.com/hookmill/hookmill/internal/model"
)

// OpenRouterClient implements StreamClient against the OpenRouter Chat
// Completions API. It also works with any OpenAI-compatible service by
// setting a custom base URL.
type OpenRouterClient struct {
	baseURL    string
	retryDelay time.Duration
	httpClient *http.Client
}

// OpenRouterOption configures the OpenRouter client.
type OpenRouterOption func(*OpenRouterClient)

// WithBaseURL overrides the API endpoint (default: https://openrouter.ai/api/v1).
func WithBaseURL(url string) OpenRouterOption {
	return func(c *OpenRouterClient) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithRetryDelay sets the pause before the single retry on a transient
// failure (default: 1s).
func WithRetryDelay(d time.Duration) OpenRouterOption {
	return func(c *OpenRouterClient) { c.retryDelay = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) OpenRouterOption {
	return func(c *OpenRouterClient) { c.httpClient = hc }
}

// NewOpenRouterClient creates a new OpenRouter stream client.
func NewOpenRouterClient(opts ...OpenRouterOption) *OpenRouterClient {
	c := &OpenRouterClient{
		baseURL:    "https://openrouter.ai/api/v1",
		retryDelay: time.Second,
		httpClient: &http.Client{
			// No overall timeout: streams stay open as long as tokens
			// arrive. Cancellation comes from the request context.
			Timeout: 0,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatStreamRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
	Stop        []string      `json:"stop,omitempty"`
	Stream      bool          `json:"stream"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// TransportError is a non-OK response from the completion endpoint, kept
// after the retry budget is spent.
type TransportError struct {
	Status int
	Body   string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

func (e *TransportError) retryable() bool {
	return e.Status == http.StatusTooManyRequests ||
		e.Status >= http.StatusInternalServerError
}

// Stream sends the completion request and consumes the SSE response. On a
// rate-limit or server error it retries exactly once after retryDelay.
// The accumulated text is returned alongside any mid-stream error so a
// cancelled run still yields its partial output.
func (c *OpenRouterClient) Stream(ctx context.Context, req StreamRequest, onText func(text string)) (string, error) {
	if req.APIKey == "" {
		return "", model.ErrMissingAPIKey
	}

	stop := make([]string, 0, len(req.Params.Stop))
	for _, tok := range req.Params.Stop {
		if tok != "" {
			stop = append(stop, tok)
		}
	}

	body, err := json.Marshal(chatStreamRequest{
		Model:       req.Model,
		Temperature: req.Params.Temperature,
		TopP:        req.Params.TopP,
		MaxTokens:   req.Params.MaxTokens,
		Stop:        stop,
		Stream:      true,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.connect(ctx, req.APIKey, body)
	if err != nil {
		return "", fmt.Errorf("openrouter: %w", err)
	}
	defer resp.Body.Close()

	return c.consume(req, resp.Body, stop, onText)
}

// connect opens the streaming response, retrying once on a transient
// status. The caller owns the returned body.
func (c *OpenRouterClient) connect(ctx context.Context, apiKey string, body []byte) (*http.Response, error) {
	const maxAttempts = 2
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := c.doRequest(ctx, apiKey, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var te *TransportError
		if !errors.As(err, &te) || !te.retryable() {
			return nil, err
		}

		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
	return nil, lastErr
}

func (c *OpenRouterClient) doRequest(ctx context.Context, apiKey string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &TransportError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return resp, nil
}

// consume reads SSE events off the response body, assembling text deltas.
// Events are separated by blank lines; each "data:" payload is either the
// "[DONE]" sentinel or a JSON chunk carrying the next delta. Malformed
// payloads are skipped. After each delta the cap is re-applied, onText is
// invoked, and the stop tokens are checked; a stop match ends the stream
// without stripping the token.
func (c *OpenRouterClient) consume(req StreamRequest, r io.Reader, stop []string, onText func(string)) (string, error) {
	br := bufio.NewReader(r)
	var dataBuf bytes.Buffer
	var out string

	hitStop := func() bool {
		for _, tok := range stop {
			if strings.Contains(out, tok) {
				return true
			}
		}
		return false
	}

	// flush parses one complete event; it reports whether the stream is
	// finished (sentinel or stop-token match).
	flush := func() bool {
		raw := strings.TrimSpace(dataBuf.String())
		dataBuf.Reset()
		if raw == "" || raw == "[DONE]" {
			return raw == "[DONE]"
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return false
		}
		if len(ev.Choices) == 0 || ev.Choices[0].Delta.Content == "" {
			return false
		}

		out += ev.Choices[0].Delta.Content
		if req.Cap != nil {
			out = req.Cap(out)
		}
		if onText != nil {
			onText(out)
		}
		return hitStop()
	}

	for {
		line, err := br.ReadString('\n')
		if line != "" {
			trim := strings.TrimRight(line, "\r\n")
			if trim == "" {
				if flush() {
					return out, nil
				}
			} else if data, ok := strings.CutPrefix(trim, "data:"); ok {
				dataBuf.WriteString(strings.TrimSpace(data))
			}
		}
		if err == io.EOF {
			// Flush a final event that arrived without a trailing blank line.
			flush()
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("openrouter: read stream: %w", err)
		}
	}
}
