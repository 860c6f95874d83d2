// Package genai talks to the hosted generation service: long-running video
// jobs, image generation, screenplay text and copilot command routing.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/munzgen/munzgen-agent/internal/logging"
)

const (
	VideoModel = "veo-3.1-generate-preview"
	ImageModel = "gemini-3-pro-image-preview"
	TextModel  = "gemini-2.5-flash"

	apiVersion = "v1beta"
	maxErrBody = 4096
)

// Client is the generation surface used by the control panel and the shell.
type Client interface {
	GenerateVideo(ctx context.Context, prompt string, ref *Media, engine Engine) (*Media, error)
	GenerateImage(ctx context.Context, prompt string) (*Media, error)
	GenerateCharacterAnimation(ctx context.Context, character, motion string, opts AnimationOptions) (*Media, error)
	EnhanceScene(ctx context.Context, base string, opts EnhanceOptions, ref *Media) (*Media, error)
	GenerateScript(ctx context.Context, idea string) (string, error)
	RouteCommand(ctx context.Context, prompt string) Command
}

// PollOptions bounds the wait on a long-running video operation.
type PollOptions struct {
	Interval    time.Duration
	Timeout     time.Duration
	MaxAttempts int
}

func DefaultPollOptions() PollOptions {
	return PollOptions{Interval: 5 * time.Second, Timeout: 10 * time.Minute, MaxAttempts: 120}
}

// HTTPClient is the REST implementation of Client.
type HTTPClient struct {
	baseURL    string
	keys       KeySource
	poll       PollOptions
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, keys KeySource, poll PollOptions, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		keys:    keys,
		poll:    poll,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		logger: logging.WithComponent(logger, "genai"),
	}
}

func (c *HTTPClient) modelURL(model, method string) string {
	return fmt.Sprintf("%s/%s/models/%s:%s", c.baseURL, apiVersion, model, method)
}

// do sends one request and decodes a 2xx JSON body into out. Non-2xx answers
// become *APIError.
func (c *HTTPClient) do(ctx context.Context, method, url string, in, out any) error {
	key := c.keys.Key()
	if key == "" {
		return ErrNoAPIKey
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-goog-api-key", key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) generateContent(ctx context.Context, model string, req generateContentRequest) (*generateContentResponse, error) {
	var resp generateContentResponse
	if err := c.do(ctx, http.MethodPost, c.modelURL(model, "generateContent"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func userText(s string) []content {
	return []content{{Role: "user", Parts: []part{{Text: s}}}}
}
