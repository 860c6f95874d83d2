package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GenerateVideo starts a video job, waits for it and downloads the result.
// When ref is set the job is image-to-video.
func (c *HTTPClient) GenerateVideo(ctx context.Context, prompt string, ref *Media, engine Engine) (*Media, error) {
	instance := videoInstance{Prompt: StyledPrompt(prompt, engine)}
	if ref != nil && len(ref.Data) > 0 {
		mime := ref.MimeType
		if mime == "" {
			mime = "image/png"
		}
		instance.Image = &videoImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(ref.Data),
			MimeType:           mime,
		}
	}

	req := predictRequest{
		Instances: []videoInstance{instance},
		Parameters: videoParameters{
			AspectRatio: "16:9",
			Resolution:  "720p",
			SampleCount: 1,
		},
	}

	var op operation
	if err := c.do(ctx, http.MethodPost, c.modelURL(VideoModel, "predictLongRunning"), req, &op); err != nil {
		return nil, fmt.Errorf("start video operation: %w", err)
	}

	c.logger.Info("video operation started",
		"operation", op.Name,
		"engine", string(engine),
		"image_to_video", instance.Image != nil,
	)

	done, err := c.waitOperation(ctx, op)
	if err != nil {
		return nil, err
	}

	uri := done.videoURI()
	if uri == "" {
		return nil, ErrNoVideo
	}
	return c.download(ctx, uri)
}

// waitOperation polls until the operation is done. The wait is bounded by the
// poll timeout and attempt count and ends early when ctx is cancelled.
func (c *HTTPClient) waitOperation(ctx context.Context, op operation) (*operation, error) {
	if op.Done {
		return &op, operationErr(&op)
	}

	pollCtx := ctx
	if c.poll.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, c.poll.Timeout)
		defer cancel()
	}

	timer := time.NewTimer(c.poll.Interval)
	defer timer.Stop()

	for attempt := 1; c.poll.MaxAttempts <= 0 || attempt <= c.poll.MaxAttempts; attempt++ {
		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w after %s", ErrPollTimeout, c.poll.Timeout)
		case <-timer.C:
		}

		var next operation
		err := c.do(pollCtx, http.MethodGet, fmt.Sprintf("%s/%s/%s", c.baseURL, apiVersion, op.Name), nil, &next)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.IsRetryable() {
				c.logger.Warn("video poll failed, retrying", "attempt", attempt, "status", apiErr.StatusCode)
				timer.Reset(c.poll.Interval)
				continue
			}
			if pollCtx.Err() != nil && ctx.Err() == nil {
				return nil, fmt.Errorf("%w after %s", ErrPollTimeout, c.poll.Timeout)
			}
			return nil, fmt.Errorf("poll video operation: %w", err)
		}

		c.logger.Debug("video operation polled", "attempt", attempt, "done", next.Done)
		if next.Done {
			return &next, operationErr(&next)
		}
		timer.Reset(c.poll.Interval)
	}

	return nil, fmt.Errorf("%w (%d)", ErrPollExhausted, c.poll.MaxAttempts)
}

func operationErr(op *operation) error {
	if op.Error == nil {
		return nil
	}
	return &APIError{StatusCode: op.Error.Code, Body: op.Error.Message}
}

// download fetches the generated file. The file URI belongs to the same
// service and takes the same key header.
func (c *HTTPClient) download(ctx context.Context, uri string) (*Media, error) {
	key := c.keys.Key()
	if key == "" {
		return nil, ErrNoAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("x-goog-api-key", key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read video: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoVideo
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = "video/mp4"
	}
	c.logger.Info("video downloaded", "bytes", len(data))
	return &Media{Data: data, MimeType: mime}, nil
}

// GenerateCharacterAnimation renders a character performing a motion.
func (c *HTTPClient) GenerateCharacterAnimation(ctx context.Context, character, motion string, opts AnimationOptions) (*Media, error) {
	return c.GenerateVideo(ctx, CharacterAnimationPrompt(character, motion, opts), nil, "")
}

// EnhanceScene reworks the scene described by base, anchored on ref when given.
func (c *HTTPClient) EnhanceScene(ctx context.Context, base string, opts EnhanceOptions, ref *Media) (*Media, error) {
	return c.GenerateVideo(ctx, EnhancePrompt(base, opts), ref, "")
}
