package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrGenerationTimeout is returned when the generation webhook does not
	// answer within its bounded window. The caller must re-submit; there is
	// no automatic retry.
	ErrGenerationTimeout = errors.New("generation_timeout")
	// ErrGenerationFailed wraps upstream generation failures.
	ErrGenerationFailed = errors.New("generation_failed")
)

// GenerationResult is the canonical decoded form of a generation response,
// regardless of which wire shape the webhook answered with.
type GenerationResult struct {
	OutputURL   string
	Description string
	LogoURL     string
	UserInput   string
}

// ImageGenerationRequest is the payload for the image generation webhook.
type ImageGenerationRequest struct {
	Prompt         string   `json:"prompt"`
	LogoBase64     string   `json:"logoBase64,omitempty"`
	SelectedAssets []string `json:"selectedAssets,omitempty"`
}

// VideoGenerationRequest is the payload for the video generation webhook.
type VideoGenerationRequest struct {
	ProductName     string `json:"product_name"`
	ProductImage    string `json:"product_image"` // base64
	UserInstruction string `json:"user_instruction"`
	Size            string `json:"size"` // 9:16 or 16:9
	Duration        int    `json:"duration"`
}

// GenerationClient talks to the external AI generation webhooks.
type GenerationClient interface {
	GenerateImage(ctx context.Context, req ImageGenerationRequest) (*GenerationResult, error)
	GenerateVideo(ctx context.Context, req VideoGenerationRequest) (*GenerationResult, error)
}

type generationClient struct {
	imageURL     string
	videoURL     string
	imageTimeout time.Duration
	videoTimeout time.Duration
	client       *http.Client
	logger       zerolog.Logger
}

// NewGenerationClient creates a GenerationClient. Timeouts are enforced per
// call via context so image and video windows can differ.
func NewGenerationClient(imageURL, videoURL string, imageTimeoutSec, videoTimeoutSec int, logger zerolog.Logger) GenerationClient {
	return &generationClient{
		imageURL:     imageURL,
		videoURL:     videoURL,
		imageTimeout: time.Duration(imageTimeoutSec) * time.Second,
		videoTimeout: time.Duration(videoTimeoutSec) * time.Second,
		client:       &http.Client{},
		logger:       logger.With().Str("service", "GenerationClient").Logger(),
	}
}

func (c *generationClient) GenerateImage(ctx context.Context, req ImageGenerationRequest) (*GenerationResult, error) {
	body, err := c.post(ctx, c.imageURL, req, c.imageTimeout)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Data    struct {
			Output      string `json:"output"`
			Description string `json:"description"`
			LogoURL     string `json:"logoUrl"`
			UserInput   string `json:"user_input"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding image generation response: %w", err)
	}
	if !resp.Success || resp.Data.Output == "" {
		if resp.Error == "" {
			resp.Error = "generation service returned no output"
		}
		return nil, fmt.Errorf("%w: %s", ErrGenerationFailed, resp.Error)
	}
	return &GenerationResult{
		OutputURL:   resp.Data.Output,
		Description: resp.Data.Description,
		LogoURL:     resp.Data.LogoURL,
		UserInput:   resp.Data.UserInput,
	}, nil
}

func (c *generationClient) GenerateVideo(ctx context.Context, req VideoGenerationRequest) (*GenerationResult, error) {
	body, err := c.post(ctx, c.videoURL, req, c.videoTimeout)
	if err != nil {
		return nil, err
	}
	return decodeVideoResponse(body)
}

// decodeVideoResponse accepts both the current object shape and the legacy
// array shape ([{status:"true", url}]) and normalizes them into one
// GenerationResult.
func decodeVideoResponse(body []byte) (*GenerationResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var legacy []struct {
			Status string `json:"status"`
			URL    string `json:"url"`
		}
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, fmt.Errorf("decoding legacy video generation response: %w", err)
		}
		if len(legacy) == 0 || legacy[0].Status != "true" || legacy[0].URL == "" {
			return nil, fmt.Errorf("%w: video generation returned no usable output", ErrGenerationFailed)
		}
		return &GenerationResult{OutputURL: legacy[0].URL}, nil
	}

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Data    struct {
			Output string `json:"output"`
		} `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("decoding video generation response: %w", err)
	}
	if !resp.Success || resp.Data.Output == "" {
		if resp.Error == "" {
			resp.Error = "video generation returned no output"
		}
		return nil, fmt.Errorf("%w: %s", ErrGenerationFailed, resp.Error)
	}
	return &GenerationResult{OutputURL: resp.Data.Output}, nil
}

func (c *generationClient) post(ctx context.Context, url string, payload any, timeout time.Duration) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling generation request: %w", err)
	}

	ctxReq, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctxReq, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("creating generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		// A deadline hit on our bounded window is reported as a distinct,
		// non-retried timeout failure.
		if ctxReq.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			c.logger.Error().Str("url", url).Dur("elapsed", time.Since(start)).Msg("Generation webhook timed out")
			return nil, ErrGenerationTimeout
		}
		return nil, fmt.Errorf("calling generation webhook: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn().Err(closeErr).Msg("Failed to close generation response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error().Int("status_code", resp.StatusCode).Str("error_body", string(body)).Msg("Generation webhook returned error")
		return nil, fmt.Errorf("%w: status %d: %s", ErrGenerationFailed, resp.StatusCode, string(body))
	}
	return body, nil
}
