// Package fal talks to the Fal.ai hosted model API. It only relays requests;
// nothing is synthesized in-process.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no API key was supplied.
var ErrNotConfigured = errors.New("fal: API key not configured")

// ProviderError is any failure of a provider call after it was attempted.
type ProviderError struct {
	Endpoint string
	Status   int // 0 for transport failures
	Body     string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fal %s: status %d: %s", e.Endpoint, e.Status, e.Body)
	}
	return fmt.Sprintf("fal %s: %v", e.Endpoint, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Generator is what handlers need from a generation provider.
type Generator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
	TransformImage(ctx context.Context, req TransformRequest) (*ImageResult, error)
	Upscale(ctx context.Context, req UpscaleRequest) (*ImageResult, error)
	RemoveBackground(ctx context.Context, req BackgroundRequest) (*ImageResult, error)
	TextToVideo(ctx context.Context, req VideoRequest) (*VideoResult, error)
	ImageToVideo(ctx context.Context, req VideoRequest) (*VideoResult, error)
	EditImage(ctx context.Context, req EditRequest) (*ImageResult, error)
}

// Client calls the synchronous run endpoint: POST {baseURL}/{endpoint}.
type Client struct {
	baseURL    string
	key        string
	httpClient *http.Client
}

var _ Generator = (*Client)(nil)

// NewClient creates a Client. timeout bounds a whole generation call.
func NewClient(baseURL, key string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        key,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool {
	return c.key != ""
}

func (c *Client) run(ctx context.Context, endpoint string, input, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("fal %s: encode input: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return &ProviderError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Authorization", "Key "+c.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &ProviderError{Endpoint: endpoint, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ProviderError{Endpoint: endpoint, Status: resp.StatusCode, Body: truncate(string(raw), 512)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &ProviderError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// GenerateImage runs a text-to-image model.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	input := map[string]any{
		"prompt":              req.Prompt,
		"image_size":          orDefault(req.ImageSize, "landscape_4_3"),
		"num_images":          req.NumImages,
		"num_inference_steps": req.Steps,
		"guidance_scale":      req.Guidance,
	}
	if req.NegativePrompt != "" {
		input["negative_prompt"] = req.NegativePrompt
	}
	if req.Seed != nil {
		input["seed"] = *req.Seed
	}
	return c.image(ctx, req.Endpoint, input)
}

// TransformImage runs an image-to-image model.
func (c *Client) TransformImage(ctx context.Context, req TransformRequest) (*ImageResult, error) {
	input := map[string]any{
		"image_url": req.ImageURL,
		"prompt":    req.Prompt,
	}
	if req.Strength > 0 {
		input["strength"] = req.Strength
	}
	return c.image(ctx, req.Endpoint, input)
}

// Upscale enlarges an image.
func (c *Client) Upscale(ctx context.Context, req UpscaleRequest) (*ImageResult, error) {
	input := map[string]any{
		"image_url": req.ImageURL,
		"scale":     req.Scale,
	}
	if req.Endpoint == "fal-ai/creative-upscaler" {
		input["creativity"] = 0.3
		input["resemblance"] = 1.0
		input["hdr"] = 0
	}
	return c.image(ctx, req.Endpoint, input)
}

// RemoveBackground cuts out the subject of an image.
func (c *Client) RemoveBackground(ctx context.Context, req BackgroundRequest) (*ImageResult, error) {
	return c.image(ctx, req.Endpoint, map[string]any{"image_url": req.ImageURL})
}

// TextToVideo renders a video from a prompt.
func (c *Client) TextToVideo(ctx context.Context, req VideoRequest) (*VideoResult, error) {
	input := map[string]any{
		"prompt":       req.Prompt,
		"duration":     req.Duration,
		"aspect_ratio": req.AspectRatio,
	}
	if req.Steps > 0 {
		input["num_inference_steps"] = req.Steps
	}
	return c.video(ctx, req.Endpoint, input)
}

// ImageToVideo animates a still image.
func (c *Client) ImageToVideo(ctx context.Context, req VideoRequest) (*VideoResult, error) {
	input := map[string]any{
		"image_url":    req.ImageURL,
		"prompt":       req.Prompt,
		"duration":     req.Duration,
		"aspect_ratio": req.AspectRatio,
	}
	return c.video(ctx, req.Endpoint, input)
}

// EditImage applies an instruction to an image.
func (c *Client) EditImage(ctx context.Context, req EditRequest) (*ImageResult, error) {
	input := map[string]any{
		"image_url":           req.ImageURL,
		"prompt":              req.Prompt,
		"guidance_scale":      req.Guidance,
		"num_inference_steps": req.Steps,
	}
	return c.image(ctx, req.Endpoint, input)
}

func (c *Client) image(ctx context.Context, endpoint string, input map[string]any) (*ImageResult, error) {
	var resp imageResponse
	if err := c.run(ctx, endpoint, input, &resp); err != nil {
		return nil, err
	}
	result := resp.result()
	if len(result.Images) == 0 {
		return nil, &ProviderError{Endpoint: endpoint, Status: http.StatusOK, Body: "response contained no images"}
	}
	return result, nil
}

func (c *Client) video(ctx context.Context, endpoint string, input map[string]any) (*VideoResult, error) {
	var resp videoResponse
	if err := c.run(ctx, endpoint, input, &resp); err != nil {
		return nil, err
	}
	result := resp.result()
	if result.Video.URL == "" {
		return nil, &ProviderError{Endpoint: endpoint, Status: http.StatusOK, Body: "response contained no video"}
	}
	return result, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
