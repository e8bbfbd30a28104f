// Package assist rewrites short user prompts into detailed generation
// prompts with Gemini.
package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Prompt kinds
const (
	KindImage = "image"
	KindVideo = "video"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("assist: model returned no text")

// Enhancer is what the prompt handler depends on.
type Enhancer interface {
	Enhance(ctx context.Context, prompt, kind string) (string, error)
}

// Service holds the Gemini client.
type Service struct {
	client    *genai.Client
	modelName string
}

var _ Enhancer = (*Service)(nil)

// NewService initializes the Gemini client.
func NewService(ctx context.Context, apiKey, modelName string) (*Service, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &Service{client: client, modelName: modelName}, nil
}

// Close releases the underlying client.
func (s *Service) Close() error {
	return s.client.Close()
}

// Enhance asks the model for a richer version of prompt.
func (s *Service) Enhance(ctx context.Context, prompt, kind string) (string, error) {
	// 1. Configure the model for short, deterministic rewrites
	model := s.client.GenerativeModel(s.modelName)
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(300)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction(kind))},
	}

	// 2. Send the prompt
	res, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("error sending message: %w", err)
	}

	// 3. Pull the text out of the first candidate
	return firstText(res)
}

func systemInstruction(kind string) string {
	subject := "an image generation model"
	extra := "Describe subject, style, lighting, composition and lens."
	if kind == KindVideo {
		subject = "a video generation model"
		extra = "Describe the subject, the motion, the camera movement and the mood."
	}
	return fmt.Sprintf(`
		You improve prompts for %s.
		Rewrite the user's prompt into one detailed prompt of at most 80 words.
		%s
		Reply with the prompt only, no preamble and no quotes.
	`, subject, extra)
}

func firstText(res *genai.GenerateContentResponse) (string, error) {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	out := strings.Trim(strings.TrimSpace(b.String()), `"`)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
