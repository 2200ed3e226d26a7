// Package gemini describes images with Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/entrhq/alttext/pkg/llm"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

const maxAttempts = 3

// ErrEmptyResponse is returned when the model answers without text.
var ErrEmptyResponse = errors.New("gemini: empty response")

// Engine calls the Gemini API.
type Engine struct {
	APIKey string
	Model  string
	Prompt string

	// clientOptions are passed to genai.NewClient after the API key.
	clientOptions []option.ClientOption
}

// New creates an Engine. An empty apiKey falls back to GEMINI_API_KEY.
func New(apiKey, model string, opts ...option.ClientOption) *Engine {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Engine{
		APIKey:        apiKey,
		Model:         model,
		Prompt:        llm.DefaultPrompt,
		clientOptions: opts,
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// Describe sends the prompt and the image as an inline blob.
func (e *Engine) Describe(ctx context.Context, img llm.Image) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	if len(img.Data) == 0 {
		return "", fmt.Errorf("image %s has no data", img.URL)
	}

	opts := append([]option.ClientOption{option.WithAPIKey(e.APIKey)}, e.clientOptions...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0.2),
	}
	m.SetMaxOutputTokens(100)

	parts := []genai.Part{
		genai.Text(e.Prompt),
		&genai.Blob{MIMEType: img.ContentType(), Data: img.Data},
	}

	// retry transient failures
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			select {
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			continue
		}
		txt := strings.TrimSpace(firstText(resp))
		if txt == "" {
			return "", ErrEmptyResponse
		}
		return txt, nil
	}
	return "", fmt.Errorf("gemini describe: %w", lastErr)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
