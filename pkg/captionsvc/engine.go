package captionsvc

import (
	"context"
	"fmt"

	"github.com/entrhq/alttext/pkg/llm"
	"github.com/entrhq/alttext/pkg/llm/gemini"
	"github.com/entrhq/alttext/pkg/llm/openai"
)

// Engine names.
const (
	EnginePlaceholder = "placeholder"
	EngineOpenAI      = "openai"
	EngineGemini      = "gemini"
)

// Engine turns a fetched image into a description.
type Engine interface {
	Name() string
	Describe(ctx context.Context, img llm.Image) (string, error)
}

// PlaceholderEngine answers without a model.
type PlaceholderEngine struct{}

func (PlaceholderEngine) Name() string { return EnginePlaceholder }

// Describe returns "Placeholder caption for <url>".
func (PlaceholderEngine) Describe(_ context.Context, img llm.Image) (string, error) {
	return "Placeholder caption for " + img.URL, nil
}

// EngineConfig selects and configures an Engine.
type EngineConfig struct {
	Name    string
	Model   string
	BaseURL string
	APIKey  string
}

// NewEngine builds the engine named by cfg. An empty name selects the
// placeholder engine.
func NewEngine(cfg EngineConfig) (Engine, error) {
	switch cfg.Name {
	case "", EnginePlaceholder:
		return PlaceholderEngine{}, nil
	case EngineOpenAI, "gpt":
		p, err := openai.NewProvider(cfg.APIKey, openai.WithModel(cfg.Model), openai.WithBaseURL(cfg.BaseURL))
		if err != nil {
			return nil, err
		}
		return p, nil
	case EngineGemini:
		return gemini.New(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown engine %q; use %q, %q or %q", cfg.Name, EnginePlaceholder, EngineOpenAI, EngineGemini)
	}
}
