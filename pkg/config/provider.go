package config

import (
	"fmt"
	"os"

	"github.com/entrhq/alttext/pkg/captionsvc"
)

// EngineEnv selects the caption engine when no flag is given.
const EngineEnv = "ALTTEXT_ENGINE"

// BuildEngine creates the caption engine based on configuration precedence:
// CLI flags > Environment variables > Config file > Defaults
func BuildEngine(cliEngine, cliModel, cliBaseURL, cliAPIKey string) (captionsvc.Engine, error) {
	cfg := ResolveEngineConfig(cliEngine, cliModel, cliBaseURL, cliAPIKey)

	engine, err := captionsvc.NewEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create caption engine: %w", err)
	}
	return engine, nil
}

// ResolveEngineConfig applies the precedence rules without building the
// engine.
func ResolveEngineConfig(cliEngine, cliModel, cliBaseURL, cliAPIKey string) captionsvc.EngineConfig {
	cfg := captionsvc.EngineConfig{
		Name:    cliEngine,
		Model:   cliModel,
		BaseURL: cliBaseURL,
		APIKey:  cliAPIKey,
	}

	if cfg.Name == "" {
		cfg.Name = os.Getenv(EngineEnv)
	}

	fromFile := GetLLM()
	if cfg.Name == "" && fromFile != nil {
		cfg.Name = fromFile.GetEngine()
	}
	if cfg.Name == "" {
		cfg.Name = defaultEngine
	}

	// Environment variables depend on the engine
	if cfg.APIKey == "" {
		switch cfg.Name {
		case captionsvc.EngineOpenAI, "gpt":
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		case captionsvc.EngineGemini:
			cfg.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if cfg.BaseURL == "" && (cfg.Name == captionsvc.EngineOpenAI || cfg.Name == "gpt") {
		cfg.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}

	if fromFile != nil {
		if cfg.Model == "" {
			cfg.Model = fromFile.GetModel()
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = fromFile.GetBaseURL()
		}
		if cfg.APIKey == "" {
			cfg.APIKey = fromFile.GetAPIKey()
		}
	}

	return cfg
}
