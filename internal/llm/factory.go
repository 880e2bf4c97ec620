package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"chatcart/internal/config"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/ollama/ollama/api"
)

// NewGenerator builds the generator selected by cfg.Provider. Provider
// "none" returns (nil, nil): the assistant then runs on rules alone.
func NewGenerator(ctx context.Context, cfg config.GenerationConfig) (Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "none" {
		return nil, nil
	}
	if provider == "" || provider == "ollama" {
		g, err := NewOllamaGenerator(cfg.BaseURL, cfg.Model, &http.Client{})
		if err != nil {
			return nil, err
		}
		return g, nil
	}

	chatModel, err := newChatModel(ctx, provider, cfg)
	if err != nil {
		return nil, err
	}
	g, err := NewChainGenerator(ctx, provider, chatModel)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func newChatModel(ctx context.Context, provider string, cfg config.GenerationConfig) (model.BaseChatModel, error) {
	maxTokens := cfg.MaxTokens
	temperature := float32(cfg.Temperature)
	topP := float32(cfg.TopP)

	switch provider {
	case "openai":
		m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
			TopP:        &topP,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating openai chat model: %w", err)
		}
		return m, nil

	case "ollama-chat":
		m, err := einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Options: &api.Options{
				Temperature: temperature,
				TopP:        topP,
				NumPredict:  maxTokens,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("error creating ollama chat model: %w", err)
		}
		return m, nil

	case "deepseek":
		m, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
			TopP:        topP,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating deepseek chat model: %w", err)
		}
		return m, nil

	case "ark":
		m, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
			TopP:        &topP,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating ark chat model: %w", err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown generation provider %q", provider)
}
