package providers

import (
	"fmt"
	"strings"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/providers/contracts"
	"github.com/meysamhadeli/codecompanion/providers/models"
	"github.com/meysamhadeli/codecompanion/providers/ollama"
	"github.com/meysamhadeli/codecompanion/providers/openrouter"
	"go.uber.org/zap"
)

// AIProviderConfig is the ai_provider_config section of the settings.
type AIProviderConfig struct {
	Provider    string  `mapstructure:"provider"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Stream      bool    `mapstructure:"stream"`
	ApiKey      string  `mapstructure:"api_key"`
}

// RequestOptions returns the per-request settings derived from the config.
func (c *AIProviderConfig) RequestOptions() models.RequestOptions {
	return models.RequestOptions{
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Stream:      c.Stream,
	}
}

// NewChatProvider builds the chat provider named in config.
func NewChatProvider(config *AIProviderConfig, logger *zap.Logger) (contracts.IChatAIProvider, error) {
	switch strings.ToLower(strings.TrimSpace(config.Provider)) {
	case "openrouter":
		return openrouter.NewOpenRouterChatProvider(&openrouter.OpenRouterConfig{
			BaseURL: config.BaseURL,
			ApiKey:  config.ApiKey,
			Logger:  logger,
		}), nil
	case "ollama":
		return ollama.NewOllamaChatProvider(&ollama.OllamaConfig{
			BaseURL: config.BaseURL,
			Logger:  logger,
		}), nil
	default:
		return nil, fmt.Errorf("provider '%s' is not supported, use 'openrouter' or 'ollama': %w", config.Provider, apperr.ErrInvalidArgument)
	}
}
