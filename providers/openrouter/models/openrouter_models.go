package models

import "github.com/meysamhadeli/codecompanion/providers/models"

type OpenRouterChatCompletionRequest struct {
	Model       string           `json:"model"`
	Messages    []models.Message `json:"messages"`
	Temperature float32          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Stream      bool             `json:"stream"`
}

type OpenRouterChatCompletionResponse struct {
	ID      string        `json:"id"`
	Model   string        `json:"model"`
	Choices []Choice      `json:"choices"`
	Usage   *models.Usage `json:"usage,omitempty"`
	Error   *StreamError  `json:"error,omitempty"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	Delta        Message `json:"delta"`
	FinishReason string  `json:"finish_reason"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamError is an error object sent inside an otherwise successful stream.
type StreamError struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
}
