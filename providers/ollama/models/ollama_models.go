package models

import "github.com/meysamhadeli/codecompanion/providers/models"

type OllamaChatCompletionRequest struct {
	Model    string           `json:"model"`
	Messages []models.Message `json:"messages"`
	Stream   bool             `json:"stream"`
	Options  *Options         `json:"options,omitempty"`
}

type Options struct {
	Temperature float32 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type OllamaChatCompletionResponse struct {
	Model           string         `json:"model"`
	Message         models.Message `json:"message"`
	Done            bool           `json:"done"`
	Error           string         `json:"error,omitempty"`
	PromptEvalCount int            `json:"prompt_eval_count"`
	EvalCount       int            `json:"eval_count"`
}
