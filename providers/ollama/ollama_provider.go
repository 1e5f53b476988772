package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/providers/contracts"
	"github.com/meysamhadeli/codecompanion/providers/models"
	ollama_models "github.com/meysamhadeli/codecompanion/providers/ollama/models"
	"go.uber.org/zap"
)

// OllamaConfig implements the Provider interface for a local Ollama server.
type OllamaConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

const (
	defaultBaseURL = "http://localhost:11434/api"
)

// NewOllamaChatProvider initializes a new Ollama provider.
func NewOllamaChatProvider(config *OllamaConfig) contracts.IChatAIProvider {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OllamaConfig{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: client,
		Logger:     logger,
	}
}

// ValidateCredentials always succeeds: a local server needs no key.
func (ollamaProvider *OllamaConfig) ValidateCredentials() error {
	return nil
}

func (ollamaProvider *OllamaConfig) ChatCompletionRequest(ctx context.Context, messages []models.Message, opts models.RequestOptions) <-chan models.StreamResponse {
	responseChan := make(chan models.StreamResponse)

	go func() {
		defer close(responseChan)

		send := func(r models.StreamResponse) bool {
			select {
			case responseChan <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}

		// Prepare the request body
		reqBody := ollama_models.OllamaChatCompletionRequest{
			Model:    opts.Model,
			Messages: messages,
			Stream:   opts.Stream,
			Options: &ollama_models.Options{
				Temperature: opts.Temperature,
				NumPredict:  opts.MaxTokens,
			},
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			send(models.StreamResponse{Err: fmt.Errorf("error marshalling request body: %w", err)})
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/chat", ollamaProvider.BaseURL), bytes.NewBuffer(jsonData))
		if err != nil {
			send(models.StreamResponse{Err: fmt.Errorf("error creating request: %w", err)})
			return
		}

		req.Header.Set("Content-Type", "application/json")

		resp, err := ollamaProvider.HTTPClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				send(models.StreamResponse{Err: fmt.Errorf("request canceled: %w", ctx.Err())})
				return
			}
			send(models.StreamResponse{Err: fmt.Errorf("error sending request: %w: %w", apperr.ErrNetwork, err)})
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			var apiError ollama_models.OllamaChatCompletionResponse
			message := strings.TrimSpace(string(body))
			if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error != "" {
				message = apiError.Error
			}
			send(models.StreamResponse{Err: apperr.FromStatus(resp.StatusCode, message, resp.Header.Get("Retry-After"))})
			return
		}

		reader := bufio.NewReader(resp.Body)

		// NDJSON: one response object per line, the last one has done=true
		for {
			line, err := reader.ReadString('\n')
			if strings.TrimSpace(line) != "" {
				var response ollama_models.OllamaChatCompletionResponse
				if jsonErr := json.Unmarshal([]byte(line), &response); jsonErr != nil {
					ollamaProvider.Logger.Warn("malformed stream chunk skipped", zap.Error(jsonErr))
				} else {
					if response.Error != "" {
						send(models.StreamResponse{Err: fmt.Errorf("%s: %w", response.Error, apperr.ErrNetwork)})
						return
					}
					if response.Message.Content != "" {
						if !send(models.StreamResponse{Content: response.Message.Content}) {
							return
						}
					}
					if response.Done {
						send(models.StreamResponse{Done: true, Usage: &models.Usage{
							PromptTokens:     response.PromptEvalCount,
							CompletionTokens: response.EvalCount,
							TotalTokens:      response.PromptEvalCount + response.EvalCount,
						}})
						return
					}
				}
			}

			if err != nil {
				if err == io.EOF {
					send(models.StreamResponse{Err: fmt.Errorf("stream ended before completion: %w", apperr.ErrMalformedResponse)})
					return
				}
				if ctx.Err() != nil {
					send(models.StreamResponse{Err: fmt.Errorf("request canceled: %w", ctx.Err())})
					return
				}
				send(models.StreamResponse{Err: fmt.Errorf("error reading stream: %w: %w", apperr.ErrNetwork, err)})
				return
			}
		}
	}()

	return responseChan
}
