package openrouter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/providers/contracts"
	"github.com/meysamhadeli/codecompanion/providers/models"
	openrouter_models "github.com/meysamhadeli/codecompanion/providers/openrouter/models"
	"go.uber.org/zap"
)

// OpenRouterConfig implements the Provider interface for OpenRouter and
// other OpenAI-compatible chat completion endpoints.
type OpenRouterConfig struct {
	BaseURL    string
	ApiKey     string
	Referer    string
	Title      string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultReferer = "https://github.com/meysamhadeli/codecompanion"
	defaultTitle   = "Code Companion"

	keyPrefix    = "sk-or-"
	minKeyLength = 20
)

// NewOpenRouterChatProvider initializes a new OpenRouter provider.
func NewOpenRouterChatProvider(config *OpenRouterConfig) contracts.IChatAIProvider {
	provider := *config
	if provider.BaseURL == "" {
		provider.BaseURL = defaultBaseURL
	}
	provider.BaseURL = strings.TrimRight(provider.BaseURL, "/")
	if provider.Referer == "" {
		provider.Referer = defaultReferer
	}
	if provider.Title == "" {
		provider.Title = defaultTitle
	}
	if provider.HTTPClient == nil {
		provider.HTTPClient = &http.Client{}
	}
	if provider.Logger == nil {
		provider.Logger = zap.NewNop()
	}
	return &provider
}

// ValidateCredentials checks the key format locally.
func (p *OpenRouterConfig) ValidateCredentials() error {
	key := strings.TrimSpace(p.ApiKey)
	switch {
	case key == "":
		return fmt.Errorf("API key is required: %w", apperr.ErrInvalidCredential)
	case !strings.HasPrefix(key, keyPrefix):
		return fmt.Errorf("invalid OpenRouter API key format, keys start with %q: %w", keyPrefix, apperr.ErrInvalidCredential)
	case len(key) < minKeyLength:
		return fmt.Errorf("API key appears to be too short: %w", apperr.ErrInvalidCredential)
	}
	return nil
}

func (p *OpenRouterConfig) ChatCompletionRequest(ctx context.Context, messages []models.Message, opts models.RequestOptions) <-chan models.StreamResponse {
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

		reqBody := openrouter_models.OpenRouterChatCompletionRequest{
			Model:       opts.Model,
			Messages:    messages,
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
			Stream:      opts.Stream,
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			send(models.StreamResponse{Err: fmt.Errorf("error marshalling request body: %w", err)})
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
		if err != nil {
			send(models.StreamResponse{Err: fmt.Errorf("error creating request: %w", err)})
			return
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.ApiKey)
		req.Header.Set("HTTP-Referer", p.Referer)
		req.Header.Set("X-Title", p.Title)

		resp, err := p.HTTPClient.Do(req)
		if err != nil {
			send(models.StreamResponse{Err: transportError(ctx, err)})
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			send(models.StreamResponse{Err: apperr.FromStatus(resp.StatusCode, errorMessage(body, resp.Status), resp.Header.Get("Retry-After"))})
			return
		}

		if !opts.Stream {
			p.readCompletion(ctx, resp.Body, send)
			return
		}
		p.readStream(ctx, resp.Body, send)
	}()

	return responseChan
}

func (p *OpenRouterConfig) readCompletion(ctx context.Context, body io.Reader, send func(models.StreamResponse) bool) {
	var response openrouter_models.OpenRouterChatCompletionResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		if ctx.Err() != nil {
			send(models.StreamResponse{Err: transportError(ctx, err)})
			return
		}
		send(models.StreamResponse{Err: fmt.Errorf("error decoding response: %w: %w", apperr.ErrMalformedResponse, err)})
		return
	}
	if response.Error != nil {
		send(models.StreamResponse{Err: fmt.Errorf("%s: %w", response.Error.Message, apperr.ErrNetwork)})
		return
	}
	if len(response.Choices) == 0 {
		send(models.StreamResponse{Err: fmt.Errorf("invalid response format from API: %w", apperr.ErrMalformedResponse)})
		return
	}

	if !send(models.StreamResponse{Content: response.Choices[0].Message.Content}) {
		return
	}
	send(models.StreamResponse{Done: true, Usage: response.Usage})
}

// readStream consumes server-sent events until "data: [DONE]" or end of body.
func (p *OpenRouterConfig) readStream(ctx context.Context, body io.Reader, send func(models.StreamResponse) bool) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var usage *models.Usage
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			send(models.StreamResponse{Done: true, Usage: usage})
			return
		}

		var chunk openrouter_models.OpenRouterChatCompletionResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			p.Logger.Warn("malformed stream chunk skipped", zap.String("chunk", truncate(data, 200)), zap.Error(err))
			continue
		}
		if chunk.Error != nil {
			send(models.StreamResponse{Err: fmt.Errorf("%s: %w", chunk.Error.Message, apperr.ErrNetwork)})
			return
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if !send(models.StreamResponse{Content: chunk.Choices[0].Delta.Content}) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		send(models.StreamResponse{Err: transportError(ctx, err)})
		return
	}
	send(models.StreamResponse{Done: true, Usage: usage})
}

func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("request canceled: %w", ctxErr)
	}
	return fmt.Errorf("error sending request: %w: %w", apperr.ErrNetwork, err)
}

func errorMessage(body []byte, fallback string) string {
	var apiError models.AIError
	if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error.Message != "" {
		return apiError.Error.Message
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return truncate(text, 200)
	}
	return fallback
}

// truncate keeps at most max runes of s.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
