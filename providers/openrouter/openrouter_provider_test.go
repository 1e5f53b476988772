package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/providers/models"
	openrouter_models "github.com/meysamhadeli/codecompanion/providers/openrouter/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testKey = "sk-or-v1-0123456789abcdef"

func newProvider(t *testing.T, server *httptest.Server) *OpenRouterConfig {
	t.Helper()
	return NewOpenRouterChatProvider(&OpenRouterConfig{
		BaseURL:    server.URL,
		ApiKey:     testKey,
		HTTPClient: server.Client(),
		Logger:     zaptest.NewLogger(t),
	}).(*OpenRouterConfig)
}

func collect(ch <-chan models.StreamResponse) (string, models.StreamResponse) {
	var sb strings.Builder
	var last models.StreamResponse
	for r := range ch {
		sb.WriteString(r.Content)
		if r.Done || r.Err != nil {
			last = r
		}
	}
	return sb.String(), last
}

var testMessages = []models.Message{
	{Role: models.RoleSystem, Content: "system"},
	{Role: models.RoleUser, Content: "hello"},
}

func TestChatCompletionRequest_Stream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "Code Companion", r.Header.Get("X-Title"))

		var body openrouter_models.OpenRouterChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "x-ai/grok-3-fast", body.Model)
		assert.True(t, body.Stream)
		assert.Equal(t, 4000, body.MaxTokens)
		assert.Len(t, body.Messages, 2)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": OPENROUTER PROCESSING\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"Hel"}}]}`+"\n\n")
		fmt.Fprint(w, "data: {not json}\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"lo"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[],"usage":{"prompt_tokens":12,"completion_tokens":2,"total_tokens":14}}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	provider := newProvider(t, server)
	text, last := collect(provider.ChatCompletionRequest(context.Background(), testMessages,
		models.RequestOptions{Model: "x-ai/grok-3-fast", Temperature: 0.7, MaxTokens: 4000, Stream: true}))

	assert.Equal(t, "Hello", text)
	require.True(t, last.Done)
	require.NoError(t, last.Err)
	require.NotNil(t, last.Usage)
	assert.Equal(t, 12, last.Usage.PromptTokens)
	assert.Equal(t, 2, last.Usage.CompletionTokens)
}

func TestChatCompletionRequest_NonStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"full answer"}}],"usage":{"prompt_tokens":5,"completion_tokens":3}}`)
	}))
	defer server.Close()

	text, last := collect(newProvider(t, server).ChatCompletionRequest(context.Background(), testMessages, models.RequestOptions{Model: "m"}))

	assert.Equal(t, "full answer", text)
	assert.True(t, last.Done)
	assert.Equal(t, 3, last.Usage.CompletionTokens)
}

func TestChatCompletionRequest_AcceptsAny2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"queued answer"}}]}`)
	}))
	defer server.Close()

	text, last := collect(newProvider(t, server).ChatCompletionRequest(context.Background(), testMessages, models.RequestOptions{Model: "m"}))

	require.NoError(t, last.Err)
	assert.True(t, last.Done)
	assert.Equal(t, "queued answer", text)
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "héll...", truncate("héllo wörld", 4))
	assert.Equal(t, "日本...", truncate("日本語のテキスト", 2))
}

func TestChatCompletionRequest_MissingChoicesIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"gen-1"}`)
	}))
	defer server.Close()

	_, last := collect(newProvider(t, server).ChatCompletionRequest(context.Background(), testMessages, models.RequestOptions{Model: "m"}))

	require.Error(t, last.Err)
	assert.Equal(t, apperr.KindMalformedResponse, apperr.Classify(last.Err))
}

func TestChatCompletionRequest_StatusErrors(t *testing.T) {
	cases := []struct {
		name       string
		status     int
		retryAfter string
		want       apperr.Kind
	}{
		{"unauthorized", http.StatusUnauthorized, "", apperr.KindInvalidCredential},
		{"rate limited", http.StatusTooManyRequests, "7", apperr.KindRateLimited},
		{"server error", http.StatusInternalServerError, "", apperr.KindNetwork},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tc.retryAfter != "" {
					w.Header().Set("Retry-After", tc.retryAfter)
				}
				w.WriteHeader(tc.status)
				fmt.Fprint(w, `{"error":{"message":"upstream said no","code":1}}`)
			}))
			defer server.Close()

			_, last := collect(newProvider(t, server).ChatCompletionRequest(context.Background(), testMessages, models.RequestOptions{Stream: true}))

			require.Error(t, last.Err)
			assert.Equal(t, tc.want, apperr.Classify(last.Err))
			if tc.want == apperr.KindRateLimited {
				var rl *apperr.RateLimitError
				require.True(t, errors.As(last.Err, &rl))
				assert.Equal(t, "7s", rl.RetryAfter.String())
			} else {
				assert.Contains(t, last.Err.Error(), "upstream said no")
			}
		})
	}
}

func TestChatCompletionRequest_CancelStopsStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"partial"}}]}`+"\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := newProvider(t, server).ChatCompletionRequest(ctx, testMessages, models.RequestOptions{Stream: true})

	first := <-ch
	assert.Equal(t, "partial", first.Content)
	cancel()

	for r := range ch {
		assert.False(t, r.Done)
		assert.Empty(t, r.Content)
		if r.Err != nil {
			assert.Equal(t, apperr.KindCancelled, apperr.Classify(r.Err))
		}
	}
}

func TestChatCompletionRequest_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	provider := NewOpenRouterChatProvider(&OpenRouterConfig{BaseURL: url, ApiKey: testKey})
	_, last := collect(provider.ChatCompletionRequest(context.Background(), testMessages, models.RequestOptions{}))

	require.Error(t, last.Err)
	assert.Equal(t, apperr.KindNetwork, apperr.Classify(last.Err))
}

func TestValidateCredentials(t *testing.T) {
	cases := map[string]bool{
		"":                           false,
		"sk-abc0123456789abcdefghij": false,
		"sk-or-short":                false,
		testKey:                      true,
	}
	for key, valid := range cases {
		err := NewOpenRouterChatProvider(&OpenRouterConfig{ApiKey: key}).ValidateCredentials()
		if valid {
			assert.NoError(t, err, key)
		} else {
			assert.Equal(t, apperr.KindInvalidCredential, apperr.Classify(err), key)
		}
	}
}
