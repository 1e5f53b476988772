package contracts

import (
	"context"

	"github.com/meysamhadeli/codecompanion/providers/models"
)

type IChatAIProvider interface {
	// ChatCompletionRequest starts a completion and returns its response
	// channel. The channel is closed after a Done or Err item, or when ctx
	// is cancelled.
	ChatCompletionRequest(ctx context.Context, messages []models.Message, opts models.RequestOptions) <-chan models.StreamResponse
	// ValidateCredentials checks the configured key locally, without a request.
	ValidateCredentials() error
}
