package apperr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"wrapped permission", fmt.Errorf("open root: %w", fs.ErrPermission), KindPermissionDenied},
		{"sentinel io", fmt.Errorf("read a.go: %w", ErrIO), KindIO},
		{"context cancel", context.Canceled, KindCancelled},
		{"deadline", fmt.Errorf("stream: %w", context.DeadlineExceeded), KindCancelled},
		{"too large", fmt.Errorf("big.js: %w", ErrFileTooLarge), KindFileTooLarge},
		{"busy", ErrBusy, KindBusy},
		{"too soon", ErrTooSoon, KindTooSoon},
		{"malformed", ErrMalformedResponse, KindMalformedResponse},
		{"unknown", errors.New("boom"), KindUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestFromStatus(t *testing.T) {
	err := FromStatus(http.StatusUnauthorized, "No auth credentials found", "")
	assert.Equal(t, KindInvalidCredential, Classify(err))
	assert.Contains(t, err.Error(), "No auth credentials found")

	err = FromStatus(http.StatusTooManyRequests, "slow down", "3")
	require.True(t, errors.Is(err, ErrRateLimited))
	var rl *RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 3*time.Second, rl.RetryAfter)
	assert.Contains(t, UserMessage(err), "3s")

	err = FromStatus(http.StatusBadGateway, "upstream", "")
	assert.Equal(t, KindNetwork, Classify(err))
	assert.Contains(t, UserMessage(err), "502")
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Equal(t, "Request cancelled.", UserMessage(context.Canceled))
	assert.Equal(t, "Invalid API key. Please check your settings.", UserMessage(ErrInvalidCredential))
	assert.Equal(t, "usage: /analyze <filename>: invalid argument",
		UserMessage(fmt.Errorf("usage: /analyze <filename>: %w", ErrInvalidArgument)))
}
