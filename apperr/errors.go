package apperr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Kind is the user-facing classification of a failure.
type Kind string

const (
	KindNone              Kind = ""
	KindPermissionDenied  Kind = "permission_denied"
	KindIO                Kind = "io_error"
	KindFileTooLarge      Kind = "file_too_large"
	KindInvalidCredential Kind = "invalid_credential"
	KindRateLimited       Kind = "rate_limited"
	KindNetwork           Kind = "network_error"
	KindMalformedResponse Kind = "malformed_response"
	KindCancelled         Kind = "cancelled"
	KindInvalidArgument   Kind = "invalid_argument"
	KindBusy              Kind = "busy"
	KindTooSoon           Kind = "too_soon"
	KindUnknown           Kind = "unknown"
)

var (
	ErrPermissionDenied  = errors.New("permission denied")
	ErrIO                = errors.New("i/o error")
	ErrFileTooLarge      = errors.New("file too large")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrRateLimited       = errors.New("rate limited")
	ErrNetwork           = errors.New("network error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrCancelled         = errors.New("request cancelled")
	ErrInvalidArgument   = errors.New("invalid argument")

	// ErrBusy and ErrTooSoon reject a send locally, before any transport call.
	ErrBusy    = errors.New("a request is already in progress")
	ErrTooSoon = errors.New("requests are being sent too quickly")
)

// RateLimitError carries the server's Retry-After hint.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %v", e.RetryAfter)
	}
	if e.Message != "" {
		return "rate limited: " + e.Message
	}
	return "rate limited"
}

// Is lets errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// StatusError is a non-2xx response from the completion endpoint.
type StatusError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API request failed with status code '%d' - %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API request failed with status code '%d'", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return e.kind
}

// FromStatus maps an HTTP error status to the taxonomy.
// retryAfter is the raw Retry-After header value and may be empty.
func FromStatus(code int, message string, retryAfter string) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &StatusError{StatusCode: code, Message: message, kind: ErrInvalidCredential}
	case http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: parseRetryAfter(retryAfter), Message: message}
	default:
		return &StatusError{StatusCode: code, Message: message, kind: ErrNetwork}
	}
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		return time.Until(t)
	}
	return 0
}

// Classify returns the Kind of err. Wrapped sentinels win over the
// standard library errors they may wrap.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.Is(err, ErrTooSoon):
		return KindTooSoon
	case errors.Is(err, ErrCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, ErrInvalidCredential):
		return KindInvalidCredential
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	case errors.Is(err, ErrFileTooLarge):
		return KindFileTooLarge
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, fs.ErrPermission):
		return KindPermissionDenied
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrIO), errors.Is(err, fs.ErrNotExist):
		return KindIO
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	return KindUnknown
}

// UserMessage renders err as the single line shown to the user.
func UserMessage(err error) string {
	switch Classify(err) {
	case KindNone:
		return ""
	case KindPermissionDenied:
		return "Folder access was denied. Grant read access and open the folder again."
	case KindIO:
		return fmt.Sprintf("Could not read from disk: %v", err)
	case KindFileTooLarge:
		return fmt.Sprintf("File is too large to open: %v", err)
	case KindInvalidCredential:
		return "Invalid API key. Please check your settings."
	case KindRateLimited:
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			return fmt.Sprintf("Rate limit exceeded. Try again in %v.", rl.RetryAfter.Round(time.Second))
		}
		return "Rate limit exceeded. Please wait a moment and try again."
	case KindNetwork:
		var se *StatusError
		if errors.As(err, &se) {
			return fmt.Sprintf("API Error: %s", se.Error())
		}
		return "Network error. Please check your internet connection."
	case KindMalformedResponse:
		return "The model returned a response that could not be read."
	case KindCancelled:
		return "Request cancelled."
	case KindInvalidArgument:
		return err.Error()
	case KindBusy:
		return "Please wait for the current request to complete."
	case KindTooSoon:
		return "Please wait a moment between requests."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
