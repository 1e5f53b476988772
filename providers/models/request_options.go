package models

// RequestOptions configures a single chat completion call.
type RequestOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Stream      bool
}
