package models

// StreamResponse is one item on a provider's response channel. Content
// items carry the next piece of text; the last item has Done or Err set.
type StreamResponse struct {
	Content string
	Done    bool
	Err     error
	Usage   *Usage
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
