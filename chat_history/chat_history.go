package chat_history

import (
	"sync"

	"github.com/meysamhadeli/codecompanion/chat_history/contracts"
	"github.com/meysamhadeli/codecompanion/chat_history/models"
)

const DefaultMaxMessages = 20

// History holds the bounded rolling conversation sent with each request.
type History struct {
	mu    sync.Mutex
	max   int
	turns []models.ConversationTurn
}

// NewChatHistory creates a history keeping at most max turns.
func NewChatHistory(max int) contracts.IChatHistory {
	if max <= 0 {
		max = DefaultMaxMessages
	}
	return &History{max: max}
}

// Add appends a turn and drops the oldest ones beyond the limit.
func (h *History) Add(turn models.ConversationTurn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
	h.trim()
}

func (h *History) trim() {
	if over := len(h.turns) - h.max; over > 0 {
		h.turns = append([]models.ConversationTurn(nil), h.turns[over:]...)
	}
}

func (h *History) PopLast() (models.ConversationTurn, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.turns) == 0 {
		return models.ConversationTurn{}, false
	}
	last := h.turns[len(h.turns)-1]
	h.turns = h.turns[:len(h.turns)-1]
	return last, true
}

// Turns returns a copy, oldest first.
func (h *History) Turns() []models.ConversationTurn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.ConversationTurn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}
