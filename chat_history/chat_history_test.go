package chat_history

import (
	"fmt"
	"testing"
	"time"

	"github.com/meysamhadeli/codecompanion/chat_history/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turn(role models.Role, content string) models.ConversationTurn {
	return models.ConversationTurn{Role: role, Content: content, Time: time.Unix(0, 0)}
}

func TestChatHistory_TrimsOldestBeyondMax(t *testing.T) {
	history := NewChatHistory(20)
	for i := 0; i < 25; i++ {
		history.Add(turn(models.RoleUser, fmt.Sprintf("m%d", i)))
	}

	turns := history.Turns()
	require.Len(t, turns, 20)
	assert.Equal(t, "m5", turns[0].Content)
	assert.Equal(t, "m24", turns[19].Content)
}

func TestChatHistory_PopLast(t *testing.T) {
	history := NewChatHistory(0)
	history.Add(turn(models.RoleUser, "question"))
	history.Add(turn(models.RoleAssistant, "answer"))

	last, ok := history.PopLast()
	require.True(t, ok)
	assert.Equal(t, "answer", last.Content)
	assert.Equal(t, 1, history.Len())

	history.Clear()
	_, ok = history.PopLast()
	assert.False(t, ok)
}

func TestChatHistory_TurnsIsACopy(t *testing.T) {
	history := NewChatHistory(5)
	history.Add(turn(models.RoleUser, "original"))

	turns := history.Turns()
	turns[0].Content = "changed"

	assert.Equal(t, "original", history.Turns()[0].Content)
}

func TestConversationTurn_Author(t *testing.T) {
	assert.Equal(t, "You", turn(models.RoleUser, "").Author())
	assert.Equal(t, "Code Companion", turn(models.RoleAssistant, "").Author())
}
