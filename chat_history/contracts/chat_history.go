package contracts

import "github.com/meysamhadeli/codecompanion/chat_history/models"

type IChatHistory interface {
	Add(turn models.ConversationTurn)
	PopLast() (models.ConversationTurn, bool)
	Turns() []models.ConversationTurn
	Len() int
	Clear()
}
