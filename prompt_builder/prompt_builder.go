package prompt_builder

import (
	"fmt"
	"strings"

	"github.com/meysamhadeli/codecompanion/chat_history/models"
	"github.com/meysamhadeli/codecompanion/embed_data"
	index_models "github.com/meysamhadeli/codecompanion/project_index/models"
	provider_models "github.com/meysamhadeli/codecompanion/providers/models"
	"github.com/meysamhadeli/codecompanion/utils"
)

// ProjectMetadata describes the opened folder. An empty Name means no
// folder is open.
type ProjectMetadata struct {
	Name      string
	FileCount int
}

// BuildSystemPrompt composes the system message from the role text, the
// project context and the selected files.
func BuildSystemPrompt(meta ProjectMetadata, files []index_models.ContextFile) string {
	var sb strings.Builder

	sb.WriteString(strings.TrimSpace(string(embed_data.RolePrompt)))
	sb.WriteString("\n\n**Current Context:**")
	if meta.Name != "" {
		sb.WriteString(fmt.Sprintf("\n- Project: %s", meta.Name))
		sb.WriteString(fmt.Sprintf("\n- Files available: %d", meta.FileCount))
	} else {
		sb.WriteString("\n- No folder opened yet")
	}

	if len(files) > 0 {
		sb.WriteString("\n\n**Files in context:**\n")
		for _, f := range files {
			lang := f.Language
			if lang == utils.NoLanguage {
				lang = ""
			}
			sb.WriteString(fmt.Sprintf("\n### %s\n```%s\n%s\n```\n", f.Path, lang, f.Content))
		}
	}

	sb.WriteString("\n\n")
	sb.WriteString(strings.TrimSpace(string(embed_data.ResponseGuidelinesPrompt)))
	return sb.String()
}

// BuildMessages puts the system prompt in front of the rolling turns.
func BuildMessages(systemPrompt string, turns []models.ConversationTurn) []provider_models.Message {
	messages := make([]provider_models.Message, 0, len(turns)+1)
	messages = append(messages, provider_models.Message{Role: provider_models.RoleSystem, Content: systemPrompt})
	for _, t := range turns {
		messages = append(messages, provider_models.Message{Role: string(t.Role), Content: t.Content})
	}
	return messages
}
