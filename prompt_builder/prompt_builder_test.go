package prompt_builder

import (
	"strings"
	"testing"
	"time"

	"github.com/meysamhadeli/codecompanion/chat_history/models"
	index_models "github.com/meysamhadeli/codecompanion/project_index/models"
	provider_models "github.com/meysamhadeli/codecompanion/providers/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSystemPrompt_NoFolder(t *testing.T) {
	prompt := BuildSystemPrompt(ProjectMetadata{}, nil)

	assert.True(t, strings.HasPrefix(prompt, "You are Code Companion"))
	assert.Contains(t, prompt, "**Current Context:**\n- No folder opened yet")
	assert.NotContains(t, prompt, "Files in context")
	assert.Contains(t, prompt, "**Response Guidelines:**")
}

func TestBuildSystemPrompt_WithFiles(t *testing.T) {
	files := []index_models.ContextFile{
		{Path: "src/app.js", Name: "app.js", Language: "javascript", Content: "let x = 1"},
		{Path: "notes.txt", Name: "notes.txt", Language: "none", Content: "todo"},
	}

	prompt := BuildSystemPrompt(ProjectMetadata{Name: "demo", FileCount: 3}, files)

	assert.Contains(t, prompt, "- Project: demo\n- Files available: 3")
	assert.Contains(t, prompt, "### src/app.js\n```javascript\nlet x = 1\n```\n")
	assert.Contains(t, prompt, "### notes.txt\n```\ntodo\n```\n")
	assert.Less(t, strings.Index(prompt, "src/app.js"), strings.Index(prompt, "notes.txt"))
	assert.Less(t, strings.Index(prompt, "notes.txt"), strings.Index(prompt, "**Response Guidelines:**"))
}

func TestBuildSystemPrompt_IsDeterministic(t *testing.T) {
	meta := ProjectMetadata{Name: "demo", FileCount: 1}
	files := []index_models.ContextFile{{Path: "a.go", Language: "go", Content: "package a"}}

	assert.Equal(t, BuildSystemPrompt(meta, files), BuildSystemPrompt(meta, files))
}

func TestBuildMessages(t *testing.T) {
	turns := []models.ConversationTurn{
		{Role: models.RoleUser, Content: "hi", Time: time.Now()},
		{Role: models.RoleAssistant, Content: "hello", Time: time.Now()},
		{Role: models.RoleUser, Content: "explain main.go", Time: time.Now()},
	}

	messages := BuildMessages("system text", turns)

	require.Len(t, messages, 4)
	assert.Equal(t, provider_models.Message{Role: "system", Content: "system text"}, messages[0])
	assert.Equal(t, provider_models.Message{Role: "assistant", Content: "hello"}, messages[2])
	assert.Equal(t, "explain main.go", messages[3].Content)
}
