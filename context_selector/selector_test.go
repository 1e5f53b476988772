package context_selector

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/project_index/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mapReader map[string]string

func (m mapReader) Get(entry *models.FileEntry) (string, error) {
	content, ok := m[entry.Path]
	if !ok {
		return "", fmt.Errorf("read %s: %w", entry.Path, apperr.ErrIO)
	}
	return content, nil
}

func buildIndex(t *testing.T, paths ...string) *models.ProjectIndex {
	t.Helper()
	files := make([]models.FileEntry, len(paths))
	for i, p := range paths {
		name := p[strings.LastIndex(p, "/")+1:]
		files[i] = models.FileEntry{Name: name, Path: p, Language: "none"}
	}
	index, err := models.NewProjectIndex("demo", files)
	require.NoError(t, err)
	return index
}

func rankedPaths(entries []*models.FileEntry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}

func TestRank_MentionsThenConfigFiles(t *testing.T) {
	index := buildIndex(t, "README.md", "src/app.js", "src/util.js", "package.json", "go.mod")

	ranked := Rank("Why does app.js crash when util.js loads?", index, 3)

	assert.Equal(t, []string{"src/app.js", "src/util.js", "README.md"}, rankedPaths(ranked))
}

func TestRank_NoMentionFallsBackToConfigFiles(t *testing.T) {
	index := buildIndex(t, "package.json", "README.md", "src/app.js")

	ranked := Rank("explain this project", index, 3)

	assert.Equal(t, []string{"package.json", "README.md"}, rankedPaths(ranked))
}

func TestRank_DeduplicatesMentionedConfigFile(t *testing.T) {
	index := buildIndex(t, "package.json", "README.md")

	ranked := Rank("what is in PACKAGE.JSON?", index, 5)

	assert.Equal(t, []string{"package.json", "README.md"}, rankedPaths(ranked))
}

func TestRank_Bounds(t *testing.T) {
	index := buildIndex(t, "package.json")

	assert.Empty(t, Rank("anything", index, 0))
	assert.Empty(t, Rank("anything", nil, 3))
}

func TestSelect_TruncatesAndKeepsOrder(t *testing.T) {
	index := buildIndex(t, "a.txt", "b.txt", "README.md")
	reader := mapReader{
		"a.txt":     strings.Repeat("é", 20),
		"b.txt":     "short",
		"README.md": "# demo",
	}
	selector := NewSelector(reader, Options{MaxChars: 10, Logger: zaptest.NewLogger(t)})

	files := selector.Select(context.Background(), "compare a.txt and b.txt", index, 3)

	require.Len(t, files, 3)
	assert.Equal(t, "a.txt", files[0].Path)
	assert.Equal(t, strings.Repeat("é", 10), files[0].Content)
	assert.True(t, files[0].Truncated)
	assert.Equal(t, "b.txt", files[1].Path)
	assert.False(t, files[1].Truncated)
	assert.Equal(t, "README.md", files[2].Path)
}

func TestSelect_DropsUnreadableFiles(t *testing.T) {
	index := buildIndex(t, "a.txt", "b.txt")
	selector := NewSelector(mapReader{"b.txt": "ok"}, Options{})

	files := selector.Select(context.Background(), "a.txt b.txt", index, 3)

	require.Len(t, files, 1)
	assert.Equal(t, "b.txt", files[0].Path)
}

func TestSelect_EmptyWhenNothingMatches(t *testing.T) {
	index := buildIndex(t, "src/app.js")
	selector := NewSelector(mapReader{}, Options{})

	files := selector.Select(context.Background(), "hello", index, 3)

	assert.NotNil(t, files)
	assert.Empty(t, files)
}
