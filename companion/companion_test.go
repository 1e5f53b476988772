package companion

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/config"
	"github.com/meysamhadeli/codecompanion/history_store"
	"github.com/meysamhadeli/codecompanion/project_index"
	"github.com/meysamhadeli/codecompanion/providers/models"
	"github.com/meysamhadeli/codecompanion/session"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type echoProvider struct {
	mu       sync.Mutex
	messages []models.Message
}

func (p *echoProvider) ChatCompletionRequest(ctx context.Context, messages []models.Message, _ models.RequestOptions) <-chan models.StreamResponse {
	p.mu.Lock()
	p.messages = messages
	p.mu.Unlock()

	responses := make(chan models.StreamResponse)
	go func() {
		defer close(responses)
		select {
		case responses <- models.StreamResponse{Content: "Sure.", Done: true, Usage: &models.Usage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12}}:
		case <-ctx.Done():
		}
	}()
	return responses
}

func (p *echoProvider) ValidateCredentials() error { return nil }

func (p *echoProvider) systemPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.messages) == 0 {
		return ""
	}
	return p.messages[0].Content
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig
	ai := *cfg.AIProviderConfig
	cfg.AIProviderConfig = &ai
	cfg.MinRequestInterval = -1
	cfg.StreamThrottle = 5 * time.Millisecond
	cfg.HistoryDB = ""
	cfg.LogFile = ""
	return &cfg
}

func newCompanion(t *testing.T, cfg *config.Config, provider *echoProvider, opts Options) *Companion {
	t.Helper()
	opts.Config = cfg
	opts.Provider = provider
	opts.Logger = zaptest.NewLogger(t)
	c, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func memProject(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, content := range map[string]string{
		"README.md":    "# Demo\n",
		"package.json": `{"name": "demo"}`,
		"src/app.js":   "// TODO: handle errors\nconsole.log('hi');\n",
	} {
		require.NoError(t, fsys.MkdirAll(path.Dir(name), 0o755))
		require.NoError(t, afero.WriteFile(fsys, name, []byte(content), 0o644))
	}
	return fsys
}

func drain(events <-chan session.Event) session.Event {
	var last session.Event
	for ev := range events {
		last = ev
	}
	return last
}

func TestCompanion_OpenDirectoryAndBrowse(t *testing.T) {
	c := newCompanion(t, testConfig(), &echoProvider{}, Options{})

	result, err := c.OpenDirectory(context.Background(), project_index.NewDirectory("demo", memProject(t)))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Index.Len())

	tree := c.BuildTree()
	require.NotNil(t, tree)
	assert.Equal(t, "demo", tree.Name)

	entry, content, err := c.ReadFile("app.js")
	require.NoError(t, err)
	assert.Equal(t, "src/app.js", entry.Path)
	assert.Contains(t, content, "console.log")

	analysis, err := c.Analyze("src/app.js")
	require.NoError(t, err)
	assert.Equal(t, 1, analysis.TodoCount)

	project, err := c.AnalyzeProject()
	require.NoError(t, err)
	assert.Equal(t, "JavaScript/Node.js project detected (package.json found)", project.Insights[0].Message)

	stats := c.Stats()
	assert.Equal(t, 3, stats.Project.TotalFiles)
	assert.Equal(t, 1, stats.Cache.Entries)

	_, _, err = c.ReadFile("../etc/passwd")
	assert.Equal(t, apperr.KindInvalidArgument, apperr.Classify(err))
	_, _, err = c.ReadFile("missing.go")
	assert.Equal(t, apperr.KindInvalidArgument, apperr.Classify(err))
}

func TestCompanion_SendUserMessageUsesContextAndStoresHistory(t *testing.T) {
	store, err := history_store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	provider := &echoProvider{}
	c := newCompanion(t, testConfig(), provider, Options{Store: store, Now: func() time.Time { return time.UnixMilli(1700000000000) }})
	ctx := context.Background()

	_, err = c.OpenDirectory(ctx, project_index.NewDirectory("demo", memProject(t)))
	require.NoError(t, err)

	events, err := c.SendUserMessage(ctx, "explain app.js")
	require.NoError(t, err)
	last := drain(events)
	assert.Equal(t, session.EventCompleted, last.Kind)
	assert.Equal(t, "Sure.", last.Content)

	prompt := provider.systemPrompt()
	assert.Contains(t, prompt, "- Project: demo")
	assert.Contains(t, prompt, "- Files available: 3")
	assert.Contains(t, prompt, "### src/app.js")

	records, err := c.RecentHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "explain app.js", records[0].UserMessage)
	assert.Equal(t, "demo", records[0].FolderName)
	assert.Equal(t, 3, records[0].FileCount)

	total, _, _ := c.Tokens().GetCurrentTokenUsage()
	assert.Equal(t, 12, total)

	data, name, err := c.ExportSession("json")
	require.NoError(t, err)
	assert.Equal(t, "conversation-1700000000000.json", name)
	assert.Contains(t, string(data), "explain app.js")

	require.NoError(t, c.ClearHistory())
	assert.Zero(t, c.Stats().HistoryTurns)
	count, err := c.StoredHistoryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := c.StoredExchange(ctx, records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Sure.", stored.AssistantMessage)
	_, err = c.StoredExchange(ctx, records[0].ID+100)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.Classify(err))

	require.NoError(t, c.ClearStoredHistory(ctx))
	count, err = c.StoredHistoryCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCompanion_SendTooSoonSkipsContextSelection(t *testing.T) {
	cfg := testConfig()
	cfg.MinRequestInterval = time.Hour
	c := newCompanion(t, cfg, &echoProvider{}, Options{Now: func() time.Time { return time.UnixMilli(1700000000000) }})
	ctx := context.Background()

	_, err := c.OpenDirectory(ctx, project_index.NewDirectory("demo", memProject(t)))
	require.NoError(t, err)

	events, err := c.SendUserMessage(ctx, "explain app.js")
	require.NoError(t, err)
	assert.Equal(t, session.EventCompleted, drain(events).Kind)
	before := c.Stats().Cache

	_, err = c.SendUserMessage(ctx, "and package.json?")
	assert.ErrorIs(t, err, apperr.ErrTooSoon)

	after := c.Stats().Cache
	assert.Equal(t, before.TotalRequests, after.TotalRequests)
	assert.Equal(t, before.Entries, after.Entries)
	assert.Positive(t, before.TotalRequests)
	assert.Equal(t, 2, c.Stats().HistoryTurns)
}

func TestCompanion_WorksWithoutFolder(t *testing.T) {
	provider := &echoProvider{}
	c := newCompanion(t, testConfig(), provider, Options{})

	events, err := c.SendUserMessage(context.Background(), "hello")
	require.NoError(t, err)
	drain(events)

	assert.Contains(t, provider.systemPrompt(), "No folder opened yet")
	assert.Nil(t, c.BuildTree())

	_, _, err = c.ReadFile("README.md")
	assert.Equal(t, apperr.KindInvalidArgument, apperr.Classify(err))
	_, err = c.AnalyzeProject()
	assert.Error(t, err)
	_, _, err = c.Rescan(context.Background())
	assert.Error(t, err)

	records, err := c.RecentHistory(context.Background(), 5)
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestCompanion_CloseProjectAndRescan(t *testing.T) {
	c := newCompanion(t, testConfig(), &echoProvider{}, Options{})
	fsys := memProject(t)
	ctx := context.Background()

	_, err := c.OpenDirectory(ctx, project_index.NewDirectory("demo", fsys))
	require.NoError(t, err)
	_, _, err = c.ReadFile("README.md")
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fsys, "src/util.js", []byte("export {}"), 0o644))
	result, changed, err := c.Rescan(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 4, result.Index.Len())
	assert.Zero(t, c.Stats().Cache.Entries)

	c.CloseProject()
	assert.Nil(t, c.Index())
	assert.Zero(t, c.Stats().Project.TotalFiles)
}

func TestCompanion_RescanKeepsCacheWhenUnchanged(t *testing.T) {
	c := newCompanion(t, testConfig(), &echoProvider{}, Options{})
	fsys := memProject(t)
	ctx := context.Background()

	_, err := c.OpenDirectory(ctx, project_index.NewDirectory("demo", fsys))
	require.NoError(t, err)
	_, _, err = c.ReadFile("README.md")
	require.NoError(t, err)
	_, _, err = c.ReadFile("package.json")
	require.NoError(t, err)

	result, changed, err := c.Rescan(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 3, result.Index.Len())
	assert.Equal(t, 2, c.Stats().Cache.Entries)

	// same size, different content
	require.NoError(t, afero.WriteFile(fsys, "README.md", []byte("# Memo\n"), 0o644))
	_, changed, err = c.Rescan(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	_, cached := c.cache.Peek("README.md")
	assert.False(t, cached)
	_, cached = c.cache.Peek("package.json")
	assert.True(t, cached)

	_, content, err := c.ReadFile("README.md")
	require.NoError(t, err)
	assert.Equal(t, "# Memo\n", content)
}

func TestCompanion_FileChangedComparesDigests(t *testing.T) {
	c := newCompanion(t, testConfig(), &echoProvider{}, Options{})
	fsys := memProject(t)

	_, err := c.OpenDirectory(context.Background(), project_index.NewDirectory("demo", fsys))
	require.NoError(t, err)
	_, _, err = c.ReadFile("src/app.js")
	require.NoError(t, err)

	c.fileChanged("src/app.js")
	_, cached := c.cache.Peek("src/app.js")
	assert.True(t, cached, "unchanged content stays cached")

	require.NoError(t, afero.WriteFile(fsys, "src/app.js", []byte("console.log('bye');\n"), 0o644))
	c.fileChanged("src/app.js")
	_, cached = c.cache.Peek("src/app.js")
	assert.False(t, cached)

	assert.Len(t, c.FindFiles("APP"), 1)
	assert.Empty(t, c.FindFiles("missing"))
}

func TestCompanion_WatchInvalidatesChangedFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))
	cfg := testConfig()
	cfg.Watch = true
	c := newCompanion(t, cfg, &echoProvider{}, Options{})

	_, err := c.ScanProject(context.Background(), root)
	require.NoError(t, err)
	_, content, err := c.ReadFile("main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main\n", content)

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))

	require.Eventually(t, func() bool {
		_, cached := c.cache.Peek("main.go")
		return !cached
	}, 2*time.Second, 10*time.Millisecond)

	_, content, err = c.ReadFile("main.go")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(content, "func main() {}\n"))
}

func TestNew_RejectsUnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.AIProviderConfig.Provider = "carrier-pigeon"

	_, err := New(Options{Config: cfg, DisableStore: true})
	assert.Equal(t, apperr.KindInvalidArgument, apperr.Classify(err))
}
