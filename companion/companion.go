package companion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/chat_history"
	"github.com/meysamhadeli/codecompanion/code_analyzer"
	analyzer_contracts "github.com/meysamhadeli/codecompanion/code_analyzer/contracts"
	analyzer_models "github.com/meysamhadeli/codecompanion/code_analyzer/models"
	"github.com/meysamhadeli/codecompanion/config"
	"github.com/meysamhadeli/codecompanion/content_cache"
	"github.com/meysamhadeli/codecompanion/context_selector"
	"github.com/meysamhadeli/codecompanion/export"
	"github.com/meysamhadeli/codecompanion/history_store"
	store_contracts "github.com/meysamhadeli/codecompanion/history_store/contracts"
	store_models "github.com/meysamhadeli/codecompanion/history_store/models"
	"github.com/meysamhadeli/codecompanion/project_index"
	"github.com/meysamhadeli/codecompanion/project_index/models"
	"github.com/meysamhadeli/codecompanion/prompt_builder"
	"github.com/meysamhadeli/codecompanion/providers"
	provider_contracts "github.com/meysamhadeli/codecompanion/providers/contracts"
	"github.com/meysamhadeli/codecompanion/session"
	"github.com/meysamhadeli/codecompanion/token_management"
	token_contracts "github.com/meysamhadeli/codecompanion/token_management/contracts"
	"go.uber.org/zap"
)

const megabyte = 1024 * 1024

type Options struct {
	Config *config.Config
	// Provider and Store replace the ones built from Config when set.
	Provider provider_contracts.IChatAIProvider
	Store    store_contracts.IHistoryStore
	// DisableStore skips opening the history database.
	DisableStore bool
	Logger       *zap.Logger
	Now          func() time.Time
}

// Companion holds everything one running instance needs: the opened
// project, its content cache, the chat session and the durable history.
type Companion struct {
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time

	mu        sync.RWMutex
	directory *project_index.Directory
	index     *models.ProjectIndex
	watcher   *project_index.Watcher

	warnMu   sync.Mutex
	warnings []models.Warning

	indexer    *project_index.Indexer
	cache      *content_cache.ContentCache
	selector   *context_selector.Selector
	controller *session.Controller
	store      store_contracts.IHistoryStore
	tokens     token_contracts.ITokenManagement
	analyzer   analyzer_contracts.ICodeAnalyzer
}

// Stats is the /stats view of a running companion.
type Stats struct {
	Project      models.ProjectStats
	Cache        content_cache.Stats
	HistoryTurns int
	SessionID    string
}

func New(opts Options) (*Companion, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("missing configuration: %w", apperr.ErrInvalidArgument)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	provider := opts.Provider
	if provider == nil {
		p, err := providers.NewChatProvider(cfg.AIProviderConfig, logger)
		if err != nil {
			return nil, err
		}
		provider = p
	}

	policy, err := content_cache.ParsePolicy(cfg.CachePolicy)
	if err != nil {
		return nil, err
	}

	store := opts.Store
	if store == nil && !opts.DisableStore && cfg.HistoryDB != "" {
		store, err = history_store.Open(cfg.HistoryDB)
		if err != nil {
			logger.Error("chat history unavailable", zap.String("path", cfg.HistoryDB), zap.Error(err))
			store = nil
		}
	}

	c := &Companion{
		cfg:      cfg,
		logger:   logger,
		now:      now,
		indexer:  project_index.NewIndexer(project_index.Options{MaxFiles: cfg.MaxFiles, MaxFileSize: int64(cfg.MaxFileSizeMB) * megabyte, Logger: logger}),
		store:    store,
		tokens:   token_management.NewTokenManager(),
		analyzer: code_analyzer.NewCodeAnalyzer(logger),
	}

	c.cache = content_cache.New(content_cache.Options{
		Capacity:  cfg.CacheSize,
		Policy:    policy,
		MaxSize:   int64(cfg.MaxFileSizeMB) * megabyte,
		WarnSize:  int64(cfg.LargeFileWarnMB) * megabyte,
		OnWarning: c.addWarning,
		Logger:    logger,
	})
	c.selector = context_selector.NewSelector(c.cache, context_selector.Options{MaxChars: cfg.ContextMaxChars, Logger: logger})
	c.controller = session.NewController(session.Options{
		Provider:       provider,
		RequestOptions: cfg.AIProviderConfig.RequestOptions(),
		History:        chat_history.NewChatHistory(cfg.MaxHistoryMessages),
		Store:          store,
		TokenManager:   c.tokens,
		MinInterval:    cfg.MinRequestInterval,
		Throttle:       cfg.StreamThrottle,
		RequestTimeout: cfg.RequestTimeout,
		StreamTimeout:  cfg.StreamTimeout,
		Now:            now,
		Logger:         logger,
	})

	return c, nil
}

func (c *Companion) addWarning(w models.Warning) {
	c.warnMu.Lock()
	defer c.warnMu.Unlock()
	c.warnings = append(c.warnings, w)
}

// TakeWarnings returns and forgets the warnings gathered since the last call.
func (c *Companion) TakeWarnings() []models.Warning {
	c.warnMu.Lock()
	defer c.warnMu.Unlock()
	out := c.warnings
	c.warnings = nil
	return out
}

// ScanProject opens the folder at root and indexes it.
func (c *Companion) ScanProject(ctx context.Context, root string) (*models.ScanResult, error) {
	dir, err := project_index.OpenDirectory(root)
	if err != nil {
		return nil, err
	}
	return c.OpenDirectory(ctx, dir)
}

// OpenDirectory indexes dir and makes it the current project. On failure
// the previous project stays open.
func (c *Companion) OpenDirectory(ctx context.Context, dir *project_index.Directory) (*models.ScanResult, error) {
	result, err := c.indexer.Scan(ctx, dir)
	if err != nil {
		return nil, err
	}
	c.install(dir, result)
	return result, nil
}

// install makes a fresh scan the current project, dropping the old one.
func (c *Companion) install(dir *project_index.Directory, result *models.ScanResult) {
	var (
		watcher *project_index.Watcher
		err     error
	)
	if c.cfg.Watch && dir.Root != "" {
		watcher, err = project_index.NewWatcher(dir.Root, result.Index.Directories(), c.fileChanged, c.logger)
		if err != nil {
			c.logger.Warn("folder is not watched", zap.String("root", dir.Root), zap.Error(err))
		}
	}

	c.CloseProject()

	c.mu.Lock()
	c.directory = dir
	c.index = result.Index
	c.watcher = watcher
	c.mu.Unlock()

	for _, w := range result.Warnings {
		c.addWarning(w)
	}
}

// Rescan indexes the current folder again and reports whether the file
// list changed. When the paths and sizes are the same the cache is kept,
// minus the entries whose content changed.
func (c *Companion) Rescan(ctx context.Context) (*models.ScanResult, bool, error) {
	c.mu.RLock()
	dir, previous := c.directory, c.index
	c.mu.RUnlock()
	if dir == nil {
		return nil, false, fmt.Errorf("no folder opened: %w", apperr.ErrInvalidArgument)
	}

	result, err := c.indexer.Scan(ctx, dir)
	if err != nil {
		return nil, false, err
	}
	if result.Index.Fingerprint() != previous.Fingerprint() {
		c.install(dir, result)
		return result, true, nil
	}

	c.mu.Lock()
	if c.directory == dir {
		c.index = result.Index
	}
	c.mu.Unlock()

	for _, path := range c.cache.Keys() {
		c.fileChanged(path)
	}
	for _, w := range result.Warnings {
		c.addWarning(w)
	}
	return result, false, nil
}

// fileChanged drops a cached file whose content no longer matches.
func (c *Companion) fileChanged(relativePath string) {
	var dropped bool
	if entry, ok := c.Index().Lookup(relativePath); ok {
		dropped = c.cache.Revalidate(entry)
	} else {
		dropped = c.cache.Invalidate(relativePath)
	}
	if dropped {
		c.logger.Debug("cache entry invalidated", zap.String("path", relativePath))
	}
}

// CloseProject drops the index, empties the cache and stops watching.
func (c *Companion) CloseProject() {
	c.mu.Lock()
	watcher := c.watcher
	c.directory, c.index, c.watcher = nil, nil, nil
	c.mu.Unlock()

	if watcher != nil {
		if err := watcher.Close(); err != nil {
			c.logger.Warn("failed to stop file watcher", zap.Error(err))
		}
	}
	c.cache.Clear()
}

// Index is the current project index, nil when no folder is open.
func (c *Companion) Index() *models.ProjectIndex {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index
}

func (c *Companion) BuildTree() *models.TreeNode {
	return project_index.BuildTree(c.Index())
}

func (c *Companion) SelectContext(ctx context.Context, query string, maxFiles int) []models.ContextFile {
	return c.selector.Select(ctx, query, c.Index(), maxFiles)
}

// FindFiles lists indexed files whose name or path contains query.
func (c *Companion) FindFiles(query string) []models.FileEntry {
	return c.Index().Search(query)
}

// ReadFile returns the content of a project file given its path or name.
func (c *Companion) ReadFile(name string) (*models.FileEntry, string, error) {
	entry, err := c.resolve(name)
	if err != nil {
		return nil, "", err
	}
	content, err := c.cache.Get(entry)
	if err != nil {
		return entry, "", err
	}
	return entry, content, nil
}

func (c *Companion) resolve(name string) (*models.FileEntry, error) {
	index := c.Index()
	if index == nil {
		return nil, fmt.Errorf("no folder opened: %w", apperr.ErrInvalidArgument)
	}
	if err := models.ValidatePath(name); err != nil {
		return nil, err
	}
	entry, ok := index.FindFile(name)
	if !ok {
		return nil, fmt.Errorf("file not found: %s: %w", name, apperr.ErrInvalidArgument)
	}
	return entry, nil
}

// SendUserMessage selects context for text, builds the system prompt and
// starts a request. See session.Controller.Send for the event contract.
func (c *Companion) SendUserMessage(ctx context.Context, text string) (<-chan session.Event, error) {
	if err := c.controller.Ready(); err != nil {
		return nil, err
	}

	index := c.Index()
	files := c.selector.Select(ctx, text, index, c.cfg.ContextMaxFiles)

	meta := prompt_builder.ProjectMetadata{}
	if index != nil {
		meta = prompt_builder.ProjectMetadata{Name: index.RootName, FileCount: index.Len()}
	}

	return c.controller.Send(ctx, session.Request{
		UserMessage:  text,
		SystemPrompt: prompt_builder.BuildSystemPrompt(meta, files),
		Metadata:     session.Metadata{FolderName: meta.Name, FileCount: meta.FileCount},
	})
}

func (c *Companion) CancelCurrentRequest() bool {
	return c.controller.Cancel()
}

func (c *Companion) State() session.State {
	return c.controller.State()
}

// ClearHistory starts a new rolling conversation. Stored history is kept.
func (c *Companion) ClearHistory() error {
	return c.controller.ClearHistory()
}

// HistoryEnabled reports whether exchanges are being stored.
func (c *Companion) HistoryEnabled() bool {
	return c.store != nil
}

func (c *Companion) ClearStoredHistory(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Clear(ctx)
}

// RecentHistory lists stored exchanges, newest first.
func (c *Companion) RecentHistory(ctx context.Context, limit int) ([]store_models.HistoryRecord, error) {
	if c.store == nil {
		return nil, nil
	}
	return c.store.List(ctx, limit)
}

// StoredExchange returns one stored exchange by id.
func (c *Companion) StoredExchange(ctx context.Context, id int64) (*store_models.HistoryRecord, error) {
	if c.store == nil {
		return nil, fmt.Errorf("chat history is disabled: %w", apperr.ErrInvalidArgument)
	}
	record, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("no stored exchange #%d: %w", id, apperr.ErrInvalidArgument)
	}
	return record, nil
}

func (c *Companion) StoredHistoryCount(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, nil
	}
	return c.store.Count(ctx)
}

// ExportSession renders the rolling conversation and suggests a file name.
func (c *Companion) ExportSession(format string) ([]byte, string, error) {
	now := c.now()
	exported := export.Session{SessionID: c.controller.SessionID(), Turns: c.controller.History()}
	if index := c.Index(); index != nil {
		exported.Project = index.RootName
	}

	data, err := export.Export(format, exported, now)
	if err != nil {
		return nil, "", err
	}
	name, err := export.FileName(format, now)
	if err != nil {
		return nil, "", err
	}
	return data, name, nil
}

func (c *Companion) Stats() Stats {
	return Stats{
		Project:      project_index.Stats(c.Index()),
		Cache:        c.cache.Stats(),
		HistoryTurns: len(c.controller.History()),
		SessionID:    c.controller.SessionID(),
	}
}

func (c *Companion) Analyze(name string) (analyzer_models.FileAnalysis, error) {
	entry, content, err := c.ReadFile(name)
	if err != nil {
		return analyzer_models.FileAnalysis{}, err
	}
	return c.analyzer.AnalyzeFile(entry, content), nil
}

func (c *Companion) AnalyzeProject() (analyzer_models.ProjectAnalysis, error) {
	index := c.Index()
	if index == nil {
		return analyzer_models.ProjectAnalysis{}, fmt.Errorf("no folder opened: %w", apperr.ErrInvalidArgument)
	}
	return c.analyzer.AnalyzeProject(index), nil
}

func (c *Companion) Tokens() token_contracts.ITokenManagement {
	return c.tokens
}

func (c *Companion) Config() *config.Config {
	return c.cfg
}

// Close cancels any running request, closes the project and the history
// database.
func (c *Companion) Close() error {
	c.controller.Cancel()
	c.CloseProject()
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}
