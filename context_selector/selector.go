package context_selector

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/meysamhadeli/codecompanion/project_index/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxFiles = 3
	DefaultMaxChars = 5000

	readConcurrency = 4
)

// ConfigFileNames are always offered as context after explicitly mentioned files.
var ConfigFileNames = []string{
	"package.json",
	"tsconfig.json",
	"requirements.txt",
	"Cargo.toml",
	"README.md",
	".env.example",
	"docker-compose.yml",
	"go.mod",
}

// ContentReader returns a file's text, normally through the content cache.
type ContentReader interface {
	Get(entry *models.FileEntry) (string, error)
}

type Options struct {
	MaxChars int
	Logger   *zap.Logger
}

// Selector picks the files sent along with a user question.
type Selector struct {
	reader   ContentReader
	maxChars int
	logger   *zap.Logger
}

func NewSelector(reader ContentReader, opts Options) *Selector {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Selector{reader: reader, maxChars: opts.MaxChars, logger: opts.Logger}
}

// Rank orders candidate entries: files mentioned in the query, then
// well-known configuration files, each group in index order, deduplicated
// by path and cut to maxFiles.
func Rank(query string, index *models.ProjectIndex, maxFiles int) []*models.FileEntry {
	if index == nil || maxFiles <= 0 {
		return nil
	}

	q := strings.ToLower(query)
	seen := make(map[string]bool)
	var ranked []*models.FileEntry
	add := func(e *models.FileEntry) {
		if !seen[e.Path] {
			seen[e.Path] = true
			ranked = append(ranked, e)
		}
	}

	for i := 0; i < index.Len(); i++ {
		e := index.At(i)
		if strings.Contains(q, strings.ToLower(e.Name)) || strings.Contains(q, strings.ToLower(e.Path)) {
			add(e)
		}
	}
	for i := 0; i < index.Len(); i++ {
		e := index.At(i)
		if isConfigFile(e.Name) {
			add(e)
		}
	}

	if len(ranked) > maxFiles {
		ranked = ranked[:maxFiles]
	}
	return ranked
}

func isConfigFile(name string) bool {
	for _, n := range ConfigFileNames {
		if n == name {
			return true
		}
	}
	return false
}

// Select ranks the index against query and reads the chosen files
// concurrently. Files that cannot be read are left out.
func (s *Selector) Select(ctx context.Context, query string, index *models.ProjectIndex, maxFiles int) []models.ContextFile {
	ranked := Rank(query, index, maxFiles)
	if len(ranked) == 0 {
		return []models.ContextFile{}
	}

	results := make([]*models.ContextFile, len(ranked))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)

	for i, entry := range ranked {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			content, err := s.reader.Get(entry)
			if err != nil {
				s.logger.Warn("context file skipped", zap.String("path", entry.Path), zap.Error(err))
				return nil
			}
			truncated, cut := truncateRunes(content, s.maxChars)
			results[i] = &models.ContextFile{
				Path:      entry.Path,
				Name:      entry.Name,
				Language:  entry.Language,
				Content:   truncated,
				Truncated: cut,
			}
			return nil
		})
	}
	_ = g.Wait()

	files := make([]models.ContextFile, 0, len(results))
	for _, f := range results {
		if f != nil {
			files = append(files, *f)
		}
	}
	return files
}

func truncateRunes(s string, max int) (string, bool) {
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i], true
		}
		count++
	}
	return s, false
}
