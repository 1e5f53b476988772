package project_index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/project_index/models"
	"github.com/meysamhadeli/codecompanion/utils"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	DefaultMaxFiles    = 1000
	DefaultMaxFileSize = 5 * 1024 * 1024
)

type Options struct {
	MaxFiles    int
	MaxFileSize int64
	Logger      *zap.Logger
}

// Indexer walks a granted directory and builds a ProjectIndex.
type Indexer struct {
	maxFiles    int
	maxFileSize int64
	logger      *zap.Logger
}

func NewIndexer(opts Options) *Indexer {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Indexer{maxFiles: opts.MaxFiles, maxFileSize: opts.MaxFileSize, logger: opts.Logger}
}

type scanState struct {
	dir       *Directory
	patterns  []string
	files     []models.FileEntry
	warnings  []models.Warning
	truncated bool
}

// Scan indexes dir depth-first. Only an unreadable root is fatal; anything
// below it that cannot be read is skipped with a warning.
func (ix *Indexer) Scan(ctx context.Context, dir *Directory) (*models.ScanResult, error) {
	infos, err := afero.ReadDir(dir.Fs, ".")
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("read folder %s: %w", dir.Name, apperr.ErrPermissionDenied)
		}
		return nil, fmt.Errorf("read folder %s: %w: %w", dir.Name, apperr.ErrIO, err)
	}

	patterns, err := utils.GetIgnorePatterns(dir.Fs)
	if err != nil {
		ix.logger.Warn("ignore file unreadable", zap.String("folder", dir.Name), zap.Error(err))
	}

	state := &scanState{dir: dir, patterns: patterns}
	if _, err := ix.walk(ctx, state, "", infos, ix.maxFiles); err != nil {
		return nil, err
	}

	index, err := models.NewProjectIndex(dir.Name, state.files)
	if err != nil {
		return nil, err
	}

	ix.logger.Info("folder scanned",
		zap.String("folder", dir.Name),
		zap.Int("files", index.Len()),
		zap.Int("warnings", len(state.warnings)),
		zap.Bool("truncated", state.truncated))

	return &models.ScanResult{Index: index, Warnings: state.warnings, Truncated: state.truncated}, nil
}

// walk visits one directory listing with the quota still available to it
// and returns how many files it added.
func (ix *Indexer) walk(ctx context.Context, state *scanState, relDir string, infos []os.FileInfo, remaining int) (int, error) {
	added := 0
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return added, fmt.Errorf("scan %s: %w: %w", state.dir.Name, apperr.ErrCancelled, err)
		}

		name := info.Name()
		rel := path.Join(relDir, name)

		if info.IsDir() {
			if utils.IsSkippedDirectory(name) || utils.IsIgnored(rel, state.patterns) {
				continue
			}
			children, err := afero.ReadDir(state.dir.Fs, rel)
			if err != nil {
				ix.warn(state, models.Warning{Kind: models.WarnUnreadable, Path: rel, Message: err.Error()})
				continue
			}
			n, err := ix.walk(ctx, state, rel, children, remaining-added)
			added += n
			if err != nil || state.truncated {
				return added, err
			}
			continue
		}

		if !utils.IsTextFile(name) || utils.IsIgnored(rel, state.patterns) {
			continue
		}

		if info.Size() > ix.maxFileSize {
			ix.warn(state, models.Warning{
				Kind:    models.WarnFileTooLarge,
				Path:    rel,
				Size:    info.Size(),
				Message: fmt.Sprintf("skipped file larger than %s", utils.FormatFileSize(ix.maxFileSize)),
			})
			continue
		}

		if added >= remaining {
			state.truncated = true
			ix.warn(state, models.Warning{
				Kind:    models.WarnTruncated,
				Message: fmt.Sprintf("folder holds more than %d files, only the first %d were loaded", ix.maxFiles, ix.maxFiles),
			})
			return added, nil
		}

		state.files = append(state.files, models.FileEntry{
			Name:      name,
			Path:      rel,
			Size:      info.Size(),
			Extension: utils.GetFileExtension(name),
			Language:  utils.LanguageFromFileName(name),
			Handle:    state.dir.Handle(rel),
		})
		added++
	}
	return added, nil
}

func (ix *Indexer) warn(state *scanState, w models.Warning) {
	state.warnings = append(state.warnings, w)
	ix.logger.Warn("scan entry skipped",
		zap.String("kind", string(w.Kind)),
		zap.String("path", w.Path),
		zap.String("reason", w.Message))
}
