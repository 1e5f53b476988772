package project_index

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/project_index/contracts"
	"github.com/spf13/afero"
)

// Directory is a granted, readable folder. Fs is rooted at the folder, so
// every path handed to it is relative to the project root.
type Directory struct {
	Name string
	Fs   afero.Fs
	// Root is the absolute OS path, empty for in-memory directories.
	Root string
}

// OpenDirectory grants access to a folder on disk.
func OpenDirectory(root string) (*Directory, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w: %w", root, apperr.ErrIO, err)
	}

	info, err := afero.NewOsFs().Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("open %s: %w", abs, apperr.ErrPermissionDenied)
		}
		return nil, fmt.Errorf("open %s: %w: %w", abs, apperr.ErrIO, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", abs, apperr.ErrInvalidArgument)
	}

	return &Directory{
		Name: filepath.Base(abs),
		Fs:   afero.NewBasePathFs(afero.NewOsFs(), abs),
		Root: abs,
	}, nil
}

// NewDirectory wraps an existing filesystem, typically an in-memory one.
func NewDirectory(name string, fsys afero.Fs) *Directory {
	return &Directory{Name: name, Fs: fsys}
}

// Handle returns the file handle for a relative path inside the directory.
func (d *Directory) Handle(relativePath string) contracts.IFileHandle {
	return &fileHandle{fs: d.Fs, path: relativePath}
}

type fileHandle struct {
	fs   afero.Fs
	path string
}

func (h *fileHandle) Size() (int64, error) {
	info, err := h.fs.Stat(h.path)
	if err != nil {
		return 0, readError(h.path, err)
	}
	return info.Size(), nil
}

func (h *fileHandle) Read() ([]byte, error) {
	content, err := afero.ReadFile(h.fs, h.path)
	if err != nil {
		return nil, readError(h.path, err)
	}
	return content, nil
}

func readError(path string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("read %s: %w", path, apperr.ErrPermissionDenied)
	}
	return fmt.Errorf("read %s: %w: %w", path, apperr.ErrIO, err)
}
