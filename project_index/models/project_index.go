package models

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/zeebo/xxh3"
)

// ProjectIndex is the ordered list of files found under one opened folder.
// Paths are unique. The index is immutable once built and its entries are
// only reachable through accessors.
type ProjectIndex struct {
	RootName string
	files    []FileEntry
	byPath   map[string]int
}

// NewProjectIndex builds an index over files in the given order.
func NewProjectIndex(rootName string, files []FileEntry) (*ProjectIndex, error) {
	byPath := make(map[string]int, len(files))
	for i, f := range files {
		if _, exists := byPath[f.Path]; exists {
			return nil, fmt.Errorf("duplicate path %q in project index: %w", f.Path, apperr.ErrInvalidArgument)
		}
		byPath[f.Path] = i
	}
	return &ProjectIndex{RootName: rootName, files: files, byPath: byPath}, nil
}

func (p *ProjectIndex) Len() int {
	if p == nil {
		return 0
	}
	return len(p.files)
}

// At returns the i-th entry in scan order. Callers must not modify it.
func (p *ProjectIndex) At(i int) *FileEntry {
	return &p.files[i]
}

// Entries returns a copy of the entries in scan order.
func (p *ProjectIndex) Entries() []FileEntry {
	if p == nil {
		return nil
	}
	return append([]FileEntry(nil), p.files...)
}

// Lookup returns the entry stored under a relative path.
func (p *ProjectIndex) Lookup(relativePath string) (*FileEntry, bool) {
	if p == nil {
		return nil, false
	}
	i, ok := p.byPath[relativePath]
	if !ok {
		return nil, false
	}
	return &p.files[i], true
}

// Fingerprint hashes the ordered (path, size) pairs so callers can tell
// whether a rescan changed the project.
func (p *ProjectIndex) Fingerprint() uint64 {
	if p == nil {
		return 0
	}
	h := xxh3.New()
	for _, f := range p.files {
		_, _ = h.WriteString(f.Path)
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(strconv.FormatInt(f.Size, 10))
		_, _ = h.WriteString("\n")
	}
	return h.Sum64()
}

// Search returns the entries whose name or path contains query, case-insensitively.
func (p *ProjectIndex) Search(query string) []FileEntry {
	if p == nil {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var result []FileEntry
	for _, f := range p.files {
		if strings.Contains(strings.ToLower(f.Name), q) || strings.Contains(strings.ToLower(f.Path), q) {
			result = append(result, f)
		}
	}
	return result
}

// FindFile resolves a user-typed file reference: exact path, then exact
// name, then the first path containing it.
func (p *ProjectIndex) FindFile(name string) (*FileEntry, bool) {
	if p == nil || name == "" {
		return nil, false
	}
	if entry, ok := p.Lookup(name); ok {
		return entry, true
	}
	for i := range p.files {
		if p.files[i].Name == name {
			return &p.files[i], true
		}
	}
	for i := range p.files {
		if strings.Contains(p.files[i].Path, name) {
			return &p.files[i], true
		}
	}
	return nil, false
}

// Directories lists every directory that holds at least one indexed file,
// "." for the root, sorted.
func (p *ProjectIndex) Directories() []string {
	if p == nil {
		return nil
	}
	seen := map[string]bool{".": true}
	for _, f := range p.files {
		for dir := path.Dir(f.Path); dir != "." && !seen[dir]; dir = path.Dir(dir) {
			seen[dir] = true
		}
	}
	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// ValidatePath rejects paths that could escape the project root.
func ValidatePath(relativePath string) error {
	lower := strings.ToLower(relativePath)
	switch {
	case relativePath == "":
		return fmt.Errorf("empty path: %w", apperr.ErrInvalidArgument)
	case strings.Contains(relativePath, ".."),
		strings.HasPrefix(relativePath, "/"),
		strings.HasPrefix(relativePath, "\\"),
		strings.Contains(relativePath, ":"),
		strings.Contains(lower, "%2e%2e"):
		return fmt.Errorf("invalid file path %q: %w", relativePath, apperr.ErrInvalidArgument)
	}
	return nil
}
