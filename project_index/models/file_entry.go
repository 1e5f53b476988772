package models

import "github.com/meysamhadeli/codecompanion/project_index/contracts"

// FileEntry is one text file accepted by the indexer.
type FileEntry struct {
	Name      string
	Path      string // slash-separated, relative to the project root
	Size      int64  // bytes, as observed at scan time
	Extension string // lower-cased, no dot
	Language  string
	Handle    contracts.IFileHandle
}
