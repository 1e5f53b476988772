package models

type ProjectStats struct {
	TotalFiles  int
	TotalSize   int64
	ByLanguage  map[string]int
	ByExtension map[string]int
}
