package project_index

import "github.com/meysamhadeli/codecompanion/project_index/models"

// Stats summarizes an index by size, language and extension.
func Stats(index *models.ProjectIndex) models.ProjectStats {
	stats := models.ProjectStats{
		ByLanguage:  map[string]int{},
		ByExtension: map[string]int{},
	}
	if index == nil {
		return stats
	}
	for _, f := range index.Entries() {
		stats.TotalFiles++
		stats.TotalSize += f.Size
		stats.ByLanguage[f.Language]++
		ext := f.Extension
		if ext == "" {
			ext = "no extension"
		}
		stats.ByExtension[ext]++
	}
	return stats
}
