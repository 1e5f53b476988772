package models

import index_models "github.com/meysamhadeli/codecompanion/project_index/models"

type InsightLevel string

const (
	InsightSuccess InsightLevel = "success"
	InsightWarning InsightLevel = "warning"
	InsightInfo    InsightLevel = "info"
)

type Insight struct {
	Level   InsightLevel
	Message string
}

// Icon is the console marker shown before an insight.
func (i Insight) Icon() string {
	switch i.Level {
	case InsightSuccess:
		return "✅"
	case InsightWarning:
		return "⚠️"
	}
	return "ℹ️"
}

// Symbol is a declaration found by the syntax outline, e.g. "function: main".
type Symbol struct {
	Kind string
	Name string
	Line int // 1-based
}

type ProjectAnalysis struct {
	Name     string
	Stats    index_models.ProjectStats
	Insights []Insight
}

type FileAnalysis struct {
	Name      string
	Path      string
	Size      int64
	Extension string
	Language  string
	Lines     int
	// CodeLines counts non-empty, non-comment lines; zero for non-code files.
	CodeLines int
	TodoCount int
	LongLines int
	Symbols   []Symbol
	Insights  []Insight
}
