package contracts

import (
	"github.com/meysamhadeli/codecompanion/code_analyzer/models"
	index_models "github.com/meysamhadeli/codecompanion/project_index/models"
)

type ICodeAnalyzer interface {
	AnalyzeProject(index *index_models.ProjectIndex) models.ProjectAnalysis
	AnalyzeFile(entry *index_models.FileEntry, content string) models.FileAnalysis
	Outline(language string, source []byte) ([]models.Symbol, error)
}
