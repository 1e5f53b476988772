package code_analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/meysamhadeli/codecompanion/code_analyzer/contracts"
	"github.com/meysamhadeli/codecompanion/code_analyzer/models"
	"github.com/meysamhadeli/codecompanion/embed_data"
	"github.com/meysamhadeli/codecompanion/project_index"
	index_models "github.com/meysamhadeli/codecompanion/project_index/models"
	"github.com/meysamhadeli/codecompanion/utils"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"go.uber.org/zap"
)

const (
	LargeProjectFiles = 500
	LargeFileBytes    = 100 * 1024
	LongLineChars     = 120
	// More long lines than this produce an insight.
	LongLineThreshold = 5
)

var todoPattern = regexp.MustCompile(`(?i)(?:TODO|FIXME|HACK|XXX|NOTE):`)

// projectMarkers maps a well-known manifest name to the project kind it reveals.
var projectMarkers = []struct {
	file    string
	message string
}{
	{"package.json", "JavaScript/Node.js project detected (package.json found)"},
	{"requirements.txt", "Python project detected (requirements.txt found)"},
	{"Cargo.toml", "Rust project detected (Cargo.toml found)"},
	{"go.mod", "Go project detected (go.mod found)"},
}

// CodeAnalyzer produces project and file insights.
type CodeAnalyzer struct {
	logger *zap.Logger
}

func NewCodeAnalyzer(logger *zap.Logger) contracts.ICodeAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CodeAnalyzer{logger: logger}
}

func (analyzer *CodeAnalyzer) AnalyzeProject(index *index_models.ProjectIndex) models.ProjectAnalysis {
	analysis := models.ProjectAnalysis{Stats: project_index.Stats(index)}
	if index != nil {
		analysis.Name = index.RootName
	}

	if analysis.Stats.TotalFiles == 0 {
		analysis.Insights = append(analysis.Insights, models.Insight{Level: models.InsightWarning, Message: "No files found in this folder"})
		return analysis
	}

	if analysis.Stats.TotalFiles > LargeProjectFiles {
		analysis.Insights = append(analysis.Insights, models.Insight{
			Level:   models.InsightInfo,
			Message: fmt.Sprintf("Large project detected (%d files). Consider analyzing specific files instead of the whole project.", analysis.Stats.TotalFiles),
		})
	}

	names := make(map[string]bool, index.Len())
	for _, f := range index.Entries() {
		names[f.Name] = true
	}
	for _, marker := range projectMarkers {
		if names[marker.file] {
			analysis.Insights = append(analysis.Insights, models.Insight{Level: models.InsightSuccess, Message: marker.message})
		}
	}

	return analysis
}

func (analyzer *CodeAnalyzer) AnalyzeFile(entry *index_models.FileEntry, content string) models.FileAnalysis {
	lines := strings.Split(content, "\n")
	analysis := models.FileAnalysis{
		Name:      entry.Name,
		Path:      entry.Path,
		Size:      entry.Size,
		Extension: entry.Extension,
		Language:  entry.Language,
		Lines:     len(lines),
	}

	if !utils.IsCodeFile(entry.Name) {
		return analysis
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "//") && !strings.HasPrefix(trimmed, "#") {
			analysis.CodeLines++
		}
		if utf8.RuneCountInString(line) > LongLineChars {
			analysis.LongLines++
		}
	}

	analysis.TodoCount = len(todoPattern.FindAllStringIndex(content, -1))
	if analysis.TodoCount > 0 {
		analysis.Insights = append(analysis.Insights, models.Insight{
			Level:   models.InsightInfo,
			Message: fmt.Sprintf("Found %d TODO/FIXME comment(s)", analysis.TodoCount),
		})
	}

	if entry.Size > LargeFileBytes {
		analysis.Insights = append(analysis.Insights, models.Insight{
			Level:   models.InsightWarning,
			Message: "Large file detected - consider splitting into smaller modules",
		})
	}

	if analysis.LongLines > LongLineThreshold {
		analysis.Insights = append(analysis.Insights, models.Insight{
			Level:   models.InsightInfo,
			Message: fmt.Sprintf("%d lines exceed %d characters - consider refactoring for readability", analysis.LongLines, LongLineChars),
		})
	}

	symbols, err := analyzer.Outline(entry.Language, []byte(content))
	if err != nil {
		analyzer.logger.Warn("syntax outline failed", zap.String("path", entry.Path), zap.Error(err))
	}
	analysis.Symbols = symbols

	return analysis
}

func grammarFor(language string) (*sitter.Language, []byte) {
	switch language {
	case "csharp":
		return csharp.GetLanguage(), embed_data.CSharpQuery
	case "go":
		return golang.GetLanguage(), embed_data.GoQuery
	case "python":
		return python.GetLanguage(), embed_data.PythonQuery
	case "java":
		return java.GetLanguage(), embed_data.JavaQuery
	case "javascript":
		return javascript.GetLanguage(), embed_data.JavascriptQuery
	case "typescript":
		return typescript.GetLanguage(), embed_data.TypescriptQuery
	}
	return nil, nil
}

// Outline lists the declarations in source, in source order. Languages
// without a grammar yield no symbols and no error.
func (analyzer *CodeAnalyzer) Outline(language string, source []byte) ([]models.Symbol, error) {
	lang, queryJSON := grammarFor(language)
	if lang == nil {
		return nil, nil
	}

	queries := make(map[string]string)
	if err := json.Unmarshal(queryJSON, &queries); err != nil {
		return nil, fmt.Errorf("failed to parse %s queries: %w", language, err)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s source: %w", language, err)
	}
	defer tree.Close()

	type found struct {
		symbol models.Symbol
		start  uint32
	}
	var all []found

	for kind, pattern := range queries {
		query, err := sitter.NewQuery([]byte(pattern), lang)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s query %q: %w", language, kind, err)
		}

		cursor := sitter.NewQueryCursor()
		cursor.Exec(query, tree.RootNode())
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			for _, capture := range match.Captures {
				all = append(all, found{
					symbol: models.Symbol{
						Kind: kind,
						Name: capture.Node.Content(source),
						Line: int(capture.Node.StartPoint().Row) + 1,
					},
					start: capture.Node.StartByte(),
				})
			}
		}
		cursor.Close()
		query.Close()
	}

	sort.Slice(all, func(i, j int) bool { return all[i].start < all[j].start })

	symbols := make([]models.Symbol, len(all))
	for i, f := range all {
		symbols[i] = f.symbol
	}
	return symbols, nil
}
