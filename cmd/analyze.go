package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/meysamhadeli/codecompanion/code_analyzer/models"
	"github.com/meysamhadeli/codecompanion/constants/lipgloss"
	index_models "github.com/meysamhadeli/codecompanion/project_index/models"
	"github.com/meysamhadeli/codecompanion/utils"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [dir] [file]",
	Short: "Analyze a project, or a single file of it, and print insights.",
	Long: `The 'analyze' command indexes the folder and reports project insights such as the detected project type and size.
When a file is named it reports line counts, TODO markers, long lines and an outline of its declarations.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd, rootOptions{disableStore: true})
		if err != nil {
			return err
		}
		defer rootDependencies.Close()

		if err := scanWithSpinner(cmd, rootDependencies, rootDependencies.projectRoot(args)); err != nil {
			return err
		}

		if len(args) == 2 {
			analysis, err := rootDependencies.Companion.Analyze(args[1])
			if err != nil {
				return err
			}
			printFileAnalysis(analysis)
			return nil
		}

		analysis, err := rootDependencies.Companion.AnalyzeProject()
		if err != nil {
			return err
		}
		printProjectAnalysis(analysis)
		return nil
	},
}

func printProjectAnalysis(analysis models.ProjectAnalysis) {
	fmt.Println(lipgloss.Info.Render("📁 " + analysis.Name))
	printProjectStats(analysis.Stats)
	printInsights(analysis.Insights)
}

func printProjectStats(stats index_models.ProjectStats) {
	fmt.Printf("  Files: %d\n", stats.TotalFiles)
	fmt.Printf("  Total Size: %s\n", utils.FormatFileSize(stats.TotalSize))
	if len(stats.ByLanguage) == 0 {
		return
	}

	languages := make([]string, 0, len(stats.ByLanguage))
	for language := range stats.ByLanguage {
		languages = append(languages, language)
	}
	sort.Slice(languages, func(i, j int) bool {
		if stats.ByLanguage[languages[i]] != stats.ByLanguage[languages[j]] {
			return stats.ByLanguage[languages[i]] > stats.ByLanguage[languages[j]]
		}
		return languages[i] < languages[j]
	})

	parts := make([]string, 0, len(languages))
	for _, language := range languages {
		parts = append(parts, fmt.Sprintf("%s (%d)", language, stats.ByLanguage[language]))
	}
	fmt.Printf("  Languages: %s\n", strings.Join(parts, ", "))
}

func printFileAnalysis(analysis models.FileAnalysis) {
	fmt.Println(lipgloss.Info.Render("📄 " + analysis.Path))
	fmt.Printf("  Size: %s\n", utils.FormatFileSize(analysis.Size))
	fmt.Printf("  Language: %s\n", analysis.Language)
	fmt.Printf("  Lines: %d", analysis.Lines)
	if analysis.CodeLines > 0 {
		fmt.Printf(" (%d code)", analysis.CodeLines)
	}
	fmt.Println()
	fmt.Printf("  TODO markers: %d\n", analysis.TodoCount)

	if len(analysis.Symbols) > 0 {
		fmt.Println("  Outline:")
		for _, symbol := range analysis.Symbols {
			fmt.Println(lipgloss.Gray.Render(fmt.Sprintf("    %4d  %s %s", symbol.Line, symbol.Kind, symbol.Name)))
		}
	}
	printInsights(analysis.Insights)
}

func printInsights(insights []models.Insight) {
	for _, insight := range insights {
		line := fmt.Sprintf("  %s %s", insight.Icon(), insight.Message)
		switch insight.Level {
		case models.InsightSuccess:
			fmt.Println(lipgloss.Green.Render(line))
		case models.InsightWarning:
			fmt.Println(lipgloss.Yellow.Render(line))
		default:
			fmt.Println(line)
		}
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
