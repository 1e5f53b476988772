package cmd

import (
	"fmt"
	"os"

	"github.com/meysamhadeli/codecompanion/constants/lipgloss"
	"github.com/meysamhadeli/codecompanion/utils"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview [dir] <file>",
	Short: "Print a project file with syntax highlighting.",
	Long: `The 'preview' command prints one file of the folder highlighted with the configured theme.
The file may be given by its relative path or, when it is unique, by its name alone.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd, rootOptions{disableStore: true})
		if err != nil {
			return err
		}
		defer rootDependencies.Close()

		var dir []string
		file := args[0]
		if len(args) == 2 {
			dir, file = args[:1], args[1]
		}

		if err := scanWithSpinner(cmd, rootDependencies, rootDependencies.projectRoot(dir)); err != nil {
			return err
		}
		return printPreview(rootDependencies, file)
	},
}

func printPreview(rootDependencies *RootDependencies, name string) error {
	entry, content, err := rootDependencies.Companion.ReadFile(name)
	if err != nil {
		return err
	}
	printWarnings(rootDependencies.Companion)

	fmt.Println(lipgloss.Info.Render(fmt.Sprintf("📄 %s (%s)", entry.Path, utils.FormatFileSize(entry.Size))))
	if err := utils.HighlightCode(os.Stdout, content, entry.Language, rootDependencies.Config.Theme); err != nil {
		fmt.Print(content)
	}
	fmt.Println()
	return nil
}

func init() {
	rootCmd.AddCommand(previewCmd)
}
