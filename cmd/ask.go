package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/config"
	"github.com/meysamhadeli/codecompanion/utils"
	"github.com/spf13/cobra"
)

// AskCmd: codecompanion ask
var askCmd = &cobra.Command{
	Use:   "ask [dir] <question>",
	Short: "Ask a single question about a folder and print the answer.",
	Long: `The 'ask' command indexes the folder, sends one question with the most relevant files and prints the answer.
The request waits for the complete answer unless --stream is given. The exchange is stored in the chat history.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stream, _ := cmd.Flags().GetBool("stream")

		rootDependencies, err := handleRootCommand(cmd, rootOptions{configure: func(cfg *config.Config) {
			cfg.AIProviderConfig.Stream = stream
		}})
		if err != nil {
			return err
		}
		defer rootDependencies.Close()

		var dir []string
		question := args[0]
		if len(args) == 2 {
			dir, question = args[:1], args[1]
		}
		if strings.TrimSpace(question) == "" {
			return fmt.Errorf("empty question: %w", apperr.ErrInvalidArgument)
		}

		if err := scanWithSpinner(cmd, rootDependencies, rootDependencies.projectRoot(dir)); err != nil {
			printError(err)
		}

		renderer := utils.NewMarkdownRenderer(os.Stdout, rootDependencies.Config.Theme)
		if !streamAnswer(cmd.Context(), rootDependencies, renderer, question) {
			return errReported
		}
		fmt.Println()
		displayTokens(rootDependencies)
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("stream", false, "Stream the answer as it is generated.")
	rootCmd.AddCommand(askCmd)
}
