package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/constants/lipgloss"
	"github.com/meysamhadeli/codecompanion/utils"
	"github.com/spf13/cobra"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear the stored chat history",
	Long: `The 'history' command works with the local chat history database.
Every completed exchange is appended to it with the model, the opened folder and the session it belongs to.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent stored exchanges",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		rootDependencies, err := handleRootCommand(cmd, rootOptions{})
		if err != nil {
			return err
		}
		defer rootDependencies.Close()

		return printHistory(cmd.Context(), rootDependencies, limit)
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored exchange",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		rootDependencies, err := handleRootCommand(cmd, rootOptions{})
		if err != nil {
			return err
		}
		defer rootDependencies.Close()

		return handleHistoryClearCommand(cmd.Context(), rootDependencies, force)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one stored exchange in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[0], apperr.ErrInvalidArgument)
		}

		rootDependencies, err := handleRootCommand(cmd, rootOptions{})
		if err != nil {
			return err
		}
		defer rootDependencies.Close()

		record, err := rootDependencies.Companion.StoredExchange(cmd.Context(), id)
		if err != nil {
			return err
		}

		fmt.Println(lipgloss.Info.Render(fmt.Sprintf("#%d  %s  %s", record.ID, record.Timestamp.Local().Format("2006-01-02 15:04"), record.Model)))
		fmt.Println(lipgloss.BlueSky.Render("> " + record.UserMessage))
		renderer := utils.NewMarkdownRenderer(os.Stdout, rootDependencies.Config.Theme)
		return renderer.Finish(record.AssistantMessage)
	},
}

func init() {
	historyListCmd.Flags().IntP("limit", "n", 20, "Number of exchanges to show")
	historyClearCmd.Flags().BoolP("force", "f", false, "Clear history without confirmation")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

func printHistory(ctx context.Context, rootDependencies *RootDependencies, limit int) error {
	c := rootDependencies.Companion
	if !c.HistoryEnabled() {
		fmt.Println(lipgloss.Yellow.Render("Chat history is disabled."))
		return nil
	}

	records, err := c.RecentHistory(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println(lipgloss.Gray.Render("No stored exchanges yet."))
		return nil
	}

	for _, record := range records {
		header := fmt.Sprintf("#%d  %s  %s", record.ID, record.Timestamp.Local().Format("2006-01-02 15:04"), record.Model)
		if record.FolderName != "" {
			header += fmt.Sprintf("  [%s, %d files]", record.FolderName, record.FileCount)
		}
		fmt.Println(lipgloss.Info.Render(header))
		fmt.Println(lipgloss.BlueSky.Render("  > " + excerpt(record.UserMessage, 100)))
		fmt.Println("    " + excerpt(record.AssistantMessage, 160))
	}
	return nil
}

func handleHistoryClearCommand(ctx context.Context, rootDependencies *RootDependencies, force bool) error {
	c := rootDependencies.Companion
	if !c.HistoryEnabled() {
		fmt.Println(lipgloss.Yellow.Render("Chat history is disabled. Nothing to clear."))
		return nil
	}

	count, err := c.StoredHistoryCount(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		fmt.Println(lipgloss.Gray.Render("No stored exchanges to clear."))
		return nil
	}

	// Confirm unless forced
	if !force {
		reader := utils.NewInputReader(os.Stdin)
		ok, err := utils.ConfirmPrompt(ctx, reader, fmt.Sprintf("Are you sure you want to delete %d stored exchanges?", count))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println(lipgloss.Yellow.Render("History clear cancelled."))
			return nil
		}
	}

	spinner, _ := newSpinner().Start("Clearing chat history...")
	err = c.ClearStoredHistory(ctx)
	spinner.Stop()
	fmt.Print("\r")
	if err != nil {
		return err
	}

	fmt.Println(lipgloss.Green.Render("✓ Chat history has been successfully cleared!"))
	return nil
}

// excerpt flattens text to one line of at most n runes.
func excerpt(text string, n int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= n {
		return flat
	}
	return string(runes[:n-1]) + "…"
}
