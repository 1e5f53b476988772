package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/constants/lipgloss"
	"github.com/meysamhadeli/codecompanion/project_index"
	"github.com/meysamhadeli/codecompanion/session"
	"github.com/meysamhadeli/codecompanion/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// ChatCmd: codecompanion chat
var chatCmd = &cobra.Command{
	Use:   "chat [dir]",
	Short: "Open a folder and chat with the AI model about its code in an interactive session.",
	Long: `The 'chat' subcommand indexes the given folder (or the current directory) and starts an interactive session.
Every question is sent together with the project files most relevant to it, and the answer is streamed into the terminal.
Press Ctrl+C while an answer is streaming to cancel it, or at the prompt to leave. Type /help to list the session commands.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd, rootOptions{})
		if err != nil {
			return err
		}
		defer rootDependencies.Close()
		return handleChatCommand(cmd, rootDependencies, args)
	},
}

const chatHelp = `/help  Show session commands
/scan  Rescan the opened folder
/analyze [file]  Analyze the project or one file
/find <text>  List files whose name or path contains text
/tree  Show the file tree
/stats  Project, cache and session statistics
/preview <file>  Show a file with syntax highlighting
/export [markdown|json|txt]  Save the conversation to a file
/history  Show recent stored exchanges
/clear-history  Delete the stored chat history
/new  Start a new conversation
/token  Token usage and cost
/clear  Clear screen
/exit  Leave the session`

func handleChatCommand(cmd *cobra.Command, rootDependencies *RootDependencies, args []string) error {
	ctx := cmd.Context()

	if err := scanWithSpinner(cmd, rootDependencies, rootDependencies.projectRoot(args)); err != nil {
		// Chat still works without a folder.
		printError(err)
	}

	fmt.Println(lipgloss.BoxStyle.Render("/help  Help for chat session"))

	reader := utils.NewInputReader(os.Stdin)
	renderer := utils.NewMarkdownRenderer(os.Stdout, rootDependencies.Config.Theme)

	for {
		promptCtx, stopPrompt := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		userInput, err := utils.InputPromptWithContext(promptCtx, reader)
		stopPrompt()

		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				fmt.Println(lipgloss.Yellow.Render("🔄 Exiting..."))
				return nil
			}
			printError(err)
			continue
		}
		if userInput == "" {
			continue
		}

		command := utils.ParseCommand(userInput)
		if command.IsCommand {
			if exit := runChatCommand(ctx, rootDependencies, reader, command); exit {
				return nil
			}
			continue
		}

		streamAnswer(ctx, rootDependencies, renderer, command.Content)
		fmt.Println()
		displayTokens(rootDependencies)
	}
}

// streamAnswer sends one message and prints the answer as it arrives.
// Ctrl+C while waiting cancels the request.
func streamAnswer(ctx context.Context, rootDependencies *RootDependencies, renderer *utils.MarkdownRenderer, message string) bool {
	c := rootDependencies.Companion

	events, err := c.SendUserMessage(ctx, message)
	if err != nil {
		printError(err)
		return false
	}

	interrupted, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	stopCancel := context.AfterFunc(interrupted, func() { c.CancelCurrentRequest() })
	defer func() {
		stopCancel()
		stopSignals()
	}()

	spinner, _ := pterm.DefaultSpinner.
		WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("🤔", "🧠", "💭", "✨", "🚀", "💡").
		WithDelay(500).
		WithRemoveWhenDone(true).
		Start(fmt.Sprintf("%s is thinking...", rootDependencies.Config.AIProviderConfig.Model))
	spinning := true
	stopSpinner := func() {
		if spinning {
			_ = spinner.Stop()
			fmt.Print("\r")
			spinning = false
		}
	}
	defer stopSpinner()

	completed := false
	for ev := range events {
		switch ev.Kind {
		case session.EventContent:
			stopSpinner()
			if err := renderer.Update(ev.Content); err != nil {
				rootDependencies.Logger.Sugar().Warnw("rendering answer", "error", err)
			}
		case session.EventCompleted:
			stopSpinner()
			if err := renderer.Finish(ev.Content); err != nil {
				rootDependencies.Logger.Sugar().Warnw("rendering answer", "error", err)
			}
			completed = true
		case session.EventCancelled:
			stopSpinner()
			renderer.Reset()
			fmt.Println()
			fmt.Println(lipgloss.Yellow.Render("⏹ Request cancelled."))
		case session.EventFailed:
			stopSpinner()
			renderer.Reset()
			fmt.Println()
			printError(ev.Err)
			if apperr.Classify(ev.Err) == apperr.KindInvalidCredential {
				fmt.Println(lipgloss.Gray.Render("Set the key with: codecompanion settings set ai_provider_config.api_key <key>"))
			}
		}
	}
	return completed
}

func displayTokens(rootDependencies *RootDependencies) {
	rootDependencies.Companion.Tokens().DisplayTokens(
		rootDependencies.Config.AIProviderConfig.Provider,
		rootDependencies.Config.AIProviderConfig.Model,
	)
}

// runChatCommand handles one slash command and reports whether the session
// should end.
func runChatCommand(ctx context.Context, rootDependencies *RootDependencies, reader *utils.InputReader, command utils.ChatCommand) bool {
	c := rootDependencies.Companion

	switch command.Name {
	case "help":
		fmt.Println(lipgloss.BoxStyle.Render(chatHelp))
	case "exit", "quit":
		return true
	case "clear":
		fmt.Print("\033[2J\033[H")
	case "scan":
		if c.Index() == nil {
			fmt.Println(lipgloss.Yellow.Render("No folder opened."))
			return false
		}
		spinner, _ := newSpinner().Start("Rescanning project...")
		result, changed, err := c.Rescan(ctx)
		spinner.Stop()
		fmt.Print("\r")
		if err != nil {
			printError(err)
			return false
		}
		printWarnings(c)
		if !changed {
			fmt.Println(lipgloss.Gray.Render(fmt.Sprintf("No changes, %d files indexed.", result.Index.Len())))
			return false
		}
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✔️ Indexed %d files.", result.Index.Len())))
	case "analyze":
		if command.Args == "" {
			analysis, err := c.AnalyzeProject()
			if err != nil {
				printError(err)
				return false
			}
			printProjectAnalysis(analysis)
			return false
		}
		analysis, err := c.Analyze(command.Args)
		if err != nil {
			printError(err)
			return false
		}
		printFileAnalysis(analysis)
	case "find":
		if command.Args == "" {
			fmt.Println(lipgloss.Yellow.Render("Usage: /find <text>"))
			return false
		}
		matches := c.FindFiles(command.Args)
		if len(matches) == 0 {
			fmt.Println(lipgloss.Gray.Render("No matching files."))
			return false
		}
		for _, entry := range matches {
			fmt.Printf("  %s %s\n", entry.Path, lipgloss.Gray.Render(utils.FormatFileSize(entry.Size)))
		}
	case "tree":
		tree := c.BuildTree()
		if tree == nil {
			fmt.Println(lipgloss.Yellow.Render("No folder opened."))
			return false
		}
		fmt.Print(project_index.RenderTree(tree))
	case "stats":
		printStats(rootDependencies)
	case "preview":
		if command.Args == "" {
			fmt.Println(lipgloss.Yellow.Render("Usage: /preview <file>"))
			return false
		}
		if err := printPreview(rootDependencies, command.Args); err != nil {
			printError(err)
		}
	case "export":
		format := command.Args
		if format == "" {
			format = "markdown"
		}
		data, name, err := c.ExportSession(format)
		if err != nil {
			printError(err)
			return false
		}
		target := filepath.Join(rootDependencies.Cwd, name)
		if err := os.WriteFile(target, data, 0o644); err != nil {
			printError(fmt.Errorf("writing %s: %w: %w", target, apperr.ErrIO, err))
			return false
		}
		fmt.Println(lipgloss.Green.Render("✔️ Conversation exported to " + target))
	case "history":
		if err := printHistory(ctx, rootDependencies, 10); err != nil {
			printError(err)
		}
	case "clear-history":
		ok, err := utils.ConfirmPrompt(ctx, reader, "Delete the stored chat history?")
		if err != nil || !ok {
			fmt.Println(lipgloss.Yellow.Render("History kept."))
			return false
		}
		if err := c.ClearStoredHistory(ctx); err != nil {
			printError(err)
			return false
		}
		fmt.Println(lipgloss.Green.Render("✔️ Stored history cleared."))
	case "new":
		if err := c.ClearHistory(); err != nil {
			printError(err)
			return false
		}
		c.Tokens().ClearToken()
		fmt.Println(lipgloss.Green.Render("✔️ Started a new conversation."))
	case "token":
		displayTokens(rootDependencies)
	default:
		fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("Unknown command /%s, type /help to list commands.", command.Name)))
	}
	return false
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
