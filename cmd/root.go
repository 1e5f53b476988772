package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/meysamhadeli/codecompanion/apperr"
	"github.com/meysamhadeli/codecompanion/companion"
	"github.com/meysamhadeli/codecompanion/config"
	"github.com/meysamhadeli/codecompanion/constants/lipgloss"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd: codecompanion
var rootCmd = &cobra.Command{
	Use:   "codecompanion",
	Short: "A terminal companion to browse a local project and chat with an AI model about its code.",
	Long: `CodeCompanion opens a local folder, indexes its text files and lets you browse, preview and analyze them.
Questions you ask are sent to a hosted (OpenRouter) or local (Ollama) model together with the most relevant
files of the project, and the answer is streamed back into your terminal. Every exchange is kept in a local
history database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if version, _ := cmd.Flags().GetBool("version"); version {
			fmt.Println(lipgloss.BlueSky.Render(fmt.Sprintf("codecompanion version %s", config.DefaultConfig.Version)))
			return nil
		}
		return cmd.Help()
	},
}

// RootDependencies is everything a subcommand needs to run.
type RootDependencies struct {
	Cwd       string
	Config    *config.Config
	Companion *companion.Companion
	Logger    *zap.Logger
}

type rootOptions struct {
	// disableStore skips the history database for commands that never chat.
	disableStore bool
	configure    func(cfg *config.Config)
}

func handleRootCommand(cmd *cobra.Command, opts rootOptions) (*RootDependencies, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("error getting current directory: %w: %w", apperr.ErrIO, err)
	}

	cfg, err := config.LoadConfigs(cmd.Root(), cwd)
	if err != nil {
		return nil, err
	}
	if opts.configure != nil {
		opts.configure(cfg)
	}

	logger, err := companion.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	c, err := companion.New(companion.Options{Config: cfg, DisableStore: opts.disableStore, Logger: logger})
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &RootDependencies{Cwd: cwd, Config: cfg, Companion: c, Logger: logger}, nil
}

func (d *RootDependencies) Close() {
	if err := d.Companion.Close(); err != nil {
		d.Logger.Error("closing companion", zap.Error(err))
	}
	_ = d.Logger.Sync()
}

// projectRoot returns the folder named by the first argument, or the
// working directory.
func (d *RootDependencies) projectRoot(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return d.Cwd
}

// scanWithSpinner indexes root and reports the warnings produced on the way.
func scanWithSpinner(cmd *cobra.Command, d *RootDependencies, root string) error {
	spinner, _ := newSpinner().Start("Scanning project...")
	result, err := d.Companion.ScanProject(cmd.Context(), root)
	spinner.Stop()
	fmt.Print("\r")
	if err != nil {
		return err
	}

	printWarnings(d.Companion)
	if result.Truncated {
		fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("⚠️ Only the first %d files were indexed.", d.Config.MaxFiles)))
	}
	return nil
}

func printWarnings(c *companion.Companion) {
	for _, w := range c.TakeWarnings() {
		fmt.Println(lipgloss.Yellow.Render("⚠️ " + w.String()))
	}
}

func newSpinner() *pterm.SpinnerPrinter {
	return pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true)
}

func printError(err error) {
	fmt.Println(lipgloss.Red.Render("🚫 " + apperr.UserMessage(err)))
}

// errReported marks a failure that was already shown to the user.
var errReported = errors.New("error already reported")

func init() {
	config.InitFlags(rootCmd)
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			printError(err)
		}
		os.Exit(1)
	}
}
