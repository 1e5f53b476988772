package cmd

import (
	"fmt"

	"github.com/meysamhadeli/codecompanion/project_index"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree [dir]",
	Short: "Print the indexed file tree of a folder.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd, rootOptions{disableStore: true})
		if err != nil {
			return err
		}
		defer rootDependencies.Close()

		if err := scanWithSpinner(cmd, rootDependencies, rootDependencies.projectRoot(args)); err != nil {
			return err
		}
		fmt.Print(project_index.RenderTree(rootDependencies.Companion.BuildTree()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)
}
