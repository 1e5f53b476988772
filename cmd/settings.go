package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/meysamhadeli/codecompanion/config"
	"github.com/meysamhadeli/codecompanion/constants/lipgloss"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read and change persisted settings",
	Long: `The 'settings' command reads the effective configuration (defaults, .env, environment, config file and flags)
and writes single values to the config file. Known keys: ` + strings.Join(config.SettingKeys(), ", "),
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the effective value of a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		value, err := config.GetSetting(cmd.Root(), cwd, args[0])
		if err != nil {
			return err
		}
		if args[0] == "ai_provider_config.api_key" {
			value = config.MaskSecret(fmt.Sprint(value))
		}
		fmt.Println(value)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a setting to the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		path, err := config.SaveSetting(cwd, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✔️ %s saved to %s", args[0], path)))
		return nil
	},
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every setting with its effective value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		values, err := config.ListSettings(cmd.Root(), cwd)
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(values))
		for key := range values {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Printf("%s = %s\n", lipgloss.Info.Render(key), values[key])
		}
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsListCmd)
	rootCmd.AddCommand(settingsCmd)
}
