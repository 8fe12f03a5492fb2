package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/vmscope/internal/config"
)

func newConfigCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective panel settings",
		Long:  "config prints the settings file named by --config merged over the built-in defaults.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := paramsFrom(cmd)
			s, err := config.Load(params.Sources.SettingsPath)
			if err != nil {
				return err
			}
			var out []byte
			switch output {
			case "yaml", "toml":
				out, err = config.Marshal("settings."+output, s)
			case "json":
				out, err = json.MarshalIndent(s, "", "  ")
			default:
				return fmt.Errorf("unknown --output %q (want yaml, toml or json)", output)
			}
			if err != nil {
				return fmt.Errorf("encoding settings: %w", err)
			}
			return writeString(cmd.OutOrStdout(), string(out))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format: yaml|toml|json")

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the settings file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeString(cmd.OutOrStdout(), paramsFrom(cmd).Sources.SettingsPath)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default settings to the settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := paramsFrom(cmd).Sources.SettingsPath
			if err := config.Save(path, config.Defaults()); err != nil {
				return err
			}
			return writeString(cmd.OutOrStdout(), "wrote "+path)
		},
	})
	return cmd
}
