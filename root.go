package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "subrelay",
		Short:         "Translate SRT subtitles with LLM engines",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Configuration file path (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newTranslateCommand(a))
	rootCmd.AddCommand(newPlanCommand(a))
	rootCmd.AddCommand(newWatchCommand(a))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "subrelay %s\n", version)
			return err
		},
	})

	return rootCmd
}
