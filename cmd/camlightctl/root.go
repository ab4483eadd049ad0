package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	cfgFile    string
	jsonOutput bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "camlightctl",
	Short: "Control and inspect the camlightd light fleet",
	Long: `Operator tool for camlightd: switch the configured lights by hand,
inspect their state, review the transition history and manage the daemon
as a system service.`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// The light driver logs through zerolog; keep CLI output clean
		// unless asked otherwise
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.Disabled)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show light driver logs")
}
