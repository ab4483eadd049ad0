package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/camlightd/internal/config"
	"github.com/dokzlo13/camlightd/internal/ledger"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent reconciler transitions from the audit ledger",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if cfg.Ledger.Path == "" {
			fmt.Println("Ledger is disabled: set ledger.path in the config to record history.")
			os.Exit(1)
		}
		if _, err := os.Stat(cfg.Ledger.Path); err != nil {
			fmt.Printf("No ledger database at %s (has the daemon run yet?)\n", cfg.Ledger.Path)
			os.Exit(1)
		}

		led, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			fmt.Printf("Error opening ledger: %v\n", err)
			os.Exit(1)
		}
		defer led.Close()

		entries, err := led.RecentTransitions(historyLimit)
		if err != nil {
			fmt.Printf("Error reading history: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			printJSON(entries)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "TIME\tFROM\tTO\tREASON\tANY ACTIVE")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n",
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.From, e.To, e.Reason, e.AnyActive)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of transitions to show")
}
