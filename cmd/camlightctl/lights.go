package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/camlightd/internal/config"
	"github.com/dokzlo13/camlightd/internal/elgato"
)

// mustSetup loads the config and builds the light list and driver.
func mustSetup() ([]elgato.Light, *elgato.Client) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	lights := make([]elgato.Light, 0, len(cfg.Lights))
	for _, lc := range cfg.Lights {
		lights = append(lights, elgato.Light{
			Address:     lc.Address,
			Brightness:  lc.GetBrightness(),
			Temperature: lc.GetTemperature(),
		})
	}

	return lights, elgato.NewClient(cfg.Elgato.Port, cfg.Elgato.Timeout.Duration())
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Printf("Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

var onCmd = &cobra.Command{
	Use:   "on",
	Short: "Turn every configured light on",
	Run: func(cmd *cobra.Command, args []string) {
		switchLights(true)
	},
}

var offCmd = &cobra.Command{
	Use:   "off",
	Short: "Turn every configured light off",
	Run: func(cmd *cobra.Command, args []string) {
		switchLights(false)
	},
}

type switchResult struct {
	Address string `json:"address"`
	Outcome string `json:"outcome"`
}

func switchLights(on bool) {
	lights, api := mustSetup()
	ctx := context.Background()

	var results []switchResult
	failed := 0
	for _, light := range lights {
		outcome := api.Apply(ctx, light, on)
		if outcome != elgato.OutcomeOK {
			failed++
		}
		results = append(results, switchResult{Address: light.Address, Outcome: outcome.String()})
	}

	if jsonOutput {
		printJSON(results)
	} else {
		for _, res := range results {
			if res.Outcome == "ok" {
				fmt.Printf("%s: OK\n", res.Address)
			} else {
				fmt.Printf("%s: FAILED (%s)\n", res.Address, res.Outcome)
			}
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

type statusRow struct {
	Address     string `json:"address"`
	Power       string `json:"power"`
	Brightness  int    `json:"brightness,omitempty"`
	Temperature int    `json:"temperature_kelvin,omitempty"`
	Error       string `json:"error,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current state of every configured light",
	Run: func(cmd *cobra.Command, args []string) {
		lights, api := mustSetup()
		ctx := context.Background()

		var rows []statusRow
		failed := 0
		for _, light := range lights {
			status, err := api.GetStatus(ctx, light.Address)
			if err != nil {
				failed++
				rows = append(rows, statusRow{Address: light.Address, Power: "unreachable", Error: err.Error()})
				continue
			}
			for _, ls := range status.Lights {
				power := "off"
				if ls.On == 1 {
					power = "on"
				}
				rows = append(rows, statusRow{
					Address:     light.Address,
					Power:       power,
					Brightness:  ls.Brightness,
					Temperature: elgato.MiredsToKelvin(ls.Temperature),
				})
			}
		}

		if jsonOutput {
			printJSON(rows)
		} else {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tPOWER\tBRIGHTNESS\tTEMPERATURE")
			for _, r := range rows {
				if r.Error != "" {
					fmt.Fprintf(w, "%s\t%s\t-\t-\n", r.Address, r.Power)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%d%%\t%dK\n", r.Address, r.Power, r.Brightness, r.Temperature)
			}
			w.Flush()
		}

		if failed > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(statusCmd)
}
