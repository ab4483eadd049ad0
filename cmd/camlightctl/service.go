package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

var daemonBinary string

// program satisfies service.Interface. The installed service runs the
// daemon binary directly, so control actions never invoke these.
type program struct{}

func (p *program) Start(s service.Service) error { return nil }
func (p *program) Stop(s service.Service) error  { return nil }

var serviceCmd = &cobra.Command{
	Use:   "service [install|uninstall|start|stop|restart|status]",
	Short: "Manage camlightd as a system service",
	Long: `Registers camlightd with the platform service manager (launchd on
macOS, systemd on Linux) so the lights follow the camera from login.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"install", "uninstall", "start", "stop", "restart", "status"},
	Run: func(cmd *cobra.Command, args []string) {
		action := args[0]

		exe, err := resolveDaemonBinary()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		absConfig, err := filepath.Abs(cfgFile)
		if err != nil {
			fmt.Printf("Error resolving config path: %v\n", err)
			os.Exit(1)
		}

		svcConfig := &service.Config{
			Name:        "camlightd",
			DisplayName: "Camera Light Automation",
			Description: "Turns Elgato Key Lights on and off with camera activity",
			Executable:  exe,
			Arguments:   []string{"-c", absConfig},
		}

		s, err := service.New(&program{}, svcConfig)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		if action == "status" {
			printServiceStatus(s)
			return
		}

		if err := service.Control(s, action); err != nil {
			fmt.Printf("Failed to %s service: %v\n", action, err)
			os.Exit(1)
		}
		fmt.Printf("Service action %q completed.\n", action)
	},
}

func resolveDaemonBinary() (string, error) {
	if daemonBinary != "" {
		return filepath.Abs(daemonBinary)
	}

	// Default to a camlightd binary sitting next to this one
	self, err := os.Executable()
	if err != nil {
		return "", err
	}
	exe := filepath.Join(filepath.Dir(self), "camlightd")
	if _, err := os.Stat(exe); err != nil {
		return "", fmt.Errorf("camlightd binary not found at %s, pass --daemon-binary", exe)
	}
	return exe, nil
}

func printServiceStatus(s service.Service) {
	status, err := s.Status()
	if err != nil {
		fmt.Printf("Failed to query service status: %v\n", err)
		os.Exit(1)
	}
	switch status {
	case service.StatusRunning:
		fmt.Println("camlightd service is running")
	case service.StatusStopped:
		fmt.Println("camlightd service is stopped")
	default:
		fmt.Println("camlightd service status is unknown")
	}
}

func init() {
	rootCmd.AddCommand(serviceCmd)
	serviceCmd.Flags().StringVar(&daemonBinary, "daemon-binary", "", "Path to the camlightd binary (default: next to camlightctl)")
}
