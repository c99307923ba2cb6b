// Lorasim-provision registers emulated LoRaWAN devices and gateways with a
// remote network registry.
//
// It validates the registry connection, reconciles the local inventory
// against what the registry already holds, lets the user pick what to
// register, and registers the selection with per-entity results.
//
// Usage:
//
//	lorasim-provision [command] [flags]
//
// Running without arguments launches the interactive wizard.
// See 'lorasim-provision --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/lorasim/internal/config"
	"github.com/muurk/lorasim/internal/logging"
	"github.com/muurk/lorasim/internal/ui"
	"github.com/muurk/lorasim/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
	orgFlag    string
	baseURL    string
	timeoutSec int
	workers    int
	eventsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "lorasim-provision",
	Short: "LoRaWAN Registry Provisioning Wizard",
	Long: `Registers emulated LoRaWAN devices and gateways with a network registry.

The wizard walks through four steps:
  1. Validate  - check the registry settings and API key
  2. Discover  - find out which inventory entities are already registered
  3. Select    - choose what to register and confirm the plan
  4. Execute   - register the selection and report per-entity results

If no command is specified, the interactive wizard will launch automatically.`,
	Version:      version.Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			config.SetPath(configPath)
		}
		// Silent unless --log-level or LORASIM_LOG_LEVEL is set
		return logging.Initialize(logLevel)
	},
	RunE: runWizard,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file path (default: user config dir)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); logs go to stderr")
	pf.StringVar(&orgFlag, "org", "", "Organization to provision (default: preferences.default_org)")
	pf.StringVar(&baseURL, "base-url", "", "Registry base URL (overrides the cluster URL)")
	pf.IntVar(&timeoutSec, "timeout", 0, "Per-call registry timeout in seconds (default: preferences.call_timeout)")
	pf.IntVar(&workers, "workers", 0, "Concurrent existence checks (default: preferences.workers)")
	pf.StringVar(&eventsAddr, "events-addr", "", "Serve the wizard event feed over WebSocket on this address (e.g. 127.0.0.1:8765)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return ui.RenderOnce(cmd.OutOrStdout(), fmt.Sprintf("lorasim-provision %s\n", version.Full()))
	},
}
