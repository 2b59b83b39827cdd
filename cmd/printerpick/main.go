// Printerpick finds receipt printers on the local network and USB bus and
// lets the user pick one.
//
// The interactive picker draws on stderr and prints the chosen connection
// target (e.g. "TCP:192.168.1.20") on stdout, so it composes with shell
// scripts:
//
//	PRINTER=$(printerpick) || exit 1
//
// Usage:
//
//	printerpick [command] [flags]
//
// Running without arguments launches the picker.
// See 'printerpick --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/printerpick/internal/logging"
	"github.com/muurk/printerpick/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logging.Error("Command failed", zap.Error(err))
	}
	logging.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	logLevel   string
	configPath string
	backends   []string
	noSNMP     bool
)

var rootCmd = &cobra.Command{
	Use:   "printerpick",
	Short: "Find and pick a receipt printer",
	Long: `A terminal picker for receipt printers.

Printers are discovered over mDNS on the local network and on the USB bus.
The chosen printer's connection target is written to stdout; everything
else goes to stderr.

If no command is specified, the interactive picker will launch automatically.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run the picker when no subcommand provided
		return runPick(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/printerpick/config.yaml)")
	rootCmd.PersistentFlags().StringSliceVar(&backends, "backend", nil, "Discovery backends to use (mdns, usb)")
	rootCmd.PersistentFlags().BoolVar(&noSNMP, "no-snmp", false, "Do not query network printers over SNMP for their model name")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "printerpick %s (commit: %s)\n", version.Version, version.Commit)
	},
}
