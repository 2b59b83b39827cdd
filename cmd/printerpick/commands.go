package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/muurk/printerpick/internal/config"
	"github.com/muurk/printerpick/internal/discovery"
	"github.com/muurk/printerpick/internal/picker"
	"github.com/muurk/printerpick/internal/session"
	"github.com/muurk/printerpick/internal/ui"
)

var errNoSelection = errors.New("no printer selected")

// Command flags
var (
	allowEmpty  bool
	scanTimeout time.Duration
	forgetYes   bool
)

func init() {
	rootCmd.Flags().BoolVar(&allowEmpty, "allow-empty", false, "Exit successfully when no printer is chosen")
	pickCmd.Flags().BoolVar(&allowEmpty, "allow-empty", false, "Exit successfully when no printer is chosen")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "How long to scan (default from config, 5s)")
	forgetCmd.Flags().BoolVarP(&forgetYes, "yes", "y", false, "Do not ask for confirmation")

	rootCmd.AddCommand(pickCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(lastCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(forgetCmd)
}

// pickCmd launches the interactive picker
var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Choose a printer interactively",
	Long: `Launch the interactive printer picker.

Discovered printers are listed as they are found. Keys:
  ↑/↓    move
  enter  choose the highlighted printer
  r      restart discovery with an empty list
  m      type a target by hand (TCP:<ip> or USB:<path>)
  q/esc  quit without choosing

The chosen target is printed on stdout and remembered for next time.`,
	Example: `  # Pick a printer (pick is the default command)
  printerpick

  # Only look on the USB bus
  printerpick pick --backend usb

  # Use in a script
  PRINTER=$(printerpick) || exit 1`,
	RunE: runPick,
}

func runPick(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	prefs := effectivePreferences(cmd, reg)

	svc, err := newDiscoverer(prefs)
	if err != nil {
		return err
	}

	// stdout carries only the result; the screen lives on stderr.
	lipgloss.SetDefaultRenderer(lipgloss.NewRenderer(os.Stderr))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	model := picker.New(ctx, svc, picker.Options{
		Retry:      retryOptions(prefs),
		Remembered: reg,
	})
	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithOutput(os.Stderr),
		tea.WithContext(ctx),
	)

	finalModel, runErr := program.Run()
	cancel()
	// The session is shared by every copy of the model.
	model.Close(context.Background())

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("picker failed: %w", runErr)
	}

	final, ok := finalModel.(picker.Model)
	if !ok {
		return errNoSelection
	}
	target, name, chosen := final.Result()
	if !chosen {
		if allowEmpty {
			return nil
		}
		return errNoSelection
	}

	rememberSelection(reg, target, name)
	fmt.Fprintln(cmd.OutOrStdout(), target)
	return nil
}

// scanCmd lists printers without interaction
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List printers found within a timeout",
	Long: `Run discovery for a fixed time and list every printer found.

On a terminal the list is shown as a table; otherwise one line per printer
is written as "target<TAB>name<TAB>backend". Found printers are recorded in
the config file.`,
	Example: `  # Scan for the configured time (5 seconds by default)
  printerpick scan

  # Quick 2-second scan
  printerpick scan --timeout 2s

  # Targets only
  printerpick scan | cut -f1`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	prefs := effectivePreferences(cmd, reg)

	timeout := prefs.ScanTimeout
	if cmd.Flags().Changed("timeout") {
		if scanTimeout <= 0 {
			return fmt.Errorf("invalid --timeout %v: must be positive", scanTimeout)
		}
		timeout = scanTimeout
	}

	svc, err := newDiscoverer(prefs)
	if err != nil {
		return err
	}

	out := ui.NewPrinter(cmd.OutOrStdout())
	out.PrintHeader("Printer Scan", "printerpick scan", map[string]string{
		"Timeout":  timeout.String(),
		"Backends": strings.Join(prefs.Backends, ", "),
	})

	progress := ui.NewScanProgress(cmd.ErrOrStderr(), timeout)
	devices, err := scanDevices(cmd.Context(), svc, timeout, retryOptions(prefs), progress.Update)
	progress.Clear()
	if err != nil {
		ui.NewPrinter(cmd.ErrOrStderr()).PrintError("Scan failed", err, []string{
			"Check that at least one backend is usable on this host",
			"USB discovery needs read access to /dev/bus/usb",
		})
		return err
	}

	for _, d := range devices {
		reg.UpdatePrinterSeen(d.Target, d.DeviceName, d.Backend)
	}
	if len(devices) > 0 {
		if err := saveRegistry(reg); err != nil {
			ui.NewPrinter(cmd.ErrOrStderr()).PrintWarning("Could not save config", map[string]string{"Error": err.Error()}, nil)
		}
	}

	out.PrintDevices(devices, reg.IsRemembered)
	return nil
}

// scanDevices runs a session for timeout and returns everything reported,
// in report order. tick is called periodically with the elapsed time and
// the number of devices so far; it may be nil.
func scanDevices(ctx context.Context, d discovery.Discoverer, timeout time.Duration, retry session.RetryOptions, tick func(time.Duration, int)) ([]discovery.DeviceInfo, error) {
	sess := session.New(d,
		session.WithRetry(retry),
		// Failures are returned to the caller; keep them out of the log.
		session.WithNotifier(session.NotifierFunc(func(string, error) {})),
	)
	if err := sess.Open(); err != nil {
		return nil, fmt.Errorf("failed to start discovery: %w", err)
	}
	defer sess.Close(context.Background())

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-sess.Pending():
			sess.Deliver()
		case <-ticker.C:
			if tick != nil {
				tick(time.Since(start), sess.Len())
			}
		case <-ctx.Done():
			sess.Deliver()
			return sess.Devices(), nil
		}
	}
}

// lastCmd prints the last chosen target
var lastCmd = &cobra.Command{
	Use:   "last",
	Short: "Print the last chosen printer target",
	Long: `Print the target of the printer chosen most recently, without running
discovery. Exits with an error if nothing has been chosen yet.`,
	Example: `  printerpick last`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		target, _, ok := reg.LastSelected()
		if !ok {
			return errors.New("no printer has been chosen yet")
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintTarget(target)
		return nil
	},
}

// historyCmd lists remembered printers
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previously chosen printers, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		printHistory(ui.NewPrinter(cmd.OutOrStdout()), rememberedDevices(reg))
		return nil
	},
}

// printHistory prints remembered printers. Plain output stays empty when
// there are none.
func printHistory(out *ui.Printer, devices []discovery.DeviceInfo) {
	if len(devices) == 0 {
		if out.Styled() {
			out.PrintWarning("No remembered printers", nil, []string{
				"Printers are remembered once chosen with 'printerpick'",
				"Use 'printerpick scan' to list printers on the network and USB bus",
			})
		}
		return
	}
	out.PrintDevices(devices, nil)
}

// rememberedDevices returns the registry's chosen printers as device
// entries, most recently chosen first.
func rememberedDevices(reg *config.Registry) []discovery.DeviceInfo {
	targets := reg.RecentTargets()
	devices := make([]discovery.DeviceInfo, 0, len(targets))
	for _, target := range targets {
		p := reg.GetPrinter(target)
		devices = append(devices, discovery.DeviceInfo{
			DeviceName: p.Name,
			Target:     target,
			Backend:    p.Backend,
		})
	}
	return devices
}

// forgetCmd removes a printer from the registry
var forgetCmd = &cobra.Command{
	Use:   "forget <target>",
	Short: "Forget a remembered printer",
	Example: `  printerpick forget TCP:192.168.1.20
  printerpick forget -y USB:/dev/bus/usb/001/004`,
	Args: cobra.ExactArgs(1),
	RunE: runForget,
}

func runForget(cmd *cobra.Command, args []string) error {
	target, err := picker.ParseTarget(args[0])
	if err != nil {
		return err
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	p := reg.GetPrinter(target)
	if p == nil {
		return fmt.Errorf("%s is not remembered", target)
	}

	if !forgetYes {
		details := map[string]string{"Target": target}
		if p.Name != "" {
			details["Name"] = p.Name
		}
		if p.TimesSelected > 0 {
			details["Chosen"] = fmt.Sprintf("%d times", p.TimesSelected)
		}
		prompt := ui.NewPrinter(cmd.ErrOrStderr())
		if !prompt.Confirm(cmd.InOrStdin(), "Forget printer", details, fmt.Sprintf("Forget %s?", target)) {
			return nil
		}
	}

	reg.Forget(target)
	if err := saveRegistry(reg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	ui.NewPrinter(cmd.ErrOrStderr()).PrintSuccess("Forgot "+target, nil)
	return nil
}
