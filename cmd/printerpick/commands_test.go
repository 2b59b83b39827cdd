package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/printerpick/internal/config"
	"github.com/muurk/printerpick/internal/discovery"
	"github.com/muurk/printerpick/internal/logging"
	"github.com/muurk/printerpick/internal/session"
	"github.com/muurk/printerpick/internal/ui"
)

// fakeDiscoverer reports its devices from a goroutine once started.
type fakeDiscoverer struct {
	devices  []discovery.DeviceInfo
	startErr error

	mu     sync.Mutex
	stops  int
	filter discovery.FilterOption
}

func (f *fakeDiscoverer) Start(filter discovery.FilterOption, listener discovery.Listener) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.filter = filter
	f.mu.Unlock()
	go func() {
		for _, d := range f.devices {
			listener(d)
		}
	}()
	return nil
}

func (f *fakeDiscoverer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func fastRetry() session.RetryOptions {
	return session.RetryOptions{
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		Timeout:         100 * time.Millisecond,
	}
}

func resetFlags() {
	logLevel = ""
	configPath = ""
	backends = nil
	noSNMP = false
	allowEmpty = false
	scanTimeout = 0
	forgetYes = false
}

// execute runs the root command with args against a config file in a
// temporary directory.
func execute(t *testing.T, cfg, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// seedRegistry writes a registry with two chosen printers.
func seedRegistry(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")

	reg := config.NewRegistry()
	reg.RecordSelection("TCP:192.168.1.20", "EPSON TM-T88VI")
	reg.Printers["TCP:192.168.1.20"].LastSelected = time.Now().Add(-time.Hour)
	reg.RecordSelection("USB:/dev/bus/usb/001/004", "EPSON TM-m30")
	reg.UpdatePrinterSeen("TCP:10.0.0.9", "EPSON TM-T20", "mdns")

	if err := reg.SaveFile(path); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}
	return path
}

func TestNewDiscoverer(t *testing.T) {
	tests := []struct {
		name     string
		backends []string
		wantErr  bool
	}{
		{"both", []string{"mdns", "usb"}, false},
		{"mdns only", []string{"mdns"}, false},
		{"usb only", []string{"usb"}, false},
		{"none", nil, true},
		{"unknown", []string{"bluetooth"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := *config.DefaultPreferences()
			prefs.Backends = tt.backends
			svc, err := newDiscoverer(prefs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newDiscoverer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && svc == nil {
				t.Error("newDiscoverer() returned nil service")
			}
		})
	}
}

func TestEffectivePreferences(t *testing.T) {
	t.Cleanup(resetFlags)

	reg := config.NewRegistry()
	cmd := &cobra.Command{}
	cmd.Flags().StringSliceVar(&backends, "backend", nil, "")

	prefs := effectivePreferences(cmd, reg)
	if len(prefs.Backends) != 2 || prefs.SNMP.Disabled {
		t.Errorf("without flags: Backends = %v, SNMP.Disabled = %v", prefs.Backends, prefs.SNMP.Disabled)
	}

	if err := cmd.Flags().Set("backend", "usb"); err != nil {
		t.Fatal(err)
	}
	noSNMP = true
	prefs = effectivePreferences(cmd, reg)
	if len(prefs.Backends) != 1 || prefs.Backends[0] != "usb" {
		t.Errorf("Backends = %v, want [usb]", prefs.Backends)
	}
	if !prefs.SNMP.Disabled {
		t.Error("SNMP.Disabled = false with --no-snmp")
	}

	// The stored preferences are untouched.
	if len(reg.Preferences.Backends) != 2 || reg.Preferences.SNMP.Disabled {
		t.Errorf("registry preferences modified: %+v", reg.Preferences)
	}
}

func TestRetryOptions(t *testing.T) {
	prefs := *config.DefaultPreferences()
	got := retryOptions(prefs)
	want := session.DefaultRetryOptions()
	if got != want {
		t.Errorf("retryOptions() = %+v, want %+v", got, want)
	}
}

func TestScanDevices(t *testing.T) {
	fake := &fakeDiscoverer{devices: []discovery.DeviceInfo{
		{DeviceName: "EPSON TM-T88VI", Target: "TCP:192.168.1.20", Backend: "mdns"},
		{DeviceName: "EPSON TM-m30", Target: "USB:/dev/bus/usb/001/004", Backend: "usb"},
	}}

	var ticks int
	got, err := scanDevices(context.Background(), fake, 300*time.Millisecond, fastRetry(), func(time.Duration, int) { ticks++ })
	if err != nil {
		t.Fatalf("scanDevices() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("scanDevices() returned %d devices, want 2", len(got))
	}
	if got[0].Target != "TCP:192.168.1.20" || got[1].Target != "USB:/dev/bus/usb/001/004" {
		t.Errorf("scanDevices() order = %v", got)
	}
	if fake.stops != 1 {
		t.Errorf("Stop called %d times, want 1", fake.stops)
	}
	if ticks == 0 {
		t.Error("progress callback never called")
	}
	if fake.filter != discovery.NewFilterOption() {
		t.Errorf("filter = %+v, want printer filter", fake.filter)
	}
}

func TestScanDevicesStartError(t *testing.T) {
	startErr := errors.New("no usable backends")
	fake := &fakeDiscoverer{startErr: startErr}

	_, err := scanDevices(context.Background(), fake, time.Second, fastRetry(), nil)
	if !errors.Is(err, startErr) {
		t.Errorf("scanDevices() error = %v, want %v", err, startErr)
	}
	if fake.stops != 0 {
		t.Errorf("Stop called %d times after failed start, want 0", fake.stops)
	}
}

func TestScanDevicesCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if _, err := scanDevices(ctx, &fakeDiscoverer{}, time.Minute, fastRetry(), nil); err != nil {
		t.Fatalf("scanDevices() error = %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("scanDevices() ignored context cancellation")
	}
}

func TestLastCommand(t *testing.T) {
	cfg := seedRegistry(t)

	stdout, _, err := execute(t, cfg, "", "last")
	if err != nil {
		t.Fatalf("last error = %v", err)
	}
	if stdout != "USB:/dev/bus/usb/001/004\n" {
		t.Errorf("last output = %q, want the most recent target", stdout)
	}
}

func TestLastCommandEmpty(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yaml")

	stdout, _, err := execute(t, cfg, "", "last")
	if err == nil {
		t.Error("last with no history succeeded, want error")
	}
	if stdout != "" {
		t.Errorf("last output = %q, want nothing", stdout)
	}
}

func TestHistoryCommand(t *testing.T) {
	cfg := seedRegistry(t)

	stdout, _, err := execute(t, cfg, "", "history")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	want := "USB:/dev/bus/usb/001/004\tEPSON TM-m30\t\n" +
		"TCP:192.168.1.20\tEPSON TM-T88VI\t\n"
	if stdout != want {
		t.Errorf("history output =\n%q\nwant\n%q", stdout, want)
	}
}

func TestPrintHistoryEmpty(t *testing.T) {
	var plain bytes.Buffer
	printHistory(ui.NewPrinter(&plain), nil)
	if plain.Len() != 0 {
		t.Errorf("plain empty history = %q, want nothing", plain.String())
	}

	var styled bytes.Buffer
	printHistory(ui.NewPrinter(&styled).SetStyled(true), nil)
	out := styled.String()
	if !strings.Contains(out, "No remembered printers") {
		t.Errorf("styled empty history = %q, want a history message", out)
	}
	if strings.Contains(out, "No printers found") || strings.Contains(out, "--timeout") {
		t.Errorf("styled empty history shows scan troubleshooting:\n%s", out)
	}
}

func TestRememberSelection(t *testing.T) {
	t.Cleanup(resetFlags)
	configPath = filepath.Join(t.TempDir(), "config.yaml")

	core, logs := observer.New(zapcore.InfoLevel)
	logging.SetLogger(zap.New(core))
	defer logging.SetLogger(nil)

	reg := config.NewRegistry()
	rememberSelection(reg, "TCP:10.0.0.5", "")

	saved, err := config.LoadRegistryFile(configPath)
	if err != nil {
		t.Fatalf("LoadRegistryFile() error = %v", err)
	}
	p := saved.GetPrinter("TCP:10.0.0.5")
	if p == nil || p.TimesSelected != 1 {
		t.Fatalf("saved printer = %+v, want one selection", p)
	}
	if p.Backend != "manual" {
		t.Errorf("Backend = %q, want manual for a typed target", p.Backend)
	}

	selected := logs.FilterMessage("Printer selected").All()
	if len(selected) != 1 {
		t.Fatalf("Printer selected entries = %d, want 1", len(selected))
	}
	if got := selected[0].ContextMap()["target"]; got != "TCP:10.0.0.5" {
		t.Errorf("target field = %v, want TCP:10.0.0.5", got)
	}
}

func TestForgetCommand(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		stdin      string
		wantErr    bool
		wantForgot bool
	}{
		{"confirmed", []string{"forget", "TCP:192.168.1.20"}, "y\n", false, true},
		{"declined", []string{"forget", "TCP:192.168.1.20"}, "n\n", false, false},
		{"yes flag", []string{"forget", "-y", "tcp:192.168.1.20"}, "", false, true},
		{"bare ip", []string{"forget", "--yes", "192.168.1.20"}, "", false, true},
		{"unknown target", []string{"forget", "-y", "TCP:10.1.1.1"}, "", true, false},
		{"invalid target", []string{"forget", "-y", "printer"}, "", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := seedRegistry(t)

			_, _, err := execute(t, cfg, tt.stdin, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("forget error = %v, wantErr %v", err, tt.wantErr)
			}

			reg, err := config.LoadRegistryFile(cfg)
			if err != nil {
				t.Fatalf("LoadRegistryFile() error = %v", err)
			}
			forgot := reg.GetPrinter("TCP:192.168.1.20") == nil
			if forgot != tt.wantForgot {
				t.Errorf("printer forgotten = %v, want %v", forgot, tt.wantForgot)
			}
			if reg.GetPrinter("USB:/dev/bus/usb/001/004") == nil {
				t.Error("unrelated printer was forgotten")
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yaml")

	stdout, _, err := execute(t, cfg, "", "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(stdout, "printerpick ") {
		t.Errorf("version output = %q", stdout)
	}
}

func TestInvalidConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfg, []byte("version: 1\npreferences:\n  backends: [serial]\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, _, err := execute(t, cfg, "", "last")
	if err == nil || !strings.Contains(err.Error(), "failed to load config") {
		t.Errorf("last error = %v, want a config load error", err)
	}
}
