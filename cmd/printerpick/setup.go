package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/printerpick/internal/config"
	"github.com/muurk/printerpick/internal/discovery"
	"github.com/muurk/printerpick/internal/logging"
	"github.com/muurk/printerpick/internal/session"
)

var errNoBackends = errors.New("no discovery backends enabled")

// loadRegistry loads the registry from --config, or from the default
// location with environment overrides applied.
func loadRegistry() (*config.Registry, error) {
	if configPath != "" {
		reg, err := config.LoadRegistryFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return reg, nil
	}
	reg, err := config.LoadRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return reg, nil
}

// saveRegistry writes the registry back where it was loaded from.
func saveRegistry(reg *config.Registry) error {
	if configPath != "" {
		return reg.SaveFile(configPath)
	}
	return reg.Save()
}

// rememberSelection records target as picked. Failing to save is not fatal:
// the selection has already been made.
func rememberSelection(reg *config.Registry, target, name string) {
	reg.RecordSelection(target, name)
	if p := reg.GetPrinter(target); p.Backend == "" && name == "" {
		p.Backend = "manual"
	}
	if err := saveRegistry(reg); err != nil {
		logging.Warn("Failed to save selection", zap.String("target", target), zap.Error(err))
		return
	}
	logging.Info("Printer selected",
		zap.String("target", target),
		zap.Int("times_selected", reg.GetPrinter(target).TimesSelected),
	)
}

// effectivePreferences applies command line flags on top of the stored
// preferences. The registry itself is not modified.
func effectivePreferences(cmd *cobra.Command, reg *config.Registry) config.Preferences {
	prefs := *reg.Preferences
	if cmd.Flags().Changed("backend") {
		prefs.Backends = backends
	}
	if noSNMP {
		prefs.SNMP.Disabled = true
	}
	return prefs
}

// retryOptions converts the stop retry preferences.
func retryOptions(prefs config.Preferences) session.RetryOptions {
	return session.RetryOptions{
		InitialInterval: prefs.StopRetry.InitialInterval,
		MaxInterval:     prefs.StopRetry.MaxInterval,
		Timeout:         prefs.StopRetry.Timeout,
	}
}

// newDiscoverer builds the discovery service for the enabled backends.
func newDiscoverer(prefs config.Preferences) (*discovery.Service, error) {
	var enabled []discovery.Backend
	for _, name := range prefs.Backends {
		switch name {
		case "mdns":
			var namer discovery.Namer
			if !prefs.SNMP.Disabled {
				namer = discovery.NewSNMPNamer(prefs.SNMP.Community, prefs.SNMP.Timeout, prefs.SNMP.Rate)
			}
			enabled = append(enabled, discovery.NewMDNSBackend(namer))
		case "usb":
			enabled = append(enabled, discovery.NewUSBBackend(prefs.USB.PollInterval))
		default:
			return nil, fmt.Errorf("unknown backend %q (valid: mdns, usb)", name)
		}
	}
	if len(enabled) == 0 {
		return nil, errNoBackends
	}

	logging.Debug("Discovery configured",
		zap.Strings("backends", prefs.Backends),
		zap.Bool("snmp", !prefs.SNMP.Disabled),
		zap.Strings("name_prefixes", prefs.NamePrefixes),
	)
	return discovery.NewService(discovery.NewNameMatcher(prefs.NamePrefixes), enabled...), nil
}
