// Package config provides user configuration management for printerpick.
//
// This package manages a YAML-based configuration file that remembers the
// printers a user has seen and selected, together with discovery
// preferences. The configuration follows OS-specific conventions for
// storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/printerpick/config.yaml or $HOME/.config/printerpick/config.yaml
//   - macOS: $HOME/.config/printerpick/config.yaml
//   - Windows: %LOCALAPPDATA%\printerpick\config.yaml
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.RecordSelection("TCP:192.168.90.66", "EPSON TM-T88VI")
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Validation
//
// Loaded and saved registries are checked with go-playground/validator
// struct tags (see Registry.Validate). Environment variables prefixed with
// PRINTERPICK_ override preferences after loading.
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
