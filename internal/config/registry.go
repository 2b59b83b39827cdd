package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "printerpick"
	configFile = "config.yaml"

	// Environment overrides applied after loading
	EnvScanTimeout   = "PRINTERPICK_SCAN_TIMEOUT"
	EnvBackends      = "PRINTERPICK_BACKENDS"
	EnvSNMPCommunity = "PRINTERPICK_SNMP_COMMUNITY"
)

var (
	// Global registry instance (loaded lazily)
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
	globalRegistryErr  error

	// Mutex for thread-safe file operations
	fileMutex sync.Mutex
)

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/printerpick or $HOME/.config/printerpick
//   - macOS: $HOME/.config/printerpick (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\printerpick
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// LoadRegistry loads the configuration registry from disk.
// If the file doesn't exist, returns a new default registry.
// Thread-safe - multiple calls will return the same instance.
func LoadRegistry() (*Registry, error) {
	globalRegistryOnce.Do(func() {
		globalRegistry, globalRegistryErr = loadRegistryFromDisk()
	})
	return globalRegistry, globalRegistryErr
}

func loadRegistryFromDisk() (*Registry, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	registry, err := LoadRegistryFile(configPath)
	if err != nil {
		return nil, err
	}
	registry.applyEnvironmentOverrides()
	return registry, nil
}

// LoadRegistryFile loads a registry from path. A missing file yields a new
// default registry. Environment overrides are not applied.
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var registry Registry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if registry.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", registry.Version, CurrentVersion)
	}

	if registry.Printers == nil {
		registry.Printers = make(map[string]*Printer)
	}
	if registry.Preferences == nil {
		registry.Preferences = DefaultPreferences()
	}
	registry.Preferences.setDefaults()

	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &registry, nil
}

// setDefaults fills preferences left empty in the file.
func (p *Preferences) setDefaults() {
	d := DefaultPreferences()
	if p.ScanTimeout == 0 {
		p.ScanTimeout = d.ScanTimeout
	}
	if len(p.Backends) == 0 {
		p.Backends = d.Backends
	}
	if len(p.NamePrefixes) == 0 {
		p.NamePrefixes = d.NamePrefixes
	}
	if p.StopRetry.InitialInterval == 0 {
		p.StopRetry.InitialInterval = d.StopRetry.InitialInterval
	}
	if p.StopRetry.MaxInterval == 0 {
		p.StopRetry.MaxInterval = d.StopRetry.MaxInterval
	}
	if p.StopRetry.Timeout == 0 {
		p.StopRetry.Timeout = d.StopRetry.Timeout
	}
	if p.SNMP.Community == "" {
		p.SNMP.Community = d.SNMP.Community
	}
	if p.SNMP.Timeout == 0 {
		p.SNMP.Timeout = d.SNMP.Timeout
	}
	if p.SNMP.Rate == 0 {
		p.SNMP.Rate = d.SNMP.Rate
	}
	if p.USB.PollInterval == 0 {
		p.USB.PollInterval = d.USB.PollInterval
	}
}

// applyEnvironmentOverrides applies PRINTERPICK_* variables to the preferences.
func (r *Registry) applyEnvironmentOverrides() {
	if v := os.Getenv(EnvScanTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			r.Preferences.ScanTimeout = d
		} else {
			fmt.Fprintf(os.Stderr, "Warning: ignoring %s=%q\n", EnvScanTimeout, v)
		}
	}
	if v := os.Getenv(EnvBackends); v != "" {
		r.Preferences.Backends = SplitList(v)
	}
	if v := os.Getenv(EnvSNMPCommunity); v != "" {
		r.Preferences.SNMP.Community = v
	}
}

// SplitList splits a comma separated list, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Save saves the registry to the default configuration path.
func (r *Registry) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return r.SaveFile(configPath)
}

// SaveFile validates the registry and writes it to path.
// Performs an atomic write to prevent corruption on crash.
func (r *Registry) SaveFile(path string) error {
	if err := r.Validate(); err != nil {
		return err
	}

	fileMutex.Lock()
	defer fileMutex.Unlock()

	// Create directory with user-only permissions (0700)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# printerpick configuration file
# Remembered printers and discovery preferences.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	// Write to temporary file first (atomic write)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}
