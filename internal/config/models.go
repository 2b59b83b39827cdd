package config

import (
	"sort"
	"time"
)

// CurrentVersion is the registry file format version.
const CurrentVersion = 1

// Registry represents the entire user configuration file.
type Registry struct {
	Version     int                 `yaml:"version" validate:"eq=1"`
	Printers    map[string]*Printer `yaml:"printers,omitempty" validate:"dive,keys,startswith=TCP:|startswith=USB:,endkeys,required"` // Keyed by target
	Preferences *Preferences        `yaml:"preferences,omitempty" validate:"required"`
}

// Printer is what the registry remembers about one target.
type Printer struct {
	Name          string    `yaml:"name,omitempty"`          // Last reported display name
	Backend       string    `yaml:"backend,omitempty"`       // Backend that last reported it ("manual" for typed targets)
	LastSeen      time.Time `yaml:"last_seen,omitempty"`     // Last discovery time
	LastSelected  time.Time `yaml:"last_selected,omitempty"` // Last time it was picked
	TimesSelected int       `yaml:"times_selected,omitempty" validate:"gte=0"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	ScanTimeout  time.Duration  `yaml:"scan_timeout" validate:"gte=0s"`                   // Duration of `printerpick scan`
	Backends     []string       `yaml:"backends" validate:"dive,oneof=mdns usb"`          // Enabled discovery backends
	NamePrefixes []string       `yaml:"name_prefixes,omitempty" validate:"dive,required"` // Vendor name filter prefixes
	StopRetry    StopRetryPrefs `yaml:"stop_retry"`
	SNMP         SNMPPrefs      `yaml:"snmp"`
	USB          USBPrefs       `yaml:"usb"`
}

// StopRetryPrefs bounds retrying a busy discovery stop.
type StopRetryPrefs struct {
	InitialInterval time.Duration `yaml:"initial_interval" validate:"gte=0s"`
	MaxInterval     time.Duration `yaml:"max_interval" validate:"gte=0s"`
	Timeout         time.Duration `yaml:"timeout" validate:"gte=0s,lte=1m"`
}

// SNMPPrefs controls SNMP model name lookups for network printers.
type SNMPPrefs struct {
	Disabled  bool          `yaml:"disabled,omitempty"`
	Community string        `yaml:"community,omitempty" validate:"max=64"`
	Timeout   time.Duration `yaml:"timeout,omitempty" validate:"gte=0s"`
	Rate      float64       `yaml:"rate,omitempty" validate:"gte=0,lte=100"` // Lookups per second
}

// USBPrefs controls USB polling.
type USBPrefs struct {
	PollInterval time.Duration `yaml:"poll_interval,omitempty" validate:"omitempty,gte=100ms"`
}

// DefaultPreferences returns the preferences used when none are stored.
func DefaultPreferences() *Preferences {
	return &Preferences{
		ScanTimeout:  5 * time.Second,
		Backends:     []string{"mdns", "usb"},
		NamePrefixes: []string{"EPSON", "TM-"},
		StopRetry: StopRetryPrefs{
			InitialInterval: 20 * time.Millisecond,
			MaxInterval:     250 * time.Millisecond,
			Timeout:         5 * time.Second,
		},
		SNMP: SNMPPrefs{
			Community: "public",
			Timeout:   2 * time.Second,
			Rate:      5,
		},
		USB: USBPrefs{
			PollInterval: 2 * time.Second,
		},
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     CurrentVersion,
		Printers:    make(map[string]*Printer),
		Preferences: DefaultPreferences(),
	}
}

// GetPrinter retrieves a remembered printer by target.
// Returns nil if the printer doesn't exist in the registry.
func (r *Registry) GetPrinter(target string) *Printer {
	return r.Printers[target]
}

// EnsurePrinter ensures a printer entry exists in the registry.
// Returns the printer entry (existing or newly created).
func (r *Registry) EnsurePrinter(target string) *Printer {
	if r.Printers == nil {
		r.Printers = make(map[string]*Printer)
	}

	if printer, exists := r.Printers[target]; exists {
		return printer
	}

	printer := &Printer{}
	r.Printers[target] = printer
	return printer
}

// UpdatePrinterSeen records that discovery reported target.
func (r *Registry) UpdatePrinterSeen(target, name, backend string) {
	printer := r.EnsurePrinter(target)
	printer.LastSeen = time.Now()
	if name != "" {
		printer.Name = name
	}
	if backend != "" {
		printer.Backend = backend
	}
}

// RecordSelection records that the user picked target.
func (r *Registry) RecordSelection(target, name string) {
	printer := r.EnsurePrinter(target)
	printer.LastSelected = time.Now()
	printer.TimesSelected++
	if name != "" {
		printer.Name = name
	}
}

// IsRemembered reports whether target has been selected before.
func (r *Registry) IsRemembered(target string) bool {
	printer := r.Printers[target]
	return printer != nil && printer.TimesSelected > 0
}

// LastSelected returns the most recently selected target.
func (r *Registry) LastSelected() (string, *Printer, bool) {
	var (
		bestTarget string
		best       *Printer
	)
	for target, printer := range r.Printers {
		if printer.TimesSelected == 0 {
			continue
		}
		if best == nil || printer.LastSelected.After(best.LastSelected) ||
			(printer.LastSelected.Equal(best.LastSelected) && target < bestTarget) {
			bestTarget, best = target, printer
		}
	}
	return bestTarget, best, best != nil
}

// RecentTargets returns selected targets, most recently selected first.
func (r *Registry) RecentTargets() []string {
	var targets []string
	for target, printer := range r.Printers {
		if printer.TimesSelected > 0 {
			targets = append(targets, target)
		}
	}
	sort.Slice(targets, func(i, j int) bool {
		a, b := r.Printers[targets[i]], r.Printers[targets[j]]
		if !a.LastSelected.Equal(b.LastSelected) {
			return a.LastSelected.After(b.LastSelected)
		}
		return targets[i] < targets[j]
	})
	return targets
}

// Forget removes target from the registry.
func (r *Registry) Forget(target string) bool {
	if _, ok := r.Printers[target]; !ok {
		return false
	}
	delete(r.Printers, target)
	return true
}
