package discovery

import "fmt"

// DeviceType restricts discovery to a class of device.
type DeviceType int

const (
	// TypeAll reports every device a backend can see.
	TypeAll DeviceType = iota
	// TypePrinter reports printers only.
	TypePrinter
)

// String returns a human-readable name for the device type
func (t DeviceType) String() string {
	switch t {
	case TypeAll:
		return "all"
	case TypePrinter:
		return "printer"
	default:
		return fmt.Sprintf("DeviceType(%d)", int(t))
	}
}

// NameFilter controls whether devices are filtered by their reported name.
type NameFilter int

const (
	// FilterNone disables name filtering.
	FilterNone NameFilter = iota
	// FilterName only passes devices whose name starts with a known vendor
	// prefix (see NameMatcher).
	FilterName
)

// String returns a human-readable name for the name filter
func (f NameFilter) String() string {
	switch f {
	case FilterNone:
		return "none"
	case FilterName:
		return "name"
	default:
		return fmt.Sprintf("NameFilter(%d)", int(f))
	}
}

// FilterOption is the discovery filter passed to Start. It is a value type;
// a copy is taken by Start so later changes by the caller have no effect on a
// running discovery.
type FilterOption struct {
	DeviceType DeviceType
	NameFilter NameFilter
}

// NewFilterOption returns the filter used by the picker: printers only, with
// the vendor name filter enabled.
func NewFilterOption() FilterOption {
	return FilterOption{
		DeviceType: TypePrinter,
		NameFilter: FilterName,
	}
}

// Validate reports whether the filter holds known values.
func (f FilterOption) Validate() error {
	if f.DeviceType != TypeAll && f.DeviceType != TypePrinter {
		return fmt.Errorf("unknown device type %d", int(f.DeviceType))
	}
	if f.NameFilter != FilterNone && f.NameFilter != FilterName {
		return fmt.Errorf("unknown name filter %d", int(f.NameFilter))
	}
	return nil
}

// DeviceInfo describes a discovered device. It is never modified after it
// has been reported.
type DeviceInfo struct {
	// DeviceName is the display name (e.g., "EPSON TM-T88VI")
	DeviceName string

	// Target is the connection target (e.g., "TCP:192.168.90.66")
	Target string

	// Backend names the backend that found the device ("mdns", "usb")
	Backend string

	// IPAddress is set for network devices
	IPAddress string

	// AdvertisedName is the name the device announced when DeviceName was
	// replaced by a lookup (e.g. SNMP); empty otherwise
	AdvertisedName string
}

// String returns a human-readable representation of the device
func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s (%s)", d.DeviceName, d.Target)
}

// Listener receives one call per discovered device.
type Listener func(DeviceInfo)

// Discoverer is the start/stop discovery API consumed by the picker session.
type Discoverer interface {
	// Start begins discovery with the given filter, reporting devices to
	// listener until Stop succeeds.
	Start(filter FilterOption, listener Listener) error

	// Stop ends discovery. It returns an ErrProcessing error while shutdown
	// is still in progress.
	Stop() error
}
