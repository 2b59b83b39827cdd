// Package discovery finds connectable printers and reports them through a
// start/stop callback API.
//
// The API mirrors vendor printer SDKs: a caller builds a FilterOption, calls
// Start with a Listener, receives one callback per device, and calls Stop
// when done. Stop may fail with ErrProcessing while backends are still
// winding down; callers retry until it succeeds or fails differently.
//
// # Targets
//
// Every device carries a target string naming its connection method:
//
//	USB:/dev/bus/usb/001/002
//	TCP:192.168.90.66
//
// # Backends
//
// Service fans out to one or more Backend implementations:
//   - MDNSBackend: DNS-SD browsing of printer service types (zeroconf)
//   - USBBackend: periodic enumeration of printer-class USB devices
//     (sysfs, or gousb when built with -tags gousb)
//
// TCP devices can have their names resolved over SNMP (SNMPNamer), which
// helps the name filter when the mDNS instance name is generic.
//
// # Thread Safety
//
// Start and Stop may be called from any goroutine. Listener callbacks are
// made from a single dispatcher goroutine owned by the Service, never from
// the caller's goroutine, and never after Stop has returned nil.
package discovery
