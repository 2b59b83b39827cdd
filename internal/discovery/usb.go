package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/printerpick/internal/logging"
)

const (
	// USBTargetPrefix prefixes USB targets
	USBTargetPrefix = "USB:"

	// DevfsUSBPath is the base path for USB device nodes
	DevfsUSBPath = "/dev/bus/usb"

	// USBClassPrinter is the USB interface class for printers
	USBClassPrinter = 0x07

	// DefaultUSBPollInterval is how often USB devices are re-enumerated
	DefaultUSBPollInterval = 2 * time.Second
)

var errUSBUnsupported = errors.New("USB enumeration not supported on this platform")

// usbDevice is one enumerated USB device.
type usbDevice struct {
	Bus          int
	Address      int
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
	Printer      bool // has an interface of class USBClassPrinter
}

// Target returns the USB connection target for the device.
func (d usbDevice) Target() string {
	return USBTargetPrefix + DevfsPath(d.Bus, d.Address)
}

// DisplayName returns the best available name for the device.
func (d usbDevice) DisplayName() string {
	manufacturer := strings.TrimSpace(d.Manufacturer)
	product := strings.TrimSpace(d.Product)
	switch {
	case product != "" && manufacturer != "" && !strings.HasPrefix(strings.ToUpper(product), strings.ToUpper(manufacturer)):
		return manufacturer + " " + product
	case product != "":
		return product
	case manufacturer != "":
		return manufacturer
	default:
		return fmt.Sprintf("USB %04x:%04x", d.VendorID, d.ProductID)
	}
}

// DevfsPath formats a /dev/bus/usb/BBB/DDD path from bus and device numbers.
func DevfsPath(bus, address int) string {
	return fmt.Sprintf("%s/%03d/%03d", DevfsUSBPath, bus, address)
}

// usbEnumerator lists USB devices currently attached.
type usbEnumerator interface {
	Enumerate() ([]usbDevice, error)
}

// USBBackend discovers USB printers by polling the bus.
type USBBackend struct {
	// PollInterval is the delay between enumerations
	PollInterval time.Duration

	enumerator usbEnumerator
}

// NewUSBBackend creates a USB backend using the platform enumerator.
func NewUSBBackend(pollInterval time.Duration) *USBBackend {
	if pollInterval <= 0 {
		pollInterval = DefaultUSBPollInterval
	}
	return &USBBackend{
		PollInterval: pollInterval,
		enumerator:   defaultUSBEnumerator(),
	}
}

// Name implements Backend
func (b *USBBackend) Name() string { return "usb" }

// Check implements Checker
func (b *USBBackend) Check() error {
	if b.enumerator == nil {
		return newError("start", ErrUnsupported, errUSBUnsupported)
	}
	return nil
}

// Browse implements Backend. A device is reported once per call, on the
// first poll that sees it.
func (b *USBBackend) Browse(ctx context.Context, filter FilterOption, emit func(DeviceInfo)) error {
	if err := b.Check(); err != nil {
		return err
	}

	seen := make(map[string]bool)
	ticker := time.NewTicker(b.PollInterval)
	defer ticker.Stop()

	for {
		devices, err := b.enumerator.Enumerate()
		if err != nil {
			logging.Debug("USB enumeration failed", zap.Error(err))
		}

		for _, dev := range devices {
			if filter.DeviceType == TypePrinter && !dev.Printer {
				continue
			}
			target := dev.Target()
			if seen[target] {
				continue
			}
			seen[target] = true
			emit(DeviceInfo{
				DeviceName: dev.DisplayName(),
				Target:     target,
				Backend:    b.Name(),
			})
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
