package discovery

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SysfsUSBPath is the base path for USB devices in sysfs.
const SysfsUSBPath = "/sys/bus/usb/devices"

// sysfsEnumerator reads USB devices from a Linux sysfs tree. It needs no
// libusb and works in static builds.
type sysfsEnumerator struct {
	root string
}

// Enumerate implements usbEnumerator.
func (e *sysfsEnumerator) Enumerate() ([]usbDevice, error) {
	entries, err := os.ReadDir(e.root)
	if err != nil {
		return nil, err
	}

	var devices []usbDevice
	for _, entry := range entries {
		name := entry.Name()

		// Devices are named like "1-1" or "1-1.2". Root hubs ("usb1") and
		// interfaces ("1-1:1.0") are skipped.
		if strings.HasPrefix(name, "usb") || strings.Contains(name, ":") {
			continue
		}

		dev, err := parseSysfsDevice(filepath.Join(e.root, name))
		if err != nil {
			continue
		}
		devices = append(devices, dev)
	}

	return devices, nil
}

// parseSysfsDevice reads one device directory.
func parseSysfsDevice(path string) (usbDevice, error) {
	var dev usbDevice

	bus, err := readSysfsInt(filepath.Join(path, "busnum"))
	if err != nil {
		return dev, err
	}
	addr, err := readSysfsInt(filepath.Join(path, "devnum"))
	if err != nil {
		return dev, err
	}
	dev.Bus = bus
	dev.Address = addr

	if v, err := readSysfsHex16(filepath.Join(path, "idVendor")); err == nil {
		dev.VendorID = v
	}
	if v, err := readSysfsHex16(filepath.Join(path, "idProduct")); err == nil {
		dev.ProductID = v
	}
	dev.Manufacturer, _ = readSysfsString(filepath.Join(path, "manufacturer"))
	dev.Product, _ = readSysfsString(filepath.Join(path, "product"))

	if class, err := readSysfsHex16(filepath.Join(path, "bDeviceClass")); err == nil && class == USBClassPrinter {
		dev.Printer = true
	}
	if !dev.Printer {
		dev.Printer = hasSysfsPrinterInterface(path)
	}

	return dev, nil
}

// hasSysfsPrinterInterface scans "<dev>:<config>.<iface>" subdirectories.
func hasSysfsPrinterInterface(devicePath string) bool {
	entries, err := os.ReadDir(devicePath)
	if err != nil {
		return false
	}
	prefix := filepath.Base(devicePath) + ":"
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		class, err := readSysfsHex16(filepath.Join(devicePath, entry.Name(), "bInterfaceClass"))
		if err == nil && class == USBClassPrinter {
			return true
		}
	}
	return false
}

func readSysfsString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readSysfsInt(path string) (int, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

func readSysfsHex16(path string) (uint16, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
