//go:build !cgo || !gousb

package discovery

import "runtime"

// defaultUSBEnumerator reads sysfs on Linux. Builds with the gousb tag (and
// cgo) use libusb instead.
func defaultUSBEnumerator() usbEnumerator {
	if runtime.GOOS != "linux" {
		return nil
	}
	return &sysfsEnumerator{root: SysfsUSBPath}
}
