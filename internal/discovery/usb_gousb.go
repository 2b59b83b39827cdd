//go:build cgo && gousb

package discovery

import (
	"github.com/google/gousb"
	"go.uber.org/zap"

	"github.com/muurk/printerpick/internal/logging"
)

func defaultUSBEnumerator() usbEnumerator {
	return gousbEnumerator{}
}

// gousbEnumerator enumerates devices through libusb.
type gousbEnumerator struct{}

type busAddr struct{ bus, addr int }

// Enumerate implements usbEnumerator. Only printers are opened to read their
// string descriptors; devices that cannot be opened (permissions) are still
// listed under their vendor/product IDs.
func (gousbEnumerator) Enumerate() ([]usbDevice, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var found []usbDevice
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		printer := hasPrinterInterface(desc)
		found = append(found, usbDevice{
			Bus:       desc.Bus,
			Address:   desc.Address,
			VendorID:  uint16(desc.Vendor),
			ProductID: uint16(desc.Product),
			Printer:   printer,
		})
		return printer
	})
	if err != nil {
		// OpenDevices reports the last open failure; the descriptors are still usable.
		logging.Debug("USB open failed for some devices", zap.Error(err))
	}

	names := make(map[busAddr][2]string, len(devs))
	for _, dev := range devs {
		manufacturer, _ := dev.Manufacturer()
		product, _ := dev.Product()
		names[busAddr{dev.Desc.Bus, dev.Desc.Address}] = [2]string{manufacturer, product}
		dev.Close()
	}

	for i := range found {
		if n, ok := names[busAddr{found[i].Bus, found[i].Address}]; ok {
			found[i].Manufacturer = n[0]
			found[i].Product = n[1]
		}
	}

	return found, nil
}

// hasPrinterInterface reports whether any interface setting is printer class.
func hasPrinterInterface(desc *gousb.DeviceDesc) bool {
	if desc.Class == gousb.ClassPrinter {
		return true
	}
	for _, cfg := range desc.Configs {
		for _, iface := range cfg.Interfaces {
			for _, alt := range iface.AltSettings {
				if alt.Class == gousb.ClassPrinter {
					return true
				}
			}
		}
	}
	return false
}
