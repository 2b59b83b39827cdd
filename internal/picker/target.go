package picker

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/muurk/printerpick/internal/discovery"
)

var usbPathPattern = regexp.MustCompile(`^/dev/bus/usb/\d{3}/\d{3}$`)

// ParseTarget validates a typed connection target. A bare IPv4 address is
// accepted as a TCP target. Prefixes are case-insensitive.
func ParseTarget(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", errors.New("target is empty")
	}

	upper := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(upper, discovery.TCPTargetPrefix):
		return parseTCPTarget(s[len(discovery.TCPTargetPrefix):])
	case strings.HasPrefix(upper, discovery.USBTargetPrefix):
		path := s[len(discovery.USBTargetPrefix):]
		if !usbPathPattern.MatchString(path) {
			return "", fmt.Errorf("USB target must look like %s", discovery.DevfsPath(1, 2))
		}
		return discovery.USBTargetPrefix + path, nil
	default:
		return parseTCPTarget(s)
	}
}

func parseTCPTarget(host string) (string, error) {
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("%q is not an IPv4 address", host)
	}
	return discovery.TCPTargetPrefix + ip.To4().String(), nil
}
