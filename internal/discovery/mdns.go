package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/printerpick/internal/logging"
)

const (
	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// TCPTargetPrefix prefixes network targets
	TCPTargetPrefix = "TCP:"
)

// PrinterServiceTypes are the DNS-SD service types browsed for TypePrinter.
// Raw port 9100 printers advertise _pdl-datastream; LPD and IPP are the
// other common printer advertisements.
var PrinterServiceTypes = []string{"_pdl-datastream._tcp", "_printer._tcp", "_ipp._tcp"}

// AllServiceTypes adds generic HTTP services for TypeAll, which picks up
// printers that only advertise their web configuration page.
var AllServiceTypes = append(append([]string{}, PrinterServiceTypes...), "_http._tcp")

// Namer resolves a display name for a network device.
type Namer interface {
	Name(ctx context.Context, ip string) (string, error)
}

// MDNSBackend discovers network printers via mDNS/DNS-SD.
type MDNSBackend struct {
	// Namer optionally replaces the advertised name (e.g. via SNMP)
	Namer Namer

	// newResolver is replaced in tests
	newResolver func() (browser, error)
}

// browser is the subset of *zeroconf.Resolver used by the backend.
type browser interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// NewMDNSBackend creates an mDNS backend. namer may be nil.
func NewMDNSBackend(namer Namer) *MDNSBackend {
	return &MDNSBackend{
		Namer: namer,
		newResolver: func() (browser, error) {
			return zeroconf.NewResolver(nil)
		},
	}
}

// Name implements Backend
func (b *MDNSBackend) Name() string { return "mdns" }

// Browse implements Backend. Each target is reported at most once per call,
// even when the printer advertises several service types.
func (b *MDNSBackend) Browse(ctx context.Context, filter FilterOption, emit func(DeviceInfo)) error {
	serviceTypes := PrinterServiceTypes
	if filter.DeviceType == TypeAll {
		serviceTypes = AllServiceTypes
	}

	var (
		seenMu sync.Mutex
		seen   = make(map[string]bool)
		errs   []error
		done   []chan struct{}
	)

	report := func(info *DeviceInfo) {
		seenMu.Lock()
		dup := seen[info.Target]
		seen[info.Target] = true
		seenMu.Unlock()
		if !dup {
			emit(*info)
		}
	}

	for _, st := range serviceTypes {
		resolver, err := b.newResolver()
		if err != nil {
			return fmt.Errorf("failed to create mDNS resolver: %w", err)
		}

		entries := make(chan *zeroconf.ServiceEntry)
		consumed := make(chan struct{})

		// zeroconf sends without selecting on ctx and closes entries only
		// after it sees ctx done, so entries is drained until closed.
		go func() {
			defer close(consumed)
			for entry := range entries {
				if ctx.Err() != nil {
					continue
				}
				info := b.parseServiceEntry(entry)
				if info == nil {
					continue
				}
				b.resolveName(ctx, info)
				if ctx.Err() != nil {
					continue
				}
				report(info)
			}
		}()

		logging.Debug("mDNS browse start", zap.String("service", st))
		if err := resolver.Browse(ctx, st, ServiceDomain, entries); err != nil {
			errs = append(errs, fmt.Errorf("browse %s: %w", st, err))
			continue
		}
		done = append(done, consumed)
	}

	<-ctx.Done()
	for _, c := range done {
		<-c
	}

	if len(errs) == len(serviceTypes) {
		return errs[0]
	}
	return nil
}

// resolveName asks the Namer for a better name, keeping the advertised one
// on failure.
func (b *MDNSBackend) resolveName(ctx context.Context, info *DeviceInfo) {
	if b.Namer == nil || info.IPAddress == "" {
		return
	}
	name, err := b.Namer.Name(ctx, info.IPAddress)
	if err != nil {
		logging.Debug("Name lookup failed",
			zap.String("ip", info.IPAddress),
			zap.Error(err),
		)
		return
	}
	if name != "" && name != info.DeviceName {
		info.AdvertisedName = info.DeviceName
		info.DeviceName = name
	}
}

// parseServiceEntry converts a zeroconf service entry to a DeviceInfo.
// Returns nil for entries without an IPv4 address; targets are IPv4 only.
func (b *MDNSBackend) parseServiceEntry(entry *zeroconf.ServiceEntry) *DeviceInfo {
	if entry == nil || len(entry.AddrIPv4) == 0 {
		return nil
	}
	ip := entry.AddrIPv4[0].String()

	txt := parseTXT(entry.Text)

	// "ty" carries make and model per the DNS-SD printing conventions.
	name := txt["ty"]
	if name == "" {
		name = strings.Trim(txt["product"], "()")
	}
	if name == "" {
		name = unescapeInstance(entry.Instance)
	}
	if name == "" {
		name = strings.TrimSuffix(entry.HostName, ".")
	}

	return &DeviceInfo{
		DeviceName: name,
		Target:     TCPTargetPrefix + ip,
		Backend:    b.Name(),
		IPAddress:  ip,
	}
}

// parseTXT splits TXT records in "key=value" format. Keys without a value
// map to the empty string.
func parseTXT(records []string) map[string]string {
	txt := make(map[string]string, len(records))
	for _, record := range records {
		parts := strings.SplitN(record, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else {
			txt[parts[0]] = ""
		}
	}
	return txt
}

// unescapeInstance removes DNS-SD backslash escapes from an instance name.
func unescapeInstance(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
