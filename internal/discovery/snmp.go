package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	// OIDHrDeviceDescr is HOST-RESOURCES-MIB::hrDeviceDescr.1, usually
	// the printer make and model
	OIDHrDeviceDescr = "1.3.6.1.2.1.25.3.2.1.3.1"

	// OIDSysDescr is SNMPv2-MIB::sysDescr.0
	OIDSysDescr = "1.3.6.1.2.1.1.1.0"

	// DefaultSNMPCommunity is the read community used when none is configured
	DefaultSNMPCommunity = "public"

	// DefaultSNMPTimeout bounds a single lookup
	DefaultSNMPTimeout = 2 * time.Second
)

var errNoSNMPName = errors.New("no printable name in SNMP response")

// SNMPClient abstracts gosnmp for testing.
type SNMPClient interface {
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	Close() error
}

// NewSNMPClient is the factory used by SNMPNamer; tests replace it to inject
// fakes.
var NewSNMPClient = func(target, community string, timeout time.Duration) (SNMPClient, error) {
	snmp := &gosnmp.GoSNMP{
		Target:    target,
		Port:      161,
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   timeout,
		Retries:   1,
	}
	if err := snmp.Connect(); err != nil {
		return nil, err
	}
	return &gosnmpWrapper{snmp: snmp}, nil
}

// gosnmpWrapper implements SNMPClient by delegating to gosnmp.GoSNMP.
type gosnmpWrapper struct {
	snmp *gosnmp.GoSNMP
}

func (w *gosnmpWrapper) Get(oids []string) (*gosnmp.SnmpPacket, error) {
	return w.snmp.Get(oids)
}

func (w *gosnmpWrapper) Close() error {
	if w.snmp == nil || w.snmp.Conn == nil {
		return nil
	}
	return w.snmp.Conn.Close()
}

// SNMPNamer looks up printer model names over SNMP. Lookups are rate
// limited, and a circuit breaker stops querying after repeated failures
// (typically a network that drops SNMP entirely).
type SNMPNamer struct {
	Community string
	Timeout   time.Duration

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewSNMPNamer creates a namer allowing perSecond lookups per second.
func NewSNMPNamer(community string, timeout time.Duration, perSecond float64) *SNMPNamer {
	if community == "" {
		community = DefaultSNMPCommunity
	}
	if timeout <= 0 {
		timeout = DefaultSNMPTimeout
	}
	if perSecond <= 0 {
		perSecond = 5
	}
	return &SNMPNamer{
		Community: community,
		Timeout:   timeout,
		limiter:   rate.NewLimiter(rate.Limit(perSecond), 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "snmp-namer",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// Name implements Namer.
func (n *SNMPNamer) Name(ctx context.Context, ip string) (string, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return "", err
	}

	result, err := n.breaker.Execute(func() (interface{}, error) {
		return n.query(ip)
	})
	if err != nil {
		return "", fmt.Errorf("snmp lookup %s: %w", ip, err)
	}
	return result.(string), nil
}

// query fetches the description OIDs and returns the first printable one.
func (n *SNMPNamer) query(ip string) (string, error) {
	client, err := NewSNMPClient(ip, n.Community, n.Timeout)
	if err != nil {
		return "", err
	}
	defer client.Close()

	packet, err := client.Get([]string{OIDHrDeviceDescr, OIDSysDescr})
	if err != nil {
		return "", err
	}

	for _, pdu := range packet.Variables {
		if pdu.Type != gosnmp.OctetString {
			continue
		}
		raw, ok := pdu.Value.([]byte)
		if !ok {
			continue
		}
		if name := cleanSNMPString(raw); name != "" {
			return name, nil
		}
	}
	return "", errNoSNMPName
}

// cleanSNMPString trims NULs and whitespace and keeps the first line.
func cleanSNMPString(raw []byte) string {
	s := strings.TrimRight(string(raw), "\x00")
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
