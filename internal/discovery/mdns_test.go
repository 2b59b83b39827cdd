package discovery

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestMDNSBackend_parseServiceEntry(t *testing.T) {
	backend := NewMDNSBackend(nil)

	tests := []struct {
		name       string
		entry      *zeroconf.ServiceEntry
		wantNil    bool
		wantName   string
		wantTarget string
	}{
		{
			name: "ty record wins",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "Front Counter"},
				HostName:      "tm-t88vi.local.",
				AddrIPv4:      []net.IP{net.ParseIP("192.168.90.66")},
				Text:          []string{"txtvers=1", "ty=EPSON TM-T88VI"},
			},
			wantName:   "EPSON TM-T88VI",
			wantTarget: "TCP:192.168.90.66",
		},
		{
			name: "product record without ty",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "Kitchen"},
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
				Text:          []string{"product=(EPSON TM-m30)"},
			},
			wantName:   "EPSON TM-m30",
			wantTarget: "TCP:10.0.0.5",
		},
		{
			name: "escaped instance name",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: `EPSON\ TM-T20III`},
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.6")},
			},
			wantName:   "EPSON TM-T20III",
			wantTarget: "TCP:10.0.0.6",
		},
		{
			name: "hostname fallback",
			entry: &zeroconf.ServiceEntry{
				HostName: "printer42.local.",
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.7")},
			},
			wantName:   "printer42.local",
			wantTarget: "TCP:10.0.0.7",
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "EPSON TM-T20"},
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
			},
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := backend.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if info != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", info)
				}
				return
			}
			if info == nil {
				t.Fatal("parseServiceEntry() = nil, want device")
			}
			if info.DeviceName != tt.wantName {
				t.Errorf("DeviceName = %q, want %q", info.DeviceName, tt.wantName)
			}
			if info.Target != tt.wantTarget {
				t.Errorf("Target = %q, want %q", info.Target, tt.wantTarget)
			}
			if info.Backend != "mdns" {
				t.Errorf("Backend = %q, want mdns", info.Backend)
			}
		})
	}
}

func TestParseTXT(t *testing.T) {
	txt := parseTXT([]string{"ty=EPSON TM-T88VI", "flag", "note=a=b"})

	want := map[string]string{"ty": "EPSON TM-T88VI", "flag": "", "note": "a=b"}
	if len(txt) != len(want) {
		t.Fatalf("parseTXT() has %d entries, want %d", len(txt), len(want))
	}
	for k, v := range want {
		if txt[k] != v {
			t.Errorf("txt[%q] = %q, want %q", k, txt[k], v)
		}
	}
}

// fakeResolver delivers canned entries for one service type and closes the
// channel once the context ends, as zeroconf does.
type fakeResolver struct {
	entries map[string][]*zeroconf.ServiceEntry
	err     error
}

func (f *fakeResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	if f.err != nil {
		go func() {
			<-ctx.Done()
			close(entries)
		}()
		return f.err
	}
	go func() {
		defer close(entries)
		for _, e := range f.entries[service] {
			select {
			case entries <- e:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return nil
}

type fakeNamer struct {
	names map[string]string
}

func (f fakeNamer) Name(ctx context.Context, ip string) (string, error) {
	if name, ok := f.names[ip]; ok {
		return name, nil
	}
	return "", errors.New("no answer")
}

func collect(t *testing.T, backend Backend, filter FilterOption, want int) []DeviceInfo {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var got []DeviceInfo
	done := make(chan error, 1)
	go func() {
		done <- backend.Browse(ctx, filter, func(info DeviceInfo) {
			mu.Lock()
			got = append(got, info)
			mu.Unlock()
		})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= want || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	// Give stray duplicates a chance to show up before cancelling.
	time.Sleep(10 * time.Millisecond)
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Browse() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	return got
}

func TestMDNSBackend_BrowseDeduplicatesAcrossServiceTypes(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "EPSON TM-T88VI"},
		AddrIPv4:      []net.IP{net.ParseIP("192.168.1.50")},
	}
	resolver := &fakeResolver{entries: map[string][]*zeroconf.ServiceEntry{
		"_pdl-datastream._tcp": {entry},
		"_ipp._tcp":            {entry},
	}}

	backend := NewMDNSBackend(nil)
	backend.newResolver = func() (browser, error) { return resolver, nil }

	got := collect(t, backend, NewFilterOption(), 1)
	if len(got) != 1 {
		t.Fatalf("Browse() reported %d devices, want 1", len(got))
	}
	if got[0].Target != "TCP:192.168.1.50" {
		t.Errorf("Target = %v, want TCP:192.168.1.50", got[0].Target)
	}
}

func TestMDNSBackend_BrowseUsesNamer(t *testing.T) {
	resolver := &fakeResolver{entries: map[string][]*zeroconf.ServiceEntry{
		"_printer._tcp": {{
			ServiceRecord: zeroconf.ServiceRecord{Instance: "Receipt Printer"},
			AddrIPv4:      []net.IP{net.ParseIP("192.168.1.60")},
		}},
	}}

	backend := NewMDNSBackend(fakeNamer{names: map[string]string{"192.168.1.60": "EPSON TM-m30II"}})
	backend.newResolver = func() (browser, error) { return resolver, nil }

	got := collect(t, backend, NewFilterOption(), 1)
	if len(got) != 1 || got[0].DeviceName != "EPSON TM-m30II" {
		t.Errorf("devices = %v, want name from namer", got)
	}
}

func TestMDNSBackend_BrowseAllServicesFail(t *testing.T) {
	backend := NewMDNSBackend(nil)
	backend.newResolver = func() (browser, error) {
		return &fakeResolver{err: errors.New("no multicast")}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := backend.Browse(ctx, NewFilterOption(), func(DeviceInfo) {}); err == nil {
		t.Error("Browse() error = nil, want error when every browse fails")
	}
}

func TestMDNSBackend_ResolverCreationFails(t *testing.T) {
	backend := NewMDNSBackend(nil)
	backend.newResolver = func() (browser, error) { return nil, errors.New("socket") }

	err := backend.Browse(context.Background(), NewFilterOption(), func(DeviceInfo) {})
	if err == nil {
		t.Error("Browse() error = nil, want resolver error")
	}
}

// sendingResolver sends every entry without watching ctx and closes the
// channel only after ctx is done, like zeroconf's client loop. active counts
// browse goroutines that have not finished.
type sendingResolver struct {
	entries []*zeroconf.ServiceEntry
	active  *atomic.Int32
}

func (r *sendingResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	r.active.Add(1)
	go func() {
		for _, e := range r.entries {
			entries <- e
		}
		<-ctx.Done()
		r.active.Add(-1)
		close(entries)
	}()
	return nil
}

// blockingNamer answers only once ctx is canceled.
type blockingNamer struct {
	calls atomic.Int32
}

func (n *blockingNamer) Name(ctx context.Context, ip string) (string, error) {
	n.calls.Add(1)
	<-ctx.Done()
	return "", ctx.Err()
}

func TestMDNSBackend_BrowseDrainsEntriesOnCancel(t *testing.T) {
	var active atomic.Int32
	entries := []*zeroconf.ServiceEntry{
		{ServiceRecord: zeroconf.ServiceRecord{Instance: "EPSON TM-T88VI"}, AddrIPv4: []net.IP{net.ParseIP("10.0.0.1")}},
		{ServiceRecord: zeroconf.ServiceRecord{Instance: "EPSON TM-m30"}, AddrIPv4: []net.IP{net.ParseIP("10.0.0.2")}},
		{ServiceRecord: zeroconf.ServiceRecord{Instance: "EPSON TM-T20"}, AddrIPv4: []net.IP{net.ParseIP("10.0.0.3")}},
	}

	for i := 0; i < 20; i++ {
		namer := &blockingNamer{}
		backend := NewMDNSBackend(namer)
		backend.newResolver = func() (browser, error) {
			return &sendingResolver{entries: entries, active: &active}, nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		var reported atomic.Int32
		done := make(chan error, 1)
		go func() {
			done <- backend.Browse(ctx, NewFilterOption(), func(DeviceInfo) { reported.Add(1) })
		}()

		// Cancel while the first lookup holds up each service type.
		deadline := time.Now().Add(2 * time.Second)
		for namer.calls.Load() < int32(len(PrinterServiceTypes)) && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		cancel()

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Browse() error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Browse() did not return after cancel")
		}

		if n := active.Load(); n != 0 {
			t.Fatalf("cycle %d: %d resolver goroutines still sending after Browse returned", i, n)
		}
		if n := reported.Load(); n != 0 {
			t.Errorf("cycle %d: %d devices reported after cancel, want 0", i, n)
		}
	}
}

func TestMDNSBackend_FilterKeepsAdvertisedName(t *testing.T) {
	resolver := &fakeResolver{entries: map[string][]*zeroconf.ServiceEntry{
		"_pdl-datastream._tcp": {{
			ServiceRecord: zeroconf.ServiceRecord{Instance: "Front Counter"},
			AddrIPv4:      []net.IP{net.ParseIP("192.168.1.70")},
			Text:          []string{"ty=EPSON TM-T88VI"},
		}},
	}}

	// The lookup answers with a generic sysDescr the vendor filter rejects.
	backend := NewMDNSBackend(fakeNamer{names: map[string]string{"192.168.1.70": "Network Printer v1.2"}})
	backend.newResolver = func() (browser, error) { return resolver, nil }

	s := NewService(nil, backend)
	r := newRecorder()
	if err := s.Start(NewFilterOption(), r.listener); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer stopEventually(t, s)

	got := r.waitFor(t, 1)
	if got[0].Target != "TCP:192.168.1.70" {
		t.Errorf("Target = %v, want TCP:192.168.1.70", got[0].Target)
	}
	if got[0].DeviceName != "Network Printer v1.2" || got[0].AdvertisedName != "EPSON TM-T88VI" {
		t.Errorf("names = %q / %q, want lookup name and advertised name", got[0].DeviceName, got[0].AdvertisedName)
	}
}
