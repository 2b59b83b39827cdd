package discovery

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/printerpick/internal/logging"
)

// eventBuffer is the capacity of the channel between backends and the
// dispatcher goroutine.
const eventBuffer = 16

// Backend is one source of devices (mDNS, USB, ...).
type Backend interface {
	// Name identifies the backend in logs and DeviceInfo.Backend
	Name() string

	// Browse reports devices through emit until ctx is canceled. It must
	// return promptly once ctx is done.
	Browse(ctx context.Context, filter FilterOption, emit func(DeviceInfo)) error
}

// Checker is implemented by backends that can tell up front whether they are
// usable on this host. Backends failing the check are skipped by Start.
type Checker interface {
	Check() error
}

type serviceState int

const (
	stateIdle serviceState = iota
	stateRunning
	stateStopping
)

// Service implements Discoverer over a set of backends.
type Service struct {
	backends []Backend
	matcher  *NameMatcher

	mu     sync.Mutex
	state  serviceState
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a discovery service. A nil matcher uses the default
// vendor prefixes.
func NewService(matcher *NameMatcher, backends ...Backend) *Service {
	if matcher == nil {
		matcher = NewNameMatcher(nil)
	}
	return &Service{
		backends: backends,
		matcher:  matcher,
	}
}

// Start begins discovery on every usable backend.
func (s *Service) Start(filter FilterOption, listener Listener) error {
	if listener == nil {
		return newError("start", ErrParam, errNilListener)
	}
	if err := filter.Validate(); err != nil {
		return newError("start", ErrParam, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateIdle {
		return newError("start", ErrIllegal, errAlreadyRunning)
	}

	usable, err := s.usableBackends()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan DeviceInfo, eventBuffer)
	done := make(chan struct{})

	var wg sync.WaitGroup
	for _, b := range usable {
		wg.Add(1)
		go func(b Backend) {
			defer wg.Done()
			s.runBackend(ctx, b, filter, events)
		}(b)
	}

	go func() {
		wg.Wait()
		close(events)
	}()

	go func() {
		defer close(done)
		for info := range events {
			// Anything still buffered after Stop is dropped.
			if ctx.Err() != nil {
				continue
			}
			logging.LogDeviceFound(info.Backend, info.DeviceName, info.Target)
			listener(info)
		}
	}()

	s.state = stateRunning
	s.cancel = cancel
	s.done = done

	logging.LogDiscoveryEvent("start",
		zap.Int("backends", len(usable)),
		zap.Stringer("device_type", filter.DeviceType),
		zap.Stringer("name_filter", filter.NameFilter),
	)
	return nil
}

// usableBackends filters out backends whose Check fails.
func (s *Service) usableBackends() ([]Backend, error) {
	if len(s.backends) == 0 {
		return nil, newError("start", ErrUnsupported, errNoBackends)
	}

	var usable []Backend
	var errs []error
	for _, b := range s.backends {
		if c, ok := b.(Checker); ok {
			if err := c.Check(); err != nil {
				logging.Warn("Discovery backend unavailable",
					zap.String("backend", b.Name()),
					zap.Error(err),
				)
				errs = append(errs, err)
				continue
			}
		}
		usable = append(usable, b)
	}

	if len(usable) == 0 {
		return nil, newError("start", ErrUnsupported, errors.Join(errs...))
	}
	return usable, nil
}

// runBackend runs one backend, applying the name filter before handing
// devices to the dispatcher.
func (s *Service) runBackend(ctx context.Context, b Backend, filter FilterOption, events chan<- DeviceInfo) {
	emit := func(info DeviceInfo) {
		if info.Backend == "" {
			info.Backend = b.Name()
		}
		if !s.matcher.Accept(filter, info) {
			logging.Debug("Device rejected by name filter",
				zap.String("backend", b.Name()),
				zap.String("name", info.DeviceName),
			)
			return
		}
		select {
		case events <- info:
		case <-ctx.Done():
		}
	}

	if err := b.Browse(ctx, filter, emit); err != nil && ctx.Err() == nil {
		logging.Warn("Discovery backend failed",
			zap.String("backend", b.Name()),
			zap.Error(err),
		)
	}
}

// Stop cancels discovery. The first call after Start requests shutdown; it
// and any later calls return ErrProcessing until every backend and the
// dispatcher have exited, at which point Stop returns nil and the service
// is idle again.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateIdle:
		return newError("stop", ErrIllegal, errNotRunning)
	case stateRunning:
		s.cancel()
		s.state = stateStopping
	}

	select {
	case <-s.done:
		s.state = stateIdle
		s.cancel = nil
		s.done = nil
		logging.LogDiscoveryEvent("stop")
		return nil
	default:
		return newError("stop", ErrProcessing, errStillStopping)
	}
}

// Running reports whether discovery is started or still stopping.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != stateIdle
}
