package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/printerpick/internal/discovery"
	"github.com/muurk/printerpick/internal/logging"
)

var (
	// ErrNoSuchDevice is returned by Select for an index outside the list.
	ErrNoSuchDevice = errors.New("no such device")

	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
)

// State is the session lifecycle state.
type State int

const (
	// StateIdle means discovery is not running.
	StateIdle State = iota
	// StateDiscovering means discovery was started and not yet stopped.
	StateDiscovering
	// StateClosed is terminal: a device was selected or the session was closed.
	StateClosed
)

// String returns a human-readable name for the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Notifier shows a failed operation to the user. op is "start" or "stop".
type Notifier interface {
	Notify(op string, err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(op string, err error)

// Notify implements Notifier
func (f NotifierFunc) Notify(op string, err error) { f(op, err) }

// logNotifier is used when no Notifier is configured.
type logNotifier struct{}

func (logNotifier) Notify(op string, err error) {
	logging.Warn("Discovery operation failed", zap.String("op", op), zap.Error(err))
}

// Option configures a Session.
type Option func(*Session)

// WithNotifier sets where start and stop failures are reported.
func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithRetry sets the stop retry bounds.
func WithRetry(opts RetryOptions) Option {
	return func(s *Session) {
		s.retry = opts.withDefaults()
	}
}

// WithFilter replaces the default printer filter.
func WithFilter(filter discovery.FilterOption) Option {
	return func(s *Session) {
		f := filter
		s.filter = &f
	}
}

// Session is a single picker screen's view of discovery.
type Session struct {
	discoverer discovery.Discoverer
	notifier   Notifier
	retry      RetryOptions
	mailbox    *mailbox

	// Owned by the owner goroutine.
	filter     *discovery.FilterOption
	state      State
	devices    []discovery.DeviceInfo
	generation uint64
	started    bool // Start succeeded and no Stop has succeeded since
	released   bool
	result     string
	hasResult  bool
}

// New creates a session over d. Discovery is not started until Open.
func New(d discovery.Discoverer, opts ...Option) *Session {
	filter := discovery.NewFilterOption()
	s := &Session{
		discoverer: d,
		notifier:   logNotifier{},
		retry:      DefaultRetryOptions(),
		mailbox:    newMailbox(),
		filter:     &filter,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open starts discovery. A failure is reported to the Notifier and
// returned; the session stays Idle with its list untouched.
func (s *Session) Open() error {
	if s.state == StateClosed {
		return ErrClosed
	}

	generation := s.generation
	listener := func(device discovery.DeviceInfo) {
		s.mailbox.put(event{generation: generation, device: device})
	}

	if err := s.discoverer.Start(*s.filter, listener); err != nil {
		s.notifier.Notify("start", err)
		return err
	}

	s.started = true
	s.state = StateDiscovering
	logging.LogDiscoveryEvent("started",
		zap.Stringer("type", s.filter.DeviceType),
		zap.Stringer("name_filter", s.filter.NameFilter),
	)
	return nil
}

// Pending is signaled when reported devices are waiting for Deliver. It
// may be read from any goroutine.
func (s *Session) Pending() <-chan struct{} {
	return s.mailbox.ready
}

// Deliver appends queued devices to the list in arrival order and returns
// how many were added. Devices from a discovery run that has since been
// restarted are dropped.
func (s *Session) Deliver() int {
	events := s.mailbox.take()
	if s.state == StateClosed {
		return 0
	}

	added := 0
	for _, e := range events {
		if e.generation != s.generation {
			logging.Debug("Dropping device from previous discovery run",
				zap.String("target", e.device.Target),
			)
			continue
		}
		s.devices = append(s.devices, e.device)
		added++
	}
	return added
}

// Stop stops discovery, retrying while it reports ErrProcessing. It
// changes no session state and may be called from any goroutine; the owner
// applies the outcome with CompleteRestart.
func (s *Session) Stop(ctx context.Context) error {
	return stopWithRetry(ctx, s.discoverer, s.retry)
}

// NeedsStop reports whether discovery must be stopped before a restart.
func (s *Session) NeedsStop() bool {
	return s.started
}

// Restart stops discovery and starts it again with an empty list.
func (s *Session) Restart(ctx context.Context) error {
	if s.state == StateClosed {
		return ErrClosed
	}
	var err error
	if s.NeedsStop() {
		err = s.Stop(ctx)
	}
	return s.CompleteRestart(err)
}

// CompleteRestart finishes a restart given the result of Stop. On a stop
// failure the error is reported and the list is left as it was. On success
// the list is cleared before discovery is started again.
func (s *Session) CompleteRestart(stopErr error) error {
	if s.state == StateClosed {
		return ErrClosed
	}
	if stopErr != nil {
		s.notifier.Notify("stop", stopErr)
		return stopErr
	}

	s.started = false
	s.state = StateIdle
	s.devices = nil
	s.generation++
	s.mailbox.take()
	logging.LogDiscoveryEvent("restarted")

	return s.Open()
}

// Select returns the target of the device at index and closes the session.
// Discovery keeps running until Close.
func (s *Session) Select(index int) (string, error) {
	if s.state == StateClosed {
		return "", ErrClosed
	}
	if index < 0 || index >= len(s.devices) {
		return "", fmt.Errorf("%w: index %d of %d", ErrNoSuchDevice, index, len(s.devices))
	}

	s.result = s.devices[index].Target
	s.hasResult = true
	s.state = StateClosed
	logging.LogDiscoveryEvent("selected", zap.String("target", s.result))
	return s.result, nil
}

// Close stops discovery if it is running and releases the filter. Stop
// failures are logged and otherwise ignored. Close is idempotent.
func (s *Session) Close(ctx context.Context) {
	if s.released {
		return
	}
	if s.started {
		if err := s.Stop(ctx); err != nil {
			logging.Debug("Stop on close failed", zap.Error(err))
		} else {
			s.started = false
		}
	}
	s.released = true
	s.filter = nil
	s.devices = nil
	s.state = StateClosed
	s.mailbox.take()
}

// Devices returns a copy of the list in display order.
func (s *Session) Devices() []discovery.DeviceInfo {
	out := make([]discovery.DeviceInfo, len(s.devices))
	copy(out, s.devices)
	return out
}

// Len returns the number of listed devices.
func (s *Session) Len() int {
	return len(s.devices)
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Result returns the selected target, if any.
func (s *Session) Result() (string, bool) {
	return s.result, s.hasResult
}
