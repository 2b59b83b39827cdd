package session

import (
	"sync"

	"github.com/muurk/printerpick/internal/discovery"
)

// event is one device report tagged with the discovery run it belongs to.
type event struct {
	generation uint64
	device     discovery.DeviceInfo
}

// mailbox hands events from discovery goroutines to the owner. put never
// blocks; ready holds at most one wake-up.
type mailbox struct {
	mu    sync.Mutex
	queue []event
	ready chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (m *mailbox) put(e event) {
	m.mu.Lock()
	m.queue = append(m.queue, e)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// take removes and returns every queued event in arrival order.
func (m *mailbox) take() []event {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queue
	m.queue = nil
	return q
}
