package engine

import (
	"context"
	"sync"
)

// Interrupt routes external interrupt requests (SIGINT, a control
// channel) to whatever snippet is currently running. Delivery is
// gated: the engine enables it only for the duration of synchronous
// execution, so an interrupt outside that window is dropped rather
// than tearing down the session.
type Interrupt struct {
	mu      sync.Mutex
	enabled bool
	cancel  context.CancelFunc
}

// SetEnabled toggles interrupt delivery.
func (i *Interrupt) SetEnabled(on bool) {
	i.mu.Lock()
	i.enabled = on
	i.mu.Unlock()
}

// Enabled reports whether delivery is currently on.
func (i *Interrupt) Enabled() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.enabled
}

// Trigger requests cancellation of the running snippet. It reports
// whether the interrupt was delivered.
func (i *Interrupt) Trigger() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.enabled || i.cancel == nil {
		return false
	}
	i.cancel()
	return true
}

// arm points delivery at the given cancel function; arm(nil) disarms.
func (i *Interrupt) arm(cancel context.CancelFunc) {
	i.mu.Lock()
	i.cancel = cancel
	i.mu.Unlock()
}
