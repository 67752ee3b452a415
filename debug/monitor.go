// Package debug provides runtime monitoring and diagnostics.
package debug

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/drake/quill/repl"
)

// Enabled returns true if debug mode is active (QUILL_DEBUG=1).
func Enabled() bool {
	return os.Getenv("QUILL_DEBUG") == "1"
}

// Monitor periodically logs session statistics when debug mode is
// enabled.
type Monitor struct {
	session  *repl.Session
	interval time.Duration
	ctx      context.Context
	logger   *log.Logger
}

// NewMonitor creates a monitor for the given session.
// If debug mode is not enabled, returns nil.
func NewMonitor(ctx context.Context, s *repl.Session) *Monitor {
	if !Enabled() {
		return nil
	}

	return &Monitor{
		session:  s,
		interval: 5 * time.Second,
		ctx:      ctx,
		logger:   log.New(os.Stderr, "", log.LstdFlags),
	}
}

// Start begins the monitoring loop in a goroutine.
func (m *Monitor) Start() {
	if m == nil {
		return
	}
	go m.run()
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Println("[DEBUG] Monitor started")

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Println("[DEBUG] Monitor stopped")
			return
		case <-ticker.C:
			st := m.session.Stats()
			m.logger.Printf("[DEBUG] lines=%d raw=%d paste_bytes=%d interrupts=%d",
				st.LinesExecuted, st.RawSubmissions, st.RawPasteBytes, st.Interrupts)
		}
	}
}
