package network

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/drake/quill/repl"
	"github.com/drake/quill/stream"
)

// SessionFactory builds a fresh session (and namespace) for a
// connection. It is called again after a soft reset, and its cleanup
// function tears the namespace down.
type SessionFactory func(conn stream.Conn) (*repl.Session, func())

// Server accepts TCP connections and runs one REPL session per client.
type Server struct {
	addr    string
	factory SessionFactory
	logger  *log.Logger

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// NewServer creates a console server. logger may be nil for silence.
func NewServer(addr string, factory SessionFactory, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{addr: addr, factory: factory, logger: logger}
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.logger.Printf("console listening on %s", ln.Addr())

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, nc)
		}()
	}
}

// Addr returns the bound address once ListenAndServe is up.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// handle runs sessions on one connection until it closes. A soft reset
// rebuilds the session with a pristine namespace and carries on.
func (s *Server) handle(ctx context.Context, nc net.Conn) {
	id := uuid.NewString()
	conn := newConn(nc)
	defer conn.Close()

	s.logger.Printf("session %s: %s connected", id, nc.RemoteAddr())
	defer s.logger.Printf("session %s: closed", id)

	for {
		sess, cleanup := s.factory(conn)
		err := sess.Run(ctx)
		cleanup()

		if errors.Is(err, repl.ErrResetRequested) {
			s.logger.Printf("session %s: soft reset", id)
			continue
		}
		if err != nil && ctx.Err() == nil {
			s.logger.Printf("session %s: %v", id, err)
		}
		return
	}
}
