// Package smtp implements a minimal inbound mail server that stores each
// accepted message through a mailstore.Store.
package smtp

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/shineum/smtp-mailsink/internal/mailstore"
)

// shutdownTimeout is the maximum time to wait for in-flight connections
// during shutdown.
const shutdownTimeout = 30 * time.Second

// DefaultBanner is the greeting banner used when none is configured.
const DefaultBanner = "SampleSMTP"

// ServerConfig holds the configuration for an SMTP server.
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g., "127.0.0.1:2525").
	ListenAddr string

	// Banner is announced in the 220 greeting.
	Banner string

	// Store persists accepted messages. It is shared by all sessions.
	Store mailstore.Store
}

// Server accepts connections and runs one Session per connection.
type Server struct {
	config ServerConfig

	mu       sync.Mutex
	listener net.Listener

	// wg tracks in-flight session goroutines for shutdown.
	wg sync.WaitGroup
}

// New creates a new SMTP Server with the given configuration.
func New(cfg ServerConfig) *Server {
	if cfg.Banner == "" {
		cfg.Banner = DefaultBanner
	}

	return &Server{config: cfg}
}

// ListenAndServe listens on the configured address and serves connections
// until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln, starting a goroutine per connection.
// There is no limit on concurrent sessions. When ctx is cancelled the
// listener is closed and Serve waits up to 30 seconds for in-flight
// sessions before returning; sessions are not interrupted.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	slog.Info("SMTP server listening",
		"addr", ln.Addr().String(),
		"store", s.config.Store.Name(),
	)

	// Monitor context for shutdown
	go func() {
		<-ctx.Done()
		slog.Info("shutting down SMTP server")
		ln.Close()
	}()

	sessionCtx := context.WithoutCancel(ctx)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				// Expected error from listener close during shutdown
				s.waitForSessions()
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				s.waitForSessions()
				return err
			}
			slog.Error("accept error", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			NewSession(conn, s.config.Store, s.config.Banner).Handle(sessionCtx)
		}()
	}
}

// waitForSessions waits for all in-flight sessions to complete,
// with a maximum timeout to prevent indefinite blocking.
func (s *Server) waitForSessions() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("all sessions completed")
	case <-time.After(shutdownTimeout):
		slog.Warn("shutdown timeout reached, leaving sessions running")
	}
}

// Addr returns the listener address, or empty string if not listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
