// Package chassis runs the HTTP host: one listener serving the JSON API and
// the MCP streamable endpoint, with security headers and graceful shutdown.
//
// TLS is optional and only enabled when both a cert and a key file are
// configured; the default is plain HTTP on a loopback address.
package chassis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Server is the HTTP chassis.
type Server struct {
	addr     string
	logger   *slog.Logger
	tlsCfg   *tls.Config
	handler  http.Handler
	srv      *http.Server
	boundTo  net.Addr
	mu       sync.Mutex
	started  chan struct{}
	startErr error
}

// Config holds configuration for the chassis server.
type Config struct {
	Addr     string       // Listen address (e.g. "127.0.0.1:8080")
	CertFile string       // optional TLS cert path
	KeyFile  string       // optional TLS key path
	Handler  http.Handler // API + MCP mux
	Logger   *slog.Logger
}

func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Handler == nil {
		return nil, errors.New("chassis: nil handler")
	}

	s := &Server{
		addr:    cfg.Addr,
		logger:  cfg.Logger,
		handler: cfg.Handler,
		started: make(chan struct{}),
	}

	switch {
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load TLS cert: %w", err)
		}
		s.tlsCfg = &tls.Config{
			MinVersion:   tls.VersionTLS13,
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{"h2", "http/1.1"},
		}
		cfg.Logger.Info("TLS: certs loaded", "cert", cfg.CertFile)
	case cfg.CertFile != "" || cfg.KeyFile != "":
		return nil, errors.New("chassis: cert_file and key_file must be set together")
	}
	return s, nil
}

// securityHeaders wraps an http.Handler and adds standard security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// Start listens and serves until ctx is done or the server fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.startErr = fmt.Errorf("listen %s: %w", s.addr, err)
		s.mu.Unlock()
		close(s.started)
		return s.startErr
	}
	proto := "http"
	if s.tlsCfg != nil {
		ln = tls.NewListener(ln, s.tlsCfg)
		proto = "https"
	}
	s.boundTo = ln.Addr()
	s.srv = &http.Server{
		Handler:           securityHeaders(s.handler),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	srv := s.srv
	s.mu.Unlock()
	close(s.started)

	s.logger.Info("chassis started", "addr", s.boundTo.String(), "proto", proto)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Addr returns the bound listen address once Start has listened, or nil.
// It blocks until Start has attempted to listen.
func (s *Server) Addr() net.Addr {
	<-s.started
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundTo
}

// Stop gracefully shuts down the listener, waiting for in-flight requests
// until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv == nil {
		return nil
	}
	s.logger.Info("chassis stopping")
	err := s.srv.Shutdown(ctx)
	s.logger.Info("chassis stopped")
	return err
}
