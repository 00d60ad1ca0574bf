package devinbox

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-smtp"

	"github.com/Notifuse/designer/pkg/logger"
)

// ServerConfig configures the dev inbox SMTP listener
type ServerConfig struct {
	Host         string
	Port         int
	Username     string
	PasswordHash string
	Logger       logger.Logger
}

// Server is a local SMTP sink for test sends. It never relays mail.
type Server struct {
	server *smtp.Server
	logger logger.Logger
	addr   string

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a server writing into inbox
func NewServer(cfg ServerConfig, inbox *Inbox) *Server {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	backend := NewBackend(inbox, cfg.Username, cfg.PasswordHash, cfg.Logger)
	s := smtp.NewServer(backend)
	s.Addr = addr
	s.Domain = "designer.local"
	s.ReadTimeout = 10 * time.Second
	s.WriteTimeout = 10 * time.Second
	s.MaxMessageBytes = 10 * 1024 * 1024
	s.MaxRecipients = 50
	// loopback sink without TLS
	s.AllowInsecureAuth = true

	return &Server{server: s, logger: cfg.Logger, addr: addr}
}

// Start listens on the configured address and serves until Shutdown
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Shutdown
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	s.logger.WithField("addr", l.Addr().String()).Info("Dev inbox listening")
	if err := s.server.Serve(l); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
		return fmt.Errorf("dev inbox server error: %w", err)
	}
	return nil
}

// Addr returns the bound address once serving, else the configured one
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown closes the listener and open sessions
func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- s.server.Close()
	}()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			return fmt.Errorf("failed to close dev inbox: %w", err)
		}
		s.logger.Info("Dev inbox shut down")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
