package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/zeptools/gw-invoice/svc"
)

const DefaultShutdownTimeout = 15 * time.Second

// Service runs an http.Server until its context is cancelled,
// then shuts it down letting in-flight requests finish within ShutdownTimeout.
type Service struct {
	Ctx             context.Context    // Service Context
	cancel          context.CancelFunc // Service Context CancelFunc
	state           int                // internal service state
	done            chan error         // Shutdown Error Channel
	Server          *http.Server
	ShutdownTimeout time.Duration
	listener        net.Listener
}

// Ensure web.Service implements svc.Service
var _ svc.Service = (*Service)(nil)

func NewService(parentCtx context.Context, addr string, router http.Handler) *Service {
	svcCtx, svcCancel := context.WithCancel(parentCtx)
	return &Service{
		Ctx:             svcCtx,
		cancel:          svcCancel,
		state:           svc.StateREADY,
		done:            make(chan error, 1),
		ShutdownTimeout: DefaultShutdownTimeout,
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Service) Name() string {
	return "WebService"
}

// Start binds the listen address. A bind failure is a bootstrapping error.
func (s *Service) Start() error {
	if s.state != svc.StateREADY {
		return fmt.Errorf("cannot start. not ready")
	}
	ln, err := net.Listen("tcp", s.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen(%q) failed: %w", s.Server.Addr, err)
	}
	s.listener = ln
	s.state = svc.StateRUNNING
	go s.run()
	return nil
}

// Addr is the bound address. Useful with ":0".
func (s *Service) Addr() string {
	if s.listener == nil {
		return s.Server.Addr
	}
	return s.listener.Addr().String()
}

func (s *Service) Stop() {
	s.cancel()
	s.state = svc.StateSTOPPED
	log.Println("[INFO][WEB] service stopped")
}

func (s *Service) Done() <-chan error {
	return s.done
}

func (s *Service) run() {
	serveErr := make(chan error, 1)
	go func() {
		log.Printf("[INFO][WEB] listening on %s ...", s.Addr())
		if err := s.Server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		// server died on its own
		s.done <- err
		return
	case <-s.Ctx.Done():
	}

	log.Printf("[INFO][WEB] shutting down. waiting up to %v for in-flight requests", s.ShutdownTimeout)
	// s.Ctx is already cancelled, so a fresh one bounds the drain
	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()
	// Stop accepting new requests immediately. Requests already being processed get time to finish
	if err := s.Server.Shutdown(ctx); err != nil {
		log.Printf("[ERROR][WEB] server shutdown failed: %v", err)
		s.done <- err
		return
	}
	s.done <- <-serveErr
}
