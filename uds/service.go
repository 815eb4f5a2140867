package uds

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/zeptools/gw-invoice/svc"
)

// Service is a line-based admin console on a unix socket.
// `help` and `quit` are built in; everything else comes from Commands.
type Service struct {
	Ctx        context.Context    // Service Context
	cancel     context.CancelFunc // Service Context CancelFunc
	state      int                // internal service state
	done       chan error         // Shutdown Error Channel
	SocketPath string
	Commands   CommandStore
	listener   net.Listener
	conns      sync.WaitGroup
}

// Ensure uds.Service implements svc.Service
var _ svc.Service = (*Service)(nil)

func (s *Service) Name() string {
	return "UDSService"
}

func NewService(parentCtx context.Context, sockPath string, commands CommandStore) *Service {
	svcCtx, svcCancel := context.WithCancel(parentCtx)
	return &Service{
		Ctx:        svcCtx,
		cancel:     svcCancel,
		state:      svc.StateREADY,
		done:       make(chan error, 1),
		SocketPath: sockPath,
		Commands:   commands,
	}
}

// Start the unix socket service in the background.
// Bootstrapping errors are returned immediately.
// Runtime errors are pushed into Done().
func (s *Service) Start() error {
	if s.state != svc.StateREADY {
		return fmt.Errorf("cannot start. not ready")
	}
	// clean up old socket if any
	_ = os.Remove(s.SocketPath)
	listener, err := net.Listen("unix", s.SocketPath)
	if err != nil {
		return fmt.Errorf("listen(%q) failed: %w", s.SocketPath, err)
	}
	s.listener = listener
	// tighten permissions immediately after binding
	if err = os.Chmod(s.SocketPath, 0600); err != nil {
		_ = s.listener.Close()
		_ = os.Remove(s.SocketPath)
		return fmt.Errorf("chmod(%q) failed: %w", s.SocketPath, err)
	}
	s.state = svc.StateRUNNING
	go s.run()
	return nil
}

func (s *Service) Stop() {
	s.cancel()
	s.state = svc.StateSTOPPED
	log.Println("[INFO][UDS] service stopped")
}

func (s *Service) Done() <-chan error {
	return s.done
}

// run - internal run loop
func (s *Service) run() {
	// goroutine to clean up when context is done
	go func() {
		<-s.Ctx.Done()
		log.Printf("[INFO][UDS] stopping")
		if err := s.listener.Close(); err != nil {
			log.Printf("[ERROR][UDS] cannot close listener: %v", err)
		}
		// To avoid TOCTOU race, just try removing before checking if it exists.
		if err := os.Remove(s.SocketPath); err != nil && !os.IsNotExist(err) {
			log.Printf("[ERROR][UDS] cannot remove socket file: %v", err)
		}
	}()

	log.Printf("[INFO][UDS] listening on %q ...", s.SocketPath)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.conns.Wait()
				log.Printf("[INFO][UDS] socket closed")
				s.done <- nil // also a clean shutdown
				return
			}
			// For transient errors, don't kill the loop
			log.Println("[ERROR][UDS] accept failed:", err)
			continue
		}
		s.conns.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Service) handleConn(c net.Conn) {
	defer s.conns.Done()
	stop := context.AfterFunc(s.Ctx, func() { _ = c.Close() })
	defer stop()
	defer func() {
		if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("[ERROR][UDS] closing connection: %v", err)
		}
	}()

	reader := bufio.NewReader(io.LimitReader(c, 1<<20)) // 1 MB max per session
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Printf("[ERROR][UDS] read error: %v", err)
			}
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if !s.Dispatch(args, c) {
			return
		}
	}
}

// Dispatch runs one command line against w. false = the session should end.
func (s *Service) Dispatch(args []string, w io.Writer) bool {
	switch args[0] {
	case "quit":
		return false
	case "help":
		_, _ = fmt.Fprintln(w)
		for _, name := range s.Commands.Names() {
			cmd := s.Commands[name]
			_, _ = fmt.Fprintf(w, "%-24s %s\n", cmd.Usage, cmd.Desc)
		}
		_, _ = fmt.Fprintf(w, "%-24s %s\n%-24s %s\n\n", "help", "list commands", "quit", "close the session")
		return true
	}
	cmd, ok := s.Commands[args[0]]
	if !ok {
		_, _ = fmt.Fprintf(w, "unknown command: %s\n", args[0])
		return true // give another chance
	}
	log.Printf("[INFO][UDS] requested command `%s`", strings.Join(args, " "))
	if err := cmd.Fn(args[1:], w); err != nil {
		_, _ = fmt.Fprintf(w, "error: %v\n", err)
		log.Printf("[WARN][UDS] command `%s` failed: %v", args[0], err)
	}
	return true
}
