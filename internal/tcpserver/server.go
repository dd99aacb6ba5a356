package tcpserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"

	"github.com/tinytelemetry/usetrack/internal/model"
)

// DefaultMaxLineSize is the default maximum size (in bytes) of a single command line.
const DefaultMaxLineSize = 4 * 1024

// ServerConfig holds tunable parameters for the TCP server.
type ServerConfig struct {
	MaxLineSize int
}

// Server accepts newline-delimited session commands over TCP, one reply
// line per command. It lets instrumented UIs that can only write to a
// socket drive the session:
//
//	test-mode on|off   -> ok
//	start <task name>  -> ok <task id>
//	end                -> ok ended <task name> | ok idle
//	click|error|help   -> ok
//	metrics            -> ok tasks=N time=S clicks=N errors=N help=P
//
// Failures reply "err <message>" and keep the connection open.
type Server struct {
	listener    net.Listener
	addr        string
	api         model.SessionAPI
	maxLineSize int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	stopped bool
}

// NewServer creates a new TCP command server. Default addr is "127.0.0.1:4000".
func NewServer(addr string, api model.SessionAPI, conf ...ServerConfig) *Server {
	if addr == "" {
		addr = "127.0.0.1:4000"
	}
	maxLineSize := DefaultMaxLineSize
	if len(conf) > 0 && conf[0].MaxLineSize > 0 {
		maxLineSize = conf[0].MaxLineSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:        addr,
		api:         api,
		maxLineSize: maxLineSize,
		ctx:         ctx,
		cancel:      cancel,
		conns:       make(map[net.Conn]struct{}),
	}
}

// Start begins accepting TCP connections.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
					continue
				}
			}
			s.mu.Lock()
			if s.stopped {
				s.mu.Unlock()
				conn.Close()
				return
			}
			s.conns[conn] = struct{}{}
			s.mu.Unlock()

			s.wg.Add(1)
			go s.handleConnection(conn)
		}
	}()

	return nil
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 512), s.maxLineSize)
	w := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, err := fmt.Fprintln(w, s.execute(line)); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			log.Printf("tcpserver: dropped connection %s due to line exceeding max size (%d bytes)", conn.RemoteAddr(), s.maxLineSize)
			return
		}
		select {
		case <-s.ctx.Done():
		default:
			log.Printf("tcpserver: scanner error from %s: %v", conn.RemoteAddr(), err)
		}
	}
}

// execute applies one command line and returns the reply line.
func (s *Server) execute(line string) string {
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(verb) {
	case "test-mode":
		var enabled bool
		switch strings.ToLower(arg) {
		case "on":
			enabled = true
		case "off":
		default:
			return "err usage: test-mode on|off"
		}
		if err := s.api.SetTestMode(enabled); err != nil {
			return reply(err)
		}
		return "ok"

	case "start":
		task, err := s.api.StartTask(arg)
		if err != nil {
			return reply(err)
		}
		return "ok " + task.ID

	case "end":
		task, ended, err := s.api.EndTask()
		if err != nil {
			return reply(err)
		}
		if !ended {
			return "ok idle"
		}
		return "ok ended " + task.Name

	case "metrics":
		m, err := s.api.AllMetrics()
		if err != nil {
			return reply(err)
		}
		return fmt.Sprintf("ok tasks=%d time=%d clicks=%d errors=%d help=%.1f",
			m.TaskCount, m.TotalSeconds(), m.TotalClicks, m.TotalErrors, m.HelpUsagePercent)
	}

	kind, ok := model.ParseEventKind(strings.ToLower(verb))
	if !ok {
		return fmt.Sprintf("err unknown command %q", verb)
	}
	if err := s.api.Record(kind); err != nil {
		return reply(err)
	}
	return "ok"
}

func reply(err error) string {
	return "err " + err.Error()
}

// Stop closes the listener and open connections and waits for handlers.
func (s *Server) Stop() error {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Lock()
	s.stopped = true
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// Addr returns the active listen address.
// Before Start, it returns the configured address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
