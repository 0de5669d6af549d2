package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"
)

const maxLineBytes = 1024 * 1024

// TCPServer serves line-delimited JSON-RPC: one message per line in each direction.
type TCPServer struct {
	addr       string
	dispatcher *Dispatcher
	logger     *slog.Logger

	ln     net.Listener
	mu     sync.Mutex
	closed bool
	conns  sync.WaitGroup
}

func NewTCPServer(addr string, dispatcher *Dispatcher, logger *slog.Logger) *TCPServer {
	return &TCPServer{addr: addr, dispatcher: dispatcher, logger: logger}
}

func (s *TCPServer) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *TCPServer) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("mcp tcp server starting", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			s.logger.Error("mcp accept error", "error", err)
			continue
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConn(conn)
		}()
	}
}

// Shutdown stops accepting and waits for open connections until ctx ends.
func (s *TCPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return err
}

// lineWriter serialises writes from concurrent calls on one connection.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) write(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	data = append(data, '\n')
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.w.Write(data)
}

func (s *TCPServer) handleConn(conn net.Conn) {
	defer conn.Close()
	ctx, cancel := context.WithCancel(withSessionID(context.Background(), uuid.NewString()))
	defer cancel()

	out := &lineWriter{w: conn}
	notify := func(_ context.Context, method string, params any) {
		out.write(notification{JSONRPC: jsonRPCVersion, Method: method, Params: params})
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var calls sync.WaitGroup
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			out.write(parseError())
			continue
		}

		calls.Add(1)
		go func() {
			defer calls.Done()
			if resp, ok := s.dispatcher.Handle(ctx, req, notify); ok {
				out.write(resp)
			}
		}()
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("mcp connection closed", "remote", conn.RemoteAddr().String(), "error", err)
	}
	// The peer is gone; in-flight calls are cancelled before waiting for them.
	cancel()
	calls.Wait()
}
