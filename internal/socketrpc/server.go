package socketrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tinytelemetry/sheetboard/internal/logging"
	"github.com/tinytelemetry/sheetboard/internal/model"
	"go.uber.org/zap"
)

const (
	// scannerInitBufSize is the initial buffer size for the per-connection scanner (1 MB).
	scannerInitBufSize = 1024 * 1024
	// scannerMaxTokenSize is the maximum token size the scanner will accept (10 MB).
	scannerMaxTokenSize = 10 * 1024 * 1024

	defaultCallTimeout = 60 * time.Second
)

// Server exposes a model.Dashboard over a Unix domain socket using JSON-RPC 2.0.
type Server struct {
	socketPath  string
	dash        model.Dashboard
	logger      *zap.Logger
	callTimeout time.Duration
	listener    net.Listener
	wg          sync.WaitGroup
	quit        chan struct{}
}

// NewServer creates a new socket RPC server.
func NewServer(socketPath string, dash model.Dashboard, logger *zap.Logger) *Server {
	return &Server{
		socketPath:  socketPath,
		dash:        dash,
		logger:      logging.OrGlobal(logger).Named("socketrpc"),
		callTimeout: defaultCallTimeout,
		quit:        make(chan struct{}),
	}
}

// Start begins listening on the Unix socket and accepting connections.
func (s *Server) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
		return fmt.Errorf("socketrpc: mkdir: %w", err)
	}

	// Remove a stale socket left by a crashed process.
	if _, err := os.Stat(s.socketPath); err == nil {
		conn, dialErr := net.DialTimeout("unix", s.socketPath, 500*time.Millisecond)
		if dialErr != nil {
			os.Remove(s.socketPath)
		} else {
			conn.Close()
			return fmt.Errorf("socketrpc: another server is already listening on %s", s.socketPath)
		}
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("socketrpc: listen: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("listening", zap.String("socket", s.socketPath))
	return nil
}

// Stop closes the listener, waits for connections to drain, and removes the socket file.
func (s *Server) Stop() {
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				s.logger.Warn("accept failed", zap.Error(err))
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Unblock the scanner on shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.quit:
			conn.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			resp := Response{JSONRPC: "2.0", ID: 0, Error: &RPCError{Code: codeParseError, Message: "parse error"}}
			encoder.Encode(resp)
			continue
		}

		resp := s.dispatch(req)
		if err := encoder.Encode(resp); err != nil {
			s.logger.Debug("write response failed", zap.Error(err))
			return
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	resp := Response{JSONRPC: "2.0", ID: req.ID}

	marshalResult := func(v interface{}, err error) Response {
		if err != nil {
			s.logger.Warn("call failed", zap.String("method", req.Method), zap.Error(err))
			resp.Error = &RPCError{Code: codeApplication, Message: err.Error()}
			return resp
		}
		data, merr := json.Marshal(v)
		if merr != nil {
			resp.Error = &RPCError{Code: codeInternal, Message: merr.Error()}
			return resp
		}
		resp.Result = data
		return resp
	}

	invalidParams := func(err error) Response {
		resp.Error = &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
		return resp
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
	defer cancel()

	switch req.Method {
	case "Overview":
		return marshalResult(s.dash.Overview(ctx))

	case "Requests":
		return marshalResult(s.dash.Requests(ctx))

	case "Errors":
		return marshalResult(s.dash.Errors(ctx))

	case "Metrics":
		var p struct{ Name string }
		if err := json.Unmarshal(req.Params, &p); err != nil && len(req.Params) > 0 {
			return invalidParams(err)
		}
		return marshalResult(s.dash.Metrics(ctx, p.Name))

	case "Refresh":
		return marshalResult(s.dash.Refresh(ctx))

	default:
		resp.Error = &RPCError{Code: codeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
		return resp
	}
}
