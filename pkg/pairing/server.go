package pairing

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/tualatrix/openclaw/pkg/log"
)

// ServerConfig configures the bridge side of the handshake.
type ServerConfig struct {
	// ServerName is reported in hello-ok replies.
	ServerName string

	// Secret seeds HKDF token derivation. Required.
	Secret []byte

	// OpenPairing accepts any hello, token or not, without demanding a
	// pair-request. When false, a hello without a valid token gets
	// error/NOT_PAIRED and must pair.
	OpenPairing bool

	// ReadTimeout bounds each read (default 60s).
	ReadTimeout time.Duration

	// Logger receives protocol events. Nil disables logging.
	Logger log.Logger
}

// Server answers the hello/pair protocol on a listener. It is the
// bridge-side counterpart of Client, used by the bridge simulator and
// in tests.
type Server struct {
	config ServerConfig
	logger log.Logger

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup

	closed bool
}

// NewServer creates a pairing server.
func NewServer(config ServerConfig) *Server {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Server{config: config, logger: logger}
}

// Serve accepts connections on ln until Close is called. It blocks.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("server closed")
	}
	s.ln = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Close stops accepting and waits for in-flight handshakes.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	ln := s.ln
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	s.wg.Wait()
	return err
}

// handleConn runs one handshake. The connection is closed on exit.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReaderSize(conn, maxLineSize)

	hello, ok := s.readHello(conn, reader)
	if !ok {
		return
	}

	if s.config.OpenPairing || s.tokenValid(hello.NodeID, hello.Token) {
		s.writeReply(conn, HelloOK{Type: TypeHelloOK, ServerName: s.config.ServerName})
		return
	}

	code := CodeNotPaired
	if hello.Token != "" {
		code = CodeUnauthorized
	}
	s.writeReply(conn, ErrorMessage{Type: TypeError, Code: code, Message: "pairing required"})

	req, ok := s.readPairRequest(conn, reader)
	if !ok {
		return
	}

	token, err := DeriveToken(s.config.Secret, req.NodeID)
	if err != nil {
		s.writeReply(conn, ErrorMessage{Type: TypeError, Code: "INTERNAL", Message: err.Error()})
		return
	}
	s.writeReply(conn, PairOK{Type: TypePairOK, Token: token})
}

// tokenValid checks a presented token against the derived one.
func (s *Server) tokenValid(nodeID, token string) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	want, err := DeriveToken(s.config.Secret, nodeID)
	if err != nil {
		return false
	}
	return token == want
}

// readHello reads and validates the opening hello.
func (s *Server) readHello(conn net.Conn, reader *bufio.Reader) (*Hello, bool) {
	line, ok := s.readLine(conn, reader)
	if !ok {
		return nil, false
	}

	var hello Hello
	if err := json.Unmarshal(line, &hello); err != nil || hello.Type != TypeHello || hello.NodeID == "" {
		s.writeReply(conn, ErrorMessage{Type: TypeError, Code: "BAD_REQUEST", Message: "expected hello"})
		return nil, false
	}
	return &hello, true
}

// readPairRequest reads and validates the pair-request after a
// NOT_PAIRED/UNAUTHORIZED reply.
func (s *Server) readPairRequest(conn net.Conn, reader *bufio.Reader) (*PairRequest, bool) {
	line, ok := s.readLine(conn, reader)
	if !ok {
		return nil, false
	}

	var req PairRequest
	if err := json.Unmarshal(line, &req); err != nil || req.Type != TypePairRequest || req.NodeID == "" {
		s.writeReply(conn, ErrorMessage{Type: TypeError, Code: "BAD_REQUEST", Message: "expected pair-request"})
		return nil, false
	}
	return &req, true
}

// readLine reads one protocol line under the read deadline.
func (s *Server) readLine(conn net.Conn, reader *bufio.Reader) ([]byte, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

	line, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, false
	}
	s.logLine(conn, line, log.DirectionIn)
	return line, true
}

// writeReply serializes one reply line. Write errors end the handshake;
// the deferred close handles cleanup.
func (s *Server) writeReply(conn net.Conn, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.logLine(conn, data, log.DirectionOut)
	data = append(data, '\n')
	_, _ = conn.Write(data)
}

// logLine emits a message event for one wire line.
func (s *Server) logLine(conn net.Conn, line []byte, dir log.Direction) {
	var header struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(line, &header)

	s.logger.Log(log.Event{
		Timestamp:  time.Now(),
		Direction:  dir,
		Layer:      log.LayerPairing,
		Category:   log.CategoryMessage,
		RemoteAddr: conn.RemoteAddr().String(),
		Message:    log.NewMessageEvent(header.Type, line),
	})
}
