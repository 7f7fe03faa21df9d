package pairing

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tualatrix/openclaw/pkg/log"
)

// Timing defaults for the handshake.
const (
	// DefaultConnectTimeout bounds the TCP connect.
	DefaultConnectTimeout = 8 * time.Second

	// DefaultReadTimeout bounds each read once connected.
	DefaultReadTimeout = 60 * time.Second
)

// maxLineSize bounds a single protocol line.
const maxLineSize = 256 * 1024

// Result is the outcome of one pairing attempt. Failures are carried
// as a value; the handshake never panics on bridge behavior.
type Result struct {
	// OK reports whether the node holds an accepted token.
	OK bool

	// Token is the accepted or freshly issued token.
	Token string

	// Err describes the failure when OK is false. It is one of the
	// typed errors of this package.
	Err error
}

// ClientConfig configures a pairing client.
type ClientConfig struct {
	// ConnectTimeout bounds the TCP connect (default 8s).
	ConnectTimeout time.Duration

	// ReadTimeout bounds each subsequent read (default 60s).
	ReadTimeout time.Duration

	// Logger receives protocol events. Nil disables logging.
	Logger log.Logger
}

// Client performs the hello/pair handshake against a bridge endpoint.
// One call performs one blocking request-response cycle on a fresh
// connection. Calls for the same endpoint+node must be serialized by
// the caller; the protocol has no request ids.
type Client struct {
	config ClientConfig
	logger log.Logger
}

// NewClient creates a pairing client.
func NewClient(config ClientConfig) *Client {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Client{config: config, logger: logger}
}

// PairAndHello connects to addr, sends hello and, when the bridge
// demands it, falls back to pair-request. On success the returned token
// is either the token that was sent (hello-ok path) or the freshly
// issued one (pair-ok path). The socket is always closed before
// returning.
func (c *Client) PairAndHello(ctx context.Context, addr string, hello Hello) Result {
	connID := uuid.New().String()

	dialer := &net.Dialer{Timeout: c.config.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		cerr := &ConnectError{Addr: addr, Err: err}
		c.logError(connID, addr, cerr, "dial")
		return Result{Err: cerr}
	}
	defer conn.Close()

	hello.Type = TypeHello
	session := &lineSession{
		conn:        conn,
		reader:      bufio.NewReaderSize(conn, maxLineSize),
		readTimeout: c.config.ReadTimeout,
		logger:      c.logger,
		connID:      connID,
	}

	if err := session.writeMessage(hello); err != nil {
		return Result{Err: err}
	}

	rep, err := session.readReply()
	if err != nil {
		return Result{Err: err}
	}

	switch rep.Type {
	case TypeHelloOK:
		// The bridge trusted the supplied token; identity is not
		// rotated on every successful hello.
		return Result{OK: true, Token: hello.Token}

	case TypeError:
		if rep.Code != CodeNotPaired && rep.Code != CodeUnauthorized {
			rejected := &PairingRejected{Code: rep.Code, Message: rep.Message}
			c.logError(connID, addr, rejected, "hello")
			return Result{Err: rejected}
		}
		// Fall through to pairing.

	default:
		perr := &ProtocolError{}
		c.logError(connID, addr, perr, "hello")
		return Result{Err: perr}
	}

	if err := session.writeMessage(pairRequestFrom(hello)); err != nil {
		return Result{Err: err}
	}

	for {
		rep, err := session.readReply()
		if err != nil {
			var perr *ProtocolError
			if errors.As(err, &perr) && perr.Reason == "" {
				// Stream ended before pair-ok or error.
				c.logError(connID, addr, ErrPairingIncomplete, "pair-request")
				return Result{Err: ErrPairingIncomplete}
			}
			return Result{Err: err}
		}

		switch rep.Type {
		case TypePairOK:
			if strings.TrimSpace(rep.Token) == "" {
				c.logError(connID, addr, ErrPairingIncomplete, "pair-ok")
				return Result{Err: ErrPairingIncomplete}
			}
			return Result{OK: true, Token: rep.Token}

		case TypeError:
			rejected := &PairingRejected{Code: rep.Code, Message: rep.Message}
			c.logError(connID, addr, rejected, "pair-request")
			return Result{Err: rejected}
		}
		// Any other message type while waiting: keep reading.
	}
}

// logError emits an error event.
func (c *Client) logError(connID, addr string, err error, context string) {
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionNone,
		Layer:        log.LayerPairing,
		Category:     log.CategoryError,
		RemoteAddr:   addr,
		Error:        &log.ErrorEventData{Message: err.Error(), Context: context},
	})
}

// lineSession wraps one connection's line-delimited JSON exchange.
type lineSession struct {
	conn        net.Conn
	reader      *bufio.Reader
	readTimeout time.Duration
	logger      log.Logger
	connID      string
}

// writeMessage serializes one message followed by a newline.
func (s *lineSession) writeMessage(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return &ProtocolError{Reason: "encode message: " + err.Error()}
	}

	s.logMessage(data, log.DirectionOut)

	data = append(data, '\n')
	if _, err := s.conn.Write(data); err != nil {
		return &ConnectError{Addr: s.conn.RemoteAddr().String(), Err: err}
	}
	return nil
}

// readReply reads exactly one JSON object line. A bare ProtocolError
// (empty Reason) signals end of stream or an unparsable reply.
func (s *lineSession) readReply() (*reply, error) {
	_ = s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))

	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if len(line) == 0 && errors.Is(err, io.EOF) {
			return nil, &ProtocolError{}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &ProtocolError{}
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, &ConnectError{Addr: s.conn.RemoteAddr().String(), Err: err}
		}
		return nil, &ConnectError{Addr: s.conn.RemoteAddr().String(), Err: err}
	}

	var rep reply
	if err := json.Unmarshal(line, &rep); err != nil || rep.Type == "" {
		return nil, &ProtocolError{}
	}

	s.logMessage(line, log.DirectionIn)
	return &rep, nil
}

// logMessage emits a message event for one wire line.
func (s *lineSession) logMessage(line []byte, dir log.Direction) {
	var header struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(line, &header)

	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Direction:    dir,
		Layer:        log.LayerPairing,
		Category:     log.CategoryMessage,
		RemoteAddr:   s.conn.RemoteAddr().String(),
		Message:      log.NewMessageEvent(header.Type, line),
	})
}
