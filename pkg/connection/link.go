package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tualatrix/openclaw/pkg/gateway"
	"github.com/tualatrix/openclaw/pkg/log"
)

// Link errors.
var (
	ErrLinkClosed       = errors.New("link closed")
	ErrAlreadyConnected = errors.New("already connected")
)

// DialTimeout bounds one connection attempt inside the retry loop.
const DialTimeout = 30 * time.Second

// State represents the control link state.
type State uint8

const (
	// StateDisconnected indicates no active link.
	StateDisconnected State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateConnected indicates an active link.
	StateConnected

	// StateReconnecting indicates automatic reconnection is in progress.
	StateReconnecting

	// StateClosed indicates the link has been shut down.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// DialFunc opens the application connection against a resolved ready
// endpoint. It returns nil once the connection is established; the
// caller reports a later loss via NotifyConnectionLost.
type DialFunc func(ctx context.Context, endpoint gateway.State) error

// ConfigSource yields the configuration each connection attempt uses.
// *gateway.Resolver satisfies it.
type ConfigSource interface {
	RequireConfig(ctx context.Context) (gateway.State, error)
}

// LinkConfig configures a Link.
type LinkConfig struct {
	// Backoff overrides the retry schedule. Nil uses defaults.
	Backoff *Backoff

	// Logger receives link state events. Nil disables logging.
	Logger log.Logger
}

// Link supervises the control connection. Every attempt resolves the
// endpoint afresh through the ConfigSource, so a mode change or a
// re-established tunnel is picked up on the next retry without
// restarting the link.
type Link struct {
	mu sync.RWMutex

	state    State
	source   ConfigSource
	dial     DialFunc
	backoff  *Backoff
	logger   log.Logger
	resolved gateway.State

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	retryCh chan struct{}

	onStateChange func(oldState, newState State)
}

// NewLink creates a control link supervisor. The retry loop is started
// lazily by Connect or NotifyConnectionLost.
func NewLink(source ConfigSource, dial DialFunc, cfg LinkConfig) *Link {
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = NewBackoff()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Link{
		state:   StateDisconnected,
		source:  source,
		dial:    dial,
		backoff: backoff,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		retryCh: make(chan struct{}, 1),
	}

	l.wg.Add(1)
	go l.retryLoop()
	return l
}

// State returns the current link state.
func (l *Link) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Endpoint returns the endpoint state of the last successful dial.
func (l *Link) Endpoint() gateway.State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.resolved
}

// OnStateChange sets a callback for state changes.
func (l *Link) OnStateChange(fn func(oldState, newState State)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onStateChange = fn
}

// Connect makes one synchronous connection attempt: resolve the
// endpoint, then dial it. Retrying after failure is the retry loop's
// job, triggered by NotifyConnectionLost.
func (l *Link) Connect(ctx context.Context) error {
	l.mu.Lock()
	switch l.state {
	case StateConnected:
		l.mu.Unlock()
		return ErrAlreadyConnected
	case StateClosed:
		l.mu.Unlock()
		return ErrLinkClosed
	}
	l.mu.Unlock()

	l.setState(StateConnecting)

	if err := l.attempt(ctx); err != nil {
		l.setState(StateDisconnected)
		return err
	}

	l.backoff.Reset()
	l.setState(StateConnected)
	return nil
}

// NotifyConnectionLost reports that the dialed connection dropped and
// starts background reconnection.
func (l *Link) NotifyConnectionLost() {
	l.mu.Lock()
	if l.state != StateConnected {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	l.setState(StateReconnecting)

	select {
	case l.retryCh <- struct{}{}:
	default:
		// Retry already pending.
	}
}

// Close shuts the link down and waits for the retry loop to exit.
func (l *Link) Close() {
	l.mu.Lock()
	if l.state == StateClosed {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	l.setState(StateClosed)
	l.cancel()
	l.wg.Wait()
}

// attempt resolves the endpoint and dials it once.
func (l *Link) attempt(ctx context.Context) error {
	endpoint, err := l.source.RequireConfig(ctx)
	if err != nil {
		return err
	}
	if err := l.dial(ctx, endpoint); err != nil {
		return err
	}

	l.mu.Lock()
	l.resolved = endpoint
	l.mu.Unlock()
	return nil
}

// retryLoop drains retry triggers and reconnects with backoff.
func (l *Link) retryLoop() {
	defer l.wg.Done()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-l.retryCh:
			l.reconnect()
		}
	}
}

// reconnect retries until connected or closed.
func (l *Link) reconnect() {
	for {
		switch l.State() {
		case StateClosed, StateConnected:
			return
		}

		delay := l.backoff.Next()

		select {
		case <-l.ctx.Done():
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(l.ctx, DialTimeout)
		err := l.attempt(ctx)
		cancel()

		if err == nil {
			l.backoff.Reset()
			l.setState(StateConnected)
			return
		}
		// Failed, loop with the next backoff step.
	}
}

// setState applies a transition, fires the callback and logs it.
func (l *Link) setState(next State) {
	l.mu.Lock()
	old := l.state
	if old == next {
		l.mu.Unlock()
		return
	}
	l.state = next
	fn := l.onStateChange
	l.mu.Unlock()

	if fn != nil {
		fn(old, next)
	}

	l.logger.Log(log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionNone,
		Layer:     log.LayerGateway,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   "link",
			OldState: old.String(),
			NewState: next.String(),
		},
	})
}
