package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tualatrix/openclaw/pkg/bridge"
	"github.com/tualatrix/openclaw/pkg/credstore"
	"github.com/tualatrix/openclaw/pkg/log"
)

// ResolverConfig carries the external inputs of endpoint resolution.
type ResolverConfig struct {
	// LocalPort is the gateway control port used in local mode.
	// Default: bridge.DefaultPort.
	LocalPort int

	// TokenOverride is a runtime token override (environment). A
	// trimmed non-empty value wins over the stored device token.
	TokenOverride string

	// PasswordOverride is a runtime password override (environment).
	// A trimmed non-empty value wins over any configured password.
	PasswordOverride string

	// RemotePassword is the configured password for remote mode
	// (gateway.remote.password).
	RemotePassword string

	// LocalPassword is the configured password for local mode
	// (gateway.auth.password).
	LocalPassword string

	// Logger receives state change events. Nil disables logging.
	Logger log.Logger
}

// Resolver owns the process-wide endpoint state. All reads and writes
// are serialized behind its mutex; tunnel I/O happens outside the lock.
type Resolver struct {
	config ResolverConfig
	store  credstore.Store
	tunnel TunnelProvider
	logger log.Logger

	mu      sync.Mutex
	state   State
	subs    map[int]chan State
	nextSub int
}

// NewResolver builds the resolver and computes the initial state from
// the persisted mode plus stored credentials. With no persisted mode
// the state starts unconfigured until onboarding has run, afterwards it
// defaults to local.
func NewResolver(config ResolverConfig, store credstore.Store, tunnel TunnelProvider) *Resolver {
	if config.LocalPort == 0 {
		config.LocalPort = bridge.DefaultPort
	}
	logger := config.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}
	if tunnel == nil {
		tunnel = NoTunnel{}
	}

	r := &Resolver{
		config: config,
		store:  store,
		tunnel: tunnel,
		logger: logger,
		subs:   make(map[int]chan State),
	}
	r.state = r.computeState(r.persistedMode())
	return r
}

// State returns the current endpoint state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Subscribe registers a buffered-newest state stream seeded with the
// current state. A slow consumer only ever sees the latest state.
func (r *Resolver) Subscribe() (id int, ch <-chan State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := make(chan State, 1)
	c <- r.state
	id = r.nextSub
	r.nextSub++
	r.subs[id] = c
	return id, c
}

// Unsubscribe removes a subscriber and closes its channel.
func (r *Resolver) Unsubscribe(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.subs[id]; ok {
		delete(r.subs, id)
		close(c)
	}
}

// SetMode persists the mode and recomputes credentials and state.
func (r *Resolver) SetMode(mode Mode) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store != nil {
		_ = r.store.Set(credstore.KeyConnectionMode, mode.String())
	}
	r.applyLocked(r.computeState(mode))
	return r.state
}

// Refresh re-reads the persisted mode and recomputes the state.
func (r *Resolver) Refresh() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.applyLocked(r.computeState(r.persistedMode()))
	return r.state
}

// EnsureRemoteControlTunnel requests tunnel establishment and
// recomputes the state. Only valid in remote mode.
func (r *Resolver) EnsureRemoteControlTunnel(ctx context.Context) (int, error) {
	r.mu.Lock()
	mode := r.persistedMode()
	r.mu.Unlock()

	if mode != ModeRemote {
		return 0, fmt.Errorf("control tunnel requires remote mode, current mode is %s", mode)
	}

	port, err := r.tunnel.Ensure(ctx)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.applyLocked(r.remoteReadyState(port))
	r.mu.Unlock()
	return port, nil
}

// RequireConfig is the primary consumer entry point. It refreshes the
// state and returns it when ready. In remote mode with no running
// tunnel it makes exactly one tunnel establishment attempt; any other
// unavailable state fails immediately with the stored reason.
//
// Tunnel establishment can block; callers needing bounded latency apply
// their own deadline on ctx.
func (r *Resolver) RequireConfig(ctx context.Context) (State, error) {
	st := r.Refresh()
	if st.Ready {
		return st, nil
	}
	if st.Mode != ModeRemote {
		return st, &EndpointUnavailable{Mode: st.Mode, Reason: st.Reason}
	}

	port, err := r.tunnel.Ensure(ctx)
	if err != nil {
		reason := fmt.Sprintf("%s: %v", st.Reason, err)
		r.mu.Lock()
		r.applyLocked(State{Mode: ModeRemote, Reason: reason})
		failed := r.state
		r.mu.Unlock()
		return failed, &EndpointUnavailable{Mode: ModeRemote, Reason: reason}
	}

	r.mu.Lock()
	r.applyLocked(r.remoteReadyState(port))
	st = r.state
	r.mu.Unlock()
	return st, nil
}

// persistedMode reads the stored connection mode. An absent mode is
// unconfigured until onboarding completed, local afterwards.
func (r *Resolver) persistedMode() Mode {
	if r.store == nil {
		return ModeUnconfigured
	}
	raw, ok := r.store.Get(credstore.KeyConnectionMode)
	if ok && raw != "" {
		return ParseMode(raw)
	}
	if seen, ok := r.store.Get(credstore.KeyOnboardingSeen); ok && seen != "" {
		return ModeLocal
	}
	return ModeUnconfigured
}

// computeState derives the full state for a mode from credentials and
// the tunnel provider's current status.
func (r *Resolver) computeState(mode Mode) State {
	switch mode {
	case ModeLocal:
		return State{
			Ready:    true,
			Mode:     ModeLocal,
			URL:      loopbackURL(r.config.LocalPort),
			Token:    r.token(),
			Password: r.password(ModeLocal),
		}

	case ModeRemote:
		if port, ok := r.tunnel.Running(); ok {
			return r.remoteReadyState(port)
		}
		return State{Mode: ModeRemote, Reason: "remote control tunnel is not running"}

	default:
		return State{Mode: ModeUnconfigured, Reason: "connection mode is not configured"}
	}
}

func (r *Resolver) remoteReadyState(port int) State {
	return State{
		Ready:    true,
		Mode:     ModeRemote,
		URL:      loopbackURL(port),
		Token:    r.token(),
		Password: r.password(ModeRemote),
	}
}

// token resolves the control token: runtime override first, stored
// device-scope token second.
func (r *Resolver) token() string {
	if t := strings.TrimSpace(r.config.TokenOverride); t != "" {
		return t
	}
	if r.store == nil {
		return ""
	}
	t, _ := r.store.Get(credstore.KeyDeviceToken)
	return strings.TrimSpace(t)
}

// password resolves the control password. Blank after trimming counts
// as absent at every level.
func (r *Resolver) password(mode Mode) string {
	if p := strings.TrimSpace(r.config.PasswordOverride); p != "" {
		return p
	}
	switch mode {
	case ModeRemote:
		return strings.TrimSpace(r.config.RemotePassword)
	case ModeLocal:
		return strings.TrimSpace(r.config.LocalPassword)
	default:
		return ""
	}
}

// applyLocked installs a new state and notifies subscribers, but only
// when the state actually changed by value. Callers hold r.mu.
func (r *Resolver) applyLocked(next State) {
	if r.state.Equal(next) {
		return
	}
	old := r.state
	r.state = next

	for _, c := range r.subs {
		// Buffered-newest: drop the stale value before sending.
		select {
		case <-c:
		default:
		}
		c <- next
	}

	r.logger.Log(log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionNone,
		Layer:     log.LayerGateway,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   "resolver",
			OldState: stateLabel(old),
			NewState: stateLabel(next),
			Reason:   next.Reason,
		},
	})
}

func stateLabel(s State) string {
	if s.Ready {
		return "ready/" + s.Mode.String()
	}
	return "unavailable/" + s.Mode.String()
}

func loopbackURL(port int) string {
	return fmt.Sprintf("ws://127.0.0.1:%d", port)
}
