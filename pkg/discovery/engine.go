package discovery

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/tualatrix/openclaw/pkg/bridge"
	"github.com/tualatrix/openclaw/pkg/identity"
	"github.com/tualatrix/openclaw/pkg/log"
)

// EngineConfig configures the discovery engine.
type EngineConfig struct {
	// ServiceType is the DNS-SD service type to browse.
	// Default: bridge.ServiceType.
	ServiceType string

	// Domains is the fixed set of domains to browse. Default: the
	// local multicast domain only.
	Domains []string

	// Logger receives protocol events. Nil disables logging.
	Logger log.Logger
}

// Engine browses all configured domains, merges and dedupes results
// and republishes a stable sorted endpoint list plus a status string.
//
// All mutations of shared discovery state are serialized behind one
// mutex; browse and resolution callbacks from any goroutine funnel
// through it.
type Engine struct {
	config   EngineConfig
	browser  Browser
	resolver TXTResolver
	local    *identity.Local
	logger   log.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	domains  []*domainSet
	txtCache map[string]*bridge.TXTInfo
	inflight map[string]context.CancelFunc

	endpoints []*bridge.Endpoint
	status    string
	onChange  func(endpoints []*bridge.Endpoint, status string)
}

// domainSet is the independent browse state of one domain.
type domainSet struct {
	domain  string
	state   DomainState
	err     error
	records map[string]*bridge.Endpoint // keyed by stable id
}

// NewEngine creates a discovery engine. The browser and resolver are
// usually the same MDNSBrowser; tests inject fakes. local may be nil
// to disable self-filtering.
func NewEngine(config EngineConfig, browser Browser, resolver TXTResolver, local *identity.Local) *Engine {
	if config.ServiceType == "" {
		config.ServiceType = bridge.ServiceType
	}
	if len(config.Domains) == 0 {
		config.Domains = []string{bridge.DefaultDomain}
	}
	logger := config.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}

	e := &Engine{
		config:   config,
		browser:  browser,
		resolver: resolver,
		local:    local,
		logger:   logger,
		txtCache: make(map[string]*bridge.TXTInfo),
		inflight: make(map[string]context.CancelFunc),
		status:   "Idle",
	}
	for _, domain := range config.Domains {
		e.domains = append(e.domains, &domainSet{
			domain:  domain,
			state:   DomainSetup,
			records: make(map[string]*bridge.Endpoint),
		})
	}

	if local != nil {
		local.OnChange(e.identityChanged)
	}
	return e
}

// OnChange registers the callback fired whenever the visible list or
// status changes. The callback runs outside the engine lock.
func (e *Engine) OnChange(fn func(endpoints []*bridge.Endpoint, status string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// Endpoints returns the current visible list.
func (e *Engine) Endpoints() []*bridge.Endpoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*bridge.Endpoint, len(e.endpoints))
	copy(out, e.endpoints)
	return out
}

// StatusText returns the current human-readable status.
func (e *Engine) StatusText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Start begins browsing every configured domain.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.running = true

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	for _, d := range e.domains {
		added := make(chan *Entry)
		removed := make(chan *Entry)

		if err := e.browser.Browse(ctx, e.config.ServiceType, d.domain, added, removed); err != nil {
			if networkDown(err) {
				e.setDomainStateLocked(d, DomainWaiting, err)
			} else {
				e.setDomainStateLocked(d, DomainFailed, err)
			}
			continue
		}
		e.setDomainStateLocked(d, DomainReady, nil)

		e.wg.Add(1)
		go e.consume(ctx, d, added, removed)
	}

	e.recomputeLocked()
	notify := e.snapshotLocked()
	e.mu.Unlock()

	notify()
	return nil
}

// networkDown reports whether a browse failure means the network is
// not up yet rather than broken. Such domains wait instead of failing,
// so a machine that boots before its link picks up the search once the
// network appears.
func networkDown(err error) bool {
	return errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.ENETDOWN) ||
		errors.Is(err, syscall.EADDRNOTAVAIL)
}

// Stop synchronously cancels all browsers and in-flight resolutions
// and clears buffered state, so a subsequent Start begins clean.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.cancel()
	e.cancel = nil

	// Cancelled resolutions must not deliver afterward: clearing the
	// inflight map is the double-completion guard.
	for id, cancel := range e.inflight {
		cancel()
		delete(e.inflight, id)
	}
	e.mu.Unlock()

	e.wg.Wait()

	e.mu.Lock()
	for _, d := range e.domains {
		d.records = make(map[string]*bridge.Endpoint)
		e.setDomainStateLocked(d, DomainSetup, nil)
	}
	e.txtCache = make(map[string]*bridge.TXTInfo)
	e.endpoints = nil
	e.status = "Idle"
	e.mu.Unlock()
}

// consume drains one domain's browse channels.
func (e *Engine) consume(ctx context.Context, d *domainSet, added, removed <-chan *Entry) {
	defer e.wg.Done()

	for {
		select {
		case entry, ok := <-added:
			if !ok {
				return
			}
			e.entryAdded(ctx, d, entry)

		case entry, ok := <-removed:
			if !ok {
				continue
			}
			e.entryRemoved(d, entry)

		case <-ctx.Done():
			return
		}
	}
}

// entryAdded merges one browse result into the domain's record set and
// schedules an out-of-band TXT resolution when required fields are
// missing.
func (e *Engine) entryAdded(ctx context.Context, d *domainSet, entry *Entry) {
	ep := endpointFromEntry(entry)

	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	d.records[ep.StableID] = ep

	if cached, ok := e.txtCache[ep.StableID]; ok {
		ep = cloneEndpoint(ep)
		ep.Merge(cached)
		d.records[ep.StableID] = ep
	}

	_, resolving := e.inflight[ep.StableID]
	needResolve := !ep.HasResolvedTXT() && !resolving && e.resolver != nil
	if needResolve {
		resolveCtx, cancel := resolveDeadline(ctx)
		e.inflight[ep.StableID] = cancel
		e.wg.Add(1)
		go e.resolveTXT(resolveCtx, ep.StableID, entry)
	}

	e.recomputeLocked()
	notify := e.snapshotLocked()
	e.mu.Unlock()

	notify()
}

// entryRemoved drops a browse result. The TXT side cache is kept: if
// the advertisement comes back, its resolved fields are still valid.
func (e *Engine) entryRemoved(d *domainSet, entry *Entry) {
	stableID := bridge.StableIDFor(entry.Instance, entry.Service, entry.Domain)

	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	delete(d.records, stableID)
	e.recomputeLocked()
	notify := e.snapshotLocked()
	e.mu.Unlock()

	notify()
}

// resolveTXT performs one out-of-band TXT resolution for a stable id.
func (e *Engine) resolveTXT(ctx context.Context, stableID string, entry *Entry) {
	defer e.wg.Done()

	txt, err := e.resolver.LookupTXT(ctx, entry.Instance, entry.Service, entry.Domain)

	e.mu.Lock()
	if _, ok := e.inflight[stableID]; !ok {
		// Cancelled by Stop; deliver nothing.
		e.mu.Unlock()
		return
	}
	cancel := e.inflight[stableID]
	delete(e.inflight, stableID)
	cancel()

	if err != nil {
		// Leave the record as-is; it stays usable with defaults.
		e.mu.Unlock()
		e.logger.Log(log.Event{
			Timestamp: time.Now(),
			Direction: log.DirectionNone,
			Layer:     log.LayerDiscovery,
			Category:  log.CategoryError,
			StableID:  stableID,
			Error: &log.ErrorEventData{
				Message: (&ResolveError{StableID: stableID, Err: err}).Error(),
				Context: "txt-resolve",
			},
		})
		return
	}

	info := bridge.DecodeTXT(txt)
	e.txtCache[stableID] = info

	for _, d := range e.domains {
		if rec, ok := d.records[stableID]; ok {
			merged := cloneEndpoint(rec)
			merged.Merge(info)
			d.records[stableID] = merged
		}
	}

	e.recomputeLocked()
	notify := e.snapshotLocked()
	e.mu.Unlock()

	notify()
}

// identityChanged re-filters the visible list after the slow identity
// pass merged new tokens.
func (e *Engine) identityChanged() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.recomputeLocked()
	notify := e.snapshotLocked()
	e.mu.Unlock()

	notify()
}

// setDomainStateLocked records a domain state transition and logs it.
func (e *Engine) setDomainStateLocked(d *domainSet, state DomainState, err error) {
	if d.state == state && err == nil {
		return
	}
	old := d.state
	d.state = state
	d.err = err

	reason := ""
	if err != nil {
		reason = err.Error()
	}
	e.logger.Log(log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionNone,
		Layer:     log.LayerDiscovery,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   "domain:" + d.domain,
			OldState: old.String(),
			NewState: state.String(),
			Reason:   reason,
		},
	})
}

// recomputeLocked rebuilds the visible list: flatten all domains,
// filter self-records, dedupe by stable id, sort by case-insensitive
// display name. Deterministic given the merged input. Callers hold
// e.mu.
func (e *Engine) recomputeLocked() {
	seen := make(map[string]bool)
	var visible []*bridge.Endpoint

	for _, d := range e.domains {
		ids := make([]string, 0, len(d.records))
		for id := range d.records {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			rec := d.records[id]
			if e.local != nil && e.local.Matches(rec) {
				// Own bridge: stays in per-domain bookkeeping, never
				// in the visible list.
				continue
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			visible = append(visible, cloneEndpoint(rec))
		}
	}

	sort.Slice(visible, func(i, j int) bool {
		a := strings.ToLower(visible[i].DisplayName)
		b := strings.ToLower(visible[j].DisplayName)
		if a != b {
			return a < b
		}
		return visible[i].StableID < visible[j].StableID
	})

	statuses := make([]DomainStatus, 0, len(e.domains))
	for _, d := range e.domains {
		statuses = append(statuses, DomainStatus{Domain: d.domain, State: d.state, Err: d.err})
	}

	e.endpoints = visible
	e.status = StatusText(statuses)
}

// snapshotLocked captures the current list, status and callback so the
// callback can run outside the lock. Callers hold e.mu.
func (e *Engine) snapshotLocked() func() {
	fn := e.onChange
	if fn == nil {
		return func() {}
	}
	eps := make([]*bridge.Endpoint, len(e.endpoints))
	copy(eps, e.endpoints)
	status := e.status
	return func() { fn(eps, status) }
}
