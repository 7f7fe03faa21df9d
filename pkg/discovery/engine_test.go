package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/tualatrix/openclaw/pkg/bridge"
	"github.com/tualatrix/openclaw/pkg/identity"
)

// fakeBrowser hands the engine's channels back to the test so entries
// can be injected per domain.
type fakeBrowser struct {
	mu      sync.Mutex
	added   map[string]chan<- *Entry
	removed map[string]chan<- *Entry
	fail    map[string]error
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		added:   make(map[string]chan<- *Entry),
		removed: make(map[string]chan<- *Entry),
		fail:    make(map[string]error),
	}
}

func (f *fakeBrowser) Browse(ctx context.Context, serviceType, domain string, added, removed chan<- *Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[domain]; err != nil {
		return err
	}
	f.added[domain] = added
	f.removed[domain] = removed
	return nil
}

func (f *fakeBrowser) add(domain string, e *Entry) {
	f.mu.Lock()
	ch := f.added[domain]
	f.mu.Unlock()
	ch <- e
}

func (f *fakeBrowser) remove(domain string, e *Entry) {
	f.mu.Lock()
	ch := f.removed[domain]
	f.mu.Unlock()
	ch <- e
}

// fakeResolver answers TXT lookups from a fixed table.
type fakeResolver struct {
	mu    sync.Mutex
	txt   map[string]bridge.TXTRecordMap
	err   error
	calls map[string]int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		txt:   make(map[string]bridge.TXTRecordMap),
		calls: make(map[string]int),
	}
}

func (f *fakeResolver) LookupTXT(ctx context.Context, instance, serviceType, domain string) (bridge.TXTRecordMap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[instance]++
	if f.err != nil {
		return nil, f.err
	}
	if txt, ok := f.txt[instance]; ok {
		return txt, nil
	}
	return nil, errors.New("no txt record")
}

func entry(instance, domain string, txt ...string) *Entry {
	return &Entry{
		Instance: instance,
		Service:  bridge.ServiceType,
		Domain:   domain,
		Host:     "host.local",
		Port:     bridge.DefaultPort,
		Text:     txt,
	}
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func startEngine(t *testing.T, domains []string, browser Browser, resolver TXTResolver, local *identity.Local) *Engine {
	t.Helper()
	e := NewEngine(EngineConfig{Domains: domains}, browser, resolver, local)
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(e.Stop)
	return e
}

func TestEngineDedupe(t *testing.T) {
	browser := newFakeBrowser()
	e := startEngine(t, []string{"local"}, browser, nil, nil)

	// Same advertisement twice: the list stays at one entry and
	// reflects the most recently merged TXT data.
	browser.add("local", entry("Office Bridge", "local", "lanHost=office.local"))
	waitFor(t, func() bool { return len(e.Endpoints()) == 1 }, "first entry")

	browser.add("local", entry("Office Bridge", "local",
		"lanHost=office.local", "tailnetDns=office.ts.net"))
	waitFor(t, func() bool {
		eps := e.Endpoints()
		return len(eps) == 1 && eps[0].TailnetDNS == "office.ts.net"
	}, "merged re-announcement")
}

func TestEngineDedupesAcrossDomains(t *testing.T) {
	browser := newFakeBrowser()
	e := startEngine(t, []string{"local", "example.ts.net"}, browser, nil, nil)

	// The same instance name in two domains has two distinct stable
	// ids; identical ids only collapse within the same endpoint key.
	browser.add("local", entry("Office Bridge", "local"))
	browser.add("example.ts.net", entry("Office Bridge", "example.ts.net"))

	waitFor(t, func() bool { return len(e.Endpoints()) == 2 }, "both domains")

	a := bridge.StableIDFor("Office Bridge", bridge.ServiceType, "local")
	b := bridge.StableIDFor("Office Bridge", bridge.ServiceType, "example.ts.net")
	if a == b {
		t.Fatal("stable ids should differ across domains")
	}
}

func TestEngineSortsByDisplayName(t *testing.T) {
	browser := newFakeBrowser()
	e := startEngine(t, []string{"local"}, browser, nil, nil)

	browser.add("local", entry("zeta", "local"))
	browser.add("local", entry("Alpha", "local"))
	browser.add("local", entry("beta", "local"))

	waitFor(t, func() bool { return len(e.Endpoints()) == 3 }, "three entries")

	eps := e.Endpoints()
	want := []string{"Alpha", "beta", "zeta"}
	for i, name := range want {
		if eps[i].DisplayName != name {
			t.Errorf("endpoint[%d] = %q, want %q (case-insensitive sort)", i, eps[i].DisplayName, name)
		}
	}
}

func TestEngineRemoval(t *testing.T) {
	browser := newFakeBrowser()
	e := startEngine(t, []string{"local"}, browser, nil, nil)

	browser.add("local", entry("Office Bridge", "local"))
	waitFor(t, func() bool { return len(e.Endpoints()) == 1 }, "entry added")

	browser.remove("local", entry("Office Bridge", "local"))
	waitFor(t, func() bool { return len(e.Endpoints()) == 0 }, "entry removed")
}

func TestEngineIdentityFiltering(t *testing.T) {
	local := identity.NewLocal("ignored-name")
	local.Merge([]string{"my-machine.local"})

	browser := newFakeBrowser()
	e := startEngine(t, []string{"local"}, browser, nil, local)

	browser.add("local", entry("Other Bridge", "local", "lanHost=other.local"))
	browser.add("local", entry("My Bridge", "local", "lanHost=my-machine.local"))

	// Only the foreign bridge becomes visible; the own record stays in
	// internal bookkeeping but never in the published list.
	waitFor(t, func() bool {
		eps := e.Endpoints()
		return len(eps) == 1 && eps[0].LANHost == "other.local"
	}, "self-filtered list")
}

func TestEngineRefiltersOnIdentityChange(t *testing.T) {
	local := identity.NewLocal("ignored-name")

	browser := newFakeBrowser()
	e := startEngine(t, []string{"local"}, browser, nil, local)

	browser.add("local", entry("Some Bridge", "local", "lanHost=late-host.local"))
	waitFor(t, func() bool { return len(e.Endpoints()) == 1 }, "entry visible")

	// The slow identity pass learns the matching host name.
	local.Merge([]string{"late-host.local"})
	waitFor(t, func() bool { return len(e.Endpoints()) == 0 }, "re-filtered list")
}

func TestEngineResolvesMissingTXT(t *testing.T) {
	browser := newFakeBrowser()
	resolver := newFakeResolver()
	resolver.txt["Office Bridge"] = bridge.TXTRecordMap{
		"lanHost":    "office.local",
		"tailnetDns": "office.ts.net",
		"sshPort":    "2222",
	}

	e := startEngine(t, []string{"local"}, browser, resolver, nil)

	browser.add("local", entry("Office Bridge", "local"))

	waitFor(t, func() bool {
		eps := e.Endpoints()
		return len(eps) == 1 && eps[0].HasResolvedTXT() && eps[0].SSHPort == 2222
	}, "out-of-band TXT merge")
}

func TestEngineResolveFailureLeavesRecordUsable(t *testing.T) {
	browser := newFakeBrowser()
	resolver := newFakeResolver()
	resolver.err = errors.New("lookup timeout")

	e := startEngine(t, []string{"local"}, browser, resolver, nil)

	browser.add("local", entry("Office Bridge", "local"))

	waitFor(t, func() bool { return len(e.Endpoints()) == 1 }, "entry visible")
	eps := e.Endpoints()
	if eps[0].SSHPort != bridge.DefaultSSHPort {
		t.Errorf("SSHPort = %d, want default %d", eps[0].SSHPort, bridge.DefaultSSHPort)
	}
}

func TestEngineResolvesOncePerStableID(t *testing.T) {
	browser := newFakeBrowser()
	resolver := newFakeResolver()
	resolver.txt["Office Bridge"] = bridge.TXTRecordMap{
		"lanHost":    "office.local",
		"tailnetDns": "office.ts.net",
	}

	e := startEngine(t, []string{"local"}, browser, resolver, nil)

	browser.add("local", entry("Office Bridge", "local"))
	waitFor(t, func() bool {
		eps := e.Endpoints()
		return len(eps) == 1 && eps[0].HasResolvedTXT()
	}, "resolution")

	// A re-announcement of an already resolved record must not start
	// another lookup: the side cache answers.
	browser.add("local", entry("Office Bridge", "local"))
	waitFor(t, func() bool {
		eps := e.Endpoints()
		return len(eps) == 1 && eps[0].HasResolvedTXT()
	}, "cache merge")

	resolver.mu.Lock()
	calls := resolver.calls["Office Bridge"]
	resolver.mu.Unlock()
	if calls != 1 {
		t.Errorf("LookupTXT calls = %d, want 1", calls)
	}
}

func TestEngineStartStop(t *testing.T) {
	browser := newFakeBrowser()
	e := NewEngine(EngineConfig{Domains: []string{"local"}}, browser, nil, nil)

	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := e.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}

	browser.add("local", entry("Office Bridge", "local"))
	waitFor(t, func() bool { return len(e.Endpoints()) == 1 }, "entry visible")

	e.Stop()
	if got := len(e.Endpoints()); got != 0 {
		t.Errorf("Endpoints() after Stop = %d entries, want 0", got)
	}
	if got := e.StatusText(); got != "Idle" {
		t.Errorf("StatusText() after Stop = %q, want Idle", got)
	}

	// A subsequent start begins clean.
	if err := e.Start(); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	defer e.Stop()
	if got := len(e.Endpoints()); got != 0 {
		t.Errorf("Endpoints() after restart = %d entries, want 0", got)
	}
}

func TestEngineBrowseFailureDegradesToStatus(t *testing.T) {
	browser := newFakeBrowser()
	browser.fail["local"] = errors.New("no multicast route")

	e := NewEngine(EngineConfig{Domains: []string{"local"}}, browser, nil, nil)
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer e.Stop()

	if got := e.StatusText(); got != "Search failed: no multicast route" {
		t.Errorf("StatusText() = %q, want the failure text", got)
	}
}

func TestEngineBrowseNetworkDownWaits(t *testing.T) {
	browser := newFakeBrowser()
	browser.fail["local"] = fmt.Errorf("browse local: %w", syscall.ENETUNREACH)

	e := NewEngine(EngineConfig{Domains: []string{"local"}}, browser, nil, nil)
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer e.Stop()

	if got := e.StatusText(); got != "Waiting for network…" {
		t.Errorf("StatusText() = %q, want the waiting text", got)
	}
}

func TestStatusTextPrecedence(t *testing.T) {
	failed := DomainStatus{Domain: "local", State: DomainFailed, Err: errors.New("boom")}
	waiting := DomainStatus{Domain: "local", State: DomainWaiting}
	ready := DomainStatus{Domain: "local", State: DomainReady}
	setup := DomainStatus{Domain: "local", State: DomainSetup}

	tests := []struct {
		name     string
		statuses []DomainStatus
		want     string
	}{
		{"FailedWins", []DomainStatus{ready, failed, waiting}, "Search failed: boom"},
		{"WaitingBeatsReady", []DomainStatus{ready, waiting}, "Waiting for network…"},
		{"Ready", []DomainStatus{setup, ready}, "Searching…"},
		{"Setup", []DomainStatus{setup}, "Setup"},
		{"Empty", nil, "Idle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusText(tt.statuses); got != tt.want {
				t.Errorf("StatusText() = %q, want %q", got, tt.want)
			}
		})
	}
}
