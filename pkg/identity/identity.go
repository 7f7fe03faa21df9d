package identity

import (
	"context"
	"net"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/tualatrix/openclaw/pkg/bridge"
)

// Local holds the normalized identity tokens of this device. It is safe
// for concurrent use; the discovery engine reads it from browse
// callbacks while the slow pass may still be merging.
type Local struct {
	mu       sync.RWMutex
	tokens   map[string]struct{}
	onChange func()
}

// NewLocal builds the fast synchronous pass: tokens from the process
// hostname plus an optional user-facing device name. The slow pass is
// started separately via Resolve.
func NewLocal(displayName string) *Local {
	l := &Local{tokens: make(map[string]struct{})}

	if host, err := os.Hostname(); err == nil {
		l.add(host)
	}
	l.add(displayName)

	return l
}

// OnChange registers a callback invoked after the token set grows.
// Used by discovery to re-filter its visible list.
func (l *Local) OnChange(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// Resolve runs the slow pass: the process hostname is resolved to
// addresses and each address reverse-resolved to full host names, all
// of which are merged into the token set. Failures are ignored; the
// token set only ever grows.
func (l *Local) Resolve(ctx context.Context) {
	host, err := os.Hostname()
	if err != nil {
		return
	}

	var found []string
	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err == nil {
		for _, addr := range addrs {
			names, err := net.DefaultResolver.LookupAddr(ctx, addr)
			if err != nil {
				continue
			}
			found = append(found, names...)
		}
	}

	if len(found) == 0 {
		return
	}
	l.Merge(found)
}

// Merge adds tokens for the given raw names and fires the change
// callback when the set grew.
func (l *Local) Merge(names []string) {
	l.mu.Lock()
	grew := false
	for _, name := range names {
		tok := Normalize(name)
		if tok == "" {
			continue
		}
		if _, ok := l.tokens[tok]; !ok {
			l.tokens[tok] = struct{}{}
			grew = true
		}
	}
	fn := l.onChange
	l.mu.Unlock()

	if grew && fn != nil {
		fn()
	}
}

func (l *Local) add(name string) {
	tok := Normalize(name)
	if tok == "" {
		return
	}
	l.tokens[tok] = struct{}{}
}

// Tokens returns the current token set, sorted.
func (l *Local) Tokens() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(l.tokens))
	for tok := range l.tokens {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Matches reports whether a discovered endpoint looks like this
// device's own bridge. Host and display fields require an exact token
// match; the raw service name matches if any host token is contained in
// it, since service names often embed the hostname plus suffixes.
func (l *Local) Matches(e *bridge.Endpoint) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.tokens) == 0 {
		return false
	}

	for _, field := range []string{e.LANHost, e.TailnetDNS, e.DisplayName} {
		if field == "" {
			continue
		}
		if _, ok := l.tokens[Normalize(field)]; ok {
			return true
		}
	}

	if e.ServiceName != "" {
		service := strings.ToLower(e.ServiceName)
		for tok := range l.tokens {
			if strings.Contains(service, tok) {
				return true
			}
		}
	}

	return false
}

// Normalize lowercases a name, strips a trailing ".local" suffix and
// keeps only the first DNS label.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.TrimSuffix(s, ".")
	s = strings.TrimSuffix(s, ".local")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	return s
}
