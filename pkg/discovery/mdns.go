package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"

	"github.com/tualatrix/openclaw/pkg/bridge"
)

// MDNSBrowser implements the Browser and TXTResolver interfaces using
// zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	return &MDNSBrowser{config: config}
}

// Browse streams results for serviceType in domain until ctx is
// cancelled. Entries from multiple interfaces are aggregated by
// instance name with their addresses merged; an instance is reported
// removed once its last address disappears.
func (b *MDNSBrowser) Browse(ctx context.Context, serviceType, domain string, added, removed chan<- *Entry) error {
	entries := make(chan *zeroconf.ServiceEntry)
	removals := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	go aggregateEntries(ctx, serviceType, domain, entries, removals, added, removed)

	go func() {
		_ = zeroconf.Browse(ctx, serviceType, domain, entries, removals, opts...)
	}()

	return nil
}

// aggregateEntries tracks browse results by instance name, merging
// addresses and TXT data across interfaces. An Entry is immutable once
// sent: a re-announcement builds a fresh merged Entry and re-delivers
// it on added, so the consumer never observes a mutation and late TXT
// data is not lost.
func aggregateEntries(ctx context.Context, serviceType, domain string, entries, removals <-chan *zeroconf.ServiceEntry, added, removed chan<- *Entry) {
	seen := make(map[string]*Entry)

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			e := entryFromZeroconf(entry, serviceType, domain)

			if existing, found := seen[e.Instance]; found {
				e.Addrs = mergeAddresses(append([]string(nil), existing.Addrs...), e.Addrs)
				if len(e.Text) == 0 {
					e.Text = existing.Text
				}
				if e.Host == "" {
					e.Host = existing.Host
				}
				if e.Port == 0 {
					e.Port = existing.Port
				}
			}
			seen[e.Instance] = e
			select {
			case added <- e:
			case <-ctx.Done():
				return
			}

		case entry, ok := <-removals:
			if !ok {
				continue
			}
			existing, found := seen[entry.Instance]
			if !found {
				continue
			}
			remaining := removeAddresses(existing.Addrs, entry)
			if len(remaining) > 0 {
				updated := *existing
				updated.Addrs = remaining
				seen[entry.Instance] = &updated
				continue
			}
			delete(seen, entry.Instance)
			select {
			case removed <- existing:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// LookupTXT resolves the TXT record for one instance by browsing the
// service type until the matching instance reports TXT data or the
// context expires.
func (b *MDNSBrowser) LookupTXT(ctx context.Context, instance, serviceType, domain string) (bridge.TXTRecordMap, error) {
	lookupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removals := make(chan *zeroconf.ServiceEntry)
	opts := b.browserOptions()

	go func() {
		_ = zeroconf.Browse(lookupCtx, serviceType, domain, entries, removals, opts...)
	}()

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return nil, fmt.Errorf("lookup %s: %w", instance, bridge.ErrNotFound)
			}
			if entry.Instance != instance || len(entry.Text) == 0 {
				continue
			}
			return bridge.StringsToTXTRecords(entry.Text), nil

		case <-removals:
			// Irrelevant for a point lookup.

		case <-lookupCtx.Done():
			return nil, lookupCtx.Err()
		}
	}
}

// browserOptions returns zeroconf client options based on config.
func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// entryFromZeroconf converts a zeroconf entry to an Entry.
func entryFromZeroconf(entry *zeroconf.ServiceEntry, serviceType, domain string) *Entry {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &Entry{
		Instance: entry.Instance,
		Service:  serviceType,
		Domain:   domain,
		Host:     entry.HostName,
		Port:     entry.Port,
		Text:     entry.Text,
		Addrs:    addrs,
	}
}

// mergeAddresses adds new addresses to the existing list, avoiding
// duplicates.
func mergeAddresses(existing, more []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range more {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes the addresses of a zeroconf entry from the
// list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}

// MDNSAdvertiser registers a bridge advertisement over zeroconf. It is
// the bridge-side counterpart of MDNSBrowser, used by the simulator.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	return &MDNSAdvertiser{config: config}
}

// Advertise registers the bridge service. Re-advertising replaces the
// previous registration.
func (a *MDNSAdvertiser) Advertise(instanceName string, port int, info *bridge.TXTInfo) error {
	if err := bridge.ValidateInstanceName(instanceName); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	if port == 0 {
		port = bridge.DefaultPort
	}

	txtStrings := bridge.TXTRecordsToStrings(bridge.EncodeTXT(info))

	var ifaces []net.Interface
	if a.config.Interface != "" {
		iface, err := net.InterfaceByName(a.config.Interface)
		if err == nil {
			ifaces = []net.Interface{*iface}
		}
	}

	server, err := zeroconf.Register(
		instanceName,
		bridge.ServiceType,
		bridge.DefaultDomain,
		port,
		txtStrings,
		ifaces,
	)
	if err != nil {
		return fmt.Errorf("failed to register bridge service: %w", err)
	}

	a.server = server
	return nil
}

// UpdateTXT updates the TXT records of a running advertisement.
func (a *MDNSAdvertiser) UpdateTXT(info *bridge.TXTInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return bridge.ErrNotFound
	}
	a.server.SetText(bridge.TXTRecordsToStrings(bridge.EncodeTXT(info)))
	return nil
}

// Stop withdraws the advertisement.
func (a *MDNSAdvertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// Ensure MDNSBrowser implements the browsing interfaces.
var (
	_ Browser     = (*MDNSBrowser)(nil)
	_ TXTResolver = (*MDNSBrowser)(nil)
)
