package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/tualatrix/openclaw/pkg/bridge"
)

func zcEntry(instance string, txt []string, ips ...string) *zeroconf.ServiceEntry {
	e := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{
			Instance: instance,
			Service:  bridge.ServiceType,
			Domain:   bridge.DefaultDomain,
		},
		HostName: "office-mac.local.",
		Port:     bridge.DefaultPort,
		Text:     txt,
	}
	for _, ip := range ips {
		e.AddrIPv4 = append(e.AddrIPv4, net.ParseIP(ip))
	}
	return e
}

// startAggregation runs the browse aggregation loop against
// test-controlled channels.
func startAggregation(t *testing.T) (entries, removals chan *zeroconf.ServiceEntry, added, removed chan *Entry) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	entries = make(chan *zeroconf.ServiceEntry)
	removals = make(chan *zeroconf.ServiceEntry)
	added = make(chan *Entry)
	removed = make(chan *Entry)

	go aggregateEntries(ctx, bridge.ServiceType, bridge.DefaultDomain, entries, removals, added, removed)
	return entries, removals, added, removed
}

func recvEntry(t *testing.T, ch <-chan *Entry) *Entry {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an entry")
		return nil
	}
}

func TestAggregateReannouncementDeliversFreshEntry(t *testing.T) {
	entries, _, added, _ := startAggregation(t)

	entries <- zcEntry("Office Mac", nil, "192.168.1.10")
	first := recvEntry(t, added)
	if len(first.Text) != 0 {
		t.Fatalf("first.Text = %v, want empty", first.Text)
	}

	// A second announcement from another interface carries TXT data.
	entries <- zcEntry("Office Mac", []string{"displayName=Office Mac"}, "192.168.1.11")
	second := recvEntry(t, added)

	if second == first {
		t.Fatal("re-announcement delivered the same *Entry, want a fresh one")
	}
	if len(first.Text) != 0 || len(first.Addrs) != 1 {
		t.Errorf("delivered entry was mutated: Text = %v, Addrs = %v", first.Text, first.Addrs)
	}
	if got := len(second.Addrs); got != 2 {
		t.Errorf("second.Addrs has %d addresses, want 2 (merged)", got)
	}
	if len(second.Text) != 1 || second.Text[0] != "displayName=Office Mac" {
		t.Errorf("second.Text = %v, want the announced TXT data", second.Text)
	}
}

func TestAggregateKeepsTextAcrossTextlessReannouncement(t *testing.T) {
	entries, _, added, _ := startAggregation(t)

	entries <- zcEntry("Office Mac", []string{"displayName=Office Mac"}, "192.168.1.10")
	recvEntry(t, added)

	entries <- zcEntry("Office Mac", nil, "192.168.1.11")
	second := recvEntry(t, added)
	if len(second.Text) != 1 || second.Text[0] != "displayName=Office Mac" {
		t.Errorf("second.Text = %v, want the earlier TXT data kept", second.Text)
	}
}

func TestAggregateRemovesInstanceAfterLastAddress(t *testing.T) {
	entries, removals, added, removed := startAggregation(t)

	entries <- zcEntry("Office Mac", nil, "192.168.1.10")
	recvEntry(t, added)
	entries <- zcEntry("Office Mac", nil, "192.168.1.11")
	second := recvEntry(t, added)

	// Dropping the first address keeps the instance alive; only losing
	// the last one reports removal.
	removals <- zcEntry("Office Mac", nil, "192.168.1.10")
	removals <- zcEntry("Office Mac", nil, "192.168.1.11")

	gone := recvEntry(t, removed)
	if gone.Instance != "Office Mac" {
		t.Errorf("removed Instance = %q, want %q", gone.Instance, "Office Mac")
	}
	if got := len(second.Addrs); got != 2 {
		t.Errorf("delivered entry mutated by removal: %d addresses, want 2", got)
	}
}
