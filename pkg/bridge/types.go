package bridge

import "errors"

// Service type constants for DNS-SD.
const (
	// ServiceType is the service type advertised by bridges.
	ServiceType = "_openclaw._tcp"

	// DefaultDomain is the default multicast DNS domain.
	DefaultDomain = "local"

	// DefaultPort is the default bridge control port.
	DefaultPort = 18789

	// DefaultSSHPort is used when the sshPort TXT value is absent or
	// unparsable.
	DefaultSSHPort = 22
)

// TXT record key constants.
const (
	TXTKeyDisplayName = "displayName" // User-facing bridge name
	TXTKeyLANHost     = "lanHost"     // LAN hostname
	TXTKeyTailnetDNS  = "tailnetDns"  // Tailnet DNS name
	TXTKeyGatewayPort = "gatewayPort" // Control gateway port
	TXTKeyBridgePort  = "bridgePort"  // Bridge RPC port
	TXTKeyCanvasPort  = "canvasPort"  // Canvas service port
	TXTKeyCLIPath     = "cliPath"     // CLI binary path on the bridge
	TXTKeySSHPort     = "sshPort"     // SSH port
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// IDLength is the length of a stable id (16 hex chars = 64 bits).
	IDLength = 16
)

// Data model errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
)

// Endpoint is the identity of one reachable bridge as assembled from a
// discovered advertisement.
type Endpoint struct {
	// StableID identifies the bridge across re-resolutions of the same
	// advertisement. Two advertisements with the same id are the same
	// logical bridge.
	StableID string

	// DisplayName is the sanitized user-facing name. The TXT
	// displayName value wins over the raw instance name.
	DisplayName string

	// ServiceName is the raw (unescaped) mDNS instance name.
	ServiceName string

	// Host is the hostname reported with the advertisement.
	Host string

	// Port is the advertised service port.
	Port int

	// Optional TXT-derived fields.
	LANHost     string
	TailnetDNS  string
	GatewayPort int
	BridgePort  int
	CanvasPort  int
	CLIPath     string

	// SSHPort defaults to 22 when the advertisement does not carry a
	// usable value.
	SSHPort int
}

// TXTInfo holds the decoded TXT metadata of one advertisement.
type TXTInfo struct {
	DisplayName string
	LANHost     string
	TailnetDNS  string
	GatewayPort int
	BridgePort  int
	CanvasPort  int
	CLIPath     string
	SSHPort     int
}

// Merge applies non-empty TXT fields onto the endpoint. Later TXT data
// (for example, from an out-of-band resolution) wins over what a browse
// result carried inline.
func (e *Endpoint) Merge(info *TXTInfo) {
	if info == nil {
		return
	}
	if info.DisplayName != "" {
		e.DisplayName = SanitizeDisplayName(info.DisplayName)
	}
	if info.LANHost != "" {
		e.LANHost = info.LANHost
	}
	if info.TailnetDNS != "" {
		e.TailnetDNS = info.TailnetDNS
	}
	if info.GatewayPort > 0 {
		e.GatewayPort = info.GatewayPort
	}
	if info.BridgePort > 0 {
		e.BridgePort = info.BridgePort
	}
	if info.CanvasPort > 0 {
		e.CanvasPort = info.CanvasPort
	}
	if info.CLIPath != "" {
		e.CLIPath = info.CLIPath
	}
	if info.SSHPort > 0 {
		e.SSHPort = info.SSHPort
	}
}

// HasResolvedTXT reports whether the endpoint already carries the TXT
// fields that browse results sometimes omit. When false, the discovery
// engine schedules an out-of-band TXT lookup.
func (e *Endpoint) HasResolvedTXT() bool {
	return e.LANHost != "" && e.TailnetDNS != ""
}
