package gateway

// Mode is the connection mode selecting how the control endpoint is
// reached.
type Mode uint8

const (
	// ModeUnconfigured means onboarding never selected a mode.
	ModeUnconfigured Mode = iota
	// ModeLocal connects to a gateway on this machine.
	ModeLocal
	// ModeRemote connects through a control tunnel to a remote gateway.
	ModeRemote
)

// String returns the persisted form of the mode.
func (m Mode) String() string {
	switch m {
	case ModeLocal:
		return "local"
	case ModeRemote:
		return "remote"
	default:
		return "unconfigured"
	}
}

// ParseMode maps a persisted mode string back to a Mode. Unknown or
// empty strings map to ModeUnconfigured.
func ParseMode(s string) Mode {
	switch s {
	case "local":
		return ModeLocal
	case "remote":
		return ModeRemote
	default:
		return ModeUnconfigured
	}
}
