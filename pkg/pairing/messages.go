package pairing

// Message type discriminants.
const (
	TypeHello       = "hello"
	TypeHelloOK     = "hello-ok"
	TypeError       = "error"
	TypePairRequest = "pair-request"
	TypePairOK      = "pair-ok"
)

// Error codes that trigger the pairing fallback. Any other code fails
// the attempt immediately.
const (
	CodeNotPaired    = "NOT_PAIRED"
	CodeUnauthorized = "UNAUTHORIZED"
)

// Hello is the opening message of every handshake. Absent optional
// fields are omitted from the wire, never sent as null.
type Hello struct {
	Type            string   `json:"type"`
	NodeID          string   `json:"nodeId"`
	DisplayName     string   `json:"displayName,omitempty"`
	Token           string   `json:"token,omitempty"`
	Platform        string   `json:"platform,omitempty"`
	Version         string   `json:"version,omitempty"`
	DeviceFamily    string   `json:"deviceFamily,omitempty"`
	ModelIdentifier string   `json:"modelIdentifier,omitempty"`
	Caps            []string `json:"caps,omitempty"`
	Commands        []string `json:"commands,omitempty"`
}

// PairRequest carries the same identity and capability fields as Hello
// but never a token.
type PairRequest struct {
	Type            string   `json:"type"`
	NodeID          string   `json:"nodeId"`
	DisplayName     string   `json:"displayName,omitempty"`
	Platform        string   `json:"platform,omitempty"`
	Version         string   `json:"version,omitempty"`
	DeviceFamily    string   `json:"deviceFamily,omitempty"`
	ModelIdentifier string   `json:"modelIdentifier,omitempty"`
	Caps            []string `json:"caps,omitempty"`
	Commands        []string `json:"commands,omitempty"`
}

// HelloOK acknowledges an accepted hello.
type HelloOK struct {
	Type       string `json:"type"`
	ServerName string `json:"serverName,omitempty"`
}

// ErrorMessage reports a bridge-side failure.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// PairOK delivers a freshly issued token.
type PairOK struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// reply is the superset shape used to decode any bridge->node line.
type reply struct {
	Type       string `json:"type"`
	ServerName string `json:"serverName"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Token      string `json:"token"`
}

// pairRequestFrom strips the token from a hello, keeping identity and
// capability fields.
func pairRequestFrom(h Hello) PairRequest {
	return PairRequest{
		Type:            TypePairRequest,
		NodeID:          h.NodeID,
		DisplayName:     h.DisplayName,
		Platform:        h.Platform,
		Version:         h.Version,
		DeviceFamily:    h.DeviceFamily,
		ModelIdentifier: h.ModelIdentifier,
		Caps:            h.Caps,
		Commands:        h.Commands,
	}
}
