package bridge

import (
	"fmt"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeTXT creates TXT records for a bridge advertisement.
func EncodeTXT(info *TXTInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	if info.DisplayName != "" {
		txt[TXTKeyDisplayName] = info.DisplayName
	}
	if info.LANHost != "" {
		txt[TXTKeyLANHost] = info.LANHost
	}
	if info.TailnetDNS != "" {
		txt[TXTKeyTailnetDNS] = info.TailnetDNS
	}
	if info.GatewayPort > 0 {
		txt[TXTKeyGatewayPort] = strconv.Itoa(info.GatewayPort)
	}
	if info.BridgePort > 0 {
		txt[TXTKeyBridgePort] = strconv.Itoa(info.BridgePort)
	}
	if info.CanvasPort > 0 {
		txt[TXTKeyCanvasPort] = strconv.Itoa(info.CanvasPort)
	}
	if info.CLIPath != "" {
		txt[TXTKeyCLIPath] = info.CLIPath
	}
	if info.SSHPort > 0 && info.SSHPort != DefaultSSHPort {
		txt[TXTKeySSHPort] = strconv.Itoa(info.SSHPort)
	}

	return txt
}

// DecodeTXT parses TXT records from a bridge advertisement. Every field
// is optional; a record with no usable keys still decodes. The sshPort
// value falls back to 22 when absent or unparsable.
func DecodeTXT(txt TXTRecordMap) *TXTInfo {
	info := &TXTInfo{SSHPort: DefaultSSHPort}

	info.DisplayName = txt[TXTKeyDisplayName]
	info.LANHost = txt[TXTKeyLANHost]
	info.TailnetDNS = txt[TXTKeyTailnetDNS]
	info.CLIPath = txt[TXTKeyCLIPath]

	info.GatewayPort = parsePort(txt[TXTKeyGatewayPort])
	info.BridgePort = parsePort(txt[TXTKeyBridgePort])
	info.CanvasPort = parsePort(txt[TXTKeyCanvasPort])

	if p := parsePort(txt[TXTKeySSHPort]); p > 0 {
		info.SSHPort = p
	}

	return info
}

// parsePort returns 0 for anything that is not a valid port number.
func parsePort(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0
	}
	return int(n)
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value"
// strings, the format used by mDNS libraries.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a
// TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
