package bridge

import (
	"strings"
)

// Suffixes stripped from advertised names for presentation. Bridges
// commonly append these to the machine hostname when registering.
var displayNameSuffixes = []string{
	" bridge",
	" gateway",
	".local",
}

// DecodeInstanceName reverses DNS-SD escaping in an mDNS instance name.
// Escapes are either a backslash followed by three decimal digits
// (byte value) or a backslash followed by a literal character.
func DecodeInstanceName(name string) string {
	if !strings.ContainsRune(name, '\\') {
		return name
	}

	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c != '\\' || i+1 >= len(name) {
			b.WriteByte(c)
			continue
		}
		// \DDD decimal escape
		if i+3 < len(name) && isDigit(name[i+1]) && isDigit(name[i+2]) && isDigit(name[i+3]) {
			v := int(name[i+1]-'0')*100 + int(name[i+2]-'0')*10 + int(name[i+3]-'0')
			if v <= 255 {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		// \X literal escape
		b.WriteByte(name[i+1])
		i++
	}
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// SanitizeDisplayName normalizes a name for presentation: known
// suffixes are stripped, a trailing parenthetical disambiguator such as
// "(2)" is removed, and whitespace is collapsed.
func SanitizeDisplayName(name string) string {
	s := strings.Join(strings.Fields(name), " ")

	// Trailing "(n)" disambiguators appended by mDNS responders on
	// name conflicts.
	if i := strings.LastIndex(s, " ("); i > 0 && strings.HasSuffix(s, ")") {
		inner := s[i+2 : len(s)-1]
		if inner != "" && isAllDigits(inner) {
			s = s[:i]
		}
	}

	lower := strings.ToLower(s)
	for _, suffix := range displayNameSuffixes {
		if strings.HasSuffix(lower, suffix) {
			s = strings.TrimSpace(s[:len(s)-len(suffix)])
			lower = strings.ToLower(s)
		}
	}

	return strings.TrimSpace(s)
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// DisplayNameFrom picks the presentation name for an advertisement.
// An explicit displayName TXT value wins over the raw instance name.
func DisplayNameFrom(txtDisplayName, instance string) string {
	if txtDisplayName != "" {
		return SanitizeDisplayName(txtDisplayName)
	}
	return SanitizeDisplayName(DecodeInstanceName(instance))
}
