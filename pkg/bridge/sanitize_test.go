package bridge

import "testing"

func TestDecodeInstanceName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"NoEscapes", "Office Mac", "Office Mac"},
		{"DecimalEscape", `Office\032Mac`, "Office Mac"},
		{"LiteralEscape", `Office\.Mac`, "Office.Mac"},
		{"EscapedBackslash", `a\\b`, `a\b`},
		{"TrailingBackslash", `abc\`, `abc\`},
		{"OutOfRangeDecimal", `a\999b`, "a999b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeInstanceName(tt.in); got != tt.want {
				t.Errorf("DecodeInstanceName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeDisplayName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Plain", "Office Mac", "Office Mac"},
		{"CollapseWhitespace", "  Office \t Mac  ", "Office Mac"},
		{"Disambiguator", "Office Mac (2)", "Office Mac"},
		{"NonDigitParensKept", "Office Mac (home)", "Office Mac (home)"},
		{"BridgeSuffix", "Office Mac Bridge", "Office Mac"},
		{"GatewaySuffix", "Office Mac gateway", "Office Mac"},
		{"LocalSuffix", "office-mac.local", "office-mac"},
		{"SuffixAndDisambiguator", "Office Mac Bridge (3)", "Office Mac"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeDisplayName(tt.in); got != tt.want {
				t.Errorf("SanitizeDisplayName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDisplayNameFrom(t *testing.T) {
	t.Run("TXTValueWins", func(t *testing.T) {
		got := DisplayNameFrom("Nice Name", `raw\032instance`)
		if got != "Nice Name" {
			t.Errorf("DisplayNameFrom() = %q, want %q", got, "Nice Name")
		}
	})

	t.Run("FallsBackToDecodedInstance", func(t *testing.T) {
		got := DisplayNameFrom("", `Office\032Mac Bridge`)
		if got != "Office Mac" {
			t.Errorf("DisplayNameFrom() = %q, want %q", got, "Office Mac")
		}
	})
}
