package bridge

import "testing"

func TestStableIDFor(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		a := StableIDFor("Office Mac", ServiceType, "local")
		b := StableIDFor("Office Mac", ServiceType, "local")
		if a != b {
			t.Errorf("ids differ: %q vs %q", a, b)
		}
		if !ValidateID(a) {
			t.Errorf("ValidateID(%q) = false, want true", a)
		}
	})

	t.Run("CaseAndDotInsensitive", func(t *testing.T) {
		a := StableIDFor("Office Mac", ServiceType, "local")
		b := StableIDFor("office mac", ServiceType+".", "LOCAL.")
		if a != b {
			t.Errorf("normalized ids differ: %q vs %q", a, b)
		}
	})

	t.Run("DomainChangesIdentity", func(t *testing.T) {
		a := StableIDFor("Office Mac", ServiceType, "local")
		b := StableIDFor("Office Mac", ServiceType, "example.ts.net")
		if a == b {
			t.Error("different domains should produce different ids")
		}
	})
}

func TestValidateID(t *testing.T) {
	if ValidateID("0123456789abcdef") != true {
		t.Error("valid id rejected")
	}
	if ValidateID("0123456789ABCDEF") != true {
		t.Error("uppercase hex rejected")
	}
	if ValidateID("short") {
		t.Error("short id accepted")
	}
	if ValidateID("0123456789abcdeg") {
		t.Error("non-hex id accepted")
	}
}
