package pairing

import "testing"

func TestDeriveToken(t *testing.T) {
	secret := []byte("secret")

	a, err := DeriveToken(secret, "node-1")
	if err != nil {
		t.Fatalf("DeriveToken() error = %v", err)
	}
	if len(a) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(a))
	}

	b, err := DeriveToken(secret, "node-1")
	if err != nil {
		t.Fatalf("DeriveToken() error = %v", err)
	}
	if a != b {
		t.Error("same inputs derived different tokens")
	}

	c, _ := DeriveToken(secret, "node-2")
	if a == c {
		t.Error("different node ids derived the same token")
	}

	d, _ := DeriveToken([]byte("other"), "node-1")
	if a == d {
		t.Error("different secrets derived the same token")
	}
}
