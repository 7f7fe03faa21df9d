package credstore

import (
	"path/filepath"
	"testing"

	"github.com/tualatrix/openclaw/pkg/identity"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	if _, ok := s.Get("missing"); ok {
		t.Error("Get() on empty store reported a value")
	}

	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, ok := s.Get("k"); !ok || v != "v" {
		t.Errorf("Get() = %q, %v, want %q, true", v, ok, "v")
	}

	// Setting empty deletes.
	if err := s.Set("k", ""); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok := s.Get("k"); ok {
		t.Error("empty Set() did not delete the key")
	}
}

func TestFileStore(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "creds.json")

		s, err := NewFileStore(path)
		if err != nil {
			t.Fatalf("NewFileStore() error = %v", err)
		}
		if err := s.Set(KeyDeviceToken, "tok-123"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		// Reopen and read back.
		s2, err := NewFileStore(path)
		if err != nil {
			t.Fatalf("NewFileStore() reopen error = %v", err)
		}
		if v, ok := s2.Get(KeyDeviceToken); !ok || v != "tok-123" {
			t.Errorf("Get() = %q, %v, want %q, true", v, ok, "tok-123")
		}
	})

	t.Run("MissingFileIsEmptyStore", func(t *testing.T) {
		s, err := NewFileStore(filepath.Join(t.TempDir(), "nonexistent.json"))
		if err != nil {
			t.Fatalf("NewFileStore() error = %v", err)
		}
		if keys := s.Keys(); len(keys) != 0 {
			t.Errorf("Keys() = %v, want empty", keys)
		}
	})

	t.Run("DeletePersists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "creds.json")

		s, _ := NewFileStore(path)
		_ = s.Set("k", "v")
		if err := s.Delete("k"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}

		s2, _ := NewFileStore(path)
		if _, ok := s2.Get("k"); ok {
			t.Error("deleted key survived reopen")
		}
	})
}

func TestReconcile(t *testing.T) {
	t.Run("FillsEmptyFromNonEmpty", func(t *testing.T) {
		a := NewMemoryStore()
		b := NewMemoryStore()
		_ = a.Set(identity.KeyNodeID, "x")
		_ = b.Set(KeyConnectionMode, "local")

		if err := Reconcile(a, b, BootstrapKeys); err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}

		if v, _ := b.Get(identity.KeyNodeID); v != "x" {
			t.Errorf("b node id = %q, want %q", v, "x")
		}
		if v, _ := a.Get(KeyConnectionMode); v != "local" {
			t.Errorf("a mode = %q, want %q", v, "local")
		}
	})

	t.Run("DifferingValuesUntouched", func(t *testing.T) {
		a := NewMemoryStore()
		b := NewMemoryStore()
		_ = a.Set(identity.KeyNodeID, "a-id")
		_ = b.Set(identity.KeyNodeID, "b-id")

		if err := Reconcile(a, b, BootstrapKeys); err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}

		if v, _ := a.Get(identity.KeyNodeID); v != "a-id" {
			t.Errorf("a node id = %q, want %q", v, "a-id")
		}
		if v, _ := b.Get(identity.KeyNodeID); v != "b-id" {
			t.Errorf("b node id = %q, want %q", v, "b-id")
		}
	})

	t.Run("BothEmptyStaysEmpty", func(t *testing.T) {
		a := NewMemoryStore()
		b := NewMemoryStore()

		if err := Reconcile(a, b, BootstrapKeys); err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		if len(a.Keys()) != 0 || len(b.Keys()) != 0 {
			t.Errorf("stores populated: a=%v b=%v", a.Keys(), b.Keys())
		}
	})
}

func TestToken(t *testing.T) {
	s := NewMemoryStore()
	_ = s.Set(KeyDeviceToken, "device-tok")
	_ = s.Set(TokenKey("aaaa"), "endpoint-tok")

	if got := Token(s, "aaaa"); got != "endpoint-tok" {
		t.Errorf("Token() = %q, want per-endpoint %q", got, "endpoint-tok")
	}
	if got := Token(s, "bbbb"); got != "device-tok" {
		t.Errorf("Token() = %q, want device fallback %q", got, "device-tok")
	}
}
