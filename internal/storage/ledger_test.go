package storage

import (
	"context"
	"testing"
)

// TestRegister_Validation covers the fail-fast registration contract.
func TestRegister_Validation(t *testing.T) {
	mustPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatalf("%s: expected panic", name)
			}
		}()
		fn()
	}

	mustPanic("empty kind", func() { Register("", nil) })
	mustPanic("nil factory", func() { Register("k", nil) })

	Register("test_kind", func(context.Context, Config) (Ledger, error) { return nil, nil })
	mustPanic("duplicate", func() {
		Register("test_kind", func(context.Context, Config) (Ledger, error) { return nil, nil })
	})
}

func TestNew_UnknownKind(t *testing.T) {
	if _, err := New(context.Background(), Config{Kind: "oracle"}); err == nil {
		t.Fatal("expected error for unregistered kind")
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty kind")
	}
}
