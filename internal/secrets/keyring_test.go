package secrets

import (
	"context"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestKeyring(t *testing.T) {
	keyring.MockInit()
	k := NewKeyring()
	ctx := context.Background()

	token, err := k.Token(ctx)
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != "" {
		t.Errorf("Token() = %q before Store(), want empty", token)
	}

	for _, want := range []string{"glpat-one", "glpat-two"} {
		if err := k.Store(ctx, want); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
		got, err := k.Token(ctx)
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if got != want {
			t.Errorf("Token() = %q, want %q", got, want)
		}
	}
}
