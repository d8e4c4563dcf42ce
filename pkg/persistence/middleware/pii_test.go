package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/inkwell/pkg/adapters/memory"
	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/aretw0/inkwell/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlyingStore := memory.NewStore()
	// Mask names containing "password" or ending with "ssn"
	mw, err := middleware.NewPIIMiddleware([]string{"password", "ssn$"})
	if err != nil {
		t.Fatal(err)
	}
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	sessionID := "pii-session"
	state := domain.NewState("door", "")
	state.Variables = map[string]domain.Value{
		"username":      domain.StringValue("jdoe"),
		"user_password": domain.StringValue("secret123"),
		"ssn":           domain.IntValue(999),
	}

	if err := secureStore.Save(ctx, sessionID, state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The caller's state is untouched.
	if state.Variables["user_password"].Str() != "secret123" {
		t.Error("Middleware modified original state in memory!")
	}

	storedState, err := underlyingStore.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if storedState.Variables["username"].Str() != "jdoe" {
		t.Error("Username shouldn't be masked")
	}
	for _, name := range []string{"user_password", "ssn"} {
		if got := storedState.Variables[name]; got.Str() != middleware.Mask {
			t.Errorf("%s should be masked, got: %v", name, got)
		}
	}
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	if _, err := middleware.NewPIIMiddleware([]string{"("}); err == nil {
		t.Error("Expected an error for an invalid pattern")
	}
}

func TestChain_Order(t *testing.T) {
	underlyingStore := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{"name"})
	if err != nil {
		t.Fatal(err)
	}
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	if err != nil {
		t.Fatal(err)
	}

	// Masking runs before sealing, so the decrypted state carries the mask.
	store := middleware.Chain(underlyingStore, pii, enc)
	ctx := context.Background()
	if err := store.Save(ctx, "s", sampleState("Ada")); err != nil {
		t.Fatal(err)
	}
	loaded, err := store.Load(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	if got := loaded.Variables["name"].Str(); got != middleware.Mask {
		t.Errorf("Expected masked name, got %q", got)
	}
}
