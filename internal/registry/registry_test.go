package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/bhoomi-id/bhoomi/internal/store/core"
	"github.com/bhoomi-id/bhoomi/internal/store/memory"
	"github.com/bhoomi-id/bhoomi/internal/validation"
)

func TestRegisterRejectsUnknownScope(t *testing.T) {
	r := New(memory.New())
	_, err := r.Register(context.Background(), "AgroBank", "", "", []string{"profile", "everything"})
	if !errors.Is(err, core.ErrInvalid) {
		t.Fatalf("want ErrInvalid for unknown scope, got %v", err)
	}
}

func TestRegisterIssuesOpaqueCredentials(t *testing.T) {
	r := New(memory.New())
	ctx := context.Background()

	svc, err := r.Register(ctx, "AgroBank", "crop loans", "https://bank.example/cb", []string{"profile", "documents"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if svc.ClientID == "" || svc.ClientSecret == "" {
		t.Fatal("missing generated credentials")
	}
	if !svc.Active {
		t.Fatal("new service should be active")
	}

	got, err := r.Verify(ctx, svc.ClientID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.ID != svc.ID {
		t.Fatalf("Verify resolved service %d, want %d", got.ID, svc.ID)
	}

	if _, err := r.Verify(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown client_id: want ErrNotFound, got %v", err)
	}
}

func TestScopesAllowed(t *testing.T) {
	r := New(memory.New())
	svc, err := r.Register(context.Background(), "AgroBank", "", "", []string{"profile", "location"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if !r.ScopesAllowed(svc, []validation.Scope{validation.ScopeProfile}) {
		t.Fatal("profile should be allowed")
	}
	if r.ScopesAllowed(svc, []validation.Scope{validation.ScopeProfile, validation.ScopeAadhaar}) {
		t.Fatal("aadhaar is outside the allow-list")
	}
}
