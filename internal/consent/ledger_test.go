package consent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bhoomi-id/bhoomi/internal/store/core"
	"github.com/bhoomi-id/bhoomi/internal/store/memory"
	"github.com/bhoomi-id/bhoomi/internal/validation"
)

func seed(t *testing.T, allowed ...validation.Scope) (*memory.Store, *Ledger, *core.Subject, *core.Service) {
	t.Helper()
	st := memory.New()
	ctx := context.Background()

	sub := &core.Subject{FullName: "Asha", Phone: "+911234567890", PasswordHash: "x", Active: true}
	if err := st.CreateSubject(ctx, sub); err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}
	svc := &core.Service{ClientID: "cli-1", ClientSecret: "sec", Name: "AgroBank", AllowedScopes: allowed, Active: true}
	if err := st.CreateService(ctx, svc); err != nil {
		t.Fatalf("CreateService: %v", err)
	}
	return st, New(st), sub, svc
}

func TestGrantRejectsScopeOutsideAllowList(t *testing.T) {
	_, led, sub, svc := seed(t, validation.ScopeProfile)
	ctx := context.Background()

	_, err := led.Grant(ctx, sub.ID, svc.ID, []validation.Scope{validation.ScopeProfile, validation.ScopeAadhaar}, 0)
	var snErr *core.ScopeNotAllowedError
	if !errors.As(err, &snErr) {
		t.Fatalf("want ScopeNotAllowedError, got %v", err)
	}
	if snErr.Scope != validation.ScopeAadhaar {
		t.Fatalf("offending scope = %q, want aadhaar", snErr.Scope)
	}

	// rechazo total: no quedó nada otorgado
	if _, err := led.GetActive(ctx, sub.ID, svc.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("partial grant leaked: %v", err)
	}
}

func TestGrantSupersedesPrevious(t *testing.T) {
	_, led, sub, svc := seed(t, validation.ScopeProfile, validation.ScopeLocation)
	ctx := context.Background()

	first, err := led.Grant(ctx, sub.ID, svc.ID, []validation.Scope{validation.ScopeProfile}, 0)
	if err != nil {
		t.Fatalf("first grant: %v", err)
	}
	second, err := led.Grant(ctx, sub.ID, svc.ID, []validation.Scope{validation.ScopeLocation}, 0)
	if err != nil {
		t.Fatalf("second grant: %v", err)
	}

	active, err := led.GetActive(ctx, sub.ID, svc.ID)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if active.ID != second.ID {
		t.Fatalf("active consent = %d, want %d (superseded %d)", active.ID, second.ID, first.ID)
	}
	if len(active.GrantedScopes) != 1 || active.GrantedScopes[0] != validation.ScopeLocation {
		t.Fatalf("active scopes = %v, want [location]", active.GrantedScopes)
	}

	list, err := led.ListActive(ctx, sub.ID)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("active consents for pair = %d, want exactly 1", len(list))
	}
}

func TestRevokeCascadesNonTerminalRequests(t *testing.T) {
	st, led, sub, svc := seed(t, validation.ScopeDocuments)
	ctx := context.Background()

	if _, err := led.Grant(ctx, sub.ID, svc.ID, []validation.Scope{validation.ScopeDocuments}, 0); err != nil {
		t.Fatalf("grant: %v", err)
	}

	mk := func(status core.RequestStatus) *core.DataRequest {
		r := &core.DataRequest{Kind: core.RequestLoan, SubjectID: sub.ID, ServiceID: svc.ID, Status: status}
		if err := st.CreateDataRequest(ctx, r); err != nil {
			t.Fatalf("CreateDataRequest: %v", err)
		}
		return r
	}
	pending := mk(core.StatusPending)
	reqDoc := mk(core.StatusRequestDoc)
	approved := mk(core.StatusApproved)

	var got RevokedEvent
	led.OnRevoked(func(_ context.Context, ev RevokedEvent) { got = ev })

	revoked, err := led.Revoke(ctx, sub.ID, svc.ID)
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if !revoked {
		t.Fatal("Revoke returned false with an active consent")
	}
	if got.RejectedRequests != 2 {
		t.Fatalf("event rejected = %d, want 2", got.RejectedRequests)
	}

	for _, id := range []int64{pending.ID, reqDoc.ID} {
		r, err := st.GetDataRequest(ctx, id)
		if err != nil {
			t.Fatalf("GetDataRequest(%d): %v", id, err)
		}
		if r.Status != core.StatusRejected {
			t.Fatalf("request %d status = %s, want REJECTED", id, r.Status)
		}
		if r.DecisionNotes == nil || *r.DecisionNotes != CascadeNote {
			t.Fatalf("request %d notes = %v, want cascade note", id, r.DecisionNotes)
		}
	}

	// la decidida no se toca
	r, _ := st.GetDataRequest(ctx, approved.ID)
	if r.Status != core.StatusApproved {
		t.Fatalf("approved request was touched: %s", r.Status)
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	_, led, sub, svc := seed(t, validation.ScopeProfile)
	ctx := context.Background()

	if _, err := led.Grant(ctx, sub.ID, svc.ID, []validation.Scope{validation.ScopeProfile}, 0); err != nil {
		t.Fatalf("grant: %v", err)
	}

	if ok, err := led.Revoke(ctx, sub.ID, svc.ID); err != nil || !ok {
		t.Fatalf("first revoke = (%v, %v), want (true, nil)", ok, err)
	}
	if ok, err := led.Revoke(ctx, sub.ID, svc.ID); err != nil || ok {
		t.Fatalf("second revoke = (%v, %v), want (false, nil)", ok, err)
	}
	// revocar sin grant previo tampoco es error
	if ok, err := led.Revoke(ctx, sub.ID, svc.ID+99); err != nil || ok {
		t.Fatalf("revoke without grant = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestLazyExpiry(t *testing.T) {
	_, led, sub, svc := seed(t, validation.ScopeProfile)
	ctx := context.Background()

	c, err := led.Grant(ctx, sub.ID, svc.ID, []validation.Scope{validation.ScopeProfile}, time.Minute)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}

	now := time.Now().UTC()
	if !c.Live(now) {
		t.Fatal("fresh consent should be live")
	}
	if c.Live(now.Add(2 * time.Minute)) {
		t.Fatal("expired consent should be inert without any sweeper")
	}

	// la fila sigue activa en el store (expiración perezosa, no hay barrido)
	stored, err := led.GetActive(ctx, sub.ID, svc.ID)
	if err != nil {
		t.Fatalf("GetActive after expiry: %v", err)
	}
	if !stored.Active {
		t.Fatal("row should remain active=true; liveness is evaluated lazily")
	}
}
