package requests

import (
	"context"
	"errors"
	"testing"

	"github.com/bhoomi-id/bhoomi/internal/audit"
	"github.com/bhoomi-id/bhoomi/internal/consent"
	"github.com/bhoomi-id/bhoomi/internal/store/core"
	"github.com/bhoomi-id/bhoomi/internal/store/memory"
	"github.com/bhoomi-id/bhoomi/internal/validation"
)

type env struct {
	st  *memory.Store
	led *consent.Ledger
	svc *Service
	sub *core.Subject
	app *core.Service // el service que recibe solicitudes
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	st := memory.New()
	loc := "Hubli"
	sub := &core.Subject{FullName: "Asha", Phone: "+911234567890", PasswordHash: "x", Active: true, Location: &loc}
	if err := st.CreateSubject(ctx, sub); err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}
	app := &core.Service{
		ClientID: "cli-bank", ClientSecret: "sec", Name: "AgroBank",
		AllowedScopes: validation.Vocabulary(), Active: true,
	}
	if err := st.CreateService(ctx, app); err != nil {
		t.Fatalf("CreateService: %v", err)
	}

	led := consent.New(st)
	return &env{st: st, led: led, svc: New(st, led, audit.New(st)), sub: sub, app: app}
}

func (e *env) uploadDocs(t *testing.T, types ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(types))
	for _, dt := range types {
		d := &core.Document{SubjectID: e.sub.ID, Filename: dt + ".pdf", DocType: dt}
		if err := e.st.CreateDocument(context.Background(), d); err != nil {
			t.Fatalf("CreateDocument: %v", err)
		}
		ids = append(ids, d.ID)
	}
	return ids
}

func TestApplyLoanRequiresMandatoryDocs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ids := e.uploadDocs(t, "IDENTITY", "LAND_RECORD") // falta CROP_DETAILS
	_, err := e.svc.ApplyLoan(ctx, e.sub.ID, e.app.ID, ids)
	if !errors.Is(err, core.ErrInvalid) {
		t.Fatalf("want ErrInvalid for missing mandatory doc, got %v", err)
	}
}

func TestApplyLoanGrantsWorkflowConsent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ids := e.uploadDocs(t, "IDENTITY", "LAND_RECORD", "CROP_DETAILS")
	req, err := e.svc.ApplyLoan(ctx, e.sub.ID, e.app.ID, ids)
	if err != nil {
		t.Fatalf("ApplyLoan: %v", err)
	}
	if req.Status != core.StatusPending || req.Kind != core.RequestLoan {
		t.Fatalf("request = %s/%s, want PENDING/LOAN", req.Status, req.Kind)
	}
	if len(req.DocumentIDs) != 3 {
		t.Fatalf("snapshot len = %d, want 3", len(req.DocumentIDs))
	}

	c, err := e.led.GetActive(ctx, e.sub.ID, e.app.ID)
	if err != nil {
		t.Fatalf("workflow consent missing: %v", err)
	}
	if len(c.GrantedScopes) != 1 || c.GrantedScopes[0] != validation.ScopeDocuments {
		t.Fatalf("consent scopes = %v, want [documents]", c.GrantedScopes)
	}
	if c.ExpiresAt == nil {
		t.Fatal("loan consent should carry the 30-day expiry")
	}
}

func TestApplyLoanRejectsForeignDocuments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	other := &core.Subject{FullName: "Ravi", Phone: "+919999999999", PasswordHash: "x", Active: true}
	if err := e.st.CreateSubject(ctx, other); err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}
	d := &core.Document{SubjectID: other.ID, Filename: "id.pdf", DocType: "IDENTITY"}
	if err := e.st.CreateDocument(ctx, d); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	ids := append(e.uploadDocs(t, "LAND_RECORD", "CROP_DETAILS"), d.ID)
	_, err := e.svc.ApplyLoan(ctx, e.sub.ID, e.app.ID, ids)
	if !errors.Is(err, core.ErrInvalid) {
		t.Fatalf("want ErrInvalid for foreign document, got %v", err)
	}
}

func TestApplyAdvisoryRequiresLocation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	noLoc := &core.Subject{FullName: "Ravi", Phone: "+919999999999", PasswordHash: "x", Active: true}
	if err := e.st.CreateSubject(ctx, noLoc); err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}

	_, err := e.svc.ApplyAdvisory(ctx, noLoc.ID, e.app.ID, nil, nil)
	if !errors.Is(err, core.ErrInvalid) {
		t.Fatalf("want ErrInvalid without location, got %v", err)
	}
}

func TestApplyAdvisoryRejectsDuplicatePending(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	req, err := e.svc.ApplyAdvisory(ctx, e.sub.ID, e.app.ID, map[string]any{"crop": "ragi"}, nil)
	if err != nil {
		t.Fatalf("first advisory: %v", err)
	}
	if req.Details["location"] != "Hubli" {
		t.Fatalf("details.location = %v, want snapshot of profile location", req.Details["location"])
	}

	_, err = e.svc.ApplyAdvisory(ctx, e.sub.ID, e.app.ID, nil, nil)
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("want ErrConflict for duplicate pending, got %v", err)
	}
}

func TestDecideEnforcesDomainIsolation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ids := e.uploadDocs(t, "IDENTITY", "LAND_RECORD", "CROP_DETAILS")
	req, err := e.svc.ApplyLoan(ctx, e.sub.ID, e.app.ID, ids)
	if err != nil {
		t.Fatalf("ApplyLoan: %v", err)
	}

	other := &core.Service{ClientID: "cli-other", ClientSecret: "sec", Name: "Other", AllowedScopes: validation.Vocabulary(), Active: true}
	if err := e.st.CreateService(ctx, other); err != nil {
		t.Fatalf("CreateService: %v", err)
	}

	err = e.svc.Decide(ctx, other.ID, req.ID, core.StatusApproved, nil)
	if !errors.Is(err, core.ErrAccessDenied) {
		t.Fatalf("cross-domain decision: want ErrAccessDenied, got %v", err)
	}

	notes := "ok"
	if err := e.svc.Decide(ctx, e.app.ID, req.ID, core.StatusApproved, &notes); err != nil {
		t.Fatalf("own-domain decision: %v", err)
	}
}

func TestDecideRejectsTerminalRequest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ids := e.uploadDocs(t, "IDENTITY", "LAND_RECORD", "CROP_DETAILS")
	req, _ := e.svc.ApplyLoan(ctx, e.sub.ID, e.app.ID, ids)

	if err := e.svc.Decide(ctx, e.app.ID, req.ID, core.StatusRejected, nil); err != nil {
		t.Fatalf("first decision: %v", err)
	}
	err := e.svc.Decide(ctx, e.app.ID, req.ID, core.StatusApproved, nil)
	if !errors.Is(err, core.ErrConflictingState) {
		t.Fatalf("decision on terminal request: want ErrConflictingState, got %v", err)
	}
}

func TestWithdrawDocumentSetsPendingRevoked(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ids := e.uploadDocs(t, "IDENTITY", "LAND_RECORD", "CROP_DETAILS")
	req, _ := e.svc.ApplyLoan(ctx, e.sub.ID, e.app.ID, ids)

	if err := e.svc.WithdrawDocument(ctx, e.sub.ID, req.ID, ids[0]); err != nil {
		t.Fatalf("WithdrawDocument: %v", err)
	}
	got, _ := e.st.GetDataRequest(ctx, req.ID)
	if got.Status != core.StatusPendingRevoked {
		t.Fatalf("status = %s, want PENDING_REVOKED", got.Status)
	}
	if len(got.DocumentIDs) != 2 {
		t.Fatalf("snapshot len = %d, want 2", len(got.DocumentIDs))
	}

	// un tercero no puede retirar documentos de un request ajeno
	if err := e.svc.WithdrawDocument(ctx, e.sub.ID+99, req.ID, ids[1]); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign withdraw: want ErrNotFound, got %v", err)
	}
}

func TestDocumentsForReChecksLedger(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ids := e.uploadDocs(t, "IDENTITY", "LAND_RECORD", "CROP_DETAILS")
	req, _ := e.svc.ApplyLoan(ctx, e.sub.ID, e.app.ID, ids)

	docs, err := e.svc.DocumentsFor(ctx, e.app.ID, req.ID)
	if err != nil {
		t.Fatalf("DocumentsFor with live consent: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("docs = %d, want 3", len(docs))
	}

	// revocar tumba el acceso del admin también, y rechaza el request
	if _, err := e.led.Revoke(ctx, e.sub.ID, e.app.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := e.svc.DocumentsFor(ctx, e.app.ID, req.ID); !errors.Is(err, core.ErrAccessDenied) {
		t.Fatalf("post-revoke access: want ErrAccessDenied, got %v", err)
	}

	got, _ := e.st.GetDataRequest(ctx, req.ID)
	if got.Status != core.StatusRejected {
		t.Fatalf("cascade missed the request: %s", got.Status)
	}
	if got.DecisionNotes == nil || *got.DecisionNotes != consent.CascadeNote {
		t.Fatalf("cascade note = %v", got.DecisionNotes)
	}
}
