package projector

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bhoomi-id/bhoomi/internal/audit"
	"github.com/bhoomi-id/bhoomi/internal/consent"
	"github.com/bhoomi-id/bhoomi/internal/credential"
	"github.com/bhoomi-id/bhoomi/internal/security/secretbox"
	"github.com/bhoomi-id/bhoomi/internal/store/core"
	"github.com/bhoomi-id/bhoomi/internal/store/memory"
	"github.com/bhoomi-id/bhoomi/internal/validation"
)

type fixture struct {
	st   *memory.Store
	led  *consent.Ledger
	proj *Projector
	box  *secretbox.Box
	sub  *core.Subject
	svc  *core.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st := memory.New()
	box, err := secretbox.NewFromRaw(bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatalf("secretbox: %v", err)
	}

	aadhaarEnc, _ := box.Encrypt("1234-5678-9012")
	landEnc, _ := box.Encrypt("KA-204-17")
	loc := "Hubli"
	sub := &core.Subject{
		FullName:      "Asha",
		Phone:         "+911234567890",
		PasswordHash:  "x",
		Active:        true,
		Location:      &loc,
		Attributes:    map[string]any{"crop": "ragi", "farm_size": 2.5},
		AadhaarEnc:    &aadhaarEnc,
		LandRecordEnc: &landEnc,
	}
	if err := st.CreateSubject(ctx, sub); err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}

	svc := &core.Service{
		ClientID: "cli-1", ClientSecret: "sec", Name: "AgroBank",
		AllowedScopes: validation.Vocabulary(), Active: true,
	}
	if err := st.CreateService(ctx, svc); err != nil {
		t.Fatalf("CreateService: %v", err)
	}

	led := consent.New(st)
	audits := audit.New(st)
	return &fixture{st: st, led: led, proj: New(st, led, audits, box), box: box, sub: sub, svc: svc}
}

func claimsFor(f *fixture, scopes []validation.Scope, thirdParty bool) *credential.Claims {
	c := &credential.Claims{
		SubjectID: f.sub.ID,
		Scopes:    scopes,
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	if thirdParty {
		c.AuthorizedParty = &f.svc.ID
	}
	return c
}

func TestProjectOnlyGrantedScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.proj.Project(ctx, claimsFor(f, []validation.Scope{validation.ScopeProfile, validation.ScopeLocation}, false))
	if err != nil {
		t.Fatalf("Project: %v", err)
	}

	if out["full_name"] != "Asha" || out["location"] != "Hubli" {
		t.Fatalf("missing granted fields: %v", out)
	}
	// monotonicidad: nada fuera de los scopes presentes
	for _, forbidden := range []string{"aadhaar_number", "land_record_id", "attributes", "documents"} {
		if _, ok := out[forbidden]; ok {
			t.Fatalf("field %q leaked without its scope", forbidden)
		}
	}
}

func TestProjectEmptyScopesYieldsEmptyMap(t *testing.T) {
	f := newFixture(t)

	out, err := f.proj.Project(context.Background(), claimsFor(f, nil, false))
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("empty scope set produced fields: %v", out)
	}
}

func TestProjectDecryptsSensitiveFields(t *testing.T) {
	f := newFixture(t)

	out, err := f.proj.Project(context.Background(),
		claimsFor(f, []validation.Scope{validation.ScopeAadhaar, validation.ScopeLandRecords}, false))
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if out["aadhaar_number"] != "1234-5678-9012" {
		t.Fatalf("aadhaar_number = %v", out["aadhaar_number"])
	}
	if out["land_record_id"] != "KA-204-17" {
		t.Fatalf("land_record_id = %v", out["land_record_id"])
	}
}

func TestProjectDegradesCorruptFieldToAbsent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.st.UpdateSubject(ctx, f.sub.ID, map[string]any{"aadhaar_enc": "garbage"}); err != nil {
		t.Fatalf("UpdateSubject: %v", err)
	}

	out, err := f.proj.Project(ctx, claimsFor(f, []validation.Scope{validation.ScopeProfile, validation.ScopeAadhaar}, false))
	if err != nil {
		t.Fatalf("Project must not fail on one corrupt field: %v", err)
	}
	if _, ok := out["aadhaar_number"]; ok {
		t.Fatal("corrupt field should be absent, not present")
	}
	if out["full_name"] != "Asha" {
		t.Fatal("healthy fields must survive a corrupt sibling")
	}
}

func TestProjectDeniedWhenConsentRevoked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	scopes := []validation.Scope{validation.ScopeProfile}
	if _, err := f.led.Grant(ctx, f.sub.ID, f.svc.ID, scopes, 0); err != nil {
		t.Fatalf("grant: %v", err)
	}
	claims := claimsFor(f, scopes, true)

	if _, err := f.proj.Project(ctx, claims); err != nil {
		t.Fatalf("project before revoke: %v", err)
	}

	if _, err := f.led.Revoke(ctx, f.sub.ID, f.svc.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	// el token sigue firmado y vigente, pero el ledger manda
	_, err := f.proj.Project(ctx, claims)
	if !errors.Is(err, core.ErrAccessDenied) {
		t.Fatalf("want ErrAccessDenied after revoke, got %v", err)
	}

	logs, err := f.st.ListAccessLog(ctx, f.sub.ID, 10)
	if err != nil {
		t.Fatalf("ListAccessLog: %v", err)
	}
	if len(logs) < 2 {
		t.Fatalf("want audit entries for both reads, got %d", len(logs))
	}
	if logs[0].Outcome != core.OutcomeDenied {
		t.Fatalf("latest entry outcome = %s, want DENIED", logs[0].Outcome)
	}
}

func TestProjectDeniedWhenConsentExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	scopes := []validation.Scope{validation.ScopeProfile}
	if _, err := f.led.Grant(ctx, f.sub.ID, f.svc.ID, scopes, time.Nanosecond); err != nil {
		t.Fatalf("grant: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	_, err := f.proj.Project(ctx, claimsFor(f, scopes, true))
	if !errors.Is(err, core.ErrAccessDenied) {
		t.Fatalf("want ErrAccessDenied for lazily-expired consent, got %v", err)
	}
}

func TestProjectIntersectsSnapshotWithLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// el snapshot del token tiene profile+location; un grant posterior
	// (supersede) dejó sólo profile vigente
	snapshot := []validation.Scope{validation.ScopeProfile, validation.ScopeLocation}
	if _, err := f.led.Grant(ctx, f.sub.ID, f.svc.ID, snapshot, 0); err != nil {
		t.Fatalf("grant: %v", err)
	}
	claims := claimsFor(f, snapshot, true)
	if _, err := f.led.Grant(ctx, f.sub.ID, f.svc.ID, []validation.Scope{validation.ScopeProfile}, 0); err != nil {
		t.Fatalf("re-grant: %v", err)
	}

	out, err := f.proj.Project(ctx, claims)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if _, ok := out["location"]; ok {
		t.Fatal("location leaked: no longer in the active grant")
	}
	if out["full_name"] != "Asha" {
		t.Fatal("profile fields should survive the intersection")
	}
}
