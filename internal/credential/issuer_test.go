package credential

import (
	"errors"
	"testing"
	"time"

	"github.com/bhoomi-id/bhoomi/internal/validation"
)

func testIssuer(t *testing.T) *Issuer {
	t.Helper()
	secret := []byte("0123456789abcdef0123456789abcdef")
	iss, err := NewIssuer(secret, "bhoomi-test", 0)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	iss := testIssuer(t)
	scopes := []validation.Scope{validation.ScopeProfile, validation.ScopeLandRecords}
	azp := int64(7)

	tok, exp, err := iss.Issue(42, scopes, &azp, 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatal("expiry should be in the future")
	}

	got, err := iss.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.SubjectID != 42 {
		t.Fatalf("subject = %d, want 42", got.SubjectID)
	}
	if len(got.Scopes) != 2 || got.Scopes[0] != validation.ScopeProfile || got.Scopes[1] != validation.ScopeLandRecords {
		t.Fatalf("scopes = %v", got.Scopes)
	}
	if got.AuthorizedParty == nil || *got.AuthorizedParty != 7 {
		t.Fatalf("azp = %v, want 7", got.AuthorizedParty)
	}
}

func TestVerify_NoAZP(t *testing.T) {
	iss := testIssuer(t)
	tok, _, err := iss.Issue(1, []validation.Scope{validation.ScopeProfile}, nil, 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	got, err := iss.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.AuthorizedParty != nil {
		t.Fatalf("azp should be nil, got %v", *got.AuthorizedParty)
	}
}

func TestVerify_SingleCharMutation(t *testing.T) {
	iss := testIssuer(t)
	tok, _, err := iss.Issue(42, []validation.Scope{validation.ScopeProfile}, nil, 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	// mutar cada posición de a una: todas deben fallar cerrado
	for pos := 0; pos < len(tok); pos++ {
		mut := []byte(tok)
		if mut[pos] == 'A' {
			mut[pos] = 'B'
		} else {
			mut[pos] = 'A'
		}
		if string(mut) == tok {
			continue
		}
		if _, err := iss.Verify(string(mut)); !errors.Is(err, ErrInvalidCredential) {
			t.Fatalf("mutation at %d should be ErrInvalidCredential, got %v", pos, err)
		}
	}
}

func TestVerify_Expired(t *testing.T) {
	iss := testIssuer(t)
	tok, _, err := iss.Issue(42, []validation.Scope{validation.ScopeProfile}, nil, time.Millisecond)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := iss.Verify(tok); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expired token should be ErrInvalidCredential, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	a := testIssuer(t)
	b, err := NewIssuer([]byte("fedcba9876543210fedcba9876543210"), "bhoomi-test", 0)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	tok, _, err := a.Issue(42, []validation.Scope{validation.ScopeProfile}, nil, 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := b.Verify(tok); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("foreign signature should fail, got %v", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	iss := testIssuer(t)
	for _, bad := range []string{"", "abc", "a.b.c", "eyJhbGciOiJub25lIn0..'"} {
		if _, err := iss.Verify(bad); !errors.Is(err, ErrInvalidCredential) {
			t.Fatalf("garbage %q should be ErrInvalidCredential, got %v", bad, err)
		}
	}
}

func TestNewIssuer_ShortSecret(t *testing.T) {
	if _, err := NewIssuer([]byte("short"), "x", 0); err == nil {
		t.Fatal("short secret should be rejected")
	}
}
