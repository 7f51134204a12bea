package validation

import "testing"

func TestParseScope_Vocabulary(t *testing.T) {
	for _, s := range Vocabulary() {
		got, err := ParseScope(string(s))
		if err != nil {
			t.Fatalf("expected valid: %q (%v)", s, err)
		}
		if got != s {
			t.Fatalf("got %q want %q", got, s)
		}
	}
}

func TestParseScope_Invalid(t *testing.T) {
	invalids := []string{
		"",
		"PROFILE",        // case sensitive
		"bank_details",   // not in vocabulary
		"profile;hack",   // separador inválido
		"profile extra",  // espacios
		"aadhaar\n",      // not trimmed to valid by newline alone? TrimSpace handles it
	}
	// trailing whitespace sí se tolera (TrimSpace)
	if _, err := ParseScope(" profile "); err != nil {
		t.Fatalf("whitespace-padded scope should parse: %v", err)
	}
	for _, v := range invalids[:len(invalids)-1] {
		if _, err := ParseScope(v); err == nil {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}

func TestParseScopes_FailsWhole(t *testing.T) {
	if _, err := ParseScopes([]string{"profile", "nope", "documents"}); err == nil {
		t.Fatal("expected error for unknown scope in list")
	}
	got, err := ParseScopes([]string{"profile", "profile", "documents"})
	if err != nil {
		t.Fatalf("ParseScopes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("duplicates should collapse, got %v", got)
	}
}

func TestScopeString_RoundTrip(t *testing.T) {
	in := []Scope{ScopeProfile, ScopeLandRecords, ScopeCropData}
	out, err := ParseScopeString(JoinScopes(in))
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %v want %v", out, in)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("got %v want %v", out, in)
		}
	}
}

func TestSubsetAndMissing(t *testing.T) {
	allowed := []Scope{ScopeProfile, ScopeDocuments}
	if !Subset([]Scope{ScopeProfile}, allowed) {
		t.Fatal("profile should be subset of allowed")
	}
	if Subset([]Scope{ScopeProfile, ScopeAadhaar}, allowed) {
		t.Fatal("aadhaar is not allowed")
	}
	miss := Missing([]Scope{ScopeAadhaar, ScopeProfile, ScopeLocation}, allowed)
	if len(miss) != 2 || miss[0] != ScopeAadhaar || miss[1] != ScopeLocation {
		t.Fatalf("missing = %v", miss)
	}
	if len(Missing(nil, allowed)) != 0 {
		t.Fatal("empty sub has nothing missing")
	}
}
