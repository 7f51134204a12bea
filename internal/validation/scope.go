package validation

import (
	"fmt"
	"sort"
	"strings"
)

// Scope is a closed, enumerable data category. Anything outside the
// vocabulary below is rejected at parse time instead of flowing through
// string containment checks.
type Scope string

const (
	ScopeProfile     Scope = "profile"
	ScopeAadhaar     Scope = "aadhaar"
	ScopeLandRecords Scope = "land_records"
	ScopeDocuments   Scope = "documents"
	ScopeLocation    Scope = "location"
	ScopeCropData    Scope = "crop_data"
)

// vocabulary is the fixed global scope set. Order matters for stable output.
var vocabulary = []Scope{
	ScopeProfile,
	ScopeAadhaar,
	ScopeLandRecords,
	ScopeDocuments,
	ScopeLocation,
	ScopeCropData,
}

var vocabularySet = func() map[Scope]struct{} {
	m := make(map[Scope]struct{}, len(vocabulary))
	for _, s := range vocabulary {
		m[s] = struct{}{}
	}
	return m
}()

// Vocabulary devuelve una copia del vocabulario global.
func Vocabulary() []Scope {
	out := make([]Scope, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// ParseScope valida un nombre contra el vocabulario cerrado.
func ParseScope(name string) (Scope, error) {
	s := Scope(strings.TrimSpace(name))
	if _, ok := vocabularySet[s]; !ok {
		return "", fmt.Errorf("unknown scope %q", name)
	}
	return s, nil
}

// ParseScopes parses a list of raw names. The whole call fails on the first
// unknown name (no partial set). Duplicates collapse.
func ParseScopes(names []string) ([]Scope, error) {
	out := make([]Scope, 0, len(names))
	seen := make(map[Scope]struct{}, len(names))
	for _, n := range names {
		s, err := ParseScope(n)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// ParseScopeString parses a space-separated scope string (the credential
// wire shape).
func ParseScopeString(s string) ([]Scope, error) {
	return ParseScopes(strings.Fields(s))
}

// JoinScopes serializa scopes como string separado por espacios.
func JoinScopes(scopes []Scope) string {
	parts := make([]string, len(scopes))
	for i, s := range scopes {
		parts[i] = string(s)
	}
	return strings.Join(parts, " ")
}

// Strings convierte a []string (para columnas text[] / JSON).
func Strings(scopes []Scope) []string {
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = string(s)
	}
	return out
}

// FromStrings convierte desde []string ya persistido (filas de DB). Nombres
// desconocidos se descartan en silencio: una fila vieja con un scope retirado
// del vocabulario no debe romper lecturas.
func FromStrings(names []string) []Scope {
	out := make([]Scope, 0, len(names))
	for _, n := range names {
		if s, err := ParseScope(n); err == nil {
			out = append(out, s)
		}
	}
	return out
}

// Subset reporta si todos los elementos de sub están en super.
func Subset(sub, super []Scope) bool {
	set := make(map[Scope]struct{}, len(super))
	for _, s := range super {
		set[s] = struct{}{}
	}
	for _, s := range sub {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}

// Missing returns the elements of sub not present in super, sorted. Used to
// name the offending scope in ScopeNotAllowed errors.
func Missing(sub, super []Scope) []Scope {
	set := make(map[Scope]struct{}, len(super))
	for _, s := range super {
		set[s] = struct{}{}
	}
	var out []Scope
	for _, s := range sub {
		if _, ok := set[s]; !ok {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reporta si scopes incluye s.
func Contains(scopes []Scope, s Scope) bool {
	for _, v := range scopes {
		if v == s {
			return true
		}
	}
	return false
}
