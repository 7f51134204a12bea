package core

import (
	"errors"
	"fmt"

	"github.com/bhoomi-id/bhoomi/internal/validation"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalid          = errors.New("invalid")
	ErrAccessDenied     = errors.New("access denied")
	ErrConflictingState = errors.New("conflicting state")
)

// ScopeNotAllowedError rechaza un grant completo nombrando el scope ofensor.
// No hay grant parcial.
type ScopeNotAllowedError struct {
	Scope   validation.Scope
	Service string // client_id del service
}

func (e *ScopeNotAllowedError) Error() string {
	return fmt.Sprintf("scope %q not allowed for this service", e.Scope)
}

// IsScopeNotAllowed reports whether err is a ScopeNotAllowedError.
func IsScopeNotAllowed(err error) bool {
	var snae *ScopeNotAllowedError
	return errors.As(err, &snae)
}
