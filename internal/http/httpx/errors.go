package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bhoomi-id/bhoomi/internal/store/core"
)

// Códigos numéricos estables por familia: 11xx entrada, 12xx auth,
// 13xx scopes/consent, 14xx rate, 15xx internos.
const (
	CodeInvalidJSON       = 1102
	CodeValidation        = 1103
	CodeUnauthorized      = 1201
	CodeInvalidCredential = 1202
	CodeNotFound          = 1301
	CodeConflict          = 1302
	CodeScopeNotAllowed   = 1303
	CodeAccessDenied      = 1304
	CodeConflictingState  = 1305
	CodeRateLimited       = 1401
	CodeInternal          = 1500
)

type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorCode        int    `json:"error_code,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, desc string, errCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rid := w.Header().Get("X-Request-ID")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{
		Error:            code,
		ErrorDescription: desc,
		ErrorCode:        errCode,
		RequestID:        rid,
	})
}

// WriteDomainError mapea los sentinelas de core al envelope HTTP.
func WriteDomainError(w http.ResponseWriter, err error) {
	var snErr *core.ScopeNotAllowedError
	switch {
	case errors.As(err, &snErr):
		WriteError(w, http.StatusForbidden, "scope_not_allowed", snErr.Error(), CodeScopeNotAllowed)
	case errors.Is(err, core.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "recurso no encontrado", CodeNotFound)
	case errors.Is(err, core.ErrConflict):
		WriteError(w, http.StatusConflict, "conflict", err.Error(), CodeConflict)
	case errors.Is(err, core.ErrConflictingState):
		WriteError(w, http.StatusConflict, "conflicting_state", err.Error(), CodeConflictingState)
	case errors.Is(err, core.ErrAccessDenied):
		WriteError(w, http.StatusForbidden, "access_denied", err.Error(), CodeAccessDenied)
	case errors.Is(err, core.ErrInvalid):
		WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), CodeValidation)
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "error interno", CodeInternal)
	}
}

// WriteJSON: respuesta JSON estándar
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodifica JSON de forma tolerante (no falla por campos extra).
// Valida Content-Type y limita el body a 1MB.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		WriteError(w, http.StatusBadRequest, "invalid_json", "Content-Type debe ser application/json", CodeInvalidJSON)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, "invalid_json", "json inválido", CodeInvalidJSON)
		return false
	}
	return true
}
