package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bhoomi-id/bhoomi/internal/app"
	httpx "github.com/bhoomi-id/bhoomi/internal/http/httpx"
	"github.com/bhoomi-id/bhoomi/internal/observability/logger"
	"github.com/bhoomi-id/bhoomi/internal/validation"
)

// NewAuthorizeHandler maneja GET /v1/authorize: el preflight que el portal
// muestra antes de la pantalla de consentimiento. Valida client_id y scopes
// contra la allow-list sin persistir nada.
func NewAuthorizeHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authSubject(c, w, r); !ok {
			return
		}

		clientID := r.URL.Query().Get("client_id")
		scopeStr := r.URL.Query().Get("scope")
		if clientID == "" || scopeStr == "" {
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", "client_id y scope requeridos", httpx.CodeValidation)
			return
		}

		svc, err := c.Registry.Verify(r.Context(), clientID)
		if err != nil {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "service desconocido", httpx.CodeNotFound)
			return
		}

		scopes, err := validation.ParseScopeString(scopeStr)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), httpx.CodeValidation)
			return
		}
		if miss := validation.Missing(scopes, svc.AllowedScopes); len(miss) > 0 {
			httpx.WriteError(w, http.StatusForbidden, "scope_not_allowed",
				"scope "+string(miss[0])+" fuera de la allow-list del service", httpx.CodeScopeNotAllowed)
			return
		}

		// Challenge efimero para correlacionar la pantalla de consentimiento
		// con el grant; expira solo, no se valida en POST /v1/consents.
		challenge := uuid.NewString()
		if err := c.Cache.Set(r.Context(), "authz:"+challenge, clientID+"|"+scopeStr, 5*time.Minute); err != nil {
			logger.From(r.Context()).Warn("authorize_challenge_cache_failed", zap.Error(err))
		}

		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"service":          svc,
			"requested_scopes": validation.Strings(scopes),
			"challenge":        challenge,
		})
	}
}

type grantIn struct {
	ClientID   string   `json:"client_id"`
	Scopes     []string `json:"scopes"`
	TTLSeconds int64    `json:"ttl_seconds,omitempty"`
}

// NewGrantConsentHandler maneja POST /v1/consents: registra el consentimiento
// (supersede incluido) y emite el credential con el snapshot de scopes para
// el service (azp = service id).
func NewGrantConsentHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authSubject(c, w, r)
		if !ok {
			return
		}
		var in grantIn
		if !httpx.ReadJSON(w, r, &in) {
			return
		}

		svc, err := c.Registry.Verify(r.Context(), in.ClientID)
		if err != nil {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "service desconocido", httpx.CodeNotFound)
			return
		}

		scopes, err := validation.ParseScopes(in.Scopes)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), httpx.CodeValidation)
			return
		}

		var ttl time.Duration
		if in.TTLSeconds > 0 {
			ttl = time.Duration(in.TTLSeconds) * time.Second
		}

		consent, err := c.Ledger.Grant(r.Context(), claims.SubjectID, svc.ID, scopes, ttl)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}

		tok, exp, err := c.Issuer.Issue(claims.SubjectID, consent.GrantedScopes, &svc.ID, 0)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		httpx.WriteJSON(w, http.StatusCreated, map[string]any{
			"consent":      consent,
			"access_token": tok,
			"token_type":   "Bearer",
			"expires_at":   exp,
		})
	}
}

// NewListConsentsHandler maneja GET /v1/consents.
func NewListConsentsHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authSubject(c, w, r)
		if !ok {
			return
		}
		consents, err := c.Ledger.ListActive(r.Context(), claims.SubjectID)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"consents": consents})
	}
}

// NewRevokeConsentHandler maneja DELETE /v1/consents/{client_id}. Idempotente:
// revocar sin consent activo devuelve revoked=false, nunca error.
func NewRevokeConsentHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authSubject(c, w, r)
		if !ok {
			return
		}
		clientID := chi.URLParam(r, "client_id")
		svc, err := c.Registry.Verify(r.Context(), clientID)
		if err != nil {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "service desconocido", httpx.CodeNotFound)
			return
		}

		revoked, err := c.Ledger.Revoke(r.Context(), claims.SubjectID, svc.ID)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"revoked": revoked})
	}
}
