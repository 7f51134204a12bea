// Package handlers implementa los endpoints HTTP sobre app.Container.
package handlers

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bhoomi-id/bhoomi/internal/app"
	"github.com/bhoomi-id/bhoomi/internal/credential"
	httpx "github.com/bhoomi-id/bhoomi/internal/http/httpx"
	"github.com/bhoomi-id/bhoomi/internal/store/core"
)

// bearerToken extrae el token del header Authorization.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// authSubject verifica el credential del portador y exige que sea first-party
// (sin azp): las credenciales con scope otorgadas a services no sirven para
// operar el portal del subject.
func authSubject(c *app.Container, w http.ResponseWriter, r *http.Request) (*credential.Claims, bool) {
	tok := bearerToken(r)
	if tok == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "falta bearer token", httpx.CodeUnauthorized)
		return nil, false
	}
	claims, err := c.Issuer.Verify(tok)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credential", "credential inválido o expirado", httpx.CodeInvalidCredential)
		return nil, false
	}
	if claims.AuthorizedParty != nil {
		httpx.WriteError(w, http.StatusForbidden, "access_denied", "se requiere un credential de subject", httpx.CodeAccessDenied)
		return nil, false
	}
	return claims, true
}

// authCredential verifica cualquier credential (subject o service).
func authCredential(c *app.Container, w http.ResponseWriter, r *http.Request) (*credential.Claims, bool) {
	tok := bearerToken(r)
	if tok == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "falta bearer token", httpx.CodeUnauthorized)
		return nil, false
	}
	claims, err := c.Issuer.Verify(tok)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credential", "credential inválido o expirado", httpx.CodeInvalidCredential)
		return nil, false
	}
	return claims, true
}

// authService autentica un service por Basic auth (client_id:client_secret)
// con comparación en tiempo constante.
func authService(c *app.Container, w http.ResponseWriter, r *http.Request) (*core.Service, bool) {
	clientID, secret, ok := r.BasicAuth()
	if !ok || clientID == "" {
		w.Header().Set("WWW-Authenticate", `Basic realm="bhoomi"`)
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "se requiere basic auth de service", httpx.CodeUnauthorized)
		return nil, false
	}
	svc, err := c.Registry.Verify(r.Context(), clientID)
	if err != nil || !svc.Active ||
		subtle.ConstantTimeCompare([]byte(svc.ClientSecret), []byte(secret)) != 1 {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "client_id o client_secret inválidos", httpx.CodeUnauthorized)
		return nil, false
	}
	return svc, true
}

// pathID parsea un parámetro de ruta numérico de chi.
func pathID(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
