package handlers

import (
	"net/http"
	"strings"

	"github.com/bhoomi-id/bhoomi/internal/app"
	httpx "github.com/bhoomi-id/bhoomi/internal/http/httpx"
)

type serviceIn struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	RedirectURI string   `json:"redirect_uri,omitempty"`
	Scopes      []string `json:"scopes"`
}

type serviceOut struct {
	ID           int64    `json:"id"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Name         string   `json:"name"`
	Scopes       []string `json:"allowed_scopes"`
}

// NewRegisterServiceHandler maneja POST /v1/services. El client_secret se
// devuelve una sola vez, acá.
func NewRegisterServiceHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in serviceIn
		if !httpx.ReadJSON(w, r, &in) {
			return
		}
		in.Name = strings.TrimSpace(in.Name)
		if in.Name == "" || len(in.Scopes) == 0 {
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", "name y scopes requeridos", httpx.CodeValidation)
			return
		}

		svc, err := c.Registry.Register(r.Context(), in.Name, in.Description, in.RedirectURI, in.Scopes)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		httpx.WriteJSON(w, http.StatusCreated, serviceOut{
			ID:           svc.ID,
			ClientID:     svc.ClientID,
			ClientSecret: svc.ClientSecret,
			Name:         svc.Name,
			Scopes:       in.Scopes,
		})
	}
}

// NewListServicesHandler maneja GET /v1/services (catálogo para el portal).
func NewListServicesHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svcs, err := c.Registry.List(r.Context(), true)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"services": svcs})
	}
}
