package handlers

import (
	"net/http"

	"github.com/bhoomi-id/bhoomi/internal/app"
	httpx "github.com/bhoomi-id/bhoomi/internal/http/httpx"
	"github.com/bhoomi-id/bhoomi/internal/store/core"
)

type accessLogOut struct {
	core.AccessLogEntry
	ServiceName *string `json:"service_name,omitempty"`
}

// NewProjectDataHandler maneja GET /v1/data: la proyección con scope del
// portador. El credential lleva el snapshot de scopes; el projector re-chequea
// el ledger en cada lectura y audita el resultado.
func NewProjectDataHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authCredential(c, w, r)
		if !ok {
			return
		}

		data, err := c.Projector.Project(r.Context(), claims)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		httpx.WriteJSON(w, http.StatusOK, data)
	}
}

// NewAccessLogHandler maneja GET /v1/me/access-logs: los últimos accesos a
// los datos del subject, más reciente primero.
func NewAccessLogHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authSubject(c, w, r)
		if !ok {
			return
		}
		entries, err := c.Audits.ListFor(r.Context(), claims.SubjectID, 0)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}

		// Join del nombre del service para la vista del subject.
		names := map[int64]string{}
		out := make([]accessLogOut, 0, len(entries))
		for _, e := range entries {
			o := accessLogOut{AccessLogEntry: e}
			if e.ServiceID != nil {
				name, ok := names[*e.ServiceID]
				if !ok {
					if svc, err := c.Store.GetServiceByID(r.Context(), *e.ServiceID); err == nil {
						name = svc.Name
					}
					names[*e.ServiceID] = name
				}
				if name != "" {
					o.ServiceName = &name
				}
			}
			out = append(out, o)
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"logs": out})
	}
}
