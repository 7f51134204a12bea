package handlers

import (
	"net/http"
	"strings"

	"github.com/bhoomi-id/bhoomi/internal/app"
	httpx "github.com/bhoomi-id/bhoomi/internal/http/httpx"
	"github.com/bhoomi-id/bhoomi/internal/store/core"
)

// Endpoints service-facing: Basic auth con client_id/client_secret. El
// aislamiento de dominio (un service sólo ve sus propias solicitudes) lo
// aplica la capa requests.

// NewServiceRequestsHandler maneja GET /v1/service/requests?kind=.
func NewServiceRequestsHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := authService(c, w, r)
		if !ok {
			return
		}
		kind := core.RequestKind(strings.ToUpper(r.URL.Query().Get("kind")))
		reqs, err := c.Requests.ListForService(r.Context(), svc.ID, kind)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"requests": reqs})
	}
}

type decisionIn struct {
	Status core.RequestStatus `json:"status"`
	Notes  *string            `json:"notes,omitempty"`
}

// NewDecideRequestHandler maneja POST /v1/service/requests/{id}/decision.
func NewDecideRequestHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := authService(c, w, r)
		if !ok {
			return
		}
		id, ok := pathID(r, "id")
		if !ok {
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", "id inválido", httpx.CodeValidation)
			return
		}
		var in decisionIn
		if !httpx.ReadJSON(w, r, &in) {
			return
		}

		if err := c.Requests.Decide(r.Context(), svc.ID, id, in.Status, in.Notes); err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		req, err := c.Store.GetDataRequest(r.Context(), id)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, req)
	}
}

// NewRequestDocumentsHandler maneja GET /v1/service/requests/{id}/documents:
// la vista admin del snapshot, con re-chequeo del consent y auditoría.
func NewRequestDocumentsHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := authService(c, w, r)
		if !ok {
			return
		}
		id, ok := pathID(r, "id")
		if !ok {
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", "id inválido", httpx.CodeValidation)
			return
		}

		docs, err := c.Requests.DocumentsFor(r.Context(), svc.ID, id)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"documents": docs})
	}
}
