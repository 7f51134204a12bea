package handlers

import (
	"net/http"

	"github.com/bhoomi-id/bhoomi/internal/app"
	httpx "github.com/bhoomi-id/bhoomi/internal/http/httpx"
	"github.com/bhoomi-id/bhoomi/internal/requests"
	"github.com/bhoomi-id/bhoomi/internal/store/core"
)

func resolveService(c *app.Container, w http.ResponseWriter, r *http.Request, clientID string) (*core.Service, bool) {
	if clientID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "client_id requerido", httpx.CodeValidation)
		return nil, false
	}
	svc, err := c.Registry.Verify(r.Context(), clientID)
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "service desconocido", httpx.CodeNotFound)
		return nil, false
	}
	return svc, true
}

type loanApplyIn struct {
	ClientID    string  `json:"client_id"`
	DocumentIDs []int64 `json:"document_ids"`
}

// NewApplyLoanHandler maneja POST /v1/loans.
func NewApplyLoanHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authSubject(c, w, r)
		if !ok {
			return
		}
		var in loanApplyIn
		if !httpx.ReadJSON(w, r, &in) {
			return
		}
		svc, ok := resolveService(c, w, r, in.ClientID)
		if !ok {
			return
		}

		req, err := c.Requests.ApplyLoan(r.Context(), claims.SubjectID, svc.ID, in.DocumentIDs)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, req)
	}
}

// NewLoanRequirementsHandler maneja GET /v1/loans/requirements.
func NewLoanRequirementsHandler(*app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"mandatory": requests.MandatoryLoanDocs,
			"optional":  requests.OptionalLoanDocs,
		})
	}
}

// NewMyRequestsHandler lista las solicitudes del subject, filtradas por kind.
func NewMyRequestsHandler(c *app.Container, kind core.RequestKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authSubject(c, w, r)
		if !ok {
			return
		}
		reqs, err := c.Requests.ListMine(r.Context(), claims.SubjectID, kind)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"requests": reqs})
	}
}

type withdrawDocIn struct {
	DocumentID int64 `json:"document_id"`
}

// NewWithdrawDocumentHandler maneja POST /v1/requests/{id}/withdraw-document:
// saca un documento del snapshot y deja la solicitud en PENDING_REVOKED.
func NewWithdrawDocumentHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authSubject(c, w, r)
		if !ok {
			return
		}
		id, ok := pathID(r, "id")
		if !ok {
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", "id inválido", httpx.CodeValidation)
			return
		}
		var in withdrawDocIn
		if !httpx.ReadJSON(w, r, &in) {
			return
		}

		if err := c.Requests.WithdrawDocument(r.Context(), claims.SubjectID, id, in.DocumentID); err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": core.StatusPendingRevoked})
	}
}

type advisoryApplyIn struct {
	ClientID  string         `json:"client_id"`
	Details   map[string]any `json:"details,omitempty"`
	SoilDocID *int64         `json:"soil_doc_id,omitempty"`
}

// NewApplyAdvisoryHandler maneja POST /v1/advisory.
func NewApplyAdvisoryHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authSubject(c, w, r)
		if !ok {
			return
		}
		var in advisoryApplyIn
		if !httpx.ReadJSON(w, r, &in) {
			return
		}
		svc, ok := resolveService(c, w, r, in.ClientID)
		if !ok {
			return
		}

		req, err := c.Requests.ApplyAdvisory(r.Context(), claims.SubjectID, svc.ID, in.Details, in.SoilDocID)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, req)
	}
}
