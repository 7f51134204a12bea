package handlers

import (
	"net/http"
	"strings"

	"github.com/bhoomi-id/bhoomi/internal/app"
	httpx "github.com/bhoomi-id/bhoomi/internal/http/httpx"
	"github.com/bhoomi-id/bhoomi/internal/store/core"
)

type documentIn struct {
	Filename string `json:"filename"`
	DocType  string `json:"doc_type"`
}

// NewUploadDocumentHandler maneja POST /v1/documents. Sólo metadata; el blob
// vive en storage externo.
func NewUploadDocumentHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authSubject(c, w, r)
		if !ok {
			return
		}
		var in documentIn
		if !httpx.ReadJSON(w, r, &in) {
			return
		}
		in.Filename = strings.TrimSpace(in.Filename)
		in.DocType = strings.ToUpper(strings.TrimSpace(in.DocType))
		if in.Filename == "" || in.DocType == "" {
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", "filename y doc_type requeridos", httpx.CodeValidation)
			return
		}

		doc := &core.Document{
			SubjectID: claims.SubjectID,
			Filename:  in.Filename,
			DocType:   in.DocType,
		}
		if err := c.Store.CreateDocument(r.Context(), doc); err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, doc)
	}
}

// NewListDocumentsHandler maneja GET /v1/documents (los del subject).
func NewListDocumentsHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authSubject(c, w, r)
		if !ok {
			return
		}
		docs, err := c.Store.GetDocumentsByIDs(r.Context(), claims.SubjectID, nil)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"documents": docs})
	}
}
