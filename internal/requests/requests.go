// Package requests maneja los DataRequests: solicitudes de préstamo y de
// asesoría, dos instancias del mismo shape. Crear una solicitud otorga (o
// reemplaza) el consent del workflow; decidirla exige aislamiento de dominio
// del admin; revocar el consent las rechaza en cascada (eso vive en el store,
// disparado por el ledger).
package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bhoomi-id/bhoomi/internal/audit"
	"github.com/bhoomi-id/bhoomi/internal/consent"
	"github.com/bhoomi-id/bhoomi/internal/store/core"
	"github.com/bhoomi-id/bhoomi/internal/validation"
)

// TTLs de los consents que cada workflow crea, heredados del producto:
// préstamos 30 días sobre documents; asesoría 7 días sobre location+crop_data.
const (
	LoanConsentTTL     = 30 * 24 * time.Hour
	AdvisoryConsentTTL = 7 * 24 * time.Hour
)

// Tipos de documento requeridos/opcionales para una solicitud de préstamo.
var (
	MandatoryLoanDocs = []string{"IDENTITY", "LAND_RECORD", "CROP_DETAILS"}
	OptionalLoanDocs  = []string{"BANK_STATEMENT", "LOAN_HISTORY", "SOIL_CARD"}
)

type Service struct {
	repo   core.Repository
	ledger *consent.Ledger
	audits *audit.Log
}

func New(repo core.Repository, ledger *consent.Ledger, audits *audit.Log) *Service {
	return &Service{repo: repo, ledger: ledger, audits: audits}
}

// ApplyLoan crea una solicitud de préstamo sobre un snapshot inmutable de
// documentos. Valida pertenencia y tipos obligatorios, y otorga el consent
// de workflow (documents, 30 días) — si ya había uno activo, lo reemplaza.
func (s *Service) ApplyLoan(ctx context.Context, subjectID, serviceID int64, documentIDs []int64) (*core.DataRequest, error) {
	if _, err := s.repo.GetServiceByID(ctx, serviceID); err != nil {
		return nil, err
	}

	docs, err := s.repo.GetDocumentsByIDs(ctx, subjectID, documentIDs)
	if err != nil {
		return nil, err
	}
	if len(docs) != len(documentIDs) {
		return nil, fmt.Errorf("%w: some documents were not found or do not belong to you", core.ErrInvalid)
	}

	uploaded := make(map[string]bool, len(docs))
	for _, d := range docs {
		uploaded[d.DocType] = true
	}
	var missing []string
	for _, dt := range MandatoryLoanDocs {
		if !uploaded[dt] {
			missing = append(missing, dt)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing mandatory documents: %s", core.ErrInvalid, strings.Join(missing, ", "))
	}

	if _, err := s.ledger.Grant(ctx, subjectID, serviceID, []validation.Scope{validation.ScopeDocuments}, LoanConsentTTL); err != nil {
		return nil, err
	}

	req := &core.DataRequest{
		Kind:        core.RequestLoan,
		SubjectID:   subjectID,
		ServiceID:   serviceID,
		Status:      core.StatusPending,
		DocumentIDs: documentIDs,
	}
	if err := s.repo.CreateDataRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ApplyAdvisory crea una solicitud de asesoría. Exige location en el perfil
// (dato obligatorio del workflow), rechaza duplicados pendientes y otorga el
// consent corto (location+crop_data, 7 días).
func (s *Service) ApplyAdvisory(ctx context.Context, subjectID, serviceID int64, details map[string]any, soilDocID *int64) (*core.DataRequest, error) {
	if _, err := s.repo.GetServiceByID(ctx, serviceID); err != nil {
		return nil, err
	}
	subject, err := s.repo.GetSubjectByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if subject.Location == nil || *subject.Location == "" {
		return nil, fmt.Errorf("%w: profile incomplete, location is required", core.ErrInvalid)
	}

	pending, err := s.repo.ListDataRequestsBySubject(ctx, subjectID, core.RequestAdvisory)
	if err != nil {
		return nil, err
	}
	for _, r := range pending {
		if r.ServiceID == serviceID && r.Status == core.StatusPending {
			return nil, fmt.Errorf("%w: you already have a pending advisory request", core.ErrConflict)
		}
	}

	var docIDs []int64
	if soilDocID != nil {
		docs, err := s.repo.GetDocumentsByIDs(ctx, subjectID, []int64{*soilDocID})
		if err != nil {
			return nil, err
		}
		if len(docs) != 1 {
			return nil, fmt.Errorf("%w: invalid soil health document", core.ErrInvalid)
		}
		docIDs = []int64{*soilDocID}
	}

	if _, err := s.ledger.Grant(ctx, subjectID, serviceID,
		[]validation.Scope{validation.ScopeLocation, validation.ScopeCropData}, AdvisoryConsentTTL); err != nil {
		return nil, err
	}

	if details == nil {
		details = map[string]any{}
	}
	details["location"] = *subject.Location // snapshot, no referencia viva

	req := &core.DataRequest{
		Kind:        core.RequestAdvisory,
		SubjectID:   subjectID,
		ServiceID:   serviceID,
		Status:      core.StatusPending,
		DocumentIDs: docIDs,
		Details:     details,
	}
	if err := s.repo.CreateDataRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// decidableStatuses: a qué estados puede mover una decisión de admin.
var decidableStatuses = map[core.RequestStatus]bool{
	core.StatusApproved:   true,
	core.StatusAdvised:    true,
	core.StatusRejected:   true,
	core.StatusRequestDoc: true,
}

// Decide aplica una decisión administrativa. El aislamiento de dominio es un
// guard obligatorio acá adentro, no cortesía del caller: el serviceID de la
// afiliación del admin (claim azp del credential) debe coincidir con el del
// request. ErrConflictingState si el request ya es terminal.
func (s *Service) Decide(ctx context.Context, adminServiceID, requestID int64, status core.RequestStatus, notes *string) error {
	if !decidableStatuses[status] {
		return fmt.Errorf("%w: status %q is not a valid decision", core.ErrInvalid, status)
	}
	req, err := s.repo.GetDataRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.ServiceID != adminServiceID {
		return fmt.Errorf("%w: request belongs to another service", core.ErrAccessDenied)
	}
	return s.repo.UpdateDataRequestStatus(ctx, requestID, status, notes)
}

// WithdrawDocument saca un documento del snapshot de una solicitud propia y
// la marca PENDING_REVOKED para que el admin lo vea. No es la cascada: la
// revocación total del consent siempre termina en REJECTED.
func (s *Service) WithdrawDocument(ctx context.Context, subjectID, requestID, docID int64) error {
	req, err := s.repo.GetDataRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.SubjectID != subjectID {
		return core.ErrNotFound // no revelamos existencia de requests ajenos
	}
	if req.Status.Terminal() {
		return core.ErrConflictingState
	}

	kept := make([]int64, 0, len(req.DocumentIDs))
	found := false
	for _, id := range req.DocumentIDs {
		if id == docID {
			found = true
			continue
		}
		kept = append(kept, id)
	}
	if !found {
		return fmt.Errorf("%w: document is not part of this request", core.ErrInvalid)
	}
	return s.repo.ReplaceDocumentSnapshot(ctx, requestID, kept, core.StatusPendingRevoked)
}

// DocumentsFor es la vista de admin sobre los documentos de una solicitud.
// Re-chequea el ledger SIEMPRE (expiración perezosa incluida) y audita el
// acceso, concedido o negado.
func (s *Service) DocumentsFor(ctx context.Context, adminServiceID, requestID int64) ([]core.Document, error) {
	req, err := s.repo.GetDataRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ServiceID != adminServiceID {
		return nil, fmt.Errorf("%w: request belongs to another service", core.ErrAccessDenied)
	}

	c, err := s.repo.GetActiveConsent(ctx, req.SubjectID, req.ServiceID)
	denied := func(reason string) ([]core.Document, error) {
		s.audits.Append(ctx, &core.AccessLogEntry{
			SubjectID: req.SubjectID,
			ServiceID: &req.ServiceID,
			Action:    "DOCUMENT_ACCESS",
			Resource:  fmt.Sprintf("request:%d", requestID),
			Outcome:   core.OutcomeDenied,
		})
		return nil, fmt.Errorf("%w: %s", core.ErrAccessDenied, reason)
	}
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return denied("consent revoked")
		}
		return nil, err
	}
	if !c.Live(time.Now().UTC()) {
		return denied("consent expired")
	}

	docs, err := s.repo.GetDocumentsByIDs(ctx, req.SubjectID, req.DocumentIDs)
	if err != nil {
		return nil, err
	}
	s.audits.Append(ctx, &core.AccessLogEntry{
		SubjectID: req.SubjectID,
		ServiceID: &req.ServiceID,
		Action:    "DOCUMENT_ACCESS",
		Resource:  fmt.Sprintf("request:%d", requestID),
		Outcome:   core.OutcomeSuccess,
	})
	return docs, nil
}

// ListMine lista las solicitudes del subject (kind vacío = todas).
func (s *Service) ListMine(ctx context.Context, subjectID int64, kind core.RequestKind) ([]core.DataRequest, error) {
	return s.repo.ListDataRequestsBySubject(ctx, subjectID, kind)
}

// ListForService lista las solicitudes del dominio de un admin.
func (s *Service) ListForService(ctx context.Context, serviceID int64, kind core.RequestKind) ([]core.DataRequest, error) {
	return s.repo.ListDataRequestsByService(ctx, serviceID, kind)
}
