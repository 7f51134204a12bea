package core

import (
	"context"
	"time"

	"github.com/bhoomi-id/bhoomi/internal/validation"
)

// Repository es el contrato transaccional sobre las entidades del dominio.
// Las dos operaciones que leen-y-escriben un invariante de unicidad
// (CreateConsent y RevokeConsent) son atómicas puertas adentro: la
// implementación pg las ejecuta en una transacción con lock de fila.
type Repository interface {
	Ping(ctx context.Context) error

	// ---- Subjects ----
	CreateSubject(ctx context.Context, s *Subject) error
	GetSubjectByID(ctx context.Context, id int64) (*Subject, error)
	GetSubjectByPhone(ctx context.Context, phone string) (*Subject, error)
	GetSubjectByAadhaarHash(ctx context.Context, hash string) (*Subject, error)
	UpdateSubject(ctx context.Context, id int64, updates map[string]any) error
	MarkSubjectVerified(ctx context.Context, id int64) error

	// ---- Services ----
	CreateService(ctx context.Context, s *Service) error
	GetServiceByClientID(ctx context.Context, clientID string) (*Service, error)
	GetServiceByID(ctx context.Context, id int64) (*Service, error)
	ListServices(ctx context.Context, activeOnly bool) ([]Service, error)

	// ---- Consents ----
	// CreateConsent inserta un grant nuevo desactivando el activo previo del
	// par (si existe) en la misma transacción. Nunca quedan dos activos.
	CreateConsent(ctx context.Context, c *Consent) error
	GetActiveConsent(ctx context.Context, subjectID, serviceID int64) (*Consent, error)
	ListActiveConsents(ctx context.Context, subjectID int64) ([]Consent, error)
	// RevokeConsent desactiva el grant activo del par y, en la MISMA
	// transacción, rechaza en bloque todo DataRequest no terminal del par
	// con la nota dada. Devuelve Revoked=false si no había grant activo
	// (la cascada no corre en ese caso).
	RevokeConsent(ctx context.Context, subjectID, serviceID int64, cascadeNote string) (*RevocationResult, error)

	// ---- Data requests ----
	CreateDataRequest(ctx context.Context, r *DataRequest) error
	GetDataRequest(ctx context.Context, id int64) (*DataRequest, error)
	ListDataRequestsBySubject(ctx context.Context, subjectID int64, kind RequestKind) ([]DataRequest, error)
	ListDataRequestsByService(ctx context.Context, serviceID int64, kind RequestKind) ([]DataRequest, error)
	// UpdateDataRequestStatus aplica una decisión. Falla con
	// ErrConflictingState si la fila ya está en estado terminal
	// (update condicional, no read-then-write).
	UpdateDataRequestStatus(ctx context.Context, id int64, status RequestStatus, notes *string) error
	ReplaceDocumentSnapshot(ctx context.Context, id int64, docIDs []int64, status RequestStatus) error

	// ---- Documents ----
	CreateDocument(ctx context.Context, d *Document) error
	// GetDocumentsByIDs devuelve los documentos del subject con esos ids.
	// ids nil = todos los documentos del subject.
	GetDocumentsByIDs(ctx context.Context, subjectID int64, ids []int64) ([]Document, error)

	// ---- Audit ----
	AppendAccessLog(ctx context.Context, e *AccessLogEntry) error
	ListAccessLog(ctx context.Context, subjectID int64, limit int) ([]AccessLogEntry, error)
}

// ConsentTTL helpers: los workflows crean consents acotados en el tiempo.
func ExpiryIn(now time.Time, ttl time.Duration) *time.Time {
	t := now.Add(ttl)
	return &t
}

// ScopesAllowed reporta si cada scope pedido está en la allow-list del service.
func ScopesAllowed(svc *Service, scopes []validation.Scope) bool {
	return validation.Subset(scopes, svc.AllowedScopes)
}
