package core

import (
	"time"

	"github.com/bhoomi-id/bhoomi/internal/validation"
)

// Subject es la persona dueña de los datos (farmer en el dominio original).
// Nunca se borra físicamente; sólo se desactiva.
type Subject struct {
	ID           int64          `json:"id"`
	FullName     string         `json:"full_name"`
	Phone        string         `json:"phone_number"`
	Email        *string        `json:"email,omitempty"`
	PasswordHash string         `json:"-"`
	Verified     bool           `json:"is_verified"`
	Active       bool           `json:"is_active"`
	ProfilePhoto *string        `json:"profile_photo,omitempty"`
	Location     *string        `json:"location,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`

	// Campos sensibles: cifrados en reposo (secretbox). AadhaarHash es un
	// blind index para búsqueda sin descifrar.
	AadhaarEnc    *string `json:"-"`
	AadhaarHash   *string `json:"-"`
	LandRecordEnc *string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Service is a registered third party with an allow-listed scope set.
// Scopes are immutable after creation.
type Service struct {
	ID            int64              `json:"id"`
	ClientID      string             `json:"client_id"`
	ClientSecret  string             `json:"-"`
	Name          string             `json:"name"`
	Description   string             `json:"description,omitempty"`
	RedirectURI   string             `json:"redirect_uri,omitempty"`
	AllowedScopes []validation.Scope `json:"allowed_scopes"`
	Active        bool               `json:"is_active"`
	CreatedAt     time.Time          `json:"created_at"`
}

// Consent is the authoritative record of approved scopes for one
// (subject, service) pair. At most one row per pair is active at any
// instant; superseding and revocation deactivate, they never delete.
type Consent struct {
	ID            int64              `json:"id"`
	SubjectID     int64              `json:"subject_id"`
	ServiceID     int64              `json:"service_id"`
	GrantedScopes []validation.Scope `json:"granted_scopes"`
	CreatedAt     time.Time          `json:"created_at"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
	RevokedAt     *time.Time         `json:"revoked_at,omitempty"`
	Active        bool               `json:"is_active"`
}

// Live aplica la expiración perezosa: una fila activa con expires_at vencido
// está inerte aunque nadie la haya barrido.
func (c *Consent) Live(now time.Time) bool {
	if c == nil || !c.Active {
		return false
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return false
	}
	return true
}

// RequestKind distingue las dos instancias del mismo shape.
type RequestKind string

const (
	RequestLoan     RequestKind = "LOAN"
	RequestAdvisory RequestKind = "ADVISORY"
)

// RequestStatus es el enum de estados de un DataRequest.
type RequestStatus string

const (
	StatusPending        RequestStatus = "PENDING"
	StatusRequestDoc     RequestStatus = "REQUEST_DOC" // admin pidió más documentos
	StatusPendingRevoked RequestStatus = "PENDING_REVOKED"
	StatusApproved       RequestStatus = "APPROVED"
	StatusAdvised        RequestStatus = "ADVISED"
	StatusRejected       RequestStatus = "REJECTED"
	StatusWithdrawn      RequestStatus = "WITHDRAWN"
)

// Terminal reports whether the status admits no further transition.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusAdvised, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}

// DataRequest: solicitud de préstamo o de asesoría construida sobre un
// snapshot inmutable de documentos.
type DataRequest struct {
	ID            int64          `json:"id"`
	Kind          RequestKind    `json:"kind"`
	SubjectID     int64          `json:"subject_id"`
	ServiceID     int64          `json:"service_id"`
	Status        RequestStatus  `json:"status"`
	DocumentIDs   []int64        `json:"documents_snapshot"`
	DecisionNotes *string        `json:"decision_notes,omitempty"`
	Details       map[string]any `json:"details,omitempty"` // crop/season/etc for advisory
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Document metadata (el blob vive en storage externo, fuera de alcance).
type Document struct {
	ID        int64     `json:"id"`
	SubjectID int64     `json:"subject_id"`
	Filename  string    `json:"filename"`
	DocType   string    `json:"doc_type"`
	CreatedAt time.Time `json:"created_at"`
}

// AccessOutcome is the recorded result of a scoped read.
type AccessOutcome string

const (
	OutcomeSuccess AccessOutcome = "SUCCESS"
	OutcomeDenied  AccessOutcome = "DENIED"
)

// AccessLogEntry: append-only, nunca se muta ni se borra.
type AccessLogEntry struct {
	ID        int64         `json:"id"`
	SubjectID int64         `json:"subject_id"`
	ServiceID *int64        `json:"service_id,omitempty"`
	Action    string        `json:"action"`
	Resource  string        `json:"resource"`
	Outcome   AccessOutcome `json:"outcome"`
	Timestamp time.Time     `json:"timestamp"`
}

// RevocationResult resume un revoke + cascada (misma transacción).
type RevocationResult struct {
	Revoked          bool
	RejectedRequests int64
}
