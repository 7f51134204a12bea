// Package projector es el ScopedDataProjector: dado un credential verificado
// proyecta el subconjunto de campos del subject que los scopes habilitan, y
// deja una entrada de audit por cada llamada, salga bien o mal.
//
// Mapa de campos por scope (fijo, documentado acá):
//
//	profile      → full_name, phone_number, email, profile_photo
//	aadhaar      → aadhaar_number (descifrado)
//	land_records → land_record_id (descifrado)
//	location     → location
//	crop_data    → attributes (mapa abierto: farm_size, crop, season, ...)
//	documents    → documents (metadata de los documentos del subject)
//
// Scopes no reconocidos o no autorizados no aportan nada: la salida es la
// unión de SOLO los scopes presentes, nunca más.
package projector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bhoomi-id/bhoomi/internal/audit"
	"github.com/bhoomi-id/bhoomi/internal/consent"
	"github.com/bhoomi-id/bhoomi/internal/credential"
	"github.com/bhoomi-id/bhoomi/internal/metrics"
	"github.com/bhoomi-id/bhoomi/internal/observability/logger"
	"github.com/bhoomi-id/bhoomi/internal/security/secretbox"
	"github.com/bhoomi-id/bhoomi/internal/store/core"
	"github.com/bhoomi-id/bhoomi/internal/validation"
)

type Projector struct {
	repo   core.Repository
	ledger *consent.Ledger
	audits *audit.Log
	box    *secretbox.Box
}

func New(repo core.Repository, ledger *consent.Ledger, audits *audit.Log, box *secretbox.Box) *Projector {
	return &Projector{repo: repo, ledger: ledger, audits: audits, box: box}
}

// Project resuelve los scopes efectivos y arma el mapa parcial.
//
// Invariante C del credential: el scope set es un snapshot de emisión. Por
// eso, cuando hay authorized party (azp), acá se re-consulta el ledger: si
// el consent del par ya no está activo o expiró, la llamada falla con
// AccessDenied aunque la firma del token siga siendo válida. Los scopes
// efectivos son la intersección del snapshot con lo vigente en el ledger.
func (p *Projector) Project(ctx context.Context, claims *credential.Claims) (map[string]any, error) {
	scopes := claims.Scopes

	if claims.AuthorizedParty != nil {
		c, err := p.ledger.GetActive(ctx, claims.SubjectID, *claims.AuthorizedParty)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				p.appendAudit(ctx, claims, scopes, core.OutcomeDenied)
				metrics.ProjectionsDenied.Inc()
				return nil, fmt.Errorf("%w: consent revoked", core.ErrAccessDenied)
			}
			return nil, err
		}
		if !c.Live(time.Now().UTC()) {
			p.appendAudit(ctx, claims, scopes, core.OutcomeDenied)
			metrics.ProjectionsDenied.Inc()
			return nil, fmt.Errorf("%w: consent expired", core.ErrAccessDenied)
		}
		// intersección: lo emitido pisado por lo vigente
		scopes = intersect(scopes, c.GrantedScopes)
	}

	subject, err := p.repo.GetSubjectByID(ctx, claims.SubjectID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any)
	for _, s := range scopes {
		switch s {
		case validation.ScopeProfile:
			out["full_name"] = subject.FullName
			out["phone_number"] = subject.Phone
			if subject.Email != nil {
				out["email"] = *subject.Email
			}
			if subject.ProfilePhoto != nil {
				out["profile_photo"] = *subject.ProfilePhoto
			}
		case validation.ScopeAadhaar:
			p.decryptInto(ctx, out, "aadhaar_number", subject.AadhaarEnc)
		case validation.ScopeLandRecords:
			p.decryptInto(ctx, out, "land_record_id", subject.LandRecordEnc)
		case validation.ScopeLocation:
			if subject.Location != nil {
				out["location"] = *subject.Location
			}
		case validation.ScopeCropData:
			if subject.Attributes != nil {
				out["attributes"] = subject.Attributes
			}
		case validation.ScopeDocuments:
			docs, err := p.repo.GetDocumentsByIDs(ctx, subject.ID, nil)
			if err == nil {
				out["documents"] = docs
			} else {
				logger.From(ctx).Warn("projector_documents_failed", zap.Error(err))
			}
		}
	}

	p.appendAudit(ctx, claims, scopes, core.OutcomeSuccess)
	return out, nil
}

// decryptInto degrada el campo a ausente si el valor cifrado está corrupto o
// no se puede leer: un campo ilegible no bloquea el resto del registro.
func (p *Projector) decryptInto(ctx context.Context, out map[string]any, key string, enc *string) {
	if enc == nil || *enc == "" {
		return
	}
	plain, err := p.box.Decrypt(*enc)
	if err != nil {
		logger.From(ctx).Warn("projector_field_decrypt_failed",
			zap.String("field", key), zap.Error(err))
		return
	}
	out[key] = plain
}

func (p *Projector) appendAudit(ctx context.Context, claims *credential.Claims, scopes []validation.Scope, outcome core.AccessOutcome) {
	p.audits.Append(ctx, &core.AccessLogEntry{
		SubjectID: claims.SubjectID,
		ServiceID: claims.AuthorizedParty,
		Action:    "DATA_ACCESS",
		Resource:  "scopes: " + validation.JoinScopes(scopes),
		Outcome:   outcome,
	})
}

func intersect(a, b []validation.Scope) []validation.Scope {
	out := make([]validation.Scope, 0, len(a))
	for _, s := range a {
		if validation.Contains(b, s) {
			out = append(out, s)
		}
	}
	return out
}
