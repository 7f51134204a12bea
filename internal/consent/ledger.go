// Package consent es el ConsentLedger: registro autoritativo de qué subject
// otorgó qué scopes a qué service, con expiración perezosa y revocación en
// cascada.
package consent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bhoomi-id/bhoomi/internal/metrics"
	"github.com/bhoomi-id/bhoomi/internal/observability/logger"
	"github.com/bhoomi-id/bhoomi/internal/store/core"
	"github.com/bhoomi-id/bhoomi/internal/validation"
)

type Ledger struct {
	repo core.Repository
	subs []RevokedHandler
}

func New(repo core.Repository) *Ledger {
	return &Ledger{repo: repo}
}

// OnRevoked suscribe un handler al evento ConsentRevoked. Llamar durante el
// wiring, antes de servir tráfico.
func (l *Ledger) OnRevoked(h RevokedHandler) {
	l.subs = append(l.subs, h)
}

// Grant valida approvedScopes ⊆ service.AllowedScopes y registra el grant.
// Si el par ya tenía un grant activo, el store lo desactiva y crea el nuevo
// en una única transacción: en ningún instante hay dos activos para el par.
// ttl<=0 crea un grant sin expiración.
func (l *Ledger) Grant(ctx context.Context, subjectID, serviceID int64, scopes []validation.Scope, ttl time.Duration) (*core.Consent, error) {
	svc, err := l.repo.GetServiceByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if miss := validation.Missing(scopes, svc.AllowedScopes); len(miss) > 0 {
		// rechaza el grant completo nombrando el primer scope ofensor
		return nil, &core.ScopeNotAllowedError{Scope: miss[0], Service: svc.ClientID}
	}

	c := &core.Consent{
		SubjectID:     subjectID,
		ServiceID:     serviceID,
		GrantedScopes: scopes,
		Active:        true,
	}
	if ttl > 0 {
		c.ExpiresAt = core.ExpiryIn(time.Now().UTC(), ttl)
	}
	if err := l.repo.CreateConsent(ctx, c); err != nil {
		return nil, err
	}
	metrics.ConsentGrants.Inc()
	logger.From(ctx).Info("consent_granted",
		zap.Int64("subject_id", subjectID),
		zap.Int64("service_id", serviceID),
		zap.Strings("scopes", validation.Strings(scopes)))
	return c, nil
}

// GetActive devuelve el grant con active=true del par, o core.ErrNotFound.
// La expiración es perezosa: el caller DEBE chequear Live(now) además.
func (l *Ledger) GetActive(ctx context.Context, subjectID, serviceID int64) (*core.Consent, error) {
	return l.repo.GetActiveConsent(ctx, subjectID, serviceID)
}

// Revoke desactiva el grant activo del par y rechaza en bloque sus
// DataRequests no terminales, todo en la misma transacción (lo garantiza el
// store). Devuelve false si no había grant activo; re-revocar no es error.
func (l *Ledger) Revoke(ctx context.Context, subjectID, serviceID int64) (bool, error) {
	res, err := l.repo.RevokeConsent(ctx, subjectID, serviceID, CascadeNote)
	if err != nil {
		return false, err
	}
	if !res.Revoked {
		return false, nil
	}

	metrics.ConsentRevocations.Inc()
	metrics.CascadeRejections.Add(float64(res.RejectedRequests))
	logger.From(ctx).Info("consent_revoked",
		zap.Int64("subject_id", subjectID),
		zap.Int64("service_id", serviceID),
		zap.Int64("rejected_requests", res.RejectedRequests))

	ev := RevokedEvent{
		SubjectID:        subjectID,
		ServiceID:        serviceID,
		RejectedRequests: res.RejectedRequests,
		At:               time.Now().UTC(),
	}
	for _, h := range l.subs {
		h(ctx, ev)
	}
	return true, nil
}

// ListActive: vista self-service "qué compartí", ordenada por creación.
func (l *Ledger) ListActive(ctx context.Context, subjectID int64) ([]core.Consent, error) {
	return l.repo.ListActiveConsents(ctx, subjectID)
}
