package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/bhoomi-id/bhoomi/internal/store/core"
	"github.com/bhoomi-id/bhoomi/internal/validation"
)

const consentCols = `id, subject_id, service_id, granted_scopes, created_at, expires_at, revoked_at, is_active`

func scanConsent(row pgx.Row) (*core.Consent, error) {
	var c core.Consent
	var scopes []string
	err := row.Scan(&c.ID, &c.SubjectID, &c.ServiceID, &scopes, &c.CreatedAt, &c.ExpiresAt, &c.RevokedAt, &c.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	c.GrantedScopes = validation.FromStrings(scopes)
	return &c, nil
}

// CreateConsent inserta el nuevo consentimiento desactivando el activo previo
// del par (subject, service) en la misma transacción. El lock FOR UPDATE evita
// que dos grants concurrentes dejen dos filas activas.
func (s *Store) CreateConsent(ctx context.Context, c *core.Consent) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const lockQ = `
		SELECT id FROM consents
		WHERE subject_id = $1 AND service_id = $2 AND is_active
		FOR UPDATE`
	rows, err := tx.Query(ctx, lockQ, c.SubjectID, c.ServiceID)
	if err != nil {
		return err
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	const supersedeQ = `
		UPDATE consents SET is_active = FALSE, revoked_at = NOW()
		WHERE subject_id = $1 AND service_id = $2 AND is_active`
	if _, err := tx.Exec(ctx, supersedeQ, c.SubjectID, c.ServiceID); err != nil {
		return err
	}

	const insertQ = `
		INSERT INTO consents (subject_id, service_id, granted_scopes, expires_at, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, created_at`
	err = tx.QueryRow(ctx, insertQ,
		c.SubjectID, c.ServiceID, validation.Strings(c.GrantedScopes), c.ExpiresAt,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return err
	}
	c.Active = true

	return tx.Commit(ctx)
}

func (s *Store) GetActiveConsent(ctx context.Context, subjectID, serviceID int64) (*core.Consent, error) {
	q := `SELECT ` + consentCols + ` FROM consents
		WHERE subject_id = $1 AND service_id = $2 AND is_active`
	return scanConsent(s.pool.QueryRow(ctx, q, subjectID, serviceID))
}

func (s *Store) ListActiveConsents(ctx context.Context, subjectID int64) ([]core.Consent, error) {
	q := `SELECT ` + consentCols + ` FROM consents
		WHERE subject_id = $1 AND is_active ORDER BY created_at`

	rows, err := s.pool.Query(ctx, q, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Consent
	for rows.Next() {
		c, err := scanConsent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// RevokeConsent desactiva el consentimiento activo del par y rechaza en bloque
// las solicitudes no terminales del mismo par, todo en una transacción: o se
// revoca y cascada completa, o nada.
func (s *Store) RevokeConsent(ctx context.Context, subjectID, serviceID int64, cascadeNote string) (*core.RevocationResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const revokeQ = `
		UPDATE consents SET is_active = FALSE, revoked_at = NOW()
		WHERE subject_id = $1 AND service_id = $2 AND is_active`
	tag, err := tx.Exec(ctx, revokeQ, subjectID, serviceID)
	if err != nil {
		return nil, err
	}
	res := &core.RevocationResult{Revoked: tag.RowsAffected() > 0}
	if !res.Revoked {
		// nada que revocar: idempotente, sin cascada
		return res, tx.Commit(ctx)
	}

	const cascadeQ = `
		UPDATE data_requests
		SET status = 'REJECTED', decision_notes = $3, updated_at = NOW()
		WHERE subject_id = $1 AND service_id = $2
		  AND status NOT IN ('APPROVED', 'ADVISED', 'REJECTED', 'WITHDRAWN')`
	tag, err = tx.Exec(ctx, cascadeQ, subjectID, serviceID, cascadeNote)
	if err != nil {
		return nil, err
	}
	res.RejectedRequests = tag.RowsAffected()

	return res, tx.Commit(ctx)
}
