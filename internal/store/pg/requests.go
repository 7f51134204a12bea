package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/bhoomi-id/bhoomi/internal/store/core"
)

const requestCols = `id, kind, subject_id, service_id, status, document_ids, decision_notes, details, created_at, updated_at`

func scanRequest(row pgx.Row) (*core.DataRequest, error) {
	var r core.DataRequest
	err := row.Scan(&r.ID, &r.Kind, &r.SubjectID, &r.ServiceID, &r.Status,
		&r.DocumentIDs, &r.DecisionNotes, &r.Details, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) CreateDataRequest(ctx context.Context, r *core.DataRequest) error {
	const q = `
		INSERT INTO data_requests (kind, subject_id, service_id, status, document_ids, details)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, '{}'::jsonb))
		RETURNING id, created_at, updated_at`

	return s.pool.QueryRow(ctx, q,
		r.Kind, r.SubjectID, r.ServiceID, r.Status, r.DocumentIDs, r.Details,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
}

func (s *Store) GetDataRequest(ctx context.Context, id int64) (*core.DataRequest, error) {
	q := `SELECT ` + requestCols + ` FROM data_requests WHERE id = $1`
	return scanRequest(s.pool.QueryRow(ctx, q, id))
}

func (s *Store) ListDataRequestsBySubject(ctx context.Context, subjectID int64, kind core.RequestKind) ([]core.DataRequest, error) {
	return s.listRequests(ctx, `subject_id`, subjectID, kind)
}

func (s *Store) ListDataRequestsByService(ctx context.Context, serviceID int64, kind core.RequestKind) ([]core.DataRequest, error) {
	return s.listRequests(ctx, `service_id`, serviceID, kind)
}

func (s *Store) listRequests(ctx context.Context, col string, id int64, kind core.RequestKind) ([]core.DataRequest, error) {
	q := `SELECT ` + requestCols + ` FROM data_requests WHERE ` + col + ` = $1`
	args := []any{id}
	if kind != "" {
		q += ` AND kind = $2`
		args = append(args, kind)
	}
	q += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.DataRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// UpdateDataRequestStatus cambia el estado sólo si el actual no es terminal.
// El WHERE condicional distingue "no existe" de "ya terminal" con un segundo
// lookup sólo en el camino de error.
func (s *Store) UpdateDataRequestStatus(ctx context.Context, id int64, status core.RequestStatus, notes *string) error {
	const q = `
		UPDATE data_requests
		SET status = $2, decision_notes = COALESCE($3, decision_notes), updated_at = NOW()
		WHERE id = $1
		  AND status NOT IN ('APPROVED', 'ADVISED', 'REJECTED', 'WITHDRAWN')`
	tag, err := s.pool.Exec(ctx, q, id, status, notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, gerr := s.GetDataRequest(ctx, id); gerr != nil {
			return gerr
		}
		return core.ErrConflictingState
	}
	return nil
}

func (s *Store) ReplaceDocumentSnapshot(ctx context.Context, id int64, docIDs []int64, status core.RequestStatus) error {
	const q = `
		UPDATE data_requests
		SET document_ids = $2, status = $3, updated_at = NOW()
		WHERE id = $1
		  AND status NOT IN ('APPROVED', 'ADVISED', 'REJECTED', 'WITHDRAWN')`
	tag, err := s.pool.Exec(ctx, q, id, docIDs, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, gerr := s.GetDataRequest(ctx, id); gerr != nil {
			return gerr
		}
		return core.ErrConflictingState
	}
	return nil
}
