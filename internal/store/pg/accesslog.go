package pg

import (
	"context"

	"github.com/bhoomi-id/bhoomi/internal/store/core"
)

func (s *Store) AppendAccessLog(ctx context.Context, e *core.AccessLogEntry) error {
	const q = `
		INSERT INTO access_log (subject_id, service_id, action, resource, outcome)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, ts`
	return s.pool.QueryRow(ctx, q, e.SubjectID, e.ServiceID, e.Action, e.Resource, e.Outcome).
		Scan(&e.ID, &e.Timestamp)
}

func (s *Store) ListAccessLog(ctx context.Context, subjectID int64, limit int) ([]core.AccessLogEntry, error) {
	const q = `
		SELECT id, subject_id, service_id, action, resource, outcome, ts
		FROM access_log
		WHERE subject_id = $1
		ORDER BY ts DESC, id DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, q, subjectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.AccessLogEntry
	for rows.Next() {
		var e core.AccessLogEntry
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.ServiceID, &e.Action, &e.Resource, &e.Outcome, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
