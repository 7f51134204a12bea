package pg

import (
	"context"

	"github.com/bhoomi-id/bhoomi/internal/store/core"
)

func (s *Store) CreateDocument(ctx context.Context, d *core.Document) error {
	const q = `
		INSERT INTO documents (subject_id, filename, doc_type)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	return s.pool.QueryRow(ctx, q, d.SubjectID, d.Filename, d.DocType).Scan(&d.ID, &d.CreatedAt)
}

func (s *Store) GetDocumentsByIDs(ctx context.Context, subjectID int64, ids []int64) ([]core.Document, error) {
	q := `SELECT id, subject_id, filename, doc_type, created_at FROM documents WHERE subject_id = $1`
	args := []any{subjectID}
	if ids != nil {
		q += ` AND id = ANY($2)`
		args = append(args, ids)
	}
	q += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Document
	for rows.Next() {
		var d core.Document
		if err := rows.Scan(&d.ID, &d.SubjectID, &d.Filename, &d.DocType, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
