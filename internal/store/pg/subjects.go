package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bhoomi-id/bhoomi/internal/store/core"
)

const subjectCols = `id, full_name, phone_number, email, password_hash, is_verified, is_active,
	profile_photo, location, attributes, aadhaar_enc, aadhaar_hash, land_record_enc, created_at`

func scanSubject(row pgx.Row) (*core.Subject, error) {
	var sub core.Subject
	err := row.Scan(
		&sub.ID, &sub.FullName, &sub.Phone, &sub.Email, &sub.PasswordHash,
		&sub.Verified, &sub.Active, &sub.ProfilePhoto, &sub.Location, &sub.Attributes,
		&sub.AadhaarEnc, &sub.AadhaarHash, &sub.LandRecordEnc, &sub.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (s *Store) CreateSubject(ctx context.Context, sub *core.Subject) error {
	const q = `
		INSERT INTO subjects (full_name, phone_number, email, password_hash, is_verified, is_active, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, '{}'::jsonb))
		RETURNING id, created_at`

	err := s.pool.QueryRow(ctx, q,
		sub.FullName, sub.Phone, sub.Email, sub.PasswordHash, sub.Verified, sub.Active, sub.Attributes,
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return core.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetSubjectByID(ctx context.Context, id int64) (*core.Subject, error) {
	q := `SELECT ` + subjectCols + ` FROM subjects WHERE id = $1`
	return scanSubject(s.pool.QueryRow(ctx, q, id))
}

func (s *Store) GetSubjectByPhone(ctx context.Context, phone string) (*core.Subject, error) {
	q := `SELECT ` + subjectCols + ` FROM subjects WHERE phone_number = $1`
	return scanSubject(s.pool.QueryRow(ctx, q, phone))
}

func (s *Store) GetSubjectByAadhaarHash(ctx context.Context, hash string) (*core.Subject, error) {
	q := `SELECT ` + subjectCols + ` FROM subjects WHERE aadhaar_hash = $1`
	return scanSubject(s.pool.QueryRow(ctx, q, hash))
}

// columnas actualizables vía UpdateSubject; todo lo demás se ignora
var subjectUpdatable = map[string]bool{
	"full_name":       true,
	"email":           true,
	"profile_photo":   true,
	"location":        true,
	"attributes":      true,
	"aadhaar_enc":     true,
	"aadhaar_hash":    true,
	"land_record_enc": true,
}

func (s *Store) UpdateSubject(ctx context.Context, id int64, updates map[string]any) error {
	sets := make([]string, 0, len(updates))
	args := make([]any, 0, len(updates)+1)
	args = append(args, id)
	for col, val := range updates {
		if !subjectUpdatable[col] {
			continue
		}
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	q := `UPDATE subjects SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) MarkSubjectVerified(ctx context.Context, id int64) error {
	const q = `UPDATE subjects SET is_verified = TRUE WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
