package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bhoomi-id/bhoomi/internal/store/core"
	"github.com/bhoomi-id/bhoomi/internal/validation"
)

const serviceCols = `id, client_id, client_secret, name, description, redirect_uri, allowed_scopes, is_active, created_at`

func scanService(row pgx.Row) (*core.Service, error) {
	var svc core.Service
	var scopes []string
	err := row.Scan(
		&svc.ID, &svc.ClientID, &svc.ClientSecret, &svc.Name, &svc.Description,
		&svc.RedirectURI, &scopes, &svc.Active, &svc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	svc.AllowedScopes = validation.FromStrings(scopes)
	return &svc, nil
}

func (s *Store) CreateService(ctx context.Context, svc *core.Service) error {
	const q = `
		INSERT INTO services (client_id, client_secret, name, description, redirect_uri, allowed_scopes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := s.pool.QueryRow(ctx, q,
		svc.ClientID, svc.ClientSecret, svc.Name, svc.Description, svc.RedirectURI,
		validation.Strings(svc.AllowedScopes), svc.Active,
	).Scan(&svc.ID, &svc.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return core.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetServiceByClientID(ctx context.Context, clientID string) (*core.Service, error) {
	q := `SELECT ` + serviceCols + ` FROM services WHERE client_id = $1`
	return scanService(s.pool.QueryRow(ctx, q, clientID))
}

func (s *Store) GetServiceByID(ctx context.Context, id int64) (*core.Service, error) {
	q := `SELECT ` + serviceCols + ` FROM services WHERE id = $1`
	return scanService(s.pool.QueryRow(ctx, q, id))
}

func (s *Store) ListServices(ctx context.Context, activeOnly bool) ([]core.Service, error) {
	q := `SELECT ` + serviceCols + ` FROM services`
	if activeOnly {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *svc)
	}
	return out, rows.Err()
}
