// Package registry es el ServiceRegistry: identidad de cada third party y su
// allow-list de scopes. Hoja del grafo; no depende de nadie más.
package registry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bhoomi-id/bhoomi/internal/observability/logger"
	tokens "github.com/bhoomi-id/bhoomi/internal/security/token"
	"github.com/bhoomi-id/bhoomi/internal/store/core"
	"github.com/bhoomi-id/bhoomi/internal/validation"
)

type Registry struct {
	repo core.Repository
}

func New(repo core.Repository) *Registry {
	return &Registry{repo: repo}
}

// Register da de alta un service con credenciales opacas recién generadas.
// Rechaza cualquier scope fuera del vocabulario global (cerrado en
// validation). No hay constraint de unicidad sobre el nombre.
func (r *Registry) Register(ctx context.Context, name, description, redirectURI string, requestedScopes []string) (*core.Service, error) {
	scopes, err := validation.ParseScopes(requestedScopes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalid, err)
	}
	clientID, err := tokens.GenerateOpaqueToken(16)
	if err != nil {
		return nil, err
	}
	clientSecret, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return nil, err
	}

	svc := &core.Service{
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		Name:          name,
		Description:   description,
		RedirectURI:   redirectURI,
		AllowedScopes: scopes,
		Active:        true,
	}
	if err := r.repo.CreateService(ctx, svc); err != nil {
		return nil, err
	}
	logger.From(ctx).Info("service_registered",
		zap.Int64("service_id", svc.ID),
		zap.String("name", name),
		zap.Strings("allowed_scopes", validation.Strings(scopes)))
	return svc, nil
}

// Verify resuelve un client_id a su Service. core.ErrNotFound si no existe.
func (r *Registry) Verify(ctx context.Context, clientID string) (*core.Service, error) {
	return r.repo.GetServiceByClientID(ctx, clientID)
}

// ScopesAllowed reporta si cada scope está en la allow-list del service.
func (r *Registry) ScopesAllowed(svc *core.Service, scopes []validation.Scope) bool {
	return core.ScopesAllowed(svc, scopes)
}

// List devuelve los services (para el portal del subject).
func (r *Registry) List(ctx context.Context, activeOnly bool) ([]core.Service, error) {
	return r.repo.ListServices(ctx, activeOnly)
}
