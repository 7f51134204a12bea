// Package app agrupa las dependencias compartidas por los handlers HTTP.
package app

import (
	"github.com/bhoomi-id/bhoomi/internal/audit"
	"github.com/bhoomi-id/bhoomi/internal/cache"
	"github.com/bhoomi-id/bhoomi/internal/config"
	"github.com/bhoomi-id/bhoomi/internal/consent"
	"github.com/bhoomi-id/bhoomi/internal/credential"
	"github.com/bhoomi-id/bhoomi/internal/email"
	"github.com/bhoomi-id/bhoomi/internal/projector"
	"github.com/bhoomi-id/bhoomi/internal/rate"
	"github.com/bhoomi-id/bhoomi/internal/registry"
	"github.com/bhoomi-id/bhoomi/internal/requests"
	"github.com/bhoomi-id/bhoomi/internal/security/secretbox"
	"github.com/bhoomi-id/bhoomi/internal/store/core"
)

type Container struct {
	Cfg   *config.Config
	Store core.Repository

	Cache   cache.Client
	Limiter rate.Limiter // nil = sin rate limit

	Issuer *credential.Issuer
	Box    *secretbox.Box

	Registry  *registry.Registry
	Ledger    *consent.Ledger
	Projector *projector.Projector
	Audits    *audit.Log
	Requests  *requests.Service

	Email email.Sender
}
