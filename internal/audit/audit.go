// Package audit es el AccessAuditLog: registro append-only de cada lectura
// scoped, quién la hizo y con qué resultado.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bhoomi-id/bhoomi/internal/observability/logger"
	"github.com/bhoomi-id/bhoomi/internal/store/core"
)

// DefaultPageSize acota el listado subject-facing.
const DefaultPageSize = 50

type Log struct {
	repo core.Repository
}

func New(repo core.Repository) *Log {
	return &Log{repo: repo}
}

// Append inserta una entrada. Best-effort: un fallo de logging jamás voltea
// la lectura que describe — se loguea y se sigue.
func (l *Log) Append(ctx context.Context, e *core.AccessLogEntry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if err := l.repo.AppendAccessLog(ctx, e); err != nil {
		logger.From(ctx).Warn("audit_append_failed",
			zap.Int64("subject_id", e.SubjectID),
			zap.String("action", e.Action),
			zap.Error(err))
	}
}

// ListFor devuelve las últimas entradas del subject, más nuevas primero,
// con tope fijo en DefaultPageSize.
func (l *Log) ListFor(ctx context.Context, subjectID int64, limit int) ([]core.AccessLogEntry, error) {
	if limit <= 0 || limit > DefaultPageSize {
		limit = DefaultPageSize
	}
	return l.repo.ListAccessLog(ctx, subjectID, limit)
}
