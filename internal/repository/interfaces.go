package repository

import (
	"context"
	"errors"

	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/query"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no record matches the requested id within the scope.
var ErrNotFound = errors.New("record not found")

// Scope addresses one tenant's collection.
type Scope struct {
	TenantID   uuid.UUID
	Collection string
}

// RecordRepository defines the persistence contract for schema-agnostic records.
type RecordRepository interface {
	Create(ctx context.Context, record domain.Record) (domain.Record, error)
	GetByID(ctx context.Context, scope Scope, id uuid.UUID) (domain.Record, error)
	GetByIDs(ctx context.Context, scope Scope, ids []uuid.UUID) ([]domain.Record, error)
	Update(ctx context.Context, record domain.Record) (domain.Record, error)
	Delete(ctx context.Context, scope Scope, id uuid.UUID) error

	// Query operations; a limit <= 0 returns every match.
	Count(ctx context.Context, scope Scope, filter query.Filter) (int64, error)
	Find(ctx context.Context, scope Scope, filter query.Filter, sorts []query.Sort, limit, offset int) ([]domain.Record, error)

	Ping(ctx context.Context) error
}

// Collection adapts a scoped repository to a query.Source.
func Collection(repo RecordRepository, scope Scope) query.Source {
	return scopedSource{repo: repo, scope: scope}
}

type scopedSource struct {
	repo  RecordRepository
	scope Scope
}

func (s scopedSource) Count(ctx context.Context, filter query.Filter) (int64, error) {
	return s.repo.Count(ctx, s.scope, filter)
}

func (s scopedSource) Find(ctx context.Context, filter query.Filter, sorts []query.Sort, limit, offset int) ([]domain.Record, error) {
	return s.repo.Find(ctx, s.scope, filter, sorts, limit, offset)
}
