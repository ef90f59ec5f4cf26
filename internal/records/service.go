// Package records implements the single-record operations and paginated listing
// shared by every catalog entity.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RockaiDev/bariqe-dashboard/internal/apperr"
	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/logging"
	"github.com/RockaiDev/bariqe-dashboard/internal/query"
	"github.com/RockaiDev/bariqe-dashboard/internal/recordloader"
	"github.com/RockaiDev/bariqe-dashboard/internal/repository"
	"github.com/RockaiDev/bariqe-dashboard/pkg/validator"
)

// ChangeListener is notified after a record in a collection is written or deleted.
type ChangeListener func(ctx context.Context, tenantID uuid.UUID, collection string)

// Service coordinates validation, persistence and listing of records.
type Service struct {
	repo      repository.RecordRepository
	paginator *query.Paginator
	validator *validator.RecordValidator
	now       func() time.Time
	listeners []ChangeListener
}

// Option configures the service.
type Option func(*Service)

func WithPaginator(p *query.Paginator) Option {
	return func(s *Service) {
		if p != nil {
			s.paginator = p
		}
	}
}

// WithClock overrides the time source used for createdAt and updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithChangeListener(listener ChangeListener) Option {
	return func(s *Service) {
		if listener != nil {
			s.listeners = append(s.listeners, listener)
		}
	}
}

func NewService(repo repository.RecordRepository, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		paginator: query.NewPaginator(),
		validator: validator.NewRecordValidator(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers a listener after construction.
func (s *Service) OnChange(listener ChangeListener) {
	if listener != nil {
		s.listeners = append(s.listeners, listener)
	}
}

func (s *Service) Repository() repository.RecordRepository { return s.repo }

func (s *Service) Paginator() *query.Paginator { return s.paginator }

func scopeOf(def domain.EntityDefinition, tenantID uuid.UUID) repository.Scope {
	return repository.Scope{TenantID: tenantID, Collection: def.Collection}
}

func (s *Service) notify(ctx context.Context, tenantID uuid.UUID, collection string) {
	for _, listener := range s.listeners {
		listener(ctx, tenantID, collection)
	}
}

func notFound(def domain.EntityDefinition, id uuid.UUID, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(def.Name, id)
	}
	return err
}

func invalidFields(def domain.EntityDefinition, result validator.ValidationResult) error {
	return apperr.New(
		apperr.WithKind(apperr.KindInvalidInput),
		apperr.WithPublicMessage(fmt.Sprintf("invalid %s: %s", def.Name, result.Error())),
		apperr.WithPublicData("errors", result.Errors),
	)
}

// Get returns one record or a NotFound error.
func (s *Service) Get(ctx context.Context, def domain.EntityDefinition, tenantID, id uuid.UUID) (domain.Record, error) {
	record, err := s.repo.GetByID(ctx, scopeOf(def, tenantID), id)
	if err != nil {
		return domain.Record{}, notFound(def, id, err)
	}
	return record, nil
}

// Create validates the fields and stores a new record with fresh timestamps and
// correlation id.
func (s *Service) Create(ctx context.Context, def domain.EntityDefinition, tenantID uuid.UUID, fields map[string]any) (domain.Record, error) {
	normalized, result := s.validator.Normalize(fields, def, validator.ModeCreate)
	if !result.IsValid {
		return domain.Record{}, invalidFields(def, result)
	}

	created, err := s.repo.Create(ctx, domain.NewRecord(tenantID, def.Collection, normalized, s.now()))
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to create %s: %w", def.Name, err)
	}

	logging.FromContext(ctx).Debug("record created",
		zap.String("collection", def.Collection),
		zap.String("id", created.ID.String()),
	)
	s.notify(ctx, tenantID, def.Collection)
	return created, nil
}

// Update merges patch over the stored fields. Absent fields are kept and
// updatedAt is always refreshed.
func (s *Service) Update(ctx context.Context, def domain.EntityDefinition, tenantID, id uuid.UUID, patch map[string]any) (domain.Record, error) {
	normalized, result := s.validator.Normalize(patch, def, validator.ModePatch)
	if !result.IsValid {
		return domain.Record{}, invalidFields(def, result)
	}

	existing, err := s.repo.GetByID(ctx, scopeOf(def, tenantID), id)
	if err != nil {
		return domain.Record{}, notFound(def, id, err)
	}

	merged := existing.WithFields(normalized, s.now())
	for key, value := range normalized {
		if value == nil {
			delete(merged.Fields, key)
		}
	}

	updated, err := s.repo.Update(ctx, merged)
	if err != nil {
		return domain.Record{}, notFound(def, id, err)
	}

	s.notify(ctx, tenantID, def.Collection)
	return updated, nil
}

// Delete removes a record and acknowledges it.
func (s *Service) Delete(ctx context.Context, def domain.EntityDefinition, tenantID, id uuid.UUID) (domain.Ack, error) {
	if err := s.repo.Delete(ctx, scopeOf(def, tenantID), id); err != nil {
		return domain.Ack{}, notFound(def, id, err)
	}
	s.notify(ctx, tenantID, def.Collection)
	return domain.Ack{ID: id, Message: fmt.Sprintf("%s deleted successfully", def.Name)}, nil
}

// List runs a paginated query over the tenant's collection.
func (s *Service) List(ctx context.Context, def domain.EntityDefinition, tenantID uuid.UUID, req query.Request) (query.PageResult, error) {
	req.FieldTypes = def.FieldType
	return s.paginator.Paginate(ctx, repository.Collection(s.repo, scopeOf(def, tenantID)), req)
}

// FindByNaturalKey returns the earliest created record whose natural key equals key.
func (s *Service) FindByNaturalKey(ctx context.Context, def domain.EntityDefinition, tenantID uuid.UUID, key map[string]any) (domain.Record, bool, error) {
	// Key values are already in stored form, so conditions are built directly
	// instead of going through clause coercion.
	filter := query.Filter{Conditions: make([]query.Condition, 0, len(def.NaturalKey))}
	for _, name := range def.NaturalKey {
		value, ok := key[name]
		if !ok {
			return domain.Record{}, false, fmt.Errorf("natural key of %s is missing %q", def.Name, name)
		}
		filter.Conditions = append(filter.Conditions, query.Condition{Field: name, Op: query.OpEqual, Value: value})
	}

	found, err := s.repo.Find(ctx, scopeOf(def, tenantID), filter,
		[]query.Sort{{Field: domain.FieldCreatedAt, Direction: query.Asc}}, 1, 0)
	if err != nil {
		return domain.Record{}, false, fmt.Errorf("failed to look up %s by natural key: %w", def.Name, err)
	}
	if len(found) == 0 {
		return domain.Record{}, false, nil
	}
	return found[0], true, nil
}

// Expand replaces the given reference fields with the records they point at.
// Unknown, non-reference or dangling references are left as stored.
func (s *Service) Expand(ctx context.Context, def domain.EntityDefinition, tenantID uuid.UUID, records []domain.Record, fields []string) ([]domain.Record, error) {
	refs := def.References()
	targets := make(map[string]string, len(fields))
	for _, field := range fields {
		if collection, ok := refs[field]; ok {
			targets[field] = collection
		}
	}
	if len(targets) == 0 || len(records) == 0 {
		return records, nil
	}

	loader := recordloader.FromContext(ctx, tenantID)
	if loader == nil {
		loader = recordloader.NewRecordLoader(s.repo, tenantID)
	}

	// Queue every load before resolving so the loader can batch them
	type pending struct {
		index int
		field string
		load  func() (domain.Record, bool, error)
	}
	var queued []pending
	for i, record := range records {
		for field, collection := range targets {
			raw, ok := record.Fields[field].(string)
			if !ok {
				continue
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			queued = append(queued, pending{index: i, field: field, load: loader.Load(ctx, collection, id)})
		}
	}

	out := make([]domain.Record, len(records))
	copy(out, records)
	copied := make(map[int]bool, len(records))
	for _, p := range queued {
		ref, ok, err := p.load()
		if err != nil {
			return nil, fmt.Errorf("failed to expand %s: %w", p.field, err)
		}
		if !ok {
			continue
		}
		if !copied[p.index] {
			out[p.index].Fields = domain.CopyFields(records[p.index].Fields)
			copied[p.index] = true
		}
		out[p.index].Fields[p.field] = ref.AsMap()
	}
	return out, nil
}
