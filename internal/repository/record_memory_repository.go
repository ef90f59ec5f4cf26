package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/query"

	"github.com/google/uuid"
)

// memoryRecordRepository keeps records in process. Natural order is insertion order.
type memoryRecordRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]domain.Record
	order   []uuid.UUID
}

// NewMemoryRecordRepository creates an empty in-memory record repository
func NewMemoryRecordRepository() RecordRepository {
	return &memoryRecordRepository{
		records: make(map[uuid.UUID]domain.Record),
	}
}

func (r *memoryRecordRepository) Create(ctx context.Context, record domain.Record) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.ID]; exists {
		return domain.Record{}, fmt.Errorf("failed to create record: duplicate id %s", record.ID)
	}
	stored := record
	stored.Fields = domain.NormalizeFields(record.Fields)
	r.records[record.ID] = stored
	r.order = append(r.order, record.ID)
	return cloneRecord(stored), nil
}

func (r *memoryRecordRepository) GetByID(ctx context.Context, scope Scope, id uuid.UUID) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok || !inScope(record, scope) {
		return domain.Record{}, fmt.Errorf("failed to get record %s: %w", id, ErrNotFound)
	}
	return cloneRecord(record), nil
}

func (r *memoryRecordRepository) GetByIDs(ctx context.Context, scope Scope, ids []uuid.UUID) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Record, 0, len(ids))
	for _, id := range ids {
		if record, ok := r.records[id]; ok && inScope(record, scope) {
			out = append(out, cloneRecord(record))
		}
	}
	return out, nil
}

func (r *memoryRecordRepository) Update(ctx context.Context, record domain.Record) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.records[record.ID]
	if !ok || !inScope(existing, Scope{TenantID: record.TenantID, Collection: record.Collection}) {
		return domain.Record{}, fmt.Errorf("failed to update record %s: %w", record.ID, ErrNotFound)
	}
	existing.Fields = domain.NormalizeFields(record.Fields)
	existing.UpdatedAt = record.UpdatedAt
	r.records[record.ID] = existing
	return cloneRecord(existing), nil
}

func (r *memoryRecordRepository) Delete(ctx context.Context, scope Scope, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok || !inScope(record, scope) {
		return fmt.Errorf("failed to delete record %s: %w", id, ErrNotFound)
	}
	delete(r.records, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *memoryRecordRepository) Count(ctx context.Context, scope Scope, filter query.Filter) (int64, error) {
	matched, err := r.match(ctx, scope, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (r *memoryRecordRepository) Find(ctx context.Context, scope Scope, filter query.Filter, sorts []query.Sort, limit, offset int) ([]domain.Record, error) {
	matched, err := r.match(ctx, scope, filter)
	if err != nil {
		return nil, err
	}

	if len(sorts) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, s := range sorts {
				a, aok := matched[i].Value(s.Field)
				b, bok := matched[j].Value(s.Field)
				c := compareForSort(a, aok, b, bok)
				if c == 0 {
					continue
				}
				if s.Descending() {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []domain.Record{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *memoryRecordRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *memoryRecordRepository) match(ctx context.Context, scope Scope, filter query.Filter) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]domain.Record, 0)
	for _, id := range r.order {
		record := r.records[id]
		if !inScope(record, scope) {
			continue
		}
		if !matchesFilter(record, filter) {
			continue
		}
		matched = append(matched, cloneRecord(record))
	}
	return matched, nil
}

func inScope(record domain.Record, scope Scope) bool {
	return record.TenantID == scope.TenantID && record.Collection == scope.Collection
}

func cloneRecord(record domain.Record) domain.Record {
	record.Fields = domain.CopyFields(record.Fields)
	return record
}
