package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/query"
)

const recordColumns = "id, tenant_id, collection, correlation_id, data, created_at, updated_at"

// recordRepository implements RecordRepository on a JSONB table
type recordRepository struct {
	pool *pgxpool.Pool
}

// NewRecordRepository creates a new PostgreSQL-backed record repository
func NewRecordRepository(pool *pgxpool.Pool) RecordRepository {
	return &recordRepository{pool: pool}
}

// Create inserts a new record
func (r *recordRepository) Create(ctx context.Context, record domain.Record) (domain.Record, error) {
	data, err := record.GetFieldsAsJSONB()
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to marshal fields: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO records (id, tenant_id, collection, correlation_id, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
		 RETURNING `+recordColumns,
		record.ID, record.TenantID, record.Collection, record.CorrelationID, string(data), record.CreatedAt, record.UpdatedAt,
	)
	created, err := scanRecord(row)
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to create record: %w", err)
	}
	return created, nil
}

// GetByID retrieves a record by ID within a scope
func (r *recordRepository) GetByID(ctx context.Context, scope Scope, id uuid.UUID) (domain.Record, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = $1 AND tenant_id = $2 AND collection = $3`,
		id, scope.TenantID, scope.Collection,
	)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Record{}, fmt.Errorf("failed to get record %s: %w", id, ErrNotFound)
		}
		return domain.Record{}, fmt.Errorf("failed to get record: %w", err)
	}
	return record, nil
}

// GetByIDs retrieves multiple records by their IDs.
func (r *recordRepository) GetByIDs(ctx context.Context, scope Scope, ids []uuid.UUID) ([]domain.Record, error) {
	if len(ids) == 0 {
		return []domain.Record{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM records WHERE tenant_id = $1 AND collection = $2 AND id = ANY($3)`,
		scope.TenantID, scope.Collection, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get records by IDs: %w", err)
	}
	return collectRecords(rows)
}

// Update replaces the field map and timestamp of an existing record
func (r *recordRepository) Update(ctx context.Context, record domain.Record) (domain.Record, error) {
	data, err := record.GetFieldsAsJSONB()
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to marshal fields: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`UPDATE records SET data = $1::jsonb, updated_at = $2
		 WHERE id = $3 AND tenant_id = $4 AND collection = $5
		 RETURNING `+recordColumns,
		string(data), record.UpdatedAt, record.ID, record.TenantID, record.Collection,
	)
	updated, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Record{}, fmt.Errorf("failed to update record %s: %w", record.ID, ErrNotFound)
		}
		return domain.Record{}, fmt.Errorf("failed to update record: %w", err)
	}
	return updated, nil
}

// Delete removes a record
func (r *recordRepository) Delete(ctx context.Context, scope Scope, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM records WHERE id = $1 AND tenant_id = $2 AND collection = $3`,
		id, scope.TenantID, scope.Collection,
	)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete record %s: %w", id, ErrNotFound)
	}
	return nil
}

// Count returns the number of records in scope matching the filter
func (r *recordRepository) Count(ctx context.Context, scope Scope, filter query.Filter) (int64, error) {
	builder := newSQLBuilder()
	where, err := scopedWhere(scope, filter, builder)
	if err != nil {
		return 0, err
	}

	var count int64
	sql := "SELECT COUNT(*) FROM records WHERE " + strings.Join(where, " AND ")
	if err := r.pool.QueryRow(ctx, sql, builder.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// Find returns one window of the matching records in sort order
func (r *recordRepository) Find(ctx context.Context, scope Scope, filter query.Filter, sorts []query.Sort, limit, offset int) ([]domain.Record, error) {
	builder := newSQLBuilder()
	where, err := scopedWhere(scope, filter, builder)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf("SELECT %s FROM records WHERE %s %s", recordColumns, strings.Join(where, " AND "), buildOrderClause(sorts, builder))
	if limit > 0 {
		sql += " LIMIT " + builder.arg(limit)
	}
	if offset > 0 {
		sql += " OFFSET " + builder.arg(offset)
	}

	rows, err := r.pool.Query(ctx, sql, builder.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find records: %w", err)
	}
	return collectRecords(rows)
}

func (r *recordRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scopedWhere(scope Scope, filter query.Filter, builder *sqlBuilder) ([]string, error) {
	where := []string{
		"tenant_id = " + builder.arg(scope.TenantID),
		"collection = " + builder.arg(scope.Collection),
	}
	conditions, err := buildWhere(filter, builder)
	if err != nil {
		return nil, err
	}
	return append(where, conditions...), nil
}

func collectRecords(rows pgx.Rows) ([]domain.Record, error) {
	defer rows.Close()

	records := make([]domain.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (domain.Record, error) {
	var (
		id            uuid.UUID
		tenantID      uuid.UUID
		collection    string
		correlationID string
		data          []byte
		createdAt     time.Time
		updatedAt     time.Time
	)
	if err := row.Scan(&id, &tenantID, &collection, &correlationID, &data, &createdAt, &updatedAt); err != nil {
		return domain.Record{}, err
	}

	fields, err := domain.FromJSONBFields(data)
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to decode fields for record %s: %w", id, err)
	}

	return domain.Record{
		ID:            id,
		TenantID:      tenantID,
		Collection:    collection,
		CorrelationID: correlationID,
		Fields:        fields,
		CreatedAt:     createdAt.UTC(),
		UpdatedAt:     updatedAt.UTC(),
	}, nil
}
