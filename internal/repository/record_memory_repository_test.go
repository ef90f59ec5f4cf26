package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/query"
)

type fixture struct {
	repo  RecordRepository
	scope Scope
	ids   map[string]uuid.UUID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		repo:  NewMemoryRecordRepository(),
		scope: Scope{TenantID: uuid.New(), Collection: "contacts"},
		ids:   map[string]uuid.UUID{},
	}
	base := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	rows := []map[string]any{
		{"name": "Alice Smith", "email": "alice@example.com", "age": 31, "tags": []string{"vip", "newsletter"}, "active": true},
		{"name": "Bob Stone", "email": "bob@example.com", "age": 17, "tags": []string{"newsletter"}, "active": false},
		{"name": "Carol Jones", "age": 45, "tags": []string{}, "notes": nil},
		{"name": "dave (ops)", "email": "dave@ops.example.com", "age": "unknown", "address": map[string]any{"city": "Riyadh"}},
	}
	for i, fields := range rows {
		rec := domain.NewRecord(f.scope.TenantID, f.scope.Collection, fields, base.Add(time.Duration(i)*time.Hour))
		created, err := f.repo.Create(context.Background(), rec)
		require.NoError(t, err)
		f.ids[fields["name"].(string)] = created.ID
	}
	// Another tenant's record must never leak into results
	_, err := f.repo.Create(context.Background(), domain.NewRecord(uuid.New(), "contacts", map[string]any{"name": "Alice Smith"}, base))
	require.NoError(t, err)
	return f
}

func (f fixture) names(t *testing.T, clauses ...query.Clause) []string {
	t.Helper()
	filter, err := query.Compile(clauses)
	require.NoError(t, err)
	found, err := f.repo.Find(context.Background(), f.scope, filter, []query.Sort{{Field: "name", Direction: query.Asc}}, 0, 0)
	require.NoError(t, err)
	out := make([]string, len(found))
	for i, r := range found {
		out[i] = r.Fields["name"].(string)
	}
	return out
}

func TestMemoryOperators(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		clause query.Clause
		want   []string
	}{
		{"equal", query.Where("email", query.OpEqual, "bob@example.com"), []string{"Bob Stone"}},
		{"equal null matches missing", query.Where("email", query.OpEqual, "null"), []string{"Carol Jones"}},
		{"not equal includes missing", query.Where("email", query.OpNotEqual, "bob@example.com"), []string{"Alice Smith", "Carol Jones", "dave (ops)"}},
		{"greater", query.Where("age", query.OpGreater, "30"), []string{"Alice Smith", "Carol Jones"}},
		{"less or equal skips strings", query.Where("age", query.OpLessOrEqual, "31"), []string{"Alice Smith", "Bob Stone"}},
		{"in", query.Where("age", query.OpIn, []any{"17", "45"}), []string{"Bob Stone", "Carol Jones"}},
		{"not in", query.Where("age", query.OpNotIn, []any{"17", "45"}), []string{"Alice Smith", "dave (ops)"}},
		{"contains is case insensitive", query.Where("name", query.OpContains, "STONE"), []string{"Bob Stone"}},
		{"starts with", query.Where("name", query.OpStartsWith, "car"), []string{"Carol Jones"}},
		{"ends with escapes", query.Where("name", query.OpEndsWith, "(ops)"), []string{"dave (ops)"}},
		{"not contains", query.Where("email", query.OpNotContains, "example.com"), []string{"Carol Jones"}},
		{"regex strings only", query.Where("age", query.OpRegex, "1"), []string{}},
		{"exists", query.Where("email", query.OpExists, true), []string{"Alice Smith", "Bob Stone", "dave (ops)"}},
		{"not exists", query.Where("email", query.OpNotExists, true), []string{"Carol Jones"}},
		{"exists sees explicit null", query.Where("notes", query.OpExists, "true"), []string{"Carol Jones"}},
		{"array contains", query.Where("tags", query.OpArrayContains, "vip"), []string{"Alice Smith"}},
		{"array contains any", query.Where("tags", query.OpArrayContainsAny, []any{"vip", "newsletter"}), []string{"Alice Smith", "Bob Stone"}},
		{"text matches any term", query.Where("any", query.OpText, "jones riyadh"), []string{"Carol Jones", "dave (ops)"}},
		{"dotted path", query.Where("address.city", query.OpEqual, "Riyadh"), []string{"dave (ops)"}},
		{"boolean", query.Where("active", query.OpEqual, "false"), []string{"Bob Stone"}},
		{"or", query.Where(query.OrField, query.OpCustom, []any{
			[]any{"name", "regex", "^ali"},
			[]any{"email", "==", "bob@example.com"},
		}), []string{"Alice Smith", "Bob Stone"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.names(t, tc.clause))
		})
	}
}

func TestMemorySystemFields(t *testing.T) {
	f := newFixture(t)

	got := f.names(t, query.Where(domain.FieldCreatedAt, query.OpGreaterOrEqual, "2024-02-01T11:00:00Z"))
	assert.Equal(t, []string{"Carol Jones", "dave (ops)"}, got)

	got = f.names(t, query.Where(domain.FieldID, query.OpEqual, f.ids["Bob Stone"].String()))
	assert.Equal(t, []string{"Bob Stone"}, got)
}

func TestMemorySortRanksMixedTypes(t *testing.T) {
	f := newFixture(t)

	found, err := f.repo.Find(context.Background(), f.scope, query.Filter{}, []query.Sort{{Field: "age", Direction: query.Asc}}, 0, 0)
	require.NoError(t, err)
	ages := make([]any, len(found))
	for i, r := range found {
		ages[i] = r.Fields["age"]
	}
	assert.Equal(t, []any{float64(17), float64(31), float64(45), "unknown"}, ages)

	found, err = f.repo.Find(context.Background(), f.scope, query.Filter{}, []query.Sort{{Field: "email", Direction: query.Desc}}, 2, 1)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "bob@example.com", found[0].Fields["email"])
	assert.Equal(t, "alice@example.com", found[1].Fields["email"])
}

func TestMemoryCRUD(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.ids["Bob Stone"]

	rec, err := f.repo.GetByID(ctx, f.scope, id)
	require.NoError(t, err)
	rec.Fields["age"] = 18
	updated, err := f.repo.Update(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, float64(18), updated.Fields["age"])

	// Returned copies do not alias stored state
	updated.Fields["age"] = 99
	again, err := f.repo.GetByID(ctx, f.scope, id)
	require.NoError(t, err)
	assert.Equal(t, float64(18), again.Fields["age"])

	batch, err := f.repo.GetByIDs(ctx, f.scope, []uuid.UUID{id, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, batch, 1)

	count, err := f.repo.Count(ctx, f.scope, query.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)

	require.NoError(t, f.repo.Delete(ctx, f.scope, id))
	_, err = f.repo.GetByID(ctx, f.scope, id)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(f.repo.Delete(ctx, f.scope, id), ErrNotFound))

	other := Scope{TenantID: uuid.New(), Collection: f.scope.Collection}
	_, err = f.repo.GetByID(ctx, other, f.ids["Alice Smith"])
	assert.True(t, errors.Is(err, ErrNotFound))
}
