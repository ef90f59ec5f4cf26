package query_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RockaiDev/bariqe-dashboard/internal/apperr"
	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/query"
	"github.com/RockaiDev/bariqe-dashboard/internal/repository"
)

// countingSource records whether the store was reached.
type countingSource struct {
	calls atomic.Int32
	err   error
}

func (s *countingSource) Count(context.Context, query.Filter) (int64, error) {
	s.calls.Add(1)
	return 0, s.err
}

func (s *countingSource) Find(context.Context, query.Filter, []query.Sort, int, int) ([]domain.Record, error) {
	s.calls.Add(1)
	return nil, s.err
}

func seed(t *testing.T, n int, fields func(i int) map[string]any) query.Source {
	t.Helper()
	repo := repository.NewMemoryRecordRepository()
	tenant := uuid.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		_, err := repo.Create(context.Background(), domain.NewRecord(tenant, "items", fields(i), base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	return repository.Collection(repo, repository.Scope{TenantID: tenant, Collection: "items"})
}

func TestPaginateLastPage(t *testing.T) {
	src := seed(t, 23, func(i int) map[string]any {
		return map[string]any{"n": i}
	})
	p := query.NewPaginator()

	page, err := p.Paginate(context.Background(), src, query.Request{PerPage: "10", Page: "3"})
	require.NoError(t, err)
	assert.EqualValues(t, 23, page.Count)
	assert.Len(t, page.Data, 3)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.Nil(t, page.Pagination.NextPage)
	require.NotNil(t, page.Pagination.PrevPage)
	assert.Equal(t, 2, *page.Pagination.PrevPage)

	// Without a sort the store's insertion order applies
	assert.Equal(t, float64(20), page.Data[0].Fields["n"])
	assert.Equal(t, float64(22), page.Data[2].Fields["n"])
}

func TestPaginateFilterAndSort(t *testing.T) {
	statuses := []string{"active", "inactive"}
	src := seed(t, 10, func(i int) map[string]any {
		return map[string]any{"status": statuses[i%2], "age": 15 + i}
	})
	p := query.NewPaginator()

	page, err := p.Paginate(context.Background(), src, query.Request{
		Filters: `[["status","==","active"],["age",">","18"]]`,
		Sort:    `[["age","desc"]]`,
	})
	require.NoError(t, err)

	ages := make([]float64, 0, len(page.Data))
	for _, r := range page.Data {
		assert.Equal(t, "active", r.Fields["status"])
		ages = append(ages, r.Fields["age"].(float64))
	}
	assert.Equal(t, []float64{23, 21, 19}, ages)
	assert.EqualValues(t, 3, page.Count)
}

func TestPaginateRejectsUnknownOperatorBeforeStore(t *testing.T) {
	src := &countingSource{}
	_, err := query.NewPaginator().Paginate(context.Background(), src, query.Request{
		Filters: `[["status","==","a"],["age","between","1"]]`,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.KindUnsupportedOperator))
	assert.Zero(t, src.calls.Load())
}

func TestPaginateWrapsStoreFailures(t *testing.T) {
	src := &countingSource{err: fmt.Errorf("connection reset")}
	_, err := query.NewPaginator().Paginate(context.Background(), src, query.Request{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.KindPaginationFailed))
}

func TestPaginateMalformedFiltersUseFallback(t *testing.T) {
	src := seed(t, 4, func(i int) map[string]any {
		return map[string]any{"published": i%2 == 0}
	})

	lenient := query.NewPaginator()
	page, err := lenient.Paginate(context.Background(), src, query.Request{
		Filters:  "[[broken",
		Fallback: []query.Clause{query.Where("published", query.OpEqual, "true")},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Count)

	strict := query.NewPaginator(query.WithStrictFilters(true))
	_, err = strict.Paginate(context.Background(), src, query.Request{Filters: "[[broken"})
	assert.True(t, errors.Is(err, apperr.KindInvalidFilter))
}

func TestPaginateClampsPageSize(t *testing.T) {
	src := seed(t, 5, func(i int) map[string]any { return map[string]any{"n": i} })
	p := query.NewPaginator(query.WithDefaultPerPage(2), query.WithMaxPerPage(3))

	page, err := p.Paginate(context.Background(), src, query.Request{})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 3, page.Pagination.TotalPages)

	page, err = p.Paginate(context.Background(), src, query.Request{PerPage: 50})
	require.NoError(t, err)
	assert.Len(t, page.Data, 3)
	assert.Equal(t, 3, page.Pagination.PerPage)
}

func TestPaginateEmptyResult(t *testing.T) {
	src := seed(t, 0, nil)
	page, err := query.NewPaginator().Paginate(context.Background(), src, query.Request{})
	require.NoError(t, err)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Equal(t, 1, page.Pagination.TotalPages)
}

func TestPaginatePageBeyondRangeIsEmpty(t *testing.T) {
	src := seed(t, 3, func(i int) map[string]any {
		return map[string]any{"n": i}
	})
	p := query.NewPaginator()

	page, err := p.Paginate(context.Background(), src, query.Request{PerPage: "2", Page: "9223372036854775807"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Count)
	assert.Empty(t, page.Data)
	assert.Nil(t, page.Pagination.NextPage)
}

func TestPaginateKeepsTextFieldValues(t *testing.T) {
	src := seed(t, 3, func(i int) map[string]any {
		return map[string]any{"code": fmt.Sprintf("%04d", 1000+i), "qty": 1000 + i}
	})
	types := func(field string) (domain.FieldType, bool) {
		switch field {
		case "code":
			return domain.FieldTypeString, true
		case "qty":
			return domain.FieldTypeInteger, true
		}
		return "", false
	}
	p := query.NewPaginator()

	for _, filters := range []string{`[["code","==","1001"]]`, `[["code","==",1001]]`, `[["code","in",["1001"]]]`} {
		page, err := p.Paginate(context.Background(), src, query.Request{Filters: filters, FieldTypes: types})
		require.NoError(t, err, filters)
		require.Len(t, page.Data, 1, filters)
		assert.Equal(t, "1001", page.Data[0].Fields["code"])
	}

	// Numeric fields still coerce
	page, err := p.Paginate(context.Background(), src, query.Request{Filters: `[["qty",">=","1001"]]`, FieldTypes: types})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
}
