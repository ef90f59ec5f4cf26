package query

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RockaiDev/bariqe-dashboard/internal/apperr"
	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/logging"
)

// Source is a filterable, countable record collection.
type Source interface {
	Count(ctx context.Context, filter Filter) (int64, error)
	Find(ctx context.Context, filter Filter, sorts []Sort, limit, offset int) ([]domain.Record, error)
}

// Request carries the raw list parameters of a paginated query.
type Request struct {
	PerPage any
	Page    any
	Filters any
	Sort    any
	// Fallback is used when Filters cannot be decoded at all.
	Fallback []Clause
	// Extra clauses are ANDed with the decoded filters.
	Extra []Clause
	// FieldTypes, when set, keeps values of text fields uncoerced.
	FieldTypes FieldTypes
}

// Plan is a validated query ready to run against a Source.
type Plan struct {
	Filter Filter
	Sorts  []Sort
	Page   Page
}

// Paginator runs filtered, sorted, paginated queries.
type Paginator struct {
	defaultPerPage int
	maxPerPage     int
	strict         bool
}

type Option func(*Paginator)

func WithDefaultPerPage(size int) Option {
	return func(p *Paginator) {
		if size > 0 {
			p.defaultPerPage = size
		}
	}
}

func WithMaxPerPage(size int) Option {
	return func(p *Paginator) {
		p.maxPerPage = size
	}
}

func WithStrictFilters(strict bool) Option {
	return func(p *Paginator) {
		p.strict = strict
	}
}

func NewPaginator(opts ...Option) *Paginator {
	p := &Paginator{defaultPerPage: DefaultPerPage}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan decodes and validates the request. Unknown operators fail here, before any
// store access.
func (p *Paginator) Plan(req Request) (Plan, error) {
	clauses, err := ParseFilters(req.Filters, req.Fallback, ParseOptions{Strict: p.strict})
	if err != nil {
		return Plan{}, err
	}
	clauses = append(append([]Clause{}, clauses...), req.Extra...)

	filter, err := CompileWith(clauses, req.FieldTypes)
	if err != nil {
		return Plan{}, err
	}

	return Plan{
		Filter: filter,
		Sorts:  ParseSort(req.Sort),
		Page:   NewPage(req.PerPage, req.Page, p.defaultPerPage, p.maxPerPage),
	}, nil
}

// Paginate plans and runs a request.
func (p *Paginator) Paginate(ctx context.Context, src Source, req Request) (PageResult, error) {
	plan, err := p.Plan(req)
	if err != nil {
		return PageResult{}, err
	}
	return p.Run(ctx, src, plan)
}

// Run fetches the count and the requested page concurrently. Both must succeed.
func (p *Paginator) Run(ctx context.Context, src Source, plan Plan) (PageResult, error) {
	var (
		count   int64
		records []domain.Record
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := src.Count(gctx, plan.Filter)
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	g.Go(func() error {
		found, err := src.Find(gctx, plan.Filter, plan.Sorts, plan.Page.Size, plan.Page.Offset())
		if err != nil {
			return err
		}
		records = found
		return nil
	})

	if err := g.Wait(); err != nil {
		var appErr apperr.Error
		if errors.As(err, &appErr) && appErr.Kind() == apperr.KindUnsupportedOperator {
			return PageResult{}, err
		}
		logging.FromContext(ctx).Error("pagination query failed",
			zap.Any("filter", plan.Filter),
			zap.Any("sort", plan.Sorts),
			zap.Int("page", plan.Page.Number),
			zap.Int("perPage", plan.Page.Size),
			zap.Error(err),
		)
		return PageResult{}, apperr.PaginationFailed(err)
	}

	if records == nil {
		records = []domain.Record{}
	}

	return PageResult{
		Data:       records,
		Count:      count,
		Pagination: NewPagination(plan.Page, count),
	}, nil
}
