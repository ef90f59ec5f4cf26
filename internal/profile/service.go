// Package profile serves the public business profile: about sections, client
// reviews and published events.
package profile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/RockaiDev/bariqe-dashboard/internal/catalog"
	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/logging"
	"github.com/RockaiDev/bariqe-dashboard/internal/query"
	"github.com/RockaiDev/bariqe-dashboard/internal/records"
	"github.com/RockaiDev/bariqe-dashboard/internal/repository"
)

// BusinessInfo is the aggregated profile of one tenant.
type BusinessInfo struct {
	About   []domain.Record `json:"about"`
	Reviews []domain.Record `json:"reviews"`
	Events  []domain.Record `json:"events"`
}

type section struct {
	slug   string
	filter []query.Clause
	sorts  []query.Sort
	assign func(*BusinessInfo, []domain.Record)
}

var sections = []section{
	{
		slug:   catalog.AboutSections,
		sorts:  []query.Sort{{Field: "order", Direction: query.Asc}},
		assign: func(b *BusinessInfo, r []domain.Record) { b.About = r },
	},
	{
		slug:   catalog.Reviews,
		sorts:  []query.Sort{{Field: domain.FieldCreatedAt, Direction: query.Desc}},
		assign: func(b *BusinessInfo, r []domain.Record) { b.Reviews = r },
	},
	{
		slug:   catalog.Events,
		filter: []query.Clause{query.Where("status", query.OpEqual, "published")},
		sorts:  []query.Sort{{Field: "date", Direction: query.Desc}},
		assign: func(b *BusinessInfo, r []domain.Record) { b.Events = r },
	},
}

// Service reads the business profile through a per tenant cache.
type Service struct {
	repo     repository.RecordRepository
	registry *catalog.Registry
	cache    *cache.Cache
	watched  map[string]struct{}

	// generations counts invalidations per tenant. A load is cached only if no
	// write landed while it ran.
	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

// NewService creates the profile service and registers cache invalidation on
// the records service.
func NewService(svc *records.Service, registry *catalog.Registry, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	s := &Service{
		repo:     svc.Repository(),
		registry: registry,
		cache:    cache.New(ttl, 2*ttl),
		watched:  make(map[string]struct{}, len(sections)),

		generations: make(map[uuid.UUID]uint64),
	}
	for _, sec := range sections {
		if def, ok := registry.Lookup(sec.slug); ok {
			s.watched[def.Collection] = struct{}{}
		}
	}
	svc.OnChange(s.invalidate)
	return s
}

func (s *Service) invalidate(ctx context.Context, tenantID uuid.UUID, collection string) {
	if _, ok := s.watched[collection]; !ok {
		return
	}
	s.mu.Lock()
	s.generations[tenantID]++
	s.cache.Delete(tenantID.String())
	s.mu.Unlock()
	logging.FromContext(ctx).Debug("business profile cache invalidated",
		zap.String("organizationId", tenantID.String()),
		zap.String("collection", collection),
	)
}

// Get returns the tenant's business profile.
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID) (BusinessInfo, error) {
	key := tenantID.String()
	if cached, ok := s.cache.Get(key); ok {
		return cached.(BusinessInfo), nil
	}

	s.mu.Lock()
	generation := s.generations[tenantID]
	s.mu.Unlock()

	var info BusinessInfo
	for _, sec := range sections {
		def, ok := s.registry.Lookup(sec.slug)
		if !ok {
			return BusinessInfo{}, fmt.Errorf("entity %q is not registered", sec.slug)
		}
		filter, err := query.Compile(sec.filter)
		if err != nil {
			return BusinessInfo{}, err
		}
		found, err := s.repo.Find(ctx, repository.Scope{TenantID: tenantID, Collection: def.Collection}, filter, sec.sorts, 0, 0)
		if err != nil {
			return BusinessInfo{}, fmt.Errorf("failed to load %s: %w", def.Name, err)
		}
		if found == nil {
			found = []domain.Record{}
		}
		sec.assign(&info, found)
	}

	s.mu.Lock()
	if s.generations[tenantID] == generation {
		s.cache.SetDefault(key, info)
	}
	s.mu.Unlock()
	return info, nil
}
