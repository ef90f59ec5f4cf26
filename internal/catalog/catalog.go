// Package catalog holds the definitions of every entity the dashboard manages:
// where it is stored, how its worksheet is laid out and how imported rows are
// matched to existing records.
package catalog

import (
	"fmt"
	"sort"

	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
)

const (
	Customers            = "customers"
	Orders               = "orders"
	Contacts             = "contacts"
	ConsultationRequests = "consultation-requests"
	Events               = "events"
	AboutSections        = "about-sections"
	Reviews              = "reviews"
)

// Registry indexes entity definitions by slug.
type Registry struct {
	bySlug       map[string]domain.EntityDefinition
	byCollection map[string]domain.EntityDefinition
}

// NewRegistry validates and indexes the given definitions.
func NewRegistry(defs ...domain.EntityDefinition) (*Registry, error) {
	r := &Registry{
		bySlug:       make(map[string]domain.EntityDefinition, len(defs)),
		byCollection: make(map[string]domain.EntityDefinition, len(defs)),
	}
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.bySlug[def.Slug]; dup {
			return nil, fmt.Errorf("duplicate entity slug %q", def.Slug)
		}
		r.bySlug[def.Slug] = def
		r.byCollection[def.Collection] = def
	}
	for _, def := range defs {
		for field, target := range def.References() {
			if _, ok := r.byCollection[target]; !ok {
				return nil, fmt.Errorf("entity %q field %q references unknown collection %q", def.Name, field, target)
			}
		}
	}
	return r, nil
}

// Default returns the registry of built-in entities.
func Default() *Registry {
	r, err := NewRegistry(Definitions()...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(slug string) (domain.EntityDefinition, bool) {
	def, ok := r.bySlug[slug]
	return def, ok
}

func (r *Registry) ByCollection(collection string) (domain.EntityDefinition, bool) {
	def, ok := r.byCollection[collection]
	return def, ok
}

// All returns every definition ordered by slug.
func (r *Registry) All() []domain.EntityDefinition {
	defs := make([]domain.EntityDefinition, 0, len(r.bySlug))
	for _, def := range r.bySlug {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Slug < defs[j].Slug })
	return defs
}
