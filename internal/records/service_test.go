package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/RockaiDev/bariqe-dashboard/internal/apperr"
	"github.com/RockaiDev/bariqe-dashboard/internal/catalog"
	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/query"
	"github.com/RockaiDev/bariqe-dashboard/internal/repository"
)

type stepClock struct {
	current time.Time
}

func (c *stepClock) Now() time.Time {
	c.current = c.current.Add(time.Second)
	return c.current
}

func newTestService(t *testing.T) (*Service, *stepClock) {
	t.Helper()
	clock := &stepClock{current: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewService(repository.NewMemoryRecordRepository(), WithClock(clock.Now)), clock
}

func mustDefinition(t *testing.T, slug string) domain.EntityDefinition {
	t.Helper()
	def, ok := catalog.Default().Lookup(slug)
	if !ok {
		t.Fatalf("missing definition %s", slug)
	}
	return def
}

func TestCreateGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	def := mustDefinition(t, catalog.Customers)
	tenant := uuid.New()

	created, err := svc.Create(ctx, def, tenant, map[string]any{
		"customerName":  "Lina",
		"customerEmail": "lina@example.com",
		"customerPhone": "555",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.CorrelationID == "" || created.CorrelationID == created.ID.String() {
		t.Fatalf("expected an independent correlation id, got %q", created.CorrelationID)
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("expected createdAt and updatedAt to match on create")
	}

	updated, err := svc.Update(ctx, def, tenant, created.ID, map[string]any{"customerPhone": "777"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Fields["customerName"] != "Lina" {
		t.Fatalf("expected untouched field to be kept, got %v", updated.Fields["customerName"])
	}
	if updated.Fields["customerPhone"] != "777" {
		t.Fatalf("expected phone to be updated, got %v", updated.Fields["customerPhone"])
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("expected updatedAt to advance")
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("expected createdAt to be preserved")
	}

	// An empty patch still refreshes updatedAt
	touched, err := svc.Update(ctx, def, tenant, created.ID, map[string]any{})
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if !touched.UpdatedAt.After(updated.UpdatedAt) {
		t.Fatalf("expected empty update to refresh updatedAt")
	}

	ack, err := svc.Delete(ctx, def, tenant, created.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ack.ID != created.ID || ack.Message != "customer deleted successfully" {
		t.Fatalf("unexpected ack %+v", ack)
	}

	if _, err := svc.Get(ctx, def, tenant, created.ID); !errors.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestMissingRecordsReturnNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	def := mustDefinition(t, catalog.Orders)
	tenant := uuid.New()
	id := uuid.New()

	if _, err := svc.Get(ctx, def, tenant, id); !errors.Is(err, apperr.KindNotFound) {
		t.Fatalf("get: expected not found, got %v", err)
	}
	if _, err := svc.Update(ctx, def, tenant, id, map[string]any{"notes": "x"}); !errors.Is(err, apperr.KindNotFound) {
		t.Fatalf("update: expected not found, got %v", err)
	}
	if _, err := svc.Delete(ctx, def, tenant, id); !errors.Is(err, apperr.KindNotFound) {
		t.Fatalf("delete: expected not found, got %v", err)
	}
}

func TestTenantsAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	def := mustDefinition(t, catalog.AboutSections)

	created, err := svc.Create(ctx, def, uuid.New(), map[string]any{"title_en": "Mission"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Get(ctx, def, uuid.New(), created.ID); !errors.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected other tenant to miss the record, got %v", err)
	}
}

func TestCreateRejectsInvalidFields(t *testing.T) {
	svc, _ := newTestService(t)
	def := mustDefinition(t, catalog.Orders)

	_, err := svc.Create(context.Background(), def, uuid.New(), map[string]any{
		"orderNumber":  "A-1",
		"customerName": "Sam",
		"orderStatus":  "lost",
	})
	if !errors.Is(err, apperr.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestFindByNaturalKeyPrefersEarliest(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	def := mustDefinition(t, catalog.Customers)
	tenant := uuid.New()

	first, err := svc.Create(ctx, def, tenant, map[string]any{"customerName": "One", "customerEmail": "dup@example.com"})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := svc.Create(ctx, def, tenant, map[string]any{"customerName": "Two", "customerEmail": "dup@example.com"}); err != nil {
		t.Fatalf("create second: %v", err)
	}

	found, ok, err := svc.FindByNaturalKey(ctx, def, tenant, map[string]any{"customerEmail": "dup@example.com"})
	if err != nil || !ok {
		t.Fatalf("expected a match, got ok=%v err=%v", ok, err)
	}
	if found.ID != first.ID {
		t.Fatalf("expected earliest record %s, got %s", first.ID, found.ID)
	}

	_, ok, err = svc.FindByNaturalKey(ctx, def, tenant, map[string]any{"customerEmail": "none@example.com"})
	if err != nil || ok {
		t.Fatalf("expected no match, got ok=%v err=%v", ok, err)
	}
}

func TestListAppliesExtraClauses(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	def := mustDefinition(t, catalog.Events)
	tenant := uuid.New()

	for _, status := range []string{"draft", "published", "published"} {
		if _, err := svc.Create(ctx, def, tenant, map[string]any{
			"title_en": "Launch " + status,
			"date":     "2024-05-01",
			"status":   status,
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := svc.List(ctx, def, tenant, query.Request{
		Extra: []query.Clause{query.Where("status", query.OpEqual, "published")},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Count != 2 || len(page.Data) != 2 {
		t.Fatalf("expected 2 published events, got count=%d len=%d", page.Count, len(page.Data))
	}
}

func TestExpandResolvesReferences(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	customers := mustDefinition(t, catalog.Customers)
	orders := mustDefinition(t, catalog.Orders)
	tenant := uuid.New()

	customer, err := svc.Create(ctx, customers, tenant, map[string]any{"customerName": "Ali", "customerEmail": "ali@example.com"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	order, err := svc.Create(ctx, orders, tenant, map[string]any{
		"orderNumber":  "ORD-1",
		"customerName": "Ali",
		"customerId":   customer.ID.String(),
		"orderStatus":  "pending",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	dangling, err := svc.Create(ctx, orders, tenant, map[string]any{
		"orderNumber":  "ORD-2",
		"customerName": "Ghost",
		"customerId":   uuid.NewString(),
		"orderStatus":  "pending",
	})
	if err != nil {
		t.Fatalf("create dangling order: %v", err)
	}

	expanded, err := svc.Expand(ctx, orders, tenant, []domain.Record{order, dangling}, []string{"customerId", "unknown"})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	embedded, ok := expanded[0].Fields["customerId"].(map[string]any)
	if !ok {
		t.Fatalf("expected embedded customer, got %#v", expanded[0].Fields["customerId"])
	}
	if embedded["customerEmail"] != "ali@example.com" {
		t.Fatalf("unexpected embedded customer %v", embedded)
	}
	if _, ok := expanded[1].Fields["customerId"].(string); !ok {
		t.Fatalf("expected dangling reference to stay an id")
	}
	if _, ok := order.Fields["customerId"].(string); !ok {
		t.Fatalf("expected the original record to be left untouched")
	}
}

func TestChangeListenersFireOnWrites(t *testing.T) {
	ctx := context.Background()
	var seen []string
	svc := NewService(repository.NewMemoryRecordRepository(), WithChangeListener(func(_ context.Context, _ uuid.UUID, collection string) {
		seen = append(seen, collection)
	}))
	def := mustDefinition(t, catalog.Reviews)
	tenant := uuid.New()

	created, err := svc.Create(ctx, def, tenant, map[string]any{"client_name_en": "Noor"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Update(ctx, def, tenant, created.ID, map[string]any{"rating": 5}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := svc.Delete(ctx, def, tenant, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(seen) != 3 || seen[0] != "reviews" {
		t.Fatalf("expected three notifications for reviews, got %v", seen)
	}
}

func TestListMatchesNumericLookingText(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	def := mustDefinition(t, catalog.Orders)
	tenant := uuid.New()

	for _, number := range []string{"1001", "01001", "1002"} {
		if _, err := svc.Create(ctx, def, tenant, map[string]any{
			"orderNumber":  number,
			"customerName": "Sam",
			"orderStatus":  "pending",
			"quantity":     4,
		}); err != nil {
			t.Fatalf("create %s: %v", number, err)
		}
	}

	cases := map[string]string{
		`[["orderNumber","==","1001"]]`:  "1001",
		`[["orderNumber","==",1001]]`:    "1001",
		`[["orderNumber","==","01001"]]`: "01001",
	}
	for filters, want := range cases {
		page, err := svc.List(ctx, def, tenant, query.Request{Filters: filters})
		if err != nil {
			t.Fatalf("%s: %v", filters, err)
		}
		if page.Count != 1 || page.Data[0].Fields["orderNumber"] != want {
			t.Fatalf("%s: expected only %s, got %d records", filters, want, page.Count)
		}
	}

	page, err := svc.List(ctx, def, tenant, query.Request{Filters: `[["quantity","==","4"]]`})
	if err != nil {
		t.Fatalf("numeric filter: %v", err)
	}
	if page.Count != 3 {
		t.Fatalf("expected numeric fields to keep coercing, got %d records", page.Count)
	}
}
