package recordloader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/repository"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
)

// RecordLoader batches reference lookups for one tenant within a request.
type RecordLoader struct {
	Loader   *dataloader.Loader
	TenantID uuid.UUID
}

// Key builds the loader key of a record in a collection.
func Key(collection string, id uuid.UUID) dataloader.Key {
	return dataloader.StringKey(collection + "/" + id.String())
}

func splitKey(key dataloader.Key) (string, uuid.UUID, error) {
	collection, rawID, ok := strings.Cut(key.String(), "/")
	if !ok {
		return "", uuid.Nil, fmt.Errorf("malformed loader key %q", key.String())
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("invalid UUID: %w", err)
	}
	return collection, id, nil
}

func NewRecordLoader(repo repository.RecordRepository, tenantID uuid.UUID) *RecordLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		// Group ids by collection, one repository call per collection
		grouped := make(map[string][]uuid.UUID)
		positions := make(map[string][]int)
		for i, k := range keys {
			collection, id, err := splitKey(k)
			if err != nil {
				results[i] = &dataloader.Result{Error: err}
				continue
			}
			grouped[collection] = append(grouped[collection], id)
			positions[collection] = append(positions[collection], i)
		}

		for collection, ids := range grouped {
			scope := repository.Scope{TenantID: tenantID, Collection: collection}
			records, err := repo.GetByIDs(ctx, scope, ids)
			if err != nil {
				for _, pos := range positions[collection] {
					results[pos] = &dataloader.Result{Error: err}
				}
				continue
			}

			byID := make(map[uuid.UUID]domain.Record, len(records))
			for _, r := range records {
				byID[r.ID] = r
			}

			// Build results in the same order as keys
			for n, id := range ids {
				pos := positions[collection][n]
				if r, ok := byID[id]; ok {
					results[pos] = &dataloader.Result{Data: r}
				} else {
					results[pos] = &dataloader.Result{Data: nil}
				}
			}
		}

		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &RecordLoader{Loader: loader, TenantID: tenantID}
}

// Load queues one record and returns a thunk resolving it. The thunk's second
// return is false when no record exists. Queue every key before calling any
// thunk so they share a batch.
func (l *RecordLoader) Load(ctx context.Context, collection string, id uuid.UUID) func() (domain.Record, bool, error) {
	thunk := l.Loader.Load(ctx, Key(collection, id))
	return func() (domain.Record, bool, error) {
		data, err := thunk()
		if err != nil {
			return domain.Record{}, false, err
		}
		record, ok := data.(domain.Record)
		return record, ok, nil
	}
}

type ctxKey string

const recordLoaderKey ctxKey = "recordLoader"

// NewContext stores the loader in the context.
func NewContext(ctx context.Context, loader *RecordLoader) context.Context {
	return context.WithValue(ctx, recordLoaderKey, loader)
}

// FromContext retrieves the loader for the given tenant, if one was attached.
func FromContext(ctx context.Context, tenantID uuid.UUID) *RecordLoader {
	if l, ok := ctx.Value(recordLoaderKey).(*RecordLoader); ok && l.TenantID == tenantID {
		return l
	}
	return nil
}
