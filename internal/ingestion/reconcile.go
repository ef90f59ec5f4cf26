package ingestion

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/RockaiDev/bariqe-dashboard/internal/apperr"
	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/logging"
)

// Store is the persistence side of reconciliation.
type Store interface {
	FindByKey(ctx context.Context, key map[string]any) (domain.Record, bool, error)
	Create(ctx context.Context, fields map[string]any) (domain.Record, error)
	// Update merges fields into existing; fields absent from the map are untouched.
	Update(ctx context.Context, existing domain.Record, fields map[string]any) (domain.Record, error)
}

// Reconciler matches candidate rows to existing records by natural key and
// creates or updates them. Rows are processed strictly in order and a failing
// row never stops the batch.
type Reconciler struct {
	// Prepare validates a row and returns its candidate fields.
	Prepare func(row Row) (map[string]any, error)
	// Key extracts the natural key of prepared fields.
	Key   func(fields map[string]any) (map[string]any, error)
	Store Store
	// Observe, when set, is called once per row with its outcome.
	Observe func(outcome domain.ImportOutcome)
}

// Run reconciles every row. It stops early only when ctx is done, returning the
// rows handled so far together with the context error.
func (r *Reconciler) Run(ctx context.Context, rows []Row) (domain.ImportResult, error) {
	result := domain.NewImportResult()
	logger := logging.FromContext(ctx)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		record, outcome, err := r.reconcile(ctx, row)
		if err != nil {
			logger.Debug("import row failed", zap.Int("row", row.Number), zap.Error(err))
			result.Failed = append(result.Failed, domain.FailedRow{
				Row:   row.Number,
				Data:  row.Data,
				Error: publicMessage(err),
			})
			outcome = domain.ImportOutcomeFailed
		} else if outcome == domain.ImportOutcomeUpdated {
			result.Updated = append(result.Updated, record)
		} else {
			result.Success = append(result.Success, record)
		}

		if r.Observe != nil {
			r.Observe(outcome)
		}
	}
	return result, nil
}

func (r *Reconciler) reconcile(ctx context.Context, row Row) (domain.Record, domain.ImportOutcome, error) {
	fields, err := r.Prepare(row)
	if err != nil {
		return domain.Record{}, "", apperr.RowValidationFailed(row.Number, publicMessage(err))
	}

	key, err := r.Key(fields)
	if err != nil {
		return domain.Record{}, "", apperr.RowValidationFailed(row.Number, err.Error())
	}

	existing, found, err := r.Store.FindByKey(ctx, key)
	if err != nil {
		return domain.Record{}, "", apperr.ReconciliationFailed(row.Number, err)
	}

	if found {
		updated, err := r.Store.Update(ctx, existing, fields)
		if err != nil {
			return domain.Record{}, "", apperr.ReconciliationFailed(row.Number, err)
		}
		return updated, domain.ImportOutcomeUpdated, nil
	}

	created, err := r.Store.Create(ctx, fields)
	if err != nil {
		return domain.Record{}, "", apperr.ReconciliationFailed(row.Number, err)
	}
	return created, domain.ImportOutcomeCreated, nil
}

// publicMessage prefers the client facing message of application errors, and the
// underlying store error for reconciliation failures.
func publicMessage(err error) string {
	var appErr apperr.Error
	if errors.As(err, &appErr) {
		if appErr.Kind() == apperr.KindReconciliationFailed && appErr.Unwrap() != nil {
			return publicMessage(appErr.Unwrap())
		}
		return appErr.PublicErrorDetail().Message
	}
	return err.Error()
}
