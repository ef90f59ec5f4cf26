package ingestion

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RockaiDev/bariqe-dashboard/internal/apperr"
	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/logging"
	"github.com/RockaiDev/bariqe-dashboard/internal/records"
	"github.com/RockaiDev/bariqe-dashboard/pkg/validator"
)

// Service imports spreadsheets into entity collections.
type Service struct {
	records   *records.Service
	validator *validator.RecordValidator
}

// NewService creates a new ingestion service.
func NewService(recordService *records.Service) *Service {
	return &Service{
		records:   recordService,
		validator: validator.NewRecordValidator(),
	}
}

// Request describes the import input.
type Request struct {
	OrganizationID uuid.UUID
	Entity         domain.EntityDefinition
	FileName       string
	Data           io.Reader
}

// Import parses the upload and reconciles every row against the tenant's
// existing records. Row level problems are reported in the result; only an
// unreadable upload fails the whole call.
func (s *Service) Import(ctx context.Context, req Request) (domain.ImportResult, error) {
	if req.OrganizationID == uuid.Nil {
		return domain.ImportResult{}, apperr.InvalidInput("organizationId is required", nil)
	}
	if req.Data == nil {
		return domain.ImportResult{}, apperr.InvalidInput("file is required", nil)
	}

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return domain.ImportResult{}, apperr.InvalidInput("failed to read upload", err)
	}

	table, err := parseTable(req.FileName, payload, req.Entity.Worksheet)
	if err != nil {
		return domain.ImportResult{}, apperr.InvalidInput(err.Error(), err)
	}
	rows := mapRows(table, req.Entity)

	reconciler := s.reconcilerFor(req.OrganizationID, req.Entity)
	result, err := reconciler.Run(ctx, rows)
	if err != nil {
		return result, fmt.Errorf("import of %s interrupted: %w", req.Entity.Name, err)
	}

	logging.FromContext(ctx).Info("import finished",
		zap.String("entity", req.Entity.Name),
		zap.String("file", req.FileName),
		zap.Int("rows", len(rows)),
		zap.Int("created", len(result.Success)),
		zap.Int("updated", len(result.Updated)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (s *Service) reconcilerFor(tenantID uuid.UUID, def domain.EntityDefinition) *Reconciler {
	return &Reconciler{
		Prepare: func(row Row) (map[string]any, error) {
			fields, result := s.validator.Normalize(row.Data, def, validator.ModeCreate)
			if !result.IsValid {
				return nil, apperr.RowValidationFailed(row.Number, result.Error())
			}
			return fields, nil
		},
		Key: func(fields map[string]any) (map[string]any, error) {
			key, ok := def.NaturalKeyOf(fields)
			if !ok {
				return nil, fmt.Errorf("row has no value for natural key %v", def.NaturalKey)
			}
			return key, nil
		},
		Store: recordStore{records: s.records, def: def, tenantID: tenantID},
		Observe: func(outcome domain.ImportOutcome) {
			importedRows.WithLabelValues(def.Collection, string(outcome)).Inc()
		},
	}
}

// recordStore reconciles against a tenant collection through the records service.
type recordStore struct {
	records  *records.Service
	def      domain.EntityDefinition
	tenantID uuid.UUID
}

func (s recordStore) FindByKey(ctx context.Context, key map[string]any) (domain.Record, bool, error) {
	return s.records.FindByNaturalKey(ctx, s.def, s.tenantID, key)
}

func (s recordStore) Create(ctx context.Context, fields map[string]any) (domain.Record, error) {
	return s.records.Create(ctx, s.def, s.tenantID, fields)
}

func (s recordStore) Update(ctx context.Context, existing domain.Record, fields map[string]any) (domain.Record, error) {
	return s.records.Update(ctx, s.def, s.tenantID, existing.ID, fields)
}
