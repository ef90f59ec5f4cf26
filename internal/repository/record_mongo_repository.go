package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/query"
)

// recordDocument is the stored shape of a record.
type recordDocument struct {
	ID            string         `bson:"_id"`
	TenantID      string         `bson:"tenantId"`
	Collection    string         `bson:"collection"`
	CorrelationID string         `bson:"correlationId"`
	Data          map[string]any `bson:"data"`
	CreatedAt     time.Time      `bson:"createdAt"`
	UpdatedAt     time.Time      `bson:"updatedAt"`
}

type mongoRecordRepository struct {
	collection *mongo.Collection
}

// NewMongoRecordRepository creates a record repository over a mongo collection
func NewMongoRecordRepository(collection *mongo.Collection) RecordRepository {
	return &mongoRecordRepository{collection: collection}
}

func (r *mongoRecordRepository) Create(ctx context.Context, record domain.Record) (domain.Record, error) {
	doc := toDocument(record)
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return domain.Record{}, fmt.Errorf("failed to create record: %w", err)
	}
	return fromDocument(doc)
}

func (r *mongoRecordRepository) GetByID(ctx context.Context, scope Scope, id uuid.UUID) (domain.Record, error) {
	var doc recordDocument
	err := r.collection.FindOne(ctx, scopeDoc(scope, id)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Record{}, fmt.Errorf("failed to get record %s: %w", id, ErrNotFound)
		}
		return domain.Record{}, fmt.Errorf("failed to get record: %w", err)
	}
	return fromDocument(doc)
}

func (r *mongoRecordRepository) GetByIDs(ctx context.Context, scope Scope, ids []uuid.UUID) ([]domain.Record, error) {
	if len(ids) == 0 {
		return []domain.Record{}, nil
	}
	keys := make(bson.A, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	filter := bson.D{
		{Key: "tenantId", Value: scope.TenantID.String()},
		{Key: "collection", Value: scope.Collection},
		{Key: "_id", Value: bson.D{{Key: "$in", Value: keys}}},
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get records by IDs: %w", err)
	}
	return decodeCursor(ctx, cursor)
}

func (r *mongoRecordRepository) Update(ctx context.Context, record domain.Record) (domain.Record, error) {
	doc := toDocument(record)
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "data", Value: doc.Data},
		{Key: "updatedAt", Value: doc.UpdatedAt},
	}}}

	var updated recordDocument
	err := r.collection.FindOneAndUpdate(ctx,
		scopeDoc(Scope{TenantID: record.TenantID, Collection: record.Collection}, record.ID),
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Record{}, fmt.Errorf("failed to update record %s: %w", record.ID, ErrNotFound)
		}
		return domain.Record{}, fmt.Errorf("failed to update record: %w", err)
	}
	return fromDocument(updated)
}

func (r *mongoRecordRepository) Delete(ctx context.Context, scope Scope, id uuid.UUID) error {
	res, err := r.collection.DeleteOne(ctx, scopeDoc(scope, id))
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("failed to delete record %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *mongoRecordRepository) Count(ctx context.Context, scope Scope, filter query.Filter) (int64, error) {
	doc, err := buildBSONFilter(scope, filter)
	if err != nil {
		return 0, err
	}
	count, err := r.collection.CountDocuments(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

func (r *mongoRecordRepository) Find(ctx context.Context, scope Scope, filter query.Filter, sorts []query.Sort, limit, offset int) ([]domain.Record, error) {
	doc, err := buildBSONFilter(scope, filter)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(buildBSONSort(sorts))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}

	cursor, err := r.collection.Find(ctx, doc, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find records: %w", err)
	}
	return decodeCursor(ctx, cursor)
}

func (r *mongoRecordRepository) Ping(ctx context.Context) error {
	return r.collection.Database().Client().Ping(ctx, readpref.Primary())
}

func scopeDoc(scope Scope, id uuid.UUID) bson.D {
	return bson.D{
		{Key: "_id", Value: id.String()},
		{Key: "tenantId", Value: scope.TenantID.String()},
		{Key: "collection", Value: scope.Collection},
	}
}

func decodeCursor(ctx context.Context, cursor *mongo.Cursor) ([]domain.Record, error) {
	var docs []recordDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	records := make([]domain.Record, 0, len(docs))
	for _, doc := range docs {
		record, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func toDocument(record domain.Record) recordDocument {
	return recordDocument{
		ID:            record.ID.String(),
		TenantID:      record.TenantID.String(),
		Collection:    record.Collection,
		CorrelationID: record.CorrelationID,
		Data:          domain.NormalizeFields(record.Fields),
		CreatedAt:     record.CreatedAt.UTC(),
		UpdatedAt:     record.UpdatedAt.UTC(),
	}
}

func fromDocument(doc recordDocument) (domain.Record, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return domain.Record{}, fmt.Errorf("invalid record id %q: %w", doc.ID, err)
	}
	tenantID, err := uuid.Parse(doc.TenantID)
	if err != nil {
		return domain.Record{}, fmt.Errorf("invalid tenant id %q: %w", doc.TenantID, err)
	}

	fields := make(map[string]any, len(doc.Data))
	for key, value := range doc.Data {
		fields[key] = fromBSONValue(value)
	}

	return domain.Record{
		ID:            id,
		TenantID:      tenantID,
		Collection:    doc.Collection,
		CorrelationID: doc.CorrelationID,
		Fields:        fields,
		CreatedAt:     doc.CreatedAt.UTC(),
		UpdatedAt:     doc.UpdatedAt.UTC(),
	}, nil
}

// fromBSONValue maps driver decode types back onto plain Go values.
func fromBSONValue(value any) any {
	switch v := value.(type) {
	case primitive.D:
		m := make(map[string]any, len(v))
		for _, e := range v {
			m[e.Key] = fromBSONValue(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]any, len(v))
		for key, item := range v {
			m[key] = fromBSONValue(item)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(v))
		for key, item := range v {
			m[key] = fromBSONValue(item)
		}
		return m
	case primitive.A:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = fromBSONValue(item)
		}
		return items
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = fromBSONValue(item)
		}
		return items
	case primitive.DateTime:
		return v.Time().UTC().Format(domain.TimeLayout)
	default:
		return domain.NormalizeValue(v)
	}
}
