package repository

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
	"github.com/RockaiDev/bariqe-dashboard/internal/query"
)

// bsonSystemFields maps record metadata fields onto document keys.
var bsonSystemFields = map[string]string{
	domain.FieldID:            "_id",
	domain.FieldIDAlias:       "_id",
	domain.FieldCorrelationID: "correlationId",
	domain.FieldCreatedAt:     "createdAt",
	domain.FieldUpdatedAt:     "updatedAt",
}

func bsonKey(field string) string {
	if key, ok := bsonSystemFields[field]; ok {
		return key
	}
	return "data." + field
}

// bsonValue converts a filter value into its stored document form. Timestamps stay
// dates for the metadata keys and become canonical strings inside data.
func bsonValue(key string, value any) any {
	if key == "createdAt" || key == "updatedAt" {
		if ts, ok := value.(time.Time); ok {
			return ts.UTC()
		}
		if s, ok := value.(string); ok {
			if ts, err := time.Parse(domain.TimeLayout, s); err == nil {
				return ts.UTC()
			}
		}
	}
	return query.StoredValue(value)
}

func bsonValues(key string, values []any) bson.A {
	out := make(bson.A, len(values))
	for i, value := range values {
		out[i] = bsonValue(key, value)
	}
	return out
}

// buildBSONFilter compiles a scoped filter into a query document.
func buildBSONFilter(scope Scope, filter query.Filter) (bson.D, error) {
	and := bson.A{
		bson.D{{Key: "tenantId", Value: scope.TenantID.String()}},
		bson.D{{Key: "collection", Value: scope.Collection}},
	}
	for _, cond := range filter.Conditions {
		doc, err := compileBSONCondition(cond)
		if err != nil {
			return nil, err
		}
		and = append(and, doc)
	}
	return bson.D{{Key: "$and", Value: and}}, nil
}

func compileBSONCondition(cond query.Condition) (bson.D, error) {
	switch cond.Op {
	case query.OpOr:
		branches := make(bson.A, 0, len(cond.Any))
		for _, sub := range cond.Any {
			doc, err := compileBSONCondition(sub)
			if err != nil {
				return nil, err
			}
			branches = append(branches, doc)
		}
		return bson.D{{Key: "$or", Value: branches}}, nil

	case query.OpText:
		text, _ := cond.Value.(string)
		terms := query.SearchTerms(text)
		if len(terms) == 0 {
			return bson.D{}, nil
		}
		return bson.D{{Key: "$text", Value: bson.D{{Key: "$search", Value: strings.Join(terms, " ")}}}}, nil
	}

	key := bsonKey(cond.Field)
	regex := primitive.Regex{Pattern: cond.Pattern, Options: "i"}

	switch cond.Op {
	case query.OpEqual:
		return bson.D{{Key: key, Value: bsonValue(key, cond.Value)}}, nil
	case query.OpNotEqual:
		return bson.D{{Key: key, Value: bson.D{{Key: "$ne", Value: bsonValue(key, cond.Value)}}}}, nil
	case query.OpGreater:
		return bson.D{{Key: key, Value: bson.D{{Key: "$gt", Value: bsonValue(key, cond.Value)}}}}, nil
	case query.OpGreaterOrEqual:
		return bson.D{{Key: key, Value: bson.D{{Key: "$gte", Value: bsonValue(key, cond.Value)}}}}, nil
	case query.OpLess:
		return bson.D{{Key: key, Value: bson.D{{Key: "$lt", Value: bsonValue(key, cond.Value)}}}}, nil
	case query.OpLessOrEqual:
		return bson.D{{Key: key, Value: bson.D{{Key: "$lte", Value: bsonValue(key, cond.Value)}}}}, nil
	case query.OpIn:
		return bson.D{{Key: key, Value: bson.D{{Key: "$in", Value: bsonValues(key, cond.Values)}}}}, nil
	case query.OpNotIn:
		return bson.D{{Key: key, Value: bson.D{{Key: "$nin", Value: bsonValues(key, cond.Values)}}}}, nil
	case query.OpRegex:
		return bson.D{{Key: key, Value: bson.D{{Key: "$regex", Value: regex}}}}, nil
	case query.OpNotContains:
		return bson.D{{Key: key, Value: bson.D{{Key: "$not", Value: regex}}}}, nil
	case query.OpExists:
		return bson.D{{Key: key, Value: bson.D{{Key: "$exists", Value: cond.Exists}}}}, nil
	case query.OpArrayContains:
		return bson.D{{Key: key, Value: bson.D{{Key: "$elemMatch", Value: bson.D{{Key: "$eq", Value: bsonValue(key, cond.Value)}}}}}}, nil
	case query.OpArrayContainsAny:
		return bson.D{{Key: key, Value: bson.D{{Key: "$elemMatch", Value: bson.D{{Key: "$in", Value: bsonValues(key, cond.Values)}}}}}}, nil
	}

	return nil, fmt.Errorf("operator %q cannot be translated to a mongo filter", cond.Op)
}

// buildBSONSort renders the sort document with createdAt and _id as tie-breakers.
func buildBSONSort(sorts []query.Sort) bson.D {
	doc := make(bson.D, 0, len(sorts)+2)
	seen := make(map[string]struct{}, len(sorts)+2)
	for _, s := range sorts {
		key := bsonKey(s.Field)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		dir := 1
		if s.Descending() {
			dir = -1
		}
		doc = append(doc, bson.E{Key: key, Value: dir})
	}
	for _, key := range []string{"createdAt", "_id"} {
		if _, dup := seen[key]; !dup {
			doc = append(doc, bson.E{Key: key, Value: 1})
		}
	}
	return doc
}
