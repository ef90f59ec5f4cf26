package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/RockaiDev/bariqe-dashboard/internal/query"
)

func TestBuildBSONFilterScopesAndTranslates(t *testing.T) {
	scope := Scope{TenantID: uuid.New(), Collection: "orders"}
	doc, err := buildBSONFilter(scope, query.MustCompile(
		query.Where("orderStatus", query.OpEqual, "pending"),
		query.Where("quantity", query.OpLess, "5"),
		query.Where("customerName", query.OpStartsWith, "al"),
		query.Where("createdAt", query.OpGreater, "2024-01-01T00:00:00Z"),
	))
	require.NoError(t, err)
	require.Len(t, doc, 1)
	assert.Equal(t, "$and", doc[0].Key)

	and := doc[0].Value.(bson.A)
	require.Len(t, and, 6)
	assert.Equal(t, bson.D{{Key: "tenantId", Value: scope.TenantID.String()}}, and[0])
	assert.Equal(t, bson.D{{Key: "collection", Value: "orders"}}, and[1])
	assert.Equal(t, bson.D{{Key: "data.orderStatus", Value: "pending"}}, and[2])
	assert.Equal(t, bson.D{{Key: "data.quantity", Value: bson.D{{Key: "$lt", Value: float64(5)}}}}, and[3])
	assert.Equal(t, bson.D{{Key: "data.customerName", Value: bson.D{{Key: "$regex", Value: primitive.Regex{Pattern: "^al", Options: "i"}}}}}, and[4])
	assert.Equal(t, bson.D{{Key: "createdAt", Value: bson.D{{Key: "$gt", Value: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}}}}, and[5])
}

func TestBuildBSONFilterComposite(t *testing.T) {
	doc, err := buildBSONFilter(Scope{TenantID: uuid.New(), Collection: "contacts"}, query.MustCompile(
		query.Where(query.OrField, query.OpCustom, []any{
			[]any{"name", "contains", "ali"},
			[]any{"email", "==", "x@y.z"},
		}),
		query.Where("any", query.OpText, "Hello, hello world"),
		query.Where("tags", query.OpArrayContainsAny, []any{"a", "b"}),
	))
	require.NoError(t, err)
	and := doc[0].Value.(bson.A)

	or := and[2].(bson.D)
	assert.Equal(t, "$or", or[0].Key)
	assert.Len(t, or[0].Value.(bson.A), 2)

	assert.Equal(t, bson.D{{Key: "$text", Value: bson.D{{Key: "$search", Value: "hello world"}}}}, and[3])
	assert.Equal(t, bson.D{{Key: "data.tags", Value: bson.D{{Key: "$elemMatch", Value: bson.D{{Key: "$in", Value: bson.A{"a", "b"}}}}}}}, and[4])
}

func TestBuildBSONSortAddsTieBreakers(t *testing.T) {
	assert.Equal(t, bson.D{
		{Key: "data.price", Value: -1},
		{Key: "createdAt", Value: 1},
		{Key: "_id", Value: 1},
	}, buildBSONSort([]query.Sort{{Field: "price", Direction: query.Desc}}))

	assert.Equal(t, bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: 1},
	}, buildBSONSort([]query.Sort{{Field: "createdAt", Direction: query.Desc}}))
}
