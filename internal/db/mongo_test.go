package db

import (
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestRecordTextIndexCoversDataOnly(t *testing.T) {
	var textKeys []string
	for _, model := range recordIndexes() {
		keys, ok := model.Keys.(bson.D)
		if !ok {
			t.Fatalf("index keys have type %T, want bson.D", model.Keys)
		}
		for _, key := range keys {
			if key.Value == "text" {
				textKeys = append(textKeys, key.Key)
			}
		}
	}

	if len(textKeys) != 1 {
		t.Fatalf("expected one text index key, got %v", textKeys)
	}
	if !strings.HasPrefix(textKeys[0], "data.") {
		t.Fatalf("text index key %q reaches outside record data", textKeys[0])
	}
}
