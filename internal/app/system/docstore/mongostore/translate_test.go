package mongostore

import (
	"reflect"
	"testing"
	"time"

	"github.com/dalemusser/campuslink/internal/app/system/docstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name  string
		preds []docstore.Predicate
		want  bson.M
	}{
		{"empty", nil, bson.M{}},
		{
			"single eq",
			[]docstore.Predicate{{Field: "user_id", Op: docstore.Eq, Value: "u1"}},
			bson.M{"user_id": "u1"},
		},
		{
			"array contains",
			[]docstore.Predicate{{Field: "participants", Op: docstore.ArrayContains, Value: "u1"}},
			bson.M{"participants": "u1"},
		},
		{
			"ne requires presence",
			[]docstore.Predicate{{Field: "sender_id", Op: docstore.Ne, Value: "u1"}},
			bson.M{"sender_id": bson.M{"$exists": true, "$ne": "u1"}},
		},
		{
			"several clauses",
			[]docstore.Predicate{
				{Field: "thread_id", Op: docstore.Eq, Value: "t"},
				{Field: "read", Op: docstore.Eq, Value: false},
			},
			bson.M{"$and": bson.A{bson.M{"thread_id": "t"}, bson.M{"read": false}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildFilter(tt.preds)
			if err != nil {
				t.Fatalf("buildFilter: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildFilter_RangeAndIn(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	got, err := buildFilter([]docstore.Predicate{
		{Field: "timestamp", Op: docstore.Lt, Value: at},
		{Field: "type", Op: docstore.In, Value: []string{"a", "b"}},
	})
	if err != nil {
		t.Fatalf("buildFilter: %v", err)
	}
	and := got["$and"].(bson.A)
	lt := and[0].(bson.M)["timestamp"].(bson.M)["$lt"]
	if lt != primitive.NewDateTimeFromTime(at) {
		t.Errorf("$lt = %v (%T)", lt, lt)
	}
	in := and[1].(bson.M)["type"].(bson.M)["$in"]
	if !reflect.DeepEqual(in, primitive.A{"a", "b"}) {
		t.Errorf("$in = %v (%T)", in, in)
	}

	if _, err := buildFilter([]docstore.Predicate{{Field: "type", Op: docstore.In, Value: "a"}}); err == nil {
		t.Error("expected error for non-slice in-filter")
	}
}

func TestBuildSort(t *testing.T) {
	got := buildSort([]docstore.Order{{Field: "timestamp", Dir: docstore.Desc}})
	want := bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuildUpdate(t *testing.T) {
	got, err := buildUpdate([]docstore.FieldOp{
		docstore.Set("read", true),
		docstore.ServerTimestamp("read_time"),
		docstore.SetAdd("tags", "x"),
		docstore.SetRemove("tags", "y"),
		docstore.Increment("unread_counts.u1", 1),
	})
	if err != nil {
		t.Fatalf("buildUpdate: %v", err)
	}

	set := got["$set"].(bson.M)
	if set["read"] != true {
		t.Errorf("$set.read = %v", set["read"])
	}
	if _, ok := set["read_time"]; ok {
		t.Error("read_time should not be stamped client side")
	}
	if !reflect.DeepEqual(got["$currentDate"], bson.M{"read_time": bson.M{"$type": "date"}}) {
		t.Errorf("$currentDate = %v", got["$currentDate"])
	}
	if !reflect.DeepEqual(got["$addToSet"], bson.M{"tags": bson.M{"$each": primitive.A{"x"}}}) {
		t.Errorf("$addToSet = %v", got["$addToSet"])
	}
	if !reflect.DeepEqual(got["$pull"], bson.M{"tags": bson.M{"$in": primitive.A{"y"}}}) {
		t.Errorf("$pull = %v", got["$pull"])
	}
	if !reflect.DeepEqual(got["$inc"], bson.M{"unread_counts.u1": int64(1)}) {
		t.Errorf("$inc = %v", got["$inc"])
	}

	if _, err := buildUpdate(nil); err == nil {
		t.Error("expected error for empty update")
	}
}

func TestBuildSortKeepsExplicitID(t *testing.T) {
	got := buildSort([]docstore.Order{{Field: "timestamp", Dir: docstore.Desc}, {Field: "_id", Dir: docstore.Desc}})
	want := bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuildPut(t *testing.T) {
	doc := docstore.Document{"_id": "m1", "text": "$notAnOperator", "n": int64(1)}
	got, err := buildPut(doc, []docstore.FieldOp{
		docstore.Increment("n", 2),
		docstore.ServerTimestamp("timestamp"),
	})
	if err != nil {
		t.Fatalf("buildPut: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("pipeline has %d stages, want 2", len(got))
	}

	replace := got[0][0]
	if replace.Key != "$replaceWith" {
		t.Fatalf("first stage = %s, want $replaceWith", replace.Key)
	}
	lit := replace.Value.(bson.M)["$literal"].(docstore.Document)
	if lit["text"] != "$notAnOperator" || lit["n"] != int64(3) {
		t.Errorf("replacement = %v", lit)
	}
	if _, ok := lit["timestamp"]; ok {
		t.Error("timestamp should not be stamped client side")
	}

	want := bson.D{{Key: "$set", Value: bson.D{{Key: "timestamp", Value: "$$NOW"}}}}
	if !reflect.DeepEqual(got[1], want) {
		t.Errorf("second stage = %v, want %v", got[1], want)
	}

	plain, err := buildPut(docstore.Document{"_id": "m2"}, nil)
	if err != nil {
		t.Fatalf("buildPut: %v", err)
	}
	if len(plain) != 1 {
		t.Errorf("pipeline without timestamps has %d stages, want 1", len(plain))
	}
}
