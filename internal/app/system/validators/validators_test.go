package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/campuslink/internal/app/system/validators"
	"github.com/dalemusser/campuslink/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

var collections = []string{
	"users",
	"connection_requests",
	"connections",
	"chats",
	"messages",
	"notifications",
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	collMap := make(map[string]bool)
	for _, name := range names {
		collMap[name] = true
	}
	for _, expected := range collections {
		if !collMap[expected] {
			t.Errorf("expected collection %q to exist", expected)
		}
	}
}

func TestValidators(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	now := time.Now().UTC()

	tests := []struct {
		name    string
		coll    string
		doc     bson.M
		wantErr bool
	}{
		{"user ok", "users", bson.M{"_id": "alice", "display_name": "Alice", "created_at": now}, false},
		{"user without name", "users", bson.M{"_id": "bob"}, true},
		{"user blank id", "users", bson.M{"_id": "  ", "display_name": "Blank"}, true},

		{"request ok", "connection_requests", bson.M{
			"_id": "alice->bob", "sender_id": "alice", "receiver_id": "bob", "status": "pending", "sent_at": now,
		}, false},
		{"request bad status", "connection_requests", bson.M{
			"_id": "alice->carol", "sender_id": "alice", "receiver_id": "carol", "status": "maybe", "sent_at": now,
		}, true},
		{"request missing receiver", "connection_requests", bson.M{
			"_id": "alice->dan", "sender_id": "alice", "status": "pending", "sent_at": now,
		}, true},

		{"connection ok", "connections", bson.M{
			"_id": "alice_bob", "users": bson.A{"alice", "bob"}, "status": "accepted", "connected_at": now,
		}, false},
		{"connection three users", "connections", bson.M{
			"_id": "a_b_c", "users": bson.A{"a", "b", "c"}, "status": "accepted", "connected_at": now,
		}, true},
		{"connection bad status", "connections", bson.M{
			"_id": "alice_carol", "users": bson.A{"alice", "carol"}, "status": "blocked", "connected_at": now,
		}, true},

		{"chat ok", "chats", bson.M{
			"_id": "alice_bob", "participants": bson.A{"alice", "bob"}, "unread_counts": bson.M{"bob": 1}, "created_at": now,
		}, false},
		{"chat one participant", "chats", bson.M{
			"_id": "alice", "participants": bson.A{"alice"}, "created_at": now,
		}, true},

		{"message ok", "messages", bson.M{
			"thread_id": "alice_bob", "sender_id": "alice", "text": "hi", "timestamp": now, "read": false,
		}, false},
		{"message empty text", "messages", bson.M{
			"thread_id": "alice_bob", "sender_id": "alice", "text": "", "timestamp": now, "read": false,
		}, true},
		{"message whitespace text", "messages", bson.M{
			"thread_id": "alice_bob", "sender_id": "alice", "text": "   ", "timestamp": now, "read": false,
		}, true},
		{"message string timestamp", "messages", bson.M{
			"thread_id": "alice_bob", "sender_id": "alice", "text": "hi", "timestamp": "yesterday", "read": false,
		}, true},

		{"notification ok", "notifications", bson.M{
			"user_id": "bob", "type": "job_recommendation", "payload": bson.M{"jobId": "j1"}, "read": false, "timestamp": now,
		}, false},
		{"notification no recipient", "notifications", bson.M{
			"type": "message", "read": false, "timestamp": now,
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("InsertOne(%s) error = %v, wantErr %v", tt.coll, err, tt.wantErr)
			}
		})
	}
}
