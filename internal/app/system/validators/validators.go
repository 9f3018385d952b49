// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"


	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. Collections must exist before the store's batches run, since
// older servers cannot create a collection inside a transaction. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	// Social graph
	ensure("users", usersSchema())
	ensure("connection_requests", connectionRequestsSchema())
	ensure("connections", connectionsSchema())

	// Chat and notifications
	ensure("chats", chatsSchema())
	ensure("messages", messagesSchema())
	ensure("notifications", notificationsSchema())

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"_id", "display_name"},
			"properties": bson.M{
				"_id":          nonBlank,
				"display_name": bson.M{"bsonType": "string"},
				"photo_url":    bson.M{"bsonType": "string"},
				"headline":     bson.M{"bsonType": "string"},
				"created_at":   bson.M{"bsonType": "date"},
				"updated_at":   bson.M{"bsonType": "date"},
			},
		},
	}
}

func connectionRequestsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"sender_id", "receiver_id", "status", "sent_at"},
			"properties": bson.M{
				"sender_id":   nonBlank,
				"receiver_id": nonBlank,
				"status":      bson.M{"enum": bson.A{"pending", "accepted", "declined"}},
				"sent_at":     bson.M{"bsonType": "date"},
				"accepted_at": bson.M{"bsonType": "date"},
				"declined_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func connectionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"users", "status", "connected_at"},
			"properties": bson.M{
				"users":        bson.M{"bsonType": "array", "minItems": 2, "maxItems": 2, "items": nonBlank},
				"user_names":   bson.M{"bsonType": "object"},
				"status":       bson.M{"enum": bson.A{"accepted", "removed"}},
				"connected_at": bson.M{"bsonType": "date"},
				"removed_at":   bson.M{"bsonType": "date"},
			},
		},
	}
}

func chatsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"participants", "created_at"},
			"properties": bson.M{
				"participants":      bson.M{"bsonType": "array", "minItems": 2, "maxItems": 2, "items": nonBlank},
				"participant_names": bson.M{"bsonType": "array"},
				"last_message":      bson.M{"bsonType": "string"},
				"last_message_time": bson.M{"bsonType": "date"},
				"unread_counts":     bson.M{"bsonType": "object"},
				"created_at":        bson.M{"bsonType": "date"},
			},
		},
	}
}

func messagesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"thread_id", "sender_id", "text", "timestamp", "read"},
			"properties": bson.M{
				"thread_id": nonBlank,
				"sender_id": nonBlank,
				"text":      nonBlank,
				"timestamp": bson.M{"bsonType": "date"},
				"read":      bson.M{"bsonType": "bool"},
				"read_time": bson.M{"bsonType": "date"},
			},
		},
	}
}

func notificationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "type", "read", "timestamp"},
			"properties": bson.M{
				"user_id":   nonBlank,
				"type":      nonBlank,
				"payload":   bson.M{"bsonType": "object"},
				"read":      bson.M{"bsonType": "bool"},
				"timestamp": bson.M{"bsonType": "date"},
			},
		},
	}
}
