// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/dalemusser/lingohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates the LingoHub collections and attaches a JSON-Schema
// validator to each one that has a schema. Servers without collMod
// support (some DocumentDB versions) keep the collection unvalidated.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		// Fall through; CreateCollection tolerates NamespaceExists.
		existing = nil
	}

	var problems []string
	for _, c := range []struct {
		name   string
		schema bson.M
	}{
		{"users", usersSchema()},
		{"friend_requests", friendRequestsSchema()},
		{"group_chats", groupChatsSchema()},
		{"audit_events", nil}, // append-only
	} {
		if err := ensure(ctx, db, c.name, c.schema, slices.Contains(existing, c.name)); err != nil {
			problems = append(problems, c.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensure(ctx context.Context, db *mongo.Database, name string, schema bson.M, exists bool) error {
	log := zap.L().With(zap.String("collection", name))

	if !exists {
		switch err := db.CreateCollection(ctx, name); {
		case err == nil:
			log.Info("created collection")
		case hasCode(err, codeNamespaceExists):
		default:
			return err
		}
	}
	if schema == nil {
		return nil
	}

	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		if hasCode(err, codeCommandNotFound, codeNotImplemented) {
			log.Info("validator skipped (unsupported)")
			return nil
		}
		return err
	}
	log.Info("validator ensured")
	return nil
}

// Server error codes that ensure tolerates.
const (
	codeNamespaceExists = 48
	codeCommandNotFound = 59
	codeNotImplemented  = 115
)

func hasCode(err error, codes ...int32) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return slices.Contains(codes, ce.Code)
	}
	return false
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func idArray() bson.M {
	return bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}}
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name", "full_name_ci", "friends"},
			"properties": bson.M{
				"full_name":    nonBlank,
				"full_name_ci": nonBlank,
				"profile_pic":  bson.M{"bsonType": "string"},
				"is_onboarded": bson.M{"bsonType": "bool"},
				"friends":      idArray(),
			},
		},
	}
}

func friendRequestsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"sender", "recipient", "status", "pair_key"},
			"properties": bson.M{
				"sender":    bson.M{"bsonType": "objectId"},
				"recipient": bson.M{"bsonType": "objectId"},
				"status":    bson.M{"enum": bson.A{models.FriendRequestPending, models.FriendRequestAccepted}},
				"pair_key":  nonBlank,
			},
		},
		// A user never befriends themselves.
		"$expr": bson.M{"$ne": bson.A{"$sender", "$recipient"}},
	}
}

// groupChatsSchema also holds the membership cap: members never outgrow
// the group's own max_members.
func groupChatsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "creator", "members", "channel_id", "max_members"},
			"properties": bson.M{
				"name":        bson.M{"bsonType": "string", "minLength": 1, "maxLength": models.GroupNameMaxLen, "pattern": ".*\\S.*"},
				"description": bson.M{"bsonType": "string", "maxLength": models.GroupDescriptionMaxLen},
				"creator":     bson.M{"bsonType": "objectId"},
				"members":     idArray(),
				"admins":      bson.M{"bsonType": bson.A{"array", "null"}, "items": bson.M{"bsonType": "objectId"}},
				"channel_id":  nonBlank,
				"max_members": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
			},
		},
		"$expr": bson.M{"$lte": bson.A{bson.M{"$size": "$members"}, "$max_members"}},
	}
}
