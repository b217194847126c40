// internal/app/policy/grouppolicy/grouppolicy.go
//
// Package grouppolicy gathers the facts the access policy needs about a
// group from the authoritative collections.
package grouppolicy

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/learnportal/internal/app/policy/access"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/authz"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Actor returns the request's caller as an access.Actor.
func Actor(r *http.Request) (access.Actor, bool) {
	role, _, uid, ok := authz.UserCtx(r)
	if !ok {
		return access.Actor{}, false
	}
	return access.Actor{ID: uid, Role: role}, true
}

// IsMember reports whether userID has a membership row in groupID.
func IsMember(ctx context.Context, db *mongo.Database, groupID, userID primitive.ObjectID) (bool, error) {
	n, err := db.Collection("group_memberships").CountDocuments(ctx, bson.M{
		"group_id": groupID,
		"user_id":  userID,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Load fetches the group and the facts about it relative to actorID.
// A missing group is NotFound.
func Load(ctx context.Context, db *mongo.Database, groupID, actorID primitive.ObjectID) (models.Group, *access.Group, error) {
	var g models.Group
	err := db.Collection("groups").FindOne(ctx, bson.M{"_id": groupID}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return g, nil, apperr.NotFound("group")
	}
	if err != nil {
		return g, nil, err
	}
	member, err := IsMember(ctx, db, groupID, actorID)
	if err != nil {
		return g, nil, err
	}
	return g, Facts(g, member), nil
}

// Facts converts a group into the policy's view of it.
func Facts(g models.Group, actorIsMember bool) *access.Group {
	return &access.Group{
		ID:            g.ID,
		CreatedBy:     g.CreatedBy,
		Creators:      g.Creators,
		ActorIsMember: actorIsMember,
	}
}

// GroupIDsFor returns the ids of every group userID belongs to.
func GroupIDsFor(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	ids, err := db.Collection("group_memberships").Distinct(ctx, "group_id", bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, v := range ids {
		if oid, ok := v.(primitive.ObjectID); ok {
			out = append(out, oid)
		}
	}
	return out, nil
}
