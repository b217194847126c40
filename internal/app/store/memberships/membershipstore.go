// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/learnportal/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_memberships")}
}

var (
	ErrDuplicateMembership = errors.New("user is already a member of this group")
	errBadRole             = errors.New(`role_in_group must be "member" or "creator"`)
)

func validRole(role string) bool {
	return role == models.GroupRoleMember || role == models.GroupRoleCreator
}

// Add inserts the (groupID, userID) membership.
func (s *Store) Add(ctx context.Context, groupID, userID primitive.ObjectID, role string) (models.GroupMembership, error) {
	if !validRole(role) {
		return models.GroupMembership{}, errBadRole
	}
	m := models.GroupMembership{
		ID:          primitive.NewObjectID(),
		GroupID:     groupID,
		UserID:      userID,
		RoleInGroup: role,
		JoinedAt:    time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.GroupMembership{}, ErrDuplicateMembership
		}
		return models.GroupMembership{}, err
	}
	return m, nil
}

// Get returns the membership for (groupID, userID).
func (s *Store) Get(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupMembership, error) {
	var m models.GroupMembership
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&m)
	return m, err
}

// SetRole changes role_in_group. A missing membership is mongo.ErrNoDocuments.
func (s *Store) SetRole(ctx context.Context, groupID, userID primitive.ObjectID, role string) error {
	if !validRole(role) {
		return errBadRole
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"group_id": groupID, "user_id": userID},
		bson.M{"$set": bson.M{"role_in_group": role}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Remove deletes the membership document for (groupID, userID) and reports
// whether one existed.
func (s *Store) Remove(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"group_id": groupID, "user_id": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// ListByGroup returns the group's memberships, creators first, oldest first.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error) {
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID},
		options.Find().SetSort(bson.D{{Key: "role_in_group", Value: 1}, {Key: "joined_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.GroupMembership{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByGroup returns the number of memberships in a group.
func (s *Store) CountByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"group_id": groupID})
}

// DeleteByGroup removes all memberships for a group.
// Returns the number of documents deleted.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByUser removes all memberships for a user.
// Returns the number of documents deleted.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
