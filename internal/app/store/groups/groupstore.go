// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"time"

	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// Create inserts g with CreatedBy as the first creator.
func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.NameCI = text.Fold(g.Name)
	g.Creators = []primitive.ObjectID{g.CreatedBy}
	g.CreatedAt = now
	g.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// UpdateInfo sets name and description. An empty name leaves it unchanged;
// a nil description leaves it unchanged.
func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, name string, desc *string) (models.Group, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if name != "" {
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if desc != nil {
		set["description"] = *desc
	}
	var g models.Group
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&g)
	return g, err
}

// List returns groups sorted by name. A nil ids slice means all groups.
func (s *Store) List(ctx context.Context, ids []primitive.ObjectID) ([]models.Group, error) {
	filter := bson.M{}
	if ids != nil {
		filter["_id"] = bson.M{"$in": ids}
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Group{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddCreator adds userID to the group's creators.
func (s *Store) AddCreator(ctx context.Context, id, userID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"creators": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// RemoveCreator pulls userID from creators. The primary creator is never pulled.
func (s *Store) RemoveCreator(ctx context.Context, id, userID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "created_by": bson.M{"$ne": userID}},
		bson.M{
			"$pull": bson.M{"creators": userID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	return err
}

// PullCreatorEverywhere removes userID from every group's creators except
// groups where the user is the primary creator.
func (s *Store) PullCreatorEverywhere(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"creators": userID, "created_by": bson.M{"$ne": userID}},
		bson.M{"$pull": bson.M{"creators": userID}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CountOwnedBy returns how many groups userID is the primary creator of.
func (s *Store) CountOwnedBy(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"created_by": userID})
}

// Delete removes a group by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
