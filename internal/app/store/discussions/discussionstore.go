// internal/app/store/discussions/discussionstore.go
//
// Package discussionstore stores discussion posts and the replies that
// answer posts or announcements.
package discussionstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	posts   *mongo.Collection
	replies *mongo.Collection
	parents map[models.ParentKind]*mongo.Collection
}

func New(db *mongo.Database) *Store {
	posts := db.Collection("discussion_posts")
	return &Store{
		posts:   posts,
		replies: db.Collection("discussion_replies"),
		parents: map[models.ParentKind]*mongo.Collection{
			models.ParentPost:         posts,
			models.ParentAnnouncement: db.Collection("announcements"),
		},
	}
}

// ParentGroup resolves a reply parent to the group it belongs to.
// A missing parent is mongo.ErrNoDocuments.
func (s *Store) ParentGroup(ctx context.Context, ref models.ParentRef) (primitive.ObjectID, error) {
	c, ok := s.parents[ref.Kind]
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unknown parent kind %q", ref.Kind)
	}
	var doc struct {
		GroupID primitive.ObjectID `bson:"group_id"`
	}
	err := c.FindOne(ctx, bson.M{"_id": ref.ID},
		options.FindOne().SetProjection(bson.M{"group_id": 1})).Decode(&doc)
	return doc.GroupID, err
}

func stamp(attachments []primitive.ObjectID) ([]primitive.ObjectID, time.Time) {
	if attachments == nil {
		attachments = []primitive.ObjectID{}
	}
	return attachments, time.Now().UTC()
}

// CreatePost inserts p.
func (s *Store) CreatePost(ctx context.Context, p models.DiscussionPost) (models.DiscussionPost, error) {
	var now time.Time
	p.ID = primitive.NewObjectID()
	p.Attachments, now = stamp(p.Attachments)
	p.CreatedAt, p.UpdatedAt = now, now
	if _, err := s.posts.InsertOne(ctx, p); err != nil {
		return models.DiscussionPost{}, err
	}
	return p, nil
}

func (s *Store) GetPost(ctx context.Context, id primitive.ObjectID) (models.DiscussionPost, error) {
	var p models.DiscussionPost
	err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	return p, err
}

// ListPosts returns a group's posts newest first and the total.
func (s *Store) ListPosts(ctx context.Context, groupID primitive.ObjectID, skip, limit int64) ([]models.DiscussionPost, int64, error) {
	filter := bson.M{"group_id": groupID}
	total, err := s.posts.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.posts.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).SetLimit(limit))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.DiscussionPost{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdatePost sets content (when non-nil) and appends attachments.
func (s *Store) UpdatePost(ctx context.Context, id primitive.ObjectID, content *string, add []primitive.ObjectID) (models.DiscussionPost, error) {
	var p models.DiscussionPost
	err := s.posts.FindOneAndUpdate(ctx, bson.M{"_id": id}, contentChange(content, add),
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	return p, err
}

func contentChange(content *string, add []primitive.ObjectID) bson.M {
	set := bson.M{"updated_at": time.Now().UTC()}
	if content != nil {
		set["content"] = *content
	}
	change := bson.M{"$set": set}
	if len(add) > 0 {
		change["$push"] = bson.M{"attachments": bson.M{"$each": add}}
	}
	return change
}

// ReplyCounts returns the number of replies per post id.
func (s *Store) ReplyCounts(ctx context.Context, postIDs []primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	out := make(map[primitive.ObjectID]int64, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"parent.kind": models.ParentPost, "parent.id": bson.M{"$in": postIDs}}}},
		{{Key: "$group", Value: bson.M{"_id": "$parent.id", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.replies.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
			N  int64              `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cur.Err()
}

// CreateReply inserts r. The caller checks the parent's group first.
func (s *Store) CreateReply(ctx context.Context, r models.DiscussionReply) (models.DiscussionReply, error) {
	var now time.Time
	r.ID = primitive.NewObjectID()
	r.Attachments, now = stamp(r.Attachments)
	r.CreatedAt, r.UpdatedAt = now, now
	if _, err := s.replies.InsertOne(ctx, r); err != nil {
		return models.DiscussionReply{}, err
	}
	return r, nil
}

func (s *Store) GetReply(ctx context.Context, id primitive.ObjectID) (models.DiscussionReply, error) {
	var r models.DiscussionReply
	err := s.replies.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	return r, err
}

// ListReplies returns the replies to parent, oldest first.
func (s *Store) ListReplies(ctx context.Context, parent models.ParentRef) ([]models.DiscussionReply, error) {
	cur, err := s.replies.Find(ctx, bson.M{"parent.kind": parent.Kind, "parent.id": parent.ID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.DiscussionReply{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateReply sets content (when non-nil) and appends attachments.
func (s *Store) UpdateReply(ctx context.Context, id primitive.ObjectID, content *string, add []primitive.ObjectID) (models.DiscussionReply, error) {
	var r models.DiscussionReply
	err := s.replies.FindOneAndUpdate(ctx, bson.M{"_id": id}, contentChange(content, add),
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&r)
	return r, err
}
