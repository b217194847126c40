// internal/app/store/cascade/cascade.go
//
// Package cascade deletes entities together with everything that depends on
// them. Every delete runs its document writes in one transaction; stored file
// objects are removed only after the transaction commits.
package cascade

import (
	"context"
	"errors"

	filemeta "github.com/dalemusser/learnportal/internal/app/store/files"
	groupstore "github.com/dalemusser/learnportal/internal/app/store/groups"
	membershipstore "github.com/dalemusser/learnportal/internal/app/store/memberships"
	profilestore "github.com/dalemusser/learnportal/internal/app/store/profiles"
	userstore "github.com/dalemusser/learnportal/internal/app/store/users"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/filestore"
	"github.com/dalemusser/learnportal/internal/app/system/metrics"
	"github.com/dalemusser/learnportal/internal/app/system/txn"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Result counts the documents removed by one delete, by kind.
type Result map[string]int64

func (r Result) add(kind string, n int64) {
	if n > 0 {
		r[kind] += n
	}
}

// Enforcer performs cascading deletes.
type Enforcer struct {
	db      *mongo.Database
	storage filestore.Backend
	logger  *zap.Logger
	metrics *metrics.Metrics

	files       *filemeta.Store
	groups      *groupstore.Store
	memberships *membershipstore.Store
	profiles    *profilestore.Store
	users       *userstore.Store
}

// New builds an Enforcer. storage may be nil when no backend is configured;
// m may be nil.
func New(db *mongo.Database, storage filestore.Backend, logger *zap.Logger, m *metrics.Metrics) *Enforcer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enforcer{
		db:          db,
		storage:     storage,
		logger:      logger,
		metrics:     m,
		files:       filemeta.New(db),
		groups:      groupstore.New(db),
		memberships: membershipstore.New(db),
		profiles:    profilestore.New(db),
		users:       userstore.New(db),
	}
}

func (e *Enforcer) coll(name string) *mongo.Collection { return e.db.Collection(name) }

// run executes fn in a transaction, then removes the swept objects from
// storage and records metrics. fn receives a fresh Result and sweep list on
// every attempt.
func (e *Enforcer) run(ctx context.Context, fn func(ctx context.Context, res Result, sw *sweep) error) (Result, error) {
	var (
		res Result
		sw  *sweep
	)
	err := txn.Run(ctx, e.db, e.logger, func(ctx context.Context) error {
		res = Result{}
		sw = &sweep{}
		return fn(ctx, res, sw)
	})
	if err != nil {
		return nil, err
	}
	e.removeObjects(ctx, sw.removed)
	for kind, n := range res {
		e.metrics.CascadeDeleted(kind, n)
	}
	return res, nil
}

// deleteDocs deletes every document in coll matching filter and collects the
// attachments they carried into sw.
func (e *Enforcer) deleteDocs(ctx context.Context, coll string, filter bson.M, sw *sweep) (int64, error) {
	c := e.coll(coll)
	cur, err := c.Find(ctx, filter)
	if err != nil {
		return 0, err
	}
	var docs []struct {
		Attachments []primitive.ObjectID `bson:"attachments"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return 0, err
	}
	for _, d := range docs {
		sw.candidates = append(sw.candidates, d.Attachments...)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	r, err := c.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return r.DeletedCount, nil
}

func notFoundAs(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound(what)
	}
	return err
}

// DeleteGroup removes the group, its memberships, announcements, posts and
// replies, and every file of the group no remaining content references.
func (e *Enforcer) DeleteGroup(ctx context.Context, groupID primitive.ObjectID) (Result, error) {
	return e.run(ctx, func(ctx context.Context, res Result, sw *sweep) error {
		n, err := e.groups.Delete(ctx, groupID)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound("group")
		}
		res.add("group", n)

		if n, err = e.memberships.DeleteByGroup(ctx, groupID); err != nil {
			return err
		}
		res.add("membership", n)

		byGroup := bson.M{"group_id": groupID}
		for _, step := range []struct{ coll, kind string }{
			{"discussion_replies", "reply"},
			{"discussion_posts", "post"},
			{"announcements", "announcement"},
		} {
			n, err := e.deleteDocs(ctx, step.coll, byGroup, sw)
			if err != nil {
				return err
			}
			res.add(step.kind, n)
		}

		// Files uploaded to the group but never attached go too.
		ids, err := e.coll("files").Distinct(ctx, "_id", byGroup)
		if err != nil {
			return err
		}
		for _, v := range ids {
			if oid, ok := v.(primitive.ObjectID); ok {
				sw.candidates = append(sw.candidates, oid)
			}
		}
		return e.sweepFiles(ctx, sw, res)
	})
}

// DeleteAnnouncement removes the announcement, the replies answering it, and
// any attachment nothing else references.
func (e *Enforcer) DeleteAnnouncement(ctx context.Context, id primitive.ObjectID) (Result, error) {
	return e.deleteWithReplies(ctx, "announcements", "announcement", models.ParentAnnouncement, id)
}

// DeletePost removes the post, its replies, and any attachment nothing else
// references.
func (e *Enforcer) DeletePost(ctx context.Context, id primitive.ObjectID) (Result, error) {
	return e.deleteWithReplies(ctx, "discussion_posts", "post", models.ParentPost, id)
}

func (e *Enforcer) deleteWithReplies(ctx context.Context, coll, kind string, parentKind models.ParentKind, id primitive.ObjectID) (Result, error) {
	return e.run(ctx, func(ctx context.Context, res Result, sw *sweep) error {
		n, err := e.deleteDocs(ctx, coll, bson.M{"_id": id}, sw)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound(kind)
		}
		res.add(kind, n)

		n, err = e.deleteDocs(ctx, "discussion_replies", bson.M{"parent.kind": parentKind, "parent.id": id}, sw)
		if err != nil {
			return err
		}
		res.add("reply", n)
		return e.sweepFiles(ctx, sw, res)
	})
}

// DeleteReply removes the reply and any attachment nothing else references.
func (e *Enforcer) DeleteReply(ctx context.Context, id primitive.ObjectID) (Result, error) {
	return e.run(ctx, func(ctx context.Context, res Result, sw *sweep) error {
		n, err := e.deleteDocs(ctx, "discussion_replies", bson.M{"_id": id}, sw)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound("reply")
		}
		res.add("reply", n)
		return e.sweepFiles(ctx, sw, res)
	})
}

// DeleteFile removes an unattached file. A file still attached to any
// announcement, post or reply is an IntegrityViolation.
func (e *Enforcer) DeleteFile(ctx context.Context, id primitive.ObjectID) (Result, error) {
	return e.run(ctx, func(ctx context.Context, res Result, sw *sweep) error {
		var f models.File
		if err := e.coll("files").FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
			return notFoundAs(err, "file")
		}
		refs, err := e.files.References(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return apperr.Integrity("file is still attached to content")
		}
		sw.candidates = append(sw.candidates, id)
		return e.sweepFiles(ctx, sw, res)
	})
}

// DeleteCourse removes the course and its classes, unlinks those classes
// from profiles, and pulls the course from other courses' prerequisites.
func (e *Enforcer) DeleteCourse(ctx context.Context, courseID primitive.ObjectID) (Result, error) {
	return e.run(ctx, func(ctx context.Context, res Result, _ *sweep) error {
		r, err := e.coll("courses").DeleteOne(ctx, bson.M{"_id": courseID})
		if err != nil {
			return err
		}
		if r.DeletedCount == 0 {
			return apperr.NotFound("course")
		}
		res.add("course", r.DeletedCount)

		raw, err := e.coll("classes").Distinct(ctx, "_id", bson.M{"course_id": courseID})
		if err != nil {
			return err
		}
		classIDs := make([]primitive.ObjectID, 0, len(raw))
		for _, v := range raw {
			if oid, ok := v.(primitive.ObjectID); ok {
				classIDs = append(classIDs, oid)
			}
		}
		if len(classIDs) > 0 {
			if err := e.profiles.UnlinkClass(ctx, classIDs...); err != nil {
				return err
			}
			dr, err := e.coll("classes").DeleteMany(ctx, bson.M{"_id": bson.M{"$in": classIDs}})
			if err != nil {
				return err
			}
			res.add("class", dr.DeletedCount)
		}

		_, err = e.coll("courses").UpdateMany(ctx,
			bson.M{"prerequisites": courseID},
			bson.M{"$pull": bson.M{"prerequisites": courseID}})
		return err
	})
}

// DeleteClass removes the class and pulls it from its teacher's and
// students' class_ids.
func (e *Enforcer) DeleteClass(ctx context.Context, classID primitive.ObjectID) (Result, error) {
	return e.run(ctx, func(ctx context.Context, res Result, _ *sweep) error {
		r, err := e.coll("classes").DeleteOne(ctx, bson.M{"_id": classID})
		if err != nil {
			return err
		}
		if r.DeletedCount == 0 {
			return apperr.NotFound("class")
		}
		res.add("class", r.DeletedCount)
		return e.profiles.UnlinkClass(ctx, classID)
	})
}

// DeleteUser removes the account, its profile and memberships, pulls it from
// group creators and class rosters. Content the user authored stays.
// A user who is a group's primary creator or a class's teacher cannot be
// deleted until those are reassigned or removed.
func (e *Enforcer) DeleteUser(ctx context.Context, userID primitive.ObjectID) (Result, error) {
	return e.run(ctx, func(ctx context.Context, res Result, _ *sweep) error {
		owned, err := e.groups.CountOwnedBy(ctx, userID)
		if err != nil {
			return err
		}
		if owned > 0 {
			return apperr.Integrity("user is the primary creator of a group").
				WithDetails(map[string]int64{"groups": owned})
		}
		teaching, err := e.coll("classes").CountDocuments(ctx, bson.M{"teacher_id": userID})
		if err != nil {
			return err
		}
		if teaching > 0 {
			return apperr.Integrity("user is the teacher of a class").
				WithDetails(map[string]int64{"classes": teaching})
		}

		deleted, err := e.users.Delete(ctx, userID)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return apperr.NotFound("user")
		}
		res.add("user", deleted)

		n, err := e.memberships.DeleteByUser(ctx, userID)
		if err != nil {
			return err
		}
		res.add("membership", n)

		if _, err := e.groups.PullCreatorEverywhere(ctx, userID); err != nil {
			return err
		}
		if _, err := e.coll("classes").UpdateMany(ctx,
			bson.M{"student_ids": userID},
			bson.M{"$pull": bson.M{"student_ids": userID}}); err != nil {
			return err
		}
		n, err = e.profiles.DeleteForUser(ctx, userID)
		if err != nil {
			return err
		}
		res.add("profile", n)
		return nil
	})
}
