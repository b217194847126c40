// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called from EnsureSchema at startup. Each collection's index set
is reconciled idempotently. Errors are aggregated so every problem is visible
and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	sets := []struct {
		coll   string
		models []mongo.IndexModel
	}{
		{"users", usersIndexes()},
		{"students", profileIndexes("students", "student_code")},
		{"teachers", profileIndexes("teachers", "teacher_code")},
		{"groups", groupsIndexes()},
		{"group_memberships", membershipIndexes()},
		{"announcements", announcementIndexes()},
		{"discussion_posts", postIndexes()},
		{"discussion_replies", replyIndexes()},
		{"files", fileIndexes()},
		{"courses", courseIndexes()},
		{"classes", classIndexes()},
	}

	var problems []string
	for _, s := range sets {
		if err := ensureIndexSet(ctx, db.Collection(s.coll), s.models, logger); err != nil {
			problems = append(problems, s.coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func isUnique(b *bool) bool { return b != nil && *b }

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	return strings.Contains(err.Error(), "E11000")
}

func listExisting(ctx context.Context, coll *mongo.Collection, logger *zap.Logger) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			logger.Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// ensureIndexSet creates each missing index. An index with the same keys but
// a different name or uniqueness is dropped and recreated.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel, logger *zap.Logger) error {
	var errs []string
	existing := listExisting(ctx, coll, logger)

	for _, m := range models {
		name := ""
		var unique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", isUnique(unique)),
		}

		if ex, ok := existing[sig]; ok {
			if isUnique(ex.Unique) == isUnique(unique) && (name == "" || ex.Name == name) {
				logger.Debug("reusing existing index", fields...)
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
			logger.Info("dropped index for recreate", append(fields, zap.String("old_name", ex.Name))...)
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && isUnique(unique) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			logger.Warn("index ensure failed", append(fields, zap.Error(err))...)
			continue
		}
		logger.Info("index ensured", append(fields, zap.Duration("took", time.Since(start)))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Per-collection index sets                                                  */
/* -------------------------------------------------------------------------- */

func idx(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func uniq(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
}

func usersIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniq("uniq_users_email", bson.D{{Key: "email", Value: 1}}),
		idx("idx_users_role_status", bson.D{{Key: "role", Value: 1}, {Key: "status", Value: 1}}),
		idx("idx_users_approval", bson.D{{Key: "approval_status", Value: 1}}),
		idx("idx_users_name_ci", bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}),
	}
}

func profileIndexes(coll, codeField string) []mongo.IndexModel {
	return []mongo.IndexModel{
		uniq("uniq_"+coll+"_user", bson.D{{Key: "user_id", Value: 1}}),
		uniq("uniq_"+coll+"_code", bson.D{{Key: codeField, Value: 1}}),
		idx("idx_"+coll+"_classes", bson.D{{Key: "class_ids", Value: 1}}),
	}
}

func groupsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_groups_name_ci", bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}),
		idx("idx_groups_created_by", bson.D{{Key: "created_by", Value: 1}}),
		idx("idx_groups_creators", bson.D{{Key: "creators", Value: 1}}),
	}
}

func membershipIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniq("uniq_gm_user_group", bson.D{{Key: "user_id", Value: 1}, {Key: "group_id", Value: 1}}),
		idx("idx_gm_group_role", bson.D{{Key: "group_id", Value: 1}, {Key: "role_in_group", Value: 1}}),
	}
}

func announcementIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_ann_group_pinned_created", bson.D{{Key: "group_id", Value: 1}, {Key: "pinned", Value: -1}, {Key: "created_at", Value: -1}}),
		idx("idx_ann_attachments", bson.D{{Key: "attachments", Value: 1}}),
	}
}

func postIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_posts_group_created", bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: -1}}),
		idx("idx_posts_attachments", bson.D{{Key: "attachments", Value: 1}}),
	}
}

func replyIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_replies_parent", bson.D{{Key: "parent.kind", Value: 1}, {Key: "parent.id", Value: 1}, {Key: "created_at", Value: 1}}),
		idx("idx_replies_group", bson.D{{Key: "group_id", Value: 1}}),
		idx("idx_replies_attachments", bson.D{{Key: "attachments", Value: 1}}),
	}
}

func fileIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_files_group_created", bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: -1}}),
	}
}

func courseIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniq("uniq_courses_code", bson.D{{Key: "code", Value: 1}}),
		idx("idx_courses_type", bson.D{{Key: "type", Value: 1}}),
		idx("idx_courses_prereqs", bson.D{{Key: "prerequisites", Value: 1}}),
	}
}

func classIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_classes_course", bson.D{{Key: "course_id", Value: 1}}),
		idx("idx_classes_teacher", bson.D{{Key: "teacher_id", Value: 1}}),
		idx("idx_classes_students", bson.D{{Key: "student_ids", Value: 1}}),
		idx("idx_classes_status_start", bson.D{{Key: "status", Value: 1}, {Key: "start_date", Value: -1}}),
	}
}
