package cascade_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/learnportal/internal/app/store/cascade"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/filestore"
	"github.com/dalemusser/learnportal/internal/app/system/metrics"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/dalemusser/learnportal/internal/testutil"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type env struct {
	fx      *testutil.Fixtures
	storage *filestore.Local
	m       *metrics.Metrics
	e       *cascade.Enforcer
}

func setup(t *testing.T) (*env, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	local, err := filestore.NewLocal(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	m := metrics.New()
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	return &env{
		fx:      testutil.NewFixtures(t, db),
		storage: local,
		m:       m,
		e:       cascade.New(db, local, nil, m),
	}, ctx
}

// storedFile writes bytes through the backend and records file metadata.
func (v *env) storedFile(t *testing.T, ctx context.Context, groupID, uploader primitive.ObjectID) models.File {
	t.Helper()
	st, err := v.storage.Store(ctx, filestore.Upload{Name: "notes.pdf", Body: strings.NewReader("data")})
	require.NoError(t, err)
	return v.fx.CreateFile(ctx, groupID, uploader, st.ID)
}

func (v *env) objectExists(ctx context.Context, f models.File) bool {
	rc, err := v.storage.Open(ctx, f.StorageID)
	if err != nil {
		return false
	}
	rc.Close()
	return true
}

func TestDeleteGroup_RemovesEverythingScopedToIt(t *testing.T) {
	v, ctx := setup(t)
	owner := v.fx.CreateTeacher(ctx, "Owner", "owner@example.com")
	student := v.fx.CreateStudent(ctx, "Student", "s@example.com")
	g := v.fx.CreateGroup(ctx, "G", owner.ID)
	other := v.fx.CreateGroup(ctx, "Other", owner.ID)
	v.fx.AddMembership(ctx, g.ID, student.ID, models.GroupRoleMember)

	exclusive := v.storedFile(t, ctx, g.ID, owner.ID)
	shared := v.storedFile(t, ctx, g.ID, owner.ID)
	unattached := v.storedFile(t, ctx, g.ID, owner.ID)

	ann := v.fx.CreateAnnouncement(ctx, g.ID, owner.ID, "Welcome", false, exclusive.ID, shared.ID)
	post := v.fx.CreatePost(ctx, g.ID, student.ID, "hello")
	v.fx.CreateReply(ctx, g.ID, owner.ID, models.ParentRef{Kind: models.ParentPost, ID: post.ID}, "hi")
	v.fx.CreateReply(ctx, g.ID, owner.ID, models.ParentRef{Kind: models.ParentAnnouncement, ID: ann.ID}, "noted")
	// content elsewhere keeps the shared file alive
	v.fx.CreatePost(ctx, other.ID, owner.ID, "reuse", shared.ID)

	res, err := v.e.DeleteGroup(ctx, g.ID)
	require.NoError(t, err)

	byGroup := bson.M{"group_id": g.ID}
	assert.Equal(t, int64(0), v.fx.Count(ctx, "groups", bson.M{"_id": g.ID}))
	assert.Equal(t, int64(0), v.fx.Count(ctx, "group_memberships", byGroup))
	assert.Equal(t, int64(0), v.fx.Count(ctx, "announcements", byGroup))
	assert.Equal(t, int64(0), v.fx.Count(ctx, "discussion_posts", byGroup))
	assert.Equal(t, int64(0), v.fx.Count(ctx, "discussion_replies", byGroup))

	assert.Equal(t, int64(0), v.fx.Count(ctx, "files", bson.M{"_id": exclusive.ID}))
	assert.Equal(t, int64(0), v.fx.Count(ctx, "files", bson.M{"_id": unattached.ID}))
	assert.Equal(t, int64(1), v.fx.Count(ctx, "files", bson.M{"_id": shared.ID}))
	assert.False(t, v.objectExists(ctx, exclusive))
	assert.False(t, v.objectExists(ctx, unattached))
	assert.True(t, v.objectExists(ctx, shared))

	assert.Equal(t, int64(2), res["reply"])
	assert.Equal(t, int64(2), res["file"])
	assert.Equal(t, 2.0, promtestutil.ToFloat64(v.m.CascadeDeletesTotal.WithLabelValues("reply")))

	// the other group is untouched
	assert.Equal(t, int64(1), v.fx.Count(ctx, "groups", bson.M{"_id": other.ID}))
}

func TestDeleteGroup_Missing(t *testing.T) {
	v, ctx := setup(t)
	_, err := v.e.DeleteGroup(ctx, primitive.NewObjectID())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeletePost_RemovesRepliesAndSweepsFiles(t *testing.T) {
	v, ctx := setup(t)
	owner := v.fx.CreateTeacher(ctx, "Owner", "owner@example.com")
	g := v.fx.CreateGroup(ctx, "G", owner.ID)

	postFile := v.storedFile(t, ctx, g.ID, owner.ID)
	replyFile := v.storedFile(t, ctx, g.ID, owner.ID)
	post := v.fx.CreatePost(ctx, g.ID, owner.ID, "thread", postFile.ID)
	keep := v.fx.CreatePost(ctx, g.ID, owner.ID, "other thread")
	v.fx.CreateReply(ctx, g.ID, owner.ID, models.ParentRef{Kind: models.ParentPost, ID: post.ID}, "r1", replyFile.ID)
	v.fx.CreateReply(ctx, g.ID, owner.ID, models.ParentRef{Kind: models.ParentPost, ID: keep.ID}, "r2")

	_, err := v.e.DeletePost(ctx, post.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(0), v.fx.Count(ctx, "discussion_replies", bson.M{"parent.id": post.ID}))
	assert.Equal(t, int64(1), v.fx.Count(ctx, "discussion_replies", bson.M{"parent.id": keep.ID}))
	assert.Equal(t, int64(0), v.fx.Count(ctx, "files", bson.M{"group_id": g.ID}))
	assert.False(t, v.objectExists(ctx, postFile))
	assert.False(t, v.objectExists(ctx, replyFile))
}

func TestDeleteAnnouncement_KeepsFileReferencedElsewhere(t *testing.T) {
	v, ctx := setup(t)
	owner := v.fx.CreateTeacher(ctx, "Owner", "owner@example.com")
	g := v.fx.CreateGroup(ctx, "G", owner.ID)

	f := v.storedFile(t, ctx, g.ID, owner.ID)
	ann := v.fx.CreateAnnouncement(ctx, g.ID, owner.ID, "A", true, f.ID)
	v.fx.CreateAnnouncement(ctx, g.ID, owner.ID, "B", false, f.ID)
	v.fx.CreateReply(ctx, g.ID, owner.ID, models.ParentRef{Kind: models.ParentAnnouncement, ID: ann.ID}, "r")

	_, err := v.e.DeleteAnnouncement(ctx, ann.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(0), v.fx.Count(ctx, "discussion_replies", bson.M{"parent.id": ann.ID}))
	assert.Equal(t, int64(1), v.fx.Count(ctx, "files", bson.M{"_id": f.ID}))
	assert.True(t, v.objectExists(ctx, f))
}

func TestDeleteReply(t *testing.T) {
	v, ctx := setup(t)
	owner := v.fx.CreateTeacher(ctx, "Owner", "owner@example.com")
	g := v.fx.CreateGroup(ctx, "G", owner.ID)
	post := v.fx.CreatePost(ctx, g.ID, owner.ID, "p")
	f := v.storedFile(t, ctx, g.ID, owner.ID)
	r := v.fx.CreateReply(ctx, g.ID, owner.ID, models.ParentRef{Kind: models.ParentPost, ID: post.ID}, "r", f.ID)

	_, err := v.e.DeleteReply(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.fx.Count(ctx, "files", bson.M{"_id": f.ID}))

	_, err = v.e.DeleteReply(ctx, r.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteFile_RefusesAttached(t *testing.T) {
	v, ctx := setup(t)
	owner := v.fx.CreateTeacher(ctx, "Owner", "owner@example.com")
	g := v.fx.CreateGroup(ctx, "G", owner.ID)
	attached := v.storedFile(t, ctx, g.ID, owner.ID)
	loose := v.storedFile(t, ctx, g.ID, owner.ID)
	v.fx.CreatePost(ctx, g.ID, owner.ID, "p", attached.ID)

	_, err := v.e.DeleteFile(ctx, attached.ID)
	assert.True(t, apperr.Is(err, apperr.KindIntegrityViolation))
	assert.True(t, v.objectExists(ctx, attached))

	_, err = v.e.DeleteFile(ctx, loose.ID)
	require.NoError(t, err)
	assert.False(t, v.objectExists(ctx, loose))
}

func TestDeleteCourse_CascadesClassesAndPrerequisites(t *testing.T) {
	v, ctx := setup(t)
	teacher := v.fx.CreateTeacher(ctx, "T", "t@example.com")
	student := v.fx.CreateStudent(ctx, "S", "s@example.com")
	base := v.fx.CreateCourse(ctx, "ROB101", "Intro")
	adv := v.fx.CreateCourse(ctx, "ROB201", "Advanced", base.ID)
	class := v.fx.CreateClass(ctx, base.ID, teacher.ID, student.ID)

	res, err := v.e.DeleteCourse(ctx, base.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res["class"])

	assert.Equal(t, int64(0), v.fx.Count(ctx, "classes", bson.M{"_id": class.ID}))
	assert.Equal(t, int64(0), v.fx.Count(ctx, "courses", bson.M{"_id": adv.ID, "prerequisites": base.ID}))
	assert.Equal(t, int64(0), v.fx.Count(ctx, "teachers", bson.M{"class_ids": class.ID}))
	assert.Equal(t, int64(0), v.fx.Count(ctx, "students", bson.M{"class_ids": class.ID}))
}

func TestDeleteClass_UnlinksProfiles(t *testing.T) {
	v, ctx := setup(t)
	teacher := v.fx.CreateTeacher(ctx, "T", "t@example.com")
	student := v.fx.CreateStudent(ctx, "S", "s@example.com")
	course := v.fx.CreateCourse(ctx, "ROB101", "Intro")
	class := v.fx.CreateClass(ctx, course.ID, teacher.ID, student.ID)

	_, err := v.e.DeleteClass(ctx, class.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.fx.Count(ctx, "teachers", bson.M{"class_ids": class.ID}))
	assert.Equal(t, int64(0), v.fx.Count(ctx, "students", bson.M{"class_ids": class.ID}))
	assert.Equal(t, int64(1), v.fx.Count(ctx, "courses", bson.M{"_id": course.ID}))
}

func TestDeleteUser_CascadesReferences(t *testing.T) {
	v, ctx := setup(t)
	owner := v.fx.CreateTeacher(ctx, "Owner", "owner@example.com")
	co := v.fx.CreateTeacher(ctx, "Co", "co@example.com")
	student := v.fx.CreateStudent(ctx, "S", "s@example.com")
	g := v.fx.CreateGroup(ctx, "G", owner.ID, co.ID)
	v.fx.AddMembership(ctx, g.ID, student.ID, models.GroupRoleMember)
	course := v.fx.CreateCourse(ctx, "ROB101", "Intro")
	class := v.fx.CreateClass(ctx, course.ID, owner.ID, student.ID)
	post := v.fx.CreatePost(ctx, g.ID, co.ID, "authored")

	_, err := v.e.DeleteUser(ctx, co.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.fx.Count(ctx, "groups", bson.M{"creators": co.ID}))
	assert.Equal(t, int64(0), v.fx.Count(ctx, "group_memberships", bson.M{"user_id": co.ID}))
	assert.Equal(t, int64(0), v.fx.Count(ctx, "teachers", bson.M{"user_id": co.ID}))
	// authored content stays
	assert.Equal(t, int64(1), v.fx.Count(ctx, "discussion_posts", bson.M{"_id": post.ID}))

	_, err = v.e.DeleteUser(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.fx.Count(ctx, "classes", bson.M{"_id": class.ID, "student_ids": student.ID}))
	assert.Equal(t, int64(0), v.fx.Count(ctx, "students", bson.M{"user_id": student.ID}))
}

func TestDeleteUser_RefusesOwnerAndClassTeacher(t *testing.T) {
	v, ctx := setup(t)
	owner := v.fx.CreateTeacher(ctx, "Owner", "owner@example.com")
	teacher := v.fx.CreateTeacher(ctx, "T", "t@example.com")
	v.fx.CreateGroup(ctx, "G", owner.ID)
	course := v.fx.CreateCourse(ctx, "ROB101", "Intro")
	v.fx.CreateClass(ctx, course.ID, teacher.ID)

	_, err := v.e.DeleteUser(ctx, owner.ID)
	assert.True(t, apperr.Is(err, apperr.KindIntegrityViolation))
	_, err = v.e.DeleteUser(ctx, teacher.ID)
	assert.True(t, apperr.Is(err, apperr.KindIntegrityViolation))
	assert.Equal(t, int64(2), v.fx.Count(ctx, "users", bson.M{}))

	_, err = v.e.DeleteUser(ctx, primitive.NewObjectID())
	var ae *apperr.Error
	assert.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.KindNotFound, ae.Kind)
}
