package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParams adds chi URL parameters (key, value pairs) to the request.
func WithChiURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a Fixtures for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert into %s: %v", coll, err)
	}
}

// TestPassword is the plaintext password of every fixture user.
const TestPassword = "password123"

var testPasswordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// CreateUserWith inserts a user with explicit role, status and approval.
func (f *Fixtures) CreateUserWith(ctx context.Context, name, email, role, status, approval string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:             primitive.NewObjectID(),
		Name:           name,
		NameCI:         text.Fold(name),
		Email:          email,
		PasswordHash:   testPasswordHash,
		Role:           role,
		Status:         status,
		ApprovalStatus: approval,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.insert(ctx, "users", u)

	switch role {
	case models.RoleStudent:
		f.insert(ctx, "students", models.Student{
			ID: primitive.NewObjectID(), UserID: u.ID, StudentCode: "STU" + u.ID.Hex()[16:],
			SkillLevel: "beginner", EnrollmentDate: now, ClassIDs: []primitive.ObjectID{}, CreatedAt: now,
		})
	case models.RoleTeacher:
		f.insert(ctx, "teachers", models.Teacher{
			ID: primitive.NewObjectID(), UserID: u.ID, TeacherCode: "TCH" + u.ID.Hex()[16:],
			Expertise: []string{}, ClassIDs: []primitive.ObjectID{}, CreatedAt: now,
		})
	}
	return u
}

// CreateAdmin creates an active, approved admin.
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUserWith(ctx, name, email, models.RoleAdmin, models.StatusActive, models.ApprovalApproved)
}

// CreateTeacher creates an active, approved teacher with a profile record.
func (f *Fixtures) CreateTeacher(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUserWith(ctx, name, email, models.RoleTeacher, models.StatusActive, models.ApprovalApproved)
}

// CreateStudent creates an active, approved student with a profile record.
func (f *Fixtures) CreateStudent(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUserWith(ctx, name, email, models.RoleStudent, models.StatusActive, models.ApprovalApproved)
}

// CreatePendingStudent creates an active student awaiting approval.
func (f *Fixtures) CreatePendingStudent(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUserWith(ctx, name, email, models.RoleStudent, models.StatusActive, models.ApprovalPending)
}

// CreateGroup creates a group owned by owner with a creator membership for
// owner and for each extra creator.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, owner primitive.ObjectID, extraCreators ...primitive.ObjectID) models.Group {
	f.t.Helper()
	now := time.Now().UTC()
	creators := append([]primitive.ObjectID{owner}, extraCreators...)
	g := models.Group{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedBy: owner,
		Creators:  creators,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "groups", g)
	for _, c := range creators {
		f.AddMembership(ctx, g.ID, c, models.GroupRoleCreator)
	}
	return g
}

// AddMembership inserts a membership row.
func (f *Fixtures) AddMembership(ctx context.Context, groupID, userID primitive.ObjectID, role string) models.GroupMembership {
	f.t.Helper()
	m := models.GroupMembership{
		ID:          primitive.NewObjectID(),
		GroupID:     groupID,
		UserID:      userID,
		RoleInGroup: role,
		JoinedAt:    time.Now().UTC(),
	}
	f.insert(ctx, "group_memberships", m)
	return m
}

// CreateFile inserts file metadata stored on the local backend under storageID.
func (f *Fixtures) CreateFile(ctx context.Context, groupID, uploader primitive.ObjectID, storageID string) models.File {
	f.t.Helper()
	file := models.File{
		ID:          primitive.NewObjectID(),
		Filename:    "notes.pdf",
		ContentType: "application/pdf",
		Size:        4,
		Backend:     "local",
		StorageID:   storageID,
		UploadedBy:  uploader,
		GroupID:     groupID,
		CreatedAt:   time.Now().UTC(),
	}
	f.insert(ctx, "files", file)
	return file
}

// CreateAnnouncement inserts an announcement.
func (f *Fixtures) CreateAnnouncement(ctx context.Context, groupID, author primitive.ObjectID, title string, pinned bool, attachments ...primitive.ObjectID) models.Announcement {
	f.t.Helper()
	now := time.Now().UTC()
	if attachments == nil {
		attachments = []primitive.ObjectID{}
	}
	a := models.Announcement{
		ID: primitive.NewObjectID(), GroupID: groupID, CreatedBy: author,
		Title: title, Content: title + " body", Priority: models.PriorityMedium,
		Pinned: pinned, Attachments: attachments, CreatedAt: now, UpdatedAt: now,
	}
	f.insert(ctx, "announcements", a)
	return a
}

// CreatePost inserts a discussion post.
func (f *Fixtures) CreatePost(ctx context.Context, groupID, author primitive.ObjectID, content string, attachments ...primitive.ObjectID) models.DiscussionPost {
	f.t.Helper()
	now := time.Now().UTC()
	if attachments == nil {
		attachments = []primitive.ObjectID{}
	}
	p := models.DiscussionPost{
		ID: primitive.NewObjectID(), GroupID: groupID, CreatedBy: author,
		Content: content, Attachments: attachments, CreatedAt: now, UpdatedAt: now,
	}
	f.insert(ctx, "discussion_posts", p)
	return p
}

// CreateReply inserts a reply to parent.
func (f *Fixtures) CreateReply(ctx context.Context, groupID, author primitive.ObjectID, parent models.ParentRef, content string, attachments ...primitive.ObjectID) models.DiscussionReply {
	f.t.Helper()
	now := time.Now().UTC()
	if attachments == nil {
		attachments = []primitive.ObjectID{}
	}
	r := models.DiscussionReply{
		ID: primitive.NewObjectID(), GroupID: groupID, CreatedBy: author, Parent: parent,
		Content: content, Attachments: attachments, CreatedAt: now, UpdatedAt: now,
	}
	f.insert(ctx, "discussion_replies", r)
	return r
}

// CreateCourse inserts a course.
func (f *Fixtures) CreateCourse(ctx context.Context, code, name string, prereqs ...primitive.ObjectID) models.Course {
	f.t.Helper()
	now := time.Now().UTC()
	if prereqs == nil {
		prereqs = []primitive.ObjectID{}
	}
	c := models.Course{
		ID: primitive.NewObjectID(), Name: name, NameCI: text.Fold(name), Code: code,
		Type: "Core", Prerequisites: prereqs, CreatedAt: now, UpdatedAt: now,
	}
	f.insert(ctx, "courses", c)
	return c
}

// CreateClass inserts a class and links it into the teacher's and students'
// profile class_ids.
func (f *Fixtures) CreateClass(ctx context.Context, courseID, teacherID primitive.ObjectID, students ...primitive.ObjectID) models.Class {
	f.t.Helper()
	now := time.Now().UTC()
	if students == nil {
		students = []primitive.ObjectID{}
	}
	c := models.Class{
		ID: primitive.NewObjectID(), Name: "Section A", CourseID: courseID, TeacherID: teacherID,
		StudentIDs: students, StartDate: now, Status: models.ClassUpcoming, CreatedAt: now, UpdatedAt: now,
	}
	f.insert(ctx, "classes", c)
	if _, err := f.db.Collection("teachers").UpdateOne(ctx, bson.M{"user_id": teacherID},
		bson.M{"$addToSet": bson.M{"class_ids": c.ID}}); err != nil {
		f.t.Fatalf("link teacher: %v", err)
	}
	if len(students) > 0 {
		if _, err := f.db.Collection("students").UpdateMany(ctx, bson.M{"user_id": bson.M{"$in": students}},
			bson.M{"$addToSet": bson.M{"class_ids": c.ID}}); err != nil {
			f.t.Fatalf("link students: %v", err)
		}
	}
	return c
}

// Count returns the number of documents in coll matching filter.
func (f *Fixtures) Count(ctx context.Context, coll string, filter any) int64 {
	f.t.Helper()
	n, err := f.db.Collection(coll).CountDocuments(ctx, filter)
	if err != nil {
		f.t.Fatalf("count %s: %v", coll, err)
	}
	return n
}
