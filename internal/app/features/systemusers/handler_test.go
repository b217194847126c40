package systemusers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/learnportal/internal/app/features/systemusers"
	"github.com/dalemusser/learnportal/internal/app/store/cascade"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/dalemusser/learnportal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(db *mongo.Database) *systemusers.Handler {
	return systemusers.NewHandler(db, cascade.New(db, nil, zap.NewNop(), nil), zap.NewNop())
}

func TestHandleApprove(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fx.CreateAdmin(ctx, "Admin", "admin@example.com")
	other := fx.CreateAdmin(ctx, "Other", "other@example.com")
	pending := fx.CreatePendingStudent(ctx, "Pending", "pending@example.com")

	approve := func(target models.User) *httptest.ResponseRecorder {
		req := testutil.NewAuthenticatedRequest(http.MethodPatch, "/"+target.ID.Hex()+"/approve", nil, admin)
		req = testutil.WithChiURLParams(req, "id", target.ID.Hex())
		rec := httptest.NewRecorder()
		h.HandleApprove(rec, req)
		return rec
	}

	rec := approve(pending)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = approve(pending)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ALREADY_APPROVED", testutil.ErrorCode(rec))

	rec = approve(other)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CANNOT_APPROVE_ADMIN", testutil.ErrorCode(rec))
}

func TestHandleApprove_TeacherCannotTouchAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := fx.CreateTeacher(ctx, "Teach", "t@example.com")
	admin := fx.CreateAdmin(ctx, "Admin", "admin@example.com")

	req := testutil.NewAuthenticatedRequest(http.MethodPatch, "/x/deactivate", nil, teacher)
	req = testutil.WithChiURLParams(req, "id", admin.ID.Hex())
	rec := httptest.NewRecorder()
	h.HandleDeactivate(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "CANNOT_MODIFY_ADMIN", testutil.ErrorCode(rec))
}

func TestHandleBulkApprove(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fx.CreateAdmin(ctx, "Admin", "admin@example.com")
	pending := fx.CreatePendingStudent(ctx, "Pending", "pending@example.com")
	approved := fx.CreateStudent(ctx, "Approved", "approved@example.com")

	t.Run("malformed ids short-circuit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleBulkApprove(rec, testutil.NewAuthenticatedRequest(http.MethodPost, "/bulk-approve",
			map[string]any{"userIds": []string{pending.ID.Hex(), "not-an-id"}}, admin))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_IDS", testutil.ErrorCode(rec))
		assert.Equal(t, int64(1), fx.Count(ctx, "users",
			bson.M{"_id": pending.ID, "approval_status": models.ApprovalPending}))
	})

	t.Run("wrong type", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleBulkApprove(rec, testutil.NewAuthenticatedRequest(http.MethodPost, "/bulk-approve",
			map[string]any{"userIds": "abc"}, admin))
		assert.Equal(t, "INVALID_INPUT_TYPE", testutil.ErrorCode(rec))
	})

	t.Run("partitions", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleBulkApprove(rec, testutil.NewAuthenticatedRequest(http.MethodPost, "/bulk-approve",
			map[string]any{"userIds": []string{admin.ID.Hex(), pending.ID.Hex(), approved.ID.Hex()}}, admin))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body struct {
			Data cascade.ApprovalReport `json:"data"`
		}
		testutil.DecodeJSON(t, rec, &body)
		assert.Equal(t, int64(1), body.Data.ApprovedCount)
		assert.Len(t, body.Data.Skipped.Admins, 1)
		assert.Len(t, body.Data.Skipped.AlreadyApproved, 1)
	})
}

func TestHandleCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := fx.CreateTeacher(ctx, "Teach", "t@example.com")

	rec := httptest.NewRecorder()
	h.HandleCreate(rec, testutil.NewAuthenticatedRequest(http.MethodPost, "/", map[string]any{
		"name": "Kid", "email": "kid@example.com", "password": "secret1", "role": "student",
	}, teacher))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(1), fx.Count(ctx, "users", bson.M{
		"email": "kid@example.com", "approval_status": models.ApprovalApproved, "created_by": teacher.ID,
	}))

	rec = httptest.NewRecorder()
	h.HandleCreate(rec, testutil.NewAuthenticatedRequest(http.MethodPost, "/", map[string]any{
		"name": "Boss", "email": "boss@example.com", "password": "secret1", "role": "admin",
	}, teacher))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleDelete_RefusesGroupOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fx.CreateAdmin(ctx, "Admin", "admin@example.com")
	teacher := fx.CreateTeacher(ctx, "Teach", "t@example.com")
	fx.CreateGroup(ctx, "Robotics", teacher.ID)

	req := testutil.NewAuthenticatedRequest(http.MethodDelete, "/", nil, admin)
	req = testutil.WithChiURLParams(req, "id", teacher.ID.Hex())
	rec := httptest.NewRecorder()
	h.HandleDelete(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INTEGRITY_VIOLATION", testutil.ErrorCode(rec))
}

func TestServeList_IncludesProfiles(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fx.CreateAdmin(ctx, "Admin", "admin@example.com")
	fx.CreateStudent(ctx, "Stu", "stu@example.com")

	rec := httptest.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/?role=student", nil, admin))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total int64 `json:"total"`
		Data  []struct {
			Email   string          `json:"email"`
			Student *models.Student `json:"student"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, rec, &body)
	require.Equal(t, int64(1), body.Total)
	assert.NotNil(t, body.Data[0].Student)
}
