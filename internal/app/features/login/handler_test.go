package login_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/learnportal/internal/app/features/login"
	userstore "github.com/dalemusser/learnportal/internal/app/store/users"
	"github.com/dalemusser/learnportal/internal/app/system/auth"
	"github.com/dalemusser/learnportal/internal/app/system/ratelimit"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/dalemusser/learnportal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const testSecret = "login-test-secret-at-least-32-characters"

func newHandler(t *testing.T, db *mongo.Database, limiter *ratelimit.LoginLimiter) *login.Handler {
	t.Helper()
	tokens, err := auth.NewManager(testSecret, time.Hour, userstore.New(db), zap.NewNop())
	require.NoError(t, err)
	return login.NewHandler(db, tokens, limiter, zap.NewNop())
}

func TestRegister_CreatesPendingStudentWithProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, nil)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := httptest.NewRecorder()
	h.HandleRegister(rec, testutil.NewRequest(http.MethodPost, "/register", map[string]any{
		"name": "Sam", "email": "Sam@Example.com", "password": "secret1", "role": "student",
		"skillLevel": "beginner",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	u, err := userstore.New(db).GetByEmail(ctx, "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, u.ApprovalStatus)
	assert.Equal(t, int64(1), fixtures.Count(ctx, "students", bson.M{"user_id": u.ID}))
}

func TestRegister_RejectsAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, nil)

	rec := httptest.NewRecorder()
	h.HandleRegister(rec, testutil.NewRequest(http.MethodPost, "/register", map[string]any{
		"name": "Mallory", "email": "m@example.com", "password": "secret1", "role": "admin",
	}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, nil)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fixtures.CreateStudent(ctx, "Existing", "taken@example.com")

	rec := httptest.NewRecorder()
	h.HandleRegister(rec, testutil.NewRequest(http.MethodPost, "/register", map[string]any{
		"name": "New", "email": "taken@example.com", "password": "secret1", "role": "teacher",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "DUPLICATE_KEY", testutil.ErrorCode(rec))
}

func TestLogin_IssuesToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, nil)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fixtures.CreateTeacher(ctx, "Tess", "tess@example.com")

	rec := httptest.NewRecorder()
	h.HandleLogin(rec, testutil.NewRequest(http.MethodPost, "/login", map[string]string{
		"email": "TESS@example.com", "password": testutil.TestPassword,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	testutil.DecodeJSON(t, rec, &body)
	assert.Equal(t, models.RoleTeacher, body.Role)

	claims, err := h.Tokens.Parse(body.Token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
}

func TestLogin_Failures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, nil)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fixtures.CreatePendingStudent(ctx, "Pat", "pat@example.com")
	fixtures.CreateUserWith(ctx, "Ina", "ina@example.com", models.RoleStudent, models.StatusInactive, models.ApprovalApproved)
	fixtures.CreateStudent(ctx, "Sue", "sue@example.com")

	cases := []struct {
		name, email, password string
		status                int
		code                  string
	}{
		{"unknown email", "nobody@example.com", testutil.TestPassword, http.StatusBadRequest, "INVALID_CREDENTIALS"},
		{"wrong password", "sue@example.com", "wrong-password", http.StatusBadRequest, "INVALID_CREDENTIALS"},
		{"pending", "pat@example.com", testutil.TestPassword, http.StatusForbidden, "ACCOUNT_PENDING"},
		{"inactive", "ina@example.com", testutil.TestPassword, http.StatusUnauthorized, "ACCOUNT_INACTIVE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleLogin(rec, testutil.NewRequest(http.MethodPost, "/login", map[string]string{
				"email": tc.email, "password": tc.password,
			}))
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, testutil.ErrorCode(rec))
		})
	}
}

func TestLogin_RateLimitedPerEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, ratelimit.NewLoginLimiter(100))

	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		last = httptest.NewRecorder()
		h.HandleLogin(last, testutil.NewRequest(http.MethodPost, "/login", map[string]string{
			"email": "victim@example.com", "password": "guess",
		}))
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
}

func TestServeMe_ReturnsProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, nil)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fixtures.CreateStudent(ctx, "Stu", "stu@example.com")

	rec := httptest.NewRecorder()
	h.ServeMe(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/me", nil, u))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		User    models.User    `json:"user"`
		Profile models.Student `json:"profile"`
	}
	testutil.DecodeJSON(t, rec, &body)
	assert.Equal(t, u.ID, body.User.ID)
	assert.Equal(t, u.ID, body.Profile.UserID)
}
