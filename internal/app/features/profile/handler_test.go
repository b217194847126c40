package profile_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/learnportal/internal/app/features/profile"
	"github.com/dalemusser/learnportal/internal/app/system/authutil"
	"github.com/dalemusser/learnportal/internal/testutil"
	"go.uber.org/zap"
)

func TestHandleUpdate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := profile.NewHandler(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateStudent(ctx, "Stu", "stu@example.com")
	fx.CreateStudent(ctx, "Other", "other@example.com")

	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, testutil.NewAuthenticatedRequest(http.MethodPatch, "/", map[string]string{}, u))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty update: expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.HandleUpdate(rec, testutil.NewAuthenticatedRequest(http.MethodPatch, "/", map[string]string{"email": "other@example.com"}, u))
	if code := testutil.ErrorCode(rec); code != "DUPLICATE_KEY" {
		t.Errorf("duplicate email: got code %q", code)
	}

	rec = httptest.NewRecorder()
	h.HandleUpdate(rec, testutil.NewAuthenticatedRequest(http.MethodPatch, "/", map[string]string{"name": "Stuart"}, u))
	if rec.Code != http.StatusOK {
		t.Fatalf("rename: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got, _ := h.Users.GetByID(ctx, u.ID)
	if got.Name != "Stuart" {
		t.Errorf("Name: got %q", got.Name)
	}
}

func TestHandleChangePassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := profile.NewHandler(db, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateTeacher(ctx, "Teach", "t@example.com")

	rec := httptest.NewRecorder()
	h.HandleChangePassword(rec, testutil.NewAuthenticatedRequest(http.MethodPost, "/password", map[string]string{
		"currentPassword": "wrong", "newPassword": "newsecret",
	}, u))
	if code := testutil.ErrorCode(rec); code != "INVALID_CURRENT_PASSWORD" {
		t.Errorf("wrong current password: got code %q", code)
	}

	rec = httptest.NewRecorder()
	h.HandleChangePassword(rec, testutil.NewAuthenticatedRequest(http.MethodPost, "/password", map[string]string{
		"currentPassword": testutil.TestPassword, "newPassword": "newsecret",
	}, u))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got, _ := h.Users.GetByID(ctx, u.ID)
	if !authutil.CheckPassword(got.PasswordHash, "newsecret") {
		t.Error("password hash was not updated")
	}
}

func TestServeProfile_Unauthenticated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := profile.NewHandler(db, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeProfile(rec, testutil.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
