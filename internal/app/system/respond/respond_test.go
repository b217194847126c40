package respond_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestError_ClassifiedError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/groups/x", nil)

	respond.Error(rec, req, zap.NewNop(), apperr.New(apperr.KindNotGroupMember, "not a member of this group"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "NOT_GROUP_MEMBER", env.Error.Code)
}

func TestError_UnclassifiedIsGenericInProduction(t *testing.T) {
	respond.Production = true
	defer func() { respond.Production = false }()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/groups", nil)
	respond.Error(rec, req, zap.NewNop(), errors.New("socket closed at 10.0.0.3"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "internal server error", env.Error.Message)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}

type createBody struct {
	Name  string `json:"name" validate:"required,max=10"`
	Email string `json:"email" validate:"required,email"`
}

func TestDecode_ValidationDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"","email":"nope"}`))
	var body createBody
	err := respond.Decode(req, &body)

	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidationFailed, ae.Kind)
	fields, ok := ae.Details.([]respond.FieldError)
	require.True(t, ok)
	require.Len(t, fields, 2)
	assert.Equal(t, "name", fields[0].Field)
	assert.Equal(t, "email", fields[1].Field)
}

func TestDecode_MalformedAndEmpty(t *testing.T) {
	var body createBody
	err := respond.Decode(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`)), &body)
	assert.True(t, apperr.Is(err, apperr.KindValidationFailed))

	err = respond.Decode(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``)), &body)
	assert.True(t, apperr.Is(err, apperr.KindValidationFailed))
}

func TestParseID(t *testing.T) {
	_, err := respond.ParseID("not-hex", "group")
	assert.True(t, apperr.Is(err, apperr.KindInvalidIdentifier))

	oid, err := respond.ParseID("507f1f77bcf86cd799439011", "group")
	require.NoError(t, err)
	assert.Equal(t, "507f1f77bcf86cd799439011", oid.Hex())
}

func TestPage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=500", nil)
	page, limit := respond.Page(req, 10, 100)
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, limit)

	req = httptest.NewRequest(http.MethodGet, "/?page=-1", nil)
	page, limit = respond.Page(req, 10, 100)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, limit)
}
