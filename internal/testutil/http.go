package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/dalemusser/learnportal/internal/app/system/auth"
	"github.com/dalemusser/learnportal/internal/domain/models"
)

// PrincipalFor builds the request principal for a fixture user.
func PrincipalFor(u models.User) *auth.Principal {
	return &auth.Principal{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Status: u.Status}
}

// NewRequest creates a request with an optional JSON body.
func NewRequest(method, target string, body any) *http.Request {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// NewAuthenticatedRequest creates a request carrying u as the principal.
func NewAuthenticatedRequest(method, target string, body any, u models.User) *http.Request {
	return auth.WithTestUser(NewRequest(method, target, body), PrincipalFor(u))
}

// DecodeJSON unmarshals a recorder's body into v.
func DecodeJSON(t interface {
	Helper()
	Fatalf(string, ...any)
}, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// ErrorCode returns error.code from a JSON error envelope, or "".
func ErrorCode(rec *httptest.ResponseRecorder) string {
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return env.Error.Code
}
