// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/learnportal/internal/app/system/auth"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the caller's role (lowercased), name, ObjectID, and a found
// flag. Without a principal it returns "visitor", "", NilObjectID, false.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	p, ok := auth.CurrentUser(r)
	if !ok || p.ID.IsZero() {
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(p.Role), p.Name, p.ID, true
}

// IsAdmin reports whether the caller is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}
