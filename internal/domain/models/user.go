// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// System roles, ordered admin > teacher > student.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Account status values.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Approval status values. Admin accounts are always approved.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
)

// User is a portal account. The password hash is never serialized to JSON.
//
// NOTE:
//   - Group membership is not embedded on User.
//     Use the group_memberships collection to discover a user's groups.
//   - Student/teacher specific data lives in the students/teachers collections.
type User struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name           string              `bson:"name" json:"name"`
	NameCI         string              `bson:"name_ci" json:"-"`
	Email          string              `bson:"email" json:"email"`
	PasswordHash   string              `bson:"password_hash" json:"-"`
	Role           string              `bson:"role" json:"role"`
	Status         string              `bson:"status" json:"status"`
	ApprovalStatus string              `bson:"approval_status" json:"approval_status"`
	Phone          string              `bson:"phone,omitempty" json:"phone,omitempty"`
	CreatedBy      *primitive.ObjectID `bson:"created_by,omitempty" json:"created_by,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// IsApproved reports whether the account passed approval. Admins always have.
func (u *User) IsApproved() bool {
	return u.Role == RoleAdmin || u.ApprovalStatus == ApprovalApproved
}

// ValidRole reports whether r is one of the system roles.
func ValidRole(r string) bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}
