// internal/app/system/apperr/apperr.go
//
// Package apperr is the portal's error taxonomy. Every handled failure is an
// *Error carrying a Kind (which fixes the HTTP status) and a stable reason
// code the client can branch on.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport purposes.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindInvalidToken
	KindAccountInactive
	KindAccountPending
	KindInsufficientPermission
	KindNotGroupMember
	KindCannotModifyAdmin
	KindCannotRemovePrimaryCreator
	KindInvalidGroupRole
	KindNotFound
	KindInvalidIdentifier
	KindValidationFailed
	KindDuplicateKey
	KindParentGroupMismatch
	KindConflict
	KindIntegrityViolation
	KindUploadFailed
	KindRateLimited
)

var kindCodes = map[Kind]string{
	KindInternal:                   "INTERNAL",
	KindUnauthenticated:            "UNAUTHENTICATED",
	KindInvalidToken:               "INVALID_TOKEN",
	KindAccountInactive:            "ACCOUNT_INACTIVE",
	KindAccountPending:             "ACCOUNT_PENDING",
	KindInsufficientPermission:     "INSUFFICIENT_PERMISSION",
	KindNotGroupMember:             "NOT_GROUP_MEMBER",
	KindCannotModifyAdmin:          "CANNOT_MODIFY_ADMIN",
	KindCannotRemovePrimaryCreator: "CANNOT_REMOVE_PRIMARY_CREATOR",
	KindInvalidGroupRole:           "INVALID_GROUP_ROLE",
	KindNotFound:                   "NOT_FOUND",
	KindInvalidIdentifier:          "INVALID_IDENTIFIER",
	KindValidationFailed:           "VALIDATION_FAILED",
	KindDuplicateKey:               "DUPLICATE_KEY",
	KindParentGroupMismatch:        "PARENT_GROUP_MISMATCH",
	KindConflict:                   "CONFLICT",
	KindIntegrityViolation:         "INTEGRITY_VIOLATION",
	KindUploadFailed:               "UPLOAD_FAILED",
	KindRateLimited:                "RATE_LIMITED",
}

// String returns the default reason code of the kind.
func (k Kind) String() string {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return "INTERNAL"
}

// Status maps the kind to its HTTP status.
func (k Kind) Status() int {
	switch k {
	case KindUnauthenticated, KindInvalidToken, KindAccountInactive:
		return http.StatusUnauthorized
	case KindAccountPending, KindInsufficientPermission, KindNotGroupMember,
		KindCannotModifyAdmin, KindCannotRemovePrimaryCreator, KindInvalidGroupRole:
		return http.StatusForbidden
	case KindNotFound, KindInvalidIdentifier:
		return http.StatusNotFound
	case KindValidationFailed, KindDuplicateKey, KindParentGroupMismatch, KindConflict:
		return http.StatusBadRequest
	case KindIntegrityViolation:
		return http.StatusConflict
	case KindUploadFailed:
		return http.StatusBadGateway
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    string // reason code; defaults to Kind.String()
	Message string
	Details any
	Err     error // underlying cause, never sent to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status of the error.
func (e *Error) Status() int { return e.Kind.Status() }

// WithCode overrides the reason code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithDetails attaches client-visible details.
func (e *Error) WithDetails(d any) *Error {
	e.Details = d
	return e
}

// New builds an error of the given kind.
func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Code: k.String(), Message: msg}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(k Kind, msg string, err error) *Error {
	return &Error{Kind: k, Code: k.String(), Message: msg, Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal when err is unclassified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Convenience constructors for the common cases.

func Unauthenticated(msg string) *Error { return New(KindUnauthenticated, msg) }
func InvalidToken(err error) *Error {
	return Wrap(KindInvalidToken, "invalid or expired token", err)
}
func AccountInactive() *Error { return New(KindAccountInactive, "account is inactive") }
func AccountPending() *Error  { return New(KindAccountPending, "Account pending approval") }
func Forbidden(msg string) *Error {
	return New(KindInsufficientPermission, msg)
}
func NotFound(what string) *Error { return New(KindNotFound, what+" not found") }
func InvalidID(what string) *Error {
	return New(KindInvalidIdentifier, "invalid "+what+" id")
}
func Validation(msg string) *Error { return New(KindValidationFailed, msg) }
func Duplicate(msg string) *Error  { return New(KindDuplicateKey, msg) }
func Conflict(code, msg string) *Error {
	return New(KindConflict, msg).WithCode(code)
}
func Integrity(msg string) *Error { return New(KindIntegrityViolation, msg) }
func UploadFailed(err error) *Error {
	return Wrap(KindUploadFailed, "file upload failed", err)
}
func Internal(err error) *Error { return Wrap(KindInternal, "internal server error", err) }
