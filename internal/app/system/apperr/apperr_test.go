package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindUnauthenticated:            http.StatusUnauthorized,
		apperr.KindInvalidToken:               http.StatusUnauthorized,
		apperr.KindAccountInactive:            http.StatusUnauthorized,
		apperr.KindAccountPending:             http.StatusForbidden,
		apperr.KindInsufficientPermission:     http.StatusForbidden,
		apperr.KindNotGroupMember:             http.StatusForbidden,
		apperr.KindCannotModifyAdmin:          http.StatusForbidden,
		apperr.KindCannotRemovePrimaryCreator: http.StatusForbidden,
		apperr.KindInvalidGroupRole:           http.StatusForbidden,
		apperr.KindNotFound:                   http.StatusNotFound,
		apperr.KindInvalidIdentifier:          http.StatusNotFound,
		apperr.KindValidationFailed:           http.StatusBadRequest,
		apperr.KindDuplicateKey:               http.StatusBadRequest,
		apperr.KindParentGroupMismatch:        http.StatusBadRequest,
		apperr.KindConflict:                   http.StatusBadRequest,
		apperr.KindIntegrityViolation:         http.StatusConflict,
		apperr.KindUploadFailed:               http.StatusBadGateway,
		apperr.KindInternal:                   http.StatusInternalServerError,
	}
	for k, want := range cases {
		assert.Equal(t, want, k.Status(), k.String())
	}
}

func TestKindOf_WrappedChain(t *testing.T) {
	base := apperr.New(apperr.KindNotGroupMember, "not a member of this group")
	wrapped := fmt.Errorf("loading post: %w", base)

	assert.Equal(t, apperr.KindNotGroupMember, apperr.KindOf(wrapped))
	assert.True(t, apperr.Is(wrapped, apperr.KindNotGroupMember))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(errors.New("boom")))
	assert.False(t, apperr.Is(nil, apperr.KindInternal))
}

func TestWithCodeAndDetails(t *testing.T) {
	e := apperr.Validation("bad ids").WithCode("INVALID_IDS").WithDetails([]string{"x"})
	require.Equal(t, "INVALID_IDS", e.Code)
	assert.Equal(t, []string{"x"}, e.Details)
	assert.Equal(t, http.StatusBadRequest, e.Status())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("drive down")
	e := apperr.UploadFailed(cause)
	assert.ErrorIs(t, e, cause)
	assert.Contains(t, e.Error(), "drive down")
}
