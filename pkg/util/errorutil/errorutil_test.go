package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorMatchesSentinelByCode(t *testing.T) {
	err := NewForbiddenField("priority")

	assert.ErrorIs(t, err, ErrForbiddenField)
	assert.NotErrorIs(t, err, ErrInvalidAssignee)
	assert.ErrorIs(t, fmt.Errorf("update: %w", err), ErrForbiddenField)
}

func TestIsValidation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"generic validation", NewValidationError("title required", nil), true},
		{"forbidden field", NewForbiddenField("status"), true},
		{"invalid assignee", NewInvalidAssignee("u-1"), true},
		{"not found", NewNotFound("ticket", nil), false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsValidation(tc.err))
		})
	}
}

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
	assert.NoError(t, MapError(nil))

	notFound := ToDomainError(fmt.Errorf("scan: %w", pgx.ErrNoRows))
	require.NotNil(t, notFound)
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	internal := ToDomainError(errors.New("disk on fire"))
	assert.Equal(t, CodeInternal, internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)

	original := NewConflict("busy", nil)
	assert.Same(t, original, ToDomainError(original))
}

func TestFromStatus(t *testing.T) {
	assert.Equal(t, CodeNotFound, FromStatus(http.StatusNotFound, "Cannot GET /nope").Code)
	assert.Equal(t, CodeInternal, FromStatus(http.StatusTeapot, "teapot").Code)
}
