package validation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/caseentry/internal/validation"
)

func TestErrors_EmptyIsNil(t *testing.T) {
	t.Parallel()

	var errs validation.Errors
	assert.NoError(t, errs.Err())
}

func TestRequired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{"present", "x", true},
		{"empty", "", false},
		{"whitespace only", "  \t", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var errs validation.Errors
			assert.Equal(t, tt.ok, errs.Required("field", tt.value))
			assert.Equal(t, !tt.ok, errs.Err() != nil)
		})
	}
}

func TestEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		ok    bool
	}{
		{"user@example.com", true},
		{"first.last+tag@sub.example.org", true},
		{"not-an-email", false},
		{"Name <user@example.com>", false},
		{"user@", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()
			var errs validation.Errors
			assert.Equal(t, tt.ok, errs.Email("email", tt.value))
		})
	}
}

func TestMinMaxLength_CountsRunes(t *testing.T) {
	t.Parallel()

	var errs validation.Errors
	assert.True(t, errs.MinLength("password", "ééé", 3))
	assert.False(t, errs.MinLength("password", "ab", 3))
	assert.True(t, errs.MaxLength("name", "日本語", 3))
	assert.False(t, errs.MaxLength("name", "日本語!", 3))
	require.Len(t, errs, 2)
	assert.Equal(t, "password must be at least 3 characters", errs[0].Message)
	assert.Equal(t, "name must be at most 3 characters", errs[1].Message)
}

func TestOneOf(t *testing.T) {
	t.Parallel()

	var errs validation.Errors
	assert.True(t, errs.OneOf("role", "admin", "admin", "user"))
	assert.False(t, errs.OneOf("role", "root", "admin", "user"))
	require.Len(t, errs, 1)
	assert.Equal(t, `role must be one of "admin", "user"`, errs[0].Message)
}

func TestErrors_UsableWithErrorsAs(t *testing.T) {
	t.Parallel()

	var errs validation.Errors
	errs.Add("confirmPassword", "passwords do not match")
	wrapped := errors.Join(errors.New("context"), errs.Err())

	var got validation.Errors
	require.True(t, errors.As(wrapped, &got))
	assert.Equal(t, "confirmPassword", got[0].Field)
	assert.Contains(t, got.Error(), "passwords do not match")
}
