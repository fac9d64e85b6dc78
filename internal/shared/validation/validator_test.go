package validation

import (
	"testing"

	apperrors "blog-cms/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email  string `json:"email" validate:"required,email"`
	Title  string `json:"title" validate:"notblank"`
	Format string `json:"format" validate:"omitempty,oneof=csv xlsx"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(&sample{Email: "a@b.co", Title: "Hello", Format: "csv"}))

	err := Struct(&sample{Email: "nope", Title: "   ", Format: "pdf"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	fieldErrs, ok := appErr.Details["validation_errors"].([]apperrors.ValidationError)
	require.True(t, ok)
	require.Len(t, fieldErrs, 3)
	assert.Equal(t, "email", fieldErrs[0].Field)
	assert.Equal(t, "the field 'title' cannot be blank", fieldErrs[1].Message)
	assert.Equal(t, "the field 'format' must be one of [csv xlsx]", fieldErrs[2].Message)
}

func TestEmail(t *testing.T) {
	assert.True(t, Email("reader@example.com"))
	assert.False(t, Email(""))
	assert.False(t, Email("reader@"))
}
