package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Note     string `json:"note"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(signup{Email: "a@b.co", Password: "longenough"}))

	err := Struct(signup{Email: "not-an-email", Password: "short"})
	var vErrs Errors
	require.True(t, errors.As(err, &vErrs))
	assert.Equal(t, []string{"email", "password"}, vErrs.Fields())
	assert.Equal(t, []string{"The email must be a valid email address."}, vErrs["email"])
	assert.Equal(t, []string{"The password must be at least 8 characters."}, vErrs["password"])
}

func TestRequiredMessage(t *testing.T) {
	err := Struct(signup{})
	var vErrs Errors
	require.True(t, errors.As(err, &vErrs))
	assert.Equal(t, []string{"The email field is required."}, vErrs["email"])
	assert.Contains(t, err.Error(), "email")
}
