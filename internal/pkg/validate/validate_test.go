package validate

import (
	"errors"
	"testing"

	"github.com/go-accounts-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStruct_Valid(t *testing.T) {
	err := Struct(&domain.LoginRequest{Email: "a@x.com", Password: "x"})
	assert.NoError(t, err)
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := Struct(&domain.RegisterRequest{Email: "not-an-email", Password: "Abcdef1!"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	assert.Contains(t, err.Error(), "field 'email' failed 'email'")
	assert.Contains(t, err.Error(), "field 'confirmed_password' failed 'required'")
}

func TestStruct_OptionalPointerFields(t *testing.T) {
	bad := "nope"
	assert.NoError(t, Struct(&domain.UpdateProfileRequest{}))
	assert.Error(t, Struct(&domain.UpdateProfileRequest{Email: &bad}))
}
