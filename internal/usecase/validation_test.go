package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCreateClient(t *testing.T) {
	assert.NoError(t, Validate(CreateClientInput{Name: "Acme", Email: "ops@acme.com"}))

	err := Validate(CreateClientInput{Name: strings.Repeat("a", 256), Email: "not-an-email"})

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	assert.Equal(t, ValidationError{Field: "name", Message: "must not exceed 255 characters"}, verrs[0])
	assert.Equal(t, ValidationError{Field: "email", Message: "must be a valid email"}, verrs[1])
}

func TestValidateRequired(t *testing.T) {
	err := Validate(CreateClientInput{})

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "is required", verrs[0].Message)
	assert.Contains(t, err.Error(), "validation failed: name: is required")
}

func TestValidateOneOfMessage(t *testing.T) {
	err := Validate(UpdateLeadStatusInput{Status: "won"})

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "must be one of: new, contacted, qualified, converted, lost, archived", verrs[0].Message)
}
