package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"notes": map[string]any{"type": "string"},
		},
		"required": []any{"title"},
	}
}

func TestValidateParameters_MissingRequired(t *testing.T) {
	err := ValidateParameters(map[string]any{"notes": "x"}, taskSchema())
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "title", vErr.Field)
}

func TestValidateParameters_NullFailsTypedProperty(t *testing.T) {
	// A decoded JSON null arrives as an untyped nil and must not satisfy
	// a property declared as string.
	err := ValidateParameters(map[string]any{"title": nil}, taskSchema())
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "title", vErr.Field)
}

func TestValidateParameters_WrongType(t *testing.T) {
	err := ValidateParameters(map[string]any{"title": 12}, taskSchema())
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "title", vErr.Field)
}

func TestValidateParameters_Valid(t *testing.T) {
	err := ValidateParameters(map[string]any{"title": "essay"}, taskSchema())
	assert.NoError(t, err)
}
