package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundError(t *testing.T) {
	err := fmt.Errorf("lookup: %w", &NotFoundError{ID: 7})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrStorage)
	assert.EqualError(t, errors.Unwrap(err), "Todo with id 7 not found")
}

func TestValidationError(t *testing.T) {
	ve := NewValidationError("title", "is required")
	ve.Add("completed", "must be true or false")

	var target *ValidationError
	assert.ErrorAs(t, fmt.Errorf("wrapped: %w", ve), &target)
	assert.Len(t, target.Fields, 2)
	assert.Equal(t, "validation failed: title: is required; completed: must be true or false", ve.Error())
}
