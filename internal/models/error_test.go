package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBadPasswordError_Unwrap(t *testing.T) {
	err := error(&BadPasswordError{Remaining: 3})
	assert.ErrorIs(t, err, ErrBadPassword)
	assert.NotErrorIs(t, err, ErrAccountBlocked)
	assert.Contains(t, err.Error(), "3 attempts remaining")

	err = &BadPasswordError{Remaining: 0, Blocked: true}
	assert.ErrorIs(t, err, ErrAccountBlocked)
	assert.NotErrorIs(t, err, ErrBadPassword)
}

func TestBadPasswordError_ErrorsAsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("login failed: %w", &BadPasswordError{Remaining: 1})

	var badPwd *BadPasswordError
	assert.True(t, errors.As(wrapped, &badPwd))
	assert.Equal(t, 1, badPwd.Remaining)
}
