package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Fields: map[string][]string{
			"username": {"taken"},
			"email":    {"invalid", "too long"},
		},
		Cause: ErrRegistrationFailed,
	}
	wrapped := fmt.Errorf("register: %w", err)

	assert.Equal(t, "email: invalid, too long; username: taken", err.Error())
	assert.ErrorIs(t, wrapped, ErrValidationFailed)
	assert.ErrorIs(t, wrapped, ErrRegistrationFailed)
	assert.NotErrorIs(t, wrapped, ErrCheckoutFailed)

	var verr *ValidationError
	assert.True(t, errors.As(wrapped, &verr))

	assert.Equal(t, "Please enter delivery address", (&ValidationError{Message: "Please enter delivery address"}).Error())
	assert.Equal(t, ErrValidationFailed.Error(), (&ValidationError{}).Error())
}

func TestFailureError(t *testing.T) {
	cause := errors.New("status 400")
	err := &FailureError{Reason: ErrCheckoutFailed, Message: "Insufficient stock", Err: cause}

	assert.Equal(t, "Insufficient stock", err.Error())
	assert.ErrorIs(t, err, ErrCheckoutFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, ErrInvalidCredentials.Error(), (&FailureError{Reason: ErrInvalidCredentials}).Error())
}
