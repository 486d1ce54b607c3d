package status

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifiers(t *testing.T) {
	validation := Invalid("amount", "must be positive")
	conflict := Conflict("approve_payment", "payment is failed")
	notFound := NotFound("ticket", "tkt_123")
	external := External("omise", errors.New("timeout"))

	assert.True(t, IsValidation(validation))
	assert.True(t, IsConflict(conflict))
	assert.True(t, IsNotFound(notFound))
	assert.True(t, IsExternal(external))

	// classifiers are mutually exclusive
	assert.False(t, IsValidation(conflict))
	assert.False(t, IsConflict(notFound))
	assert.False(t, IsNotFound(external))
	assert.False(t, IsExternal(validation))
}

func TestClassifiers_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create ticket: %w", Conflict("admit", "fully used"))
	assert.True(t, IsConflict(wrapped))
}

func TestConflictAt_MessageCarriesTimestamp(t *testing.T) {
	at := time.Date(2026, 8, 29, 18, 30, 0, 0, time.UTC)
	err := ConflictAt("admit", "pass already fully used", at)
	assert.Contains(t, err.Error(), "2026-08-29T18:30:00Z")
}

func TestExternalError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := External("rabbitmq", cause)
	assert.True(t, errors.Is(err, cause))
}
