package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestToDomainErrorKeepsWrappedDomainError(t *testing.T) {
	inner := NewStateConflict("ALREADY_SOLVED", "complaint already solved", nil)
	got := ToDomainError(fmt.Errorf("resolve: %w", inner))

	assert.Equal(t, "ALREADY_SOLVED", got.Code)
	assert.Equal(t, http.StatusConflict, got.HTTPStatus)
}

func TestToDomainErrorMapsFiberErrors(t *testing.T) {
	got := ToDomainError(fiber.NewError(http.StatusRequestEntityTooLarge, "too big"))
	assert.Equal(t, "PAYLOAD_TOO_LARGE", got.Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, got.HTTPStatus)
}

func TestToDomainErrorHidesUnknownErrors(t *testing.T) {
	cause := errors.New("connection reset")
	got := ToDomainError(cause)

	assert.Equal(t, "INTERNAL_ERROR", got.Code)
	assert.Equal(t, "internal server error", got.Message)
	assert.ErrorIs(t, got, cause)
	assert.Nil(t, ToDomainError(nil))
}
