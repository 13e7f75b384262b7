package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = errors.New("sentinel")

func TestWrapKeepsCause(t *testing.T) {
	err := Unauthorized(errSentinel, "invalid credentials")

	assert.ErrorIs(t, err, errSentinel)
	assert.Equal(t, http.StatusUnauthorized, err.HTTPStatus)
	assert.Equal(t, "UNAUTHORIZED: invalid credentials", err.Error())
}

func TestAsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", BadRequest("username is required", "username"))

	apiErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
	assert.Equal(t, "BAD_REQUEST: username is required (username)", apiErr.Error())

	_, ok = As(errSentinel)
	assert.False(t, ok)
}

func TestNilAPIError(t *testing.T) {
	var err *APIError
	assert.Equal(t, "", err.Error())
	assert.Nil(t, err.Unwrap())
}
