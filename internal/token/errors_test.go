package token

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReason(t *testing.T) {
	assert.Equal(t, "valid", Reason(nil))
	assert.Equal(t, "empty", Reason(ErrEmpty))
	assert.Equal(t, "expired", Reason(fmt.Errorf("%w: token is expired", ErrExpired)))
	assert.Equal(t, "signature_invalid", Reason(fmt.Errorf("%w: x", ErrSignatureInvalid)))
	assert.Equal(t, "unsupported", Reason(ErrUnsupportedFormat))
	assert.Equal(t, "wrong_type", Reason(ErrWrongType))
	assert.Equal(t, "malformed", Reason(ErrMalformed))
	assert.Equal(t, "error", Reason(errors.New("boom")))
}
