package token

import "errors"

var (
	ErrEmpty             = errors.New("token: empty or missing")
	ErrMalformed         = errors.New("token: malformed")
	ErrSignatureInvalid  = errors.New("token: signature invalid")
	ErrExpired           = errors.New("token: expired")
	ErrUnsupportedFormat = errors.New("token: unsupported format")
	ErrWrongType         = errors.New("token: unexpected token type")
)

// Reason names the failure kind of err for logs and metric labels.
func Reason(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, ErrEmpty):
		return "empty"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported"
	case errors.Is(err, ErrWrongType):
		return "wrong_type"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "error"
	}
}
