package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinKeyLength is the smallest HMAC key accepted for HS256 (256 bits).
const MinKeyLength = 32

// MinTTL is the shortest lifetime that always yields exp > iat, since both
// claims are whole seconds.
const MinTTL = time.Second

// Codec mints and verifies HS256 tokens with a single process-wide key.
// A Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	key    []byte
	prefix string
	now    func() time.Time
}

type Option func(*Codec)

// WithClock overrides the time source used for iat/exp and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithPrefix sets the scheme prefix (for example "Bearer ") stripped from
// incoming token strings before verification.
func WithPrefix(prefix string) Option {
	return func(c *Codec) {
		c.prefix = prefix
	}
}

func NewCodec(key []byte, opts ...Option) (*Codec, error) {
	if len(key) < MinKeyLength {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", MinKeyLength, len(key))
	}

	c := &Codec{
		key: append([]byte(nil), key...),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// DecodeSecret decodes a base64 signing secret as found in configuration.
func DecodeSecret(secret string) ([]byte, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("signing secret is empty")
	}

	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		key, err = base64.RawStdEncoding.DecodeString(secret)
	}
	if err != nil {
		return nil, fmt.Errorf("signing secret is not valid base64: %w", err)
	}

	return key, nil
}

func (c *Codec) Now() time.Time {
	return c.now()
}

func (c *Codec) Prefix() string {
	return c.prefix
}

// Issue signs claims with iat = now and exp = now + ttl. Subject and jti are
// always overwritten; an empty Type defaults to TypeAccess.
func (c *Codec) Issue(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	now := c.now()
	issuedAt := jwt.NewNumericDate(now)
	expiresAt := jwt.NewNumericDate(now.Add(ttl))
	if !expiresAt.After(issuedAt.Time) {
		return "", fmt.Errorf("token ttl %s is shorter than the timestamp precision", ttl)
	}

	if claims.Type == "" {
		claims.Type = TypeAccess
	}
	claims.Subject = strconv.FormatInt(claims.UserIdx, 10)
	claims.ID = uuid.NewString()
	claims.IssuedAt = issuedAt
	claims.ExpiresAt = expiresAt

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Validate verifies the signature, then expiry, then decodes the claims.
// Every failure is returned as one of the package sentinels.
func (c *Codec) Validate(raw string) (*Claims, error) {
	return c.parse(raw, true)
}

// ValidateAs is Validate plus a check on the token type.
func (c *Codec) ValidateAs(raw string, want Type) (*Claims, error) {
	claims, err := c.parse(raw, true)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongType, claims.Type, want)
	}

	return claims, nil
}

// ExtractClaims decodes a token whose signature is intact without failing on
// expiry. Callers use it once they already know the validity state.
func (c *Codec) ExtractClaims(raw string) (*Claims, error) {
	return c.parse(raw, false)
}

// Valid is the boolean form of Validate.
func (c *Codec) Valid(raw string) bool {
	_, err := c.Validate(raw)
	return err == nil
}

// StripPrefix removes the configured scheme and surrounding spaces. The
// scheme only counts when whitespace or the end of input follows it, so
// "Bearerxyz" is returned unchanged.
func (c *Codec) StripPrefix(raw string) string {
	rest, _ := c.cutScheme(strings.TrimSpace(raw))
	return rest
}

// HasScheme reports whether raw starts with the configured scheme as a
// separate word. With no scheme configured every value matches.
func (c *Codec) HasScheme(raw string) bool {
	_, ok := c.cutScheme(strings.TrimSpace(raw))
	return ok
}

func (c *Codec) cutScheme(raw string) (string, bool) {
	scheme := strings.TrimSpace(c.prefix)
	if scheme == "" {
		return raw, true
	}

	rest, ok := strings.CutPrefix(raw, scheme)
	if !ok || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
		return raw, false
	}
	return strings.TrimSpace(rest), true
}

func (c *Codec) parse(raw string, checkExpiry bool) (*Claims, error) {
	tokenString := c.StripPrefix(raw)
	if tokenString == "" {
		return nil, ErrEmpty
	}

	options := []jwt.ParserOption{
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if !checkExpiry {
		options = append(options, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	parsed, err := jwt.NewParser(options...).ParseWithClaims(tokenString, claims, c.keyFunc)
	if err != nil {
		return nil, classify(tokenString, err)
	}
	if !parsed.Valid {
		return nil, ErrSignatureInvalid
	}

	if claims.Subject != strconv.FormatInt(claims.UserIdx, 10) {
		return nil, fmt.Errorf("%w: subject does not match userIdx", ErrMalformed)
	}

	return claims, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("%w: alg %q", ErrUnsupportedFormat, t.Method.Alg())
	}

	return c.key, nil
}

// classify maps parser errors onto the package taxonomy. Only the sentinel is
// kept in the error chain so callers see exactly one kind.
func classify(tokenString string, err error) error {
	var kind error
	switch {
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, jwt.ErrTokenUnverifiable):
		kind = ErrUnsupportedFormat
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		kind = ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		kind = ErrExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		// With an intact header and payload the only malformed part left is
		// the signature segment.
		if headerAndPayloadIntact(tokenString) {
			kind = ErrSignatureInvalid
		} else {
			kind = ErrMalformed
		}
	default:
		kind = ErrMalformed
	}

	return fmt.Errorf("%w: %v", kind, err)
}

func headerAndPayloadIntact(tokenString string) bool {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return false
	}

	headerBytes, err := base64.RawURLEncoding.Strict().DecodeString(parts[0])
	if err != nil {
		return false
	}
	var header map[string]any
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return false
	}
	if _, ok := header["alg"].(string); !ok {
		return false
	}

	payloadBytes, err := base64.RawURLEncoding.Strict().DecodeString(parts[1])
	if err != nil {
		return false
	}
	var claims Claims

	return json.Unmarshal(payloadBytes, &claims) == nil
}
