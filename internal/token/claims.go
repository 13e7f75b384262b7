package token

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Type distinguishes access tokens from refresh tokens. Both share the same
// claim layout and only differ in lifetime and in where they are accepted.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Claims is the payload carried by every token. Subject always holds the
// decimal form of UserIdx.
type Claims struct {
	UserIdx  int64  `json:"userIdx"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Role     string `json:"role"`
	IP       string `json:"ip"`
	Type     Type   `json:"typ"`
	jwt.RegisteredClaims
}

// Authorities splits the comma-joined role claim into individual authority
// strings, dropping blanks.
func (c *Claims) Authorities() []string {
	if strings.TrimSpace(c.Role) == "" {
		return nil
	}

	parts := strings.Split(c.Role, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
