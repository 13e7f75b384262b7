package rbac

import (
	"fmt"
	"strings"
)

// Role is one of the closed set of authorities a user can hold.
type Role string

const (
	RoleAdmin   Role = "ROLE_ADMIN"
	RoleManager Role = "ROLE_MANAGER"
	RoleUser    Role = "ROLE_USER"
)

// DefaultRole is assigned at registration.
const DefaultRole = RoleUser

var knownRoles = []Role{RoleAdmin, RoleManager, RoleUser}

// ParseRole accepts the authority form ("ROLE_ADMIN") or the bare name
// ("admin"), case-insensitively.
func ParseRole(raw string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	if name == "" {
		return "", fmt.Errorf("role is empty")
	}
	if !strings.HasPrefix(name, "ROLE_") {
		name = "ROLE_" + name
	}

	for _, role := range knownRoles {
		if string(role) == name {
			return role, nil
		}
	}

	return "", fmt.Errorf("unknown role %q", raw)
}

func (r Role) String() string {
	return string(r)
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}
