package rbac

import "strings"

type AccessKind int

const (
	AccessAuthenticated AccessKind = iota
	AccessPublic
	AccessRole
)

// Access is the requirement a route places on the caller: Public,
// Authenticated, or Protected(role).
type Access struct {
	Kind AccessKind
	Role Role
}

func Public() Access             { return Access{Kind: AccessPublic} }
func Authenticated() Access      { return Access{Kind: AccessAuthenticated} }
func Protected(role Role) Access { return Access{Kind: AccessRole, Role: role} }

func (a Access) String() string {
	switch a.Kind {
	case AccessPublic:
		return "public"
	case AccessRole:
		return "role:" + string(a.Role)
	default:
		return "authenticated"
	}
}

type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

// Decide checks a caller against the requirement. A nil authorities slice
// together with authenticated=false is the anonymous caller.
func (a Access) Decide(h *Hierarchy, authenticated bool, authorities []string) Decision {
	switch a.Kind {
	case AccessPublic:
		return Allow
	case AccessRole:
		if !authenticated {
			return DenyUnauthenticated
		}
		if h.SatisfiesAny(authorities, a.Role) {
			return Allow
		}
		return DenyForbidden
	default:
		if !authenticated {
			return DenyUnauthenticated
		}
		return Allow
	}
}

// Rule binds a path pattern to an Access requirement. A pattern ending in
// "/**" matches the prefix and everything below it on a segment boundary;
// any other pattern matches the exact path.
type Rule struct {
	Pattern string
	Access  Access
}

func (r Rule) Matches(path string) bool {
	path = normalizePath(path)

	if base, ok := strings.CutSuffix(r.Pattern, "/**"); ok {
		base = normalizePath(base)
		return path == base || strings.HasPrefix(path, base+"/")
	}

	return path == normalizePath(r.Pattern)
}

// Policy is an ordered rule list; the first matching rule wins and unmatched
// paths require authentication.
type Policy struct {
	rules []Rule
}

func NewPolicy(rules ...Rule) *Policy {
	return &Policy{rules: append([]Rule(nil), rules...)}
}

// DefaultPolicy opens the credential and probe endpoints and guards the
// role probe paths.
func DefaultPolicy() *Policy {
	return NewPolicy(
		Rule{Pattern: "/api/test/**", Access: Public()},
		Rule{Pattern: "/api/register/**", Access: Public()},
		Rule{Pattern: "/api/login/**", Access: Public()},
		Rule{Pattern: "/api/auth/**", Access: Public()},
		Rule{Pattern: "/api/refresh-token/**", Access: Public()},
		Rule{Pattern: "/api/path/admin", Access: Protected(RoleAdmin)},
		Rule{Pattern: "/api/path/manager", Access: Protected(RoleManager)},
		Rule{Pattern: "/api/path/user", Access: Protected(RoleUser)},
	)
}

func (p *Policy) Match(path string) Access {
	for _, rule := range p.rules {
		if rule.Matches(path) {
			return rule.Access
		}
	}
	return Authenticated()
}

func (p *Policy) IsPublic(path string) bool {
	return p.Match(path).Kind == AccessPublic
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		return "/"
	}
	return path
}
