package rbac

import "fmt"

// Hierarchy is a directed acyclic graph over roles. An edge from A to B means
// A implies B. Satisfies answers reachability questions over that graph.
type Hierarchy struct {
	implies map[Role][]Role
}

// DefaultHierarchy is ROLE_ADMIN > ROLE_MANAGER > ROLE_USER.
func DefaultHierarchy() *Hierarchy {
	h, err := NewHierarchy(map[Role][]Role{
		RoleAdmin:   {RoleManager},
		RoleManager: {RoleUser},
	})
	if err != nil {
		panic(err)
	}
	return h
}

// NewHierarchy builds a hierarchy from direct implication edges. Unknown
// roles and cycles are rejected.
func NewHierarchy(edges map[Role][]Role) (*Hierarchy, error) {
	implies := make(map[Role][]Role, len(edges))
	for from, targets := range edges {
		if !from.Valid() {
			return nil, fmt.Errorf("unknown role %q in hierarchy", from)
		}
		for _, to := range targets {
			if !to.Valid() {
				return nil, fmt.Errorf("unknown role %q in hierarchy", to)
			}
		}
		implies[from] = append([]Role(nil), targets...)
	}

	h := &Hierarchy{implies: implies}
	for from := range implies {
		if h.reaches(from, from) {
			return nil, fmt.Errorf("role hierarchy has a cycle through %q", from)
		}
	}

	return h, nil
}

// Satisfies reports whether holding have fulfils a requirement for required,
// either directly or through implied roles.
func (h *Hierarchy) Satisfies(have Role, required Role) bool {
	if have == required {
		return have.Valid()
	}
	return h.reaches(have, required)
}

// SatisfiesAny is Satisfies over a set of held authorities. Authorities that
// are not known roles are ignored.
func (h *Hierarchy) SatisfiesAny(authorities []string, required Role) bool {
	for _, authority := range authorities {
		role, err := ParseRole(authority)
		if err != nil {
			continue
		}
		if h.Satisfies(role, required) {
			return true
		}
	}
	return false
}

// reaches follows at least one edge, so reaches(r, r) detects cycles.
func (h *Hierarchy) reaches(from Role, to Role) bool {
	seen := map[Role]bool{}
	stack := append([]Role(nil), h.implies[from]...)
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == to {
			return true
		}
		if seen[current] {
			continue
		}
		seen[current] = true
		stack = append(stack, h.implies[current]...)
	}
	return false
}
