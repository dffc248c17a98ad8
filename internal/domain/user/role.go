package user

import (
	"errors"
	"strings"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDosen     Role = "dosen"
	RoleLaboran   Role = "laboran"
	RoleMahasiswa Role = "mahasiswa"
	RoleDevSuper  Role = "dev_super"
)

var ErrUnknownRole = errors.New("unknown role")

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleDosen, RoleLaboran, RoleMahasiswa, RoleDevSuper}

var displayNames = map[Role]string{
	RoleAdmin:     "Administrator",
	RoleDosen:     "Dosen/Pengajar",
	RoleLaboran:   "Laboran",
	RoleMahasiswa: "Mahasiswa",
	RoleDevSuper:  "Developer Super Admin",
}

// directGrants is the only place privilege is declared: a role on the left
// also satisfies every role on the right. The closure is computed once.
var directGrants = map[Role][]Role{
	RoleDevSuper: {RoleAdmin},
	RoleAdmin:    {RoleDosen, RoleLaboran, RoleMahasiswa},
}

var implied = buildImplied()

func buildImplied() map[Role]map[Role]struct{} {
	out := make(map[Role]map[Role]struct{}, len(Roles))

	for _, r := range Roles {
		set := map[Role]struct{}{r: {}}
		stack := []Role{r}

		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			for _, next := range directGrants[cur] {
				if _, seen := set[next]; seen {
					continue
				}
				set[next] = struct{}{}
				stack = append(stack, next)
			}
		}
		out[r] = set
	}

	return out
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := displayNames[r]
	return ok
}

func (r Role) String() string { return string(r) }

func (r Role) DisplayName() string {
	if name, ok := displayNames[r]; ok {
		return name
	}
	return string(r)
}

// Implies reports whether a holder of r may act as other.
func (r Role) Implies(other Role) bool {
	set, ok := implied[r]
	if !ok {
		return false
	}
	_, ok = set[other]
	return ok
}

// Expand returns every role that implies at least one of roles, in Roles order.
func Expand(roles ...Role) []Role {
	out := make([]Role, 0, len(Roles))

	for _, candidate := range Roles {
		for _, want := range roles {
			if candidate.Implies(want) {
				out = append(out, candidate)
				break
			}
		}
	}

	return out
}

func JoinRoles(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
