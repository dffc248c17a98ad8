package navigation

import (
	"fmt"
	"strings"

	"github.com/geocoder89/akbidlab/internal/domain/user"
)

// Filter keeps, in order, the entries whose roles pass allowed. Children are
// filtered against their own roles; a hidden parent hides its children.
func Filter(entries []Entry, allowed func(roles ...user.Role) bool) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !allowed(e.Roles...) {
			continue
		}
		if len(e.Children) > 0 {
			e.Children = Filter(e.Children, allowed)
		}
		out = append(out, e)
	}
	return out
}

// ForRole is Filter for a bare role; an empty role sees nothing.
func ForRole(entries []Entry, role user.Role) []Entry {
	return Filter(entries, func(roles ...user.Role) bool {
		if role == "" {
			return false
		}
		for _, r := range roles {
			if r == role {
				return true
			}
		}
		return false
	})
}

type Summary struct {
	Role        user.Role `json:"role"`
	AccessLevel string    `json:"access_level"`
	Available   int       `json:"available"`
	Text        string    `json:"text"`
}

// Summarize describes what a role can reach from a filtered top-level menu.
func Summarize(role user.Role, visible []Entry) Summary {
	noun := "dashboards"
	if len(visible) == 1 {
		noun = "dashboard"
	}

	return Summary{
		Role:        role,
		AccessLevel: strings.ToUpper(string(role)),
		Available:   len(visible),
		Text:        fmt.Sprintf("%d %s available", len(visible), noun),
	}
}
