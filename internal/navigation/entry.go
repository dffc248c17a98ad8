// Package navigation holds the static menus and derives the entries a role
// may see.
package navigation

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/geocoder89/akbidlab/internal/domain/user"
)

//go:embed menus.toml
var defaultMenus string

var (
	ErrInvalidMenu = errors.New("invalid menu definition")
	ErrUnknownMenu = errors.New("unknown menu")
)

const (
	MenuTopbar  = "topbar"
	MenuSidebar = "sidebar"
)

type Entry struct {
	Label       string      `toml:"label" json:"label"`
	Path        string      `toml:"path" json:"path"`
	Icon        string      `toml:"icon" json:"icon"`
	Roles       []user.Role `toml:"roles" json:"roles"`
	Description string      `toml:"description" json:"description,omitempty"`
	Children    []Entry     `toml:"children" json:"children,omitempty"`
}

type Menus struct {
	Topbar  []Entry `toml:"topbar"`
	Sidebar []Entry `toml:"sidebar"`
}

func (m Menus) Menu(name string) ([]Entry, error) {
	switch name {
	case MenuTopbar:
		return m.Topbar, nil
	case MenuSidebar:
		return m.Sidebar, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMenu, name)
	}
}

// Load decodes menu TOML. Every entry's roles are checked and expanded so
// that the filter is a plain membership test.
func Load(data string) (Menus, error) {
	var m Menus

	md, err := toml.Decode(data, &m)
	if err != nil {
		return Menus{}, fmt.Errorf("%w: %v", ErrInvalidMenu, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Menus{}, fmt.Errorf("%w: unknown keys %v", ErrInvalidMenu, undecoded)
	}

	if err := prepare(m.Topbar, "topbar"); err != nil {
		return Menus{}, err
	}
	if err := prepare(m.Sidebar, "sidebar"); err != nil {
		return Menus{}, err
	}
	return m, nil
}

// Default returns the built-in menus. It panics if the embedded file is
// broken, which the package tests catch.
func Default() Menus {
	m, err := Load(defaultMenus)
	if err != nil {
		panic(err)
	}
	return m
}

func prepare(entries []Entry, where string) error {
	for i := range entries {
		e := &entries[i]
		at := fmt.Sprintf("%s[%d]", where, i)

		if strings.TrimSpace(e.Label) == "" {
			return fmt.Errorf("%w: %s has no label", ErrInvalidMenu, at)
		}
		if !strings.HasPrefix(e.Path, "/") {
			return fmt.Errorf("%w: %s path %q must be absolute", ErrInvalidMenu, at, e.Path)
		}
		if len(e.Roles) == 0 {
			return fmt.Errorf("%w: %s has no roles", ErrInvalidMenu, at)
		}

		for j, r := range e.Roles {
			parsed, err := user.ParseRole(string(r))
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidMenu, at, err)
			}
			e.Roles[j] = parsed
		}
		e.Roles = user.Expand(e.Roles...)

		if err := prepare(e.Children, at+".children"); err != nil {
			return err
		}
	}
	return nil
}
