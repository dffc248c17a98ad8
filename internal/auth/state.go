package auth

import (
	"errors"

	"github.com/geocoder89/akbidlab/internal/domain/user"
)

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

var (
	ErrValidation         = errors.New("email and password are required")
	ErrInFlight           = errors.New("login already in progress")
	ErrSuperseded         = errors.New("login superseded by logout")
	ErrDevModeDisabled    = errors.New("role switching is disabled")
	ErrUnknownTestAccount = errors.New("test account not found")
	ErrSessionWrite       = errors.New("could not persist session")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrSessionExpired     = errors.New("remote session expired")
)

// State is the derived, never-persisted view of who is logged in.
type State struct {
	User            *user.User `json:"user"`
	Loading         bool       `json:"loading"`
	Error           string     `json:"error,omitempty"`
	IsAuthenticated bool       `json:"isAuthenticated"`
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (s State) Role() user.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Decision is the outcome of the authentication gate.
type Decision int

const (
	Pending Decision = iota
	Authenticated
	Unauthenticated
)

func (d Decision) String() string {
	switch d {
	case Pending:
		return "pending"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Decide maps a state to the authentication gate outcome.
func Decide(s State) Decision {
	switch {
	case s.Loading:
		return Pending
	case s.IsAuthenticated:
		return Authenticated
	default:
		return Unauthenticated
	}
}

// Navigator performs the one navigation side effect the controller owns:
// sending the client to the login entry point after logout.
type Navigator interface {
	Navigate(target string, replace bool)
}

// Recorder receives transition outcomes for metrics.
type Recorder interface {
	ObserveAuth(op, result string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveAuth(string, string) {}
