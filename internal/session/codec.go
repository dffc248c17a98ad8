package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/akbidlab/internal/domain/user"
)

var ErrMalformed = errors.New("malformed session content")

func Encode(u user.User) ([]byte, error) {
	if err := u.ValidateIdentity(); err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return json.Marshal(u)
}

// Decode parses stored content. Anything without a usable id, name and role
// is reported as ErrMalformed so callers can discard it.
func Decode(raw []byte) (user.User, error) {
	var u user.User

	if len(strings.TrimSpace(string(raw))) == 0 {
		return user.User{}, ErrMalformed
	}

	if err := json.Unmarshal(raw, &u); err != nil {
		return user.User{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	u.ID = strings.TrimSpace(u.ID)
	u.Name = strings.TrimSpace(u.Name)

	if err := u.ValidateIdentity(); err != nil {
		return user.User{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return u, nil
}
