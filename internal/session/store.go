// Package session persists the serialized user record for one client session.
//
// A client session is identified by an opaque id carried in a browser-session
// cookie. Each id owns exactly one entry, stored under Key(id).
package session

import (
	"context"
	"errors"
)

// EntryName is the well-known name of the session entry.
const EntryName = "akbid_auth_session"

// TokenName names the sibling entry holding the remote access token, so a
// rebuilt controller can still sign the remote session out.
const TokenName = "akbid_auth_token"

var ErrNotFound = errors.New("session entry not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

func Key(sessionID string) string {
	return sessionID + ":" + EntryName
}

func TokenKey(sessionID string) string {
	return sessionID + ":" + TokenName
}
