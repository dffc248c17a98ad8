package auth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/geocoder89/akbidlab/internal/identity"
	"github.com/stretchr/testify/require"
)

func TestMessage(t *testing.T) {
	require.Equal(t, "Email dan password harus diisi", Message(ErrValidation))
	require.Equal(t, "Email atau password salah", Message(fmt.Errorf("wrapped: %w", identity.ErrInvalidCredentials)))
	require.Equal(t, "Akun tidak aktif", Message(identity.ErrInactiveAccount))
	require.Equal(t, "Login gagal", Message(errors.New("socket closed")))
}

func TestMessage_AllIndonesian(t *testing.T) {
	cases := map[error]string{
		identity.ErrProfileNotFound: "Profil tidak ditemukan",
		ErrInFlight:                 "Login sedang diproses",
		ErrSessionWrite:             "Sesi tidak dapat disimpan",
		ErrSessionExpired:           "Sesi telah berakhir, silakan login kembali",
		ErrNotAuthenticated:         "Silakan login terlebih dahulu",
		errors.New("unexpected"):    "Login gagal",
	}
	for err, want := range cases {
		require.Equal(t, want, Message(err), err.Error())
	}
	require.Empty(t, Message(nil))
}

func TestDecide(t *testing.T) {
	require.Equal(t, Pending, Decide(State{Loading: true}))
	require.Equal(t, Pending, Decide(State{Loading: true, IsAuthenticated: true}))
	require.Equal(t, Unauthenticated, Decide(State{}))
	require.Equal(t, Authenticated, Decide(State{IsAuthenticated: true}))
	require.Equal(t, "pending", Pending.String())
}
