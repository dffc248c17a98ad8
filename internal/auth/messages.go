package auth

import (
	"errors"

	"github.com/geocoder89/akbidlab/internal/identity"
)

// Message turns a login or role-switch failure into the text shown next to
// the form that triggered it.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "Email dan password harus diisi"
	case errors.Is(err, identity.ErrInvalidCredentials):
		return "Email atau password salah"
	case errors.Is(err, identity.ErrInactiveAccount):
		return "Akun tidak aktif"
	case errors.Is(err, identity.ErrProfileNotFound):
		return "Profil tidak ditemukan"
	case errors.Is(err, ErrInFlight):
		return "Login sedang diproses"
	case errors.Is(err, ErrDevModeDisabled):
		return "Role switching tidak aktif"
	case errors.Is(err, ErrUnknownTestAccount):
		return "Test account tidak ditemukan"
	case errors.Is(err, ErrSessionWrite):
		return "Sesi tidak dapat disimpan"
	case errors.Is(err, ErrSessionExpired):
		return "Sesi telah berakhir, silakan login kembali"
	case errors.Is(err, ErrNotAuthenticated):
		return "Silakan login terlebih dahulu"
	default:
		return "Login gagal"
	}
}
