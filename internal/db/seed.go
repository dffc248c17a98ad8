package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/akbidlab/internal/domain/lab"
	"github.com/geocoder89/akbidlab/internal/domain/user"
	"github.com/geocoder89/akbidlab/internal/identity"
	"github.com/geocoder89/akbidlab/internal/security"
)

type UserSeeder interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureTestAccounts creates any missing development account. Existing rows
// are left untouched so a changed password in the database wins.
func EnsureTestAccounts(ctx context.Context, users UserSeeder, accounts []identity.TestAccount, log *slog.Logger) error {
	for _, acc := range accounts {
		_, err := users.GetByEmail(ctx, acc.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, user.ErrNotFound) {
			return err
		}

		hash, err := security.HashPassword(acc.Password)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		_, err = users.Create(ctx, user.User{
			ID:            acc.ID,
			Email:         acc.Email,
			PasswordHash:  hash,
			Name:          acc.Name,
			Role:          acc.Role,
			NimNip:        user.StringPtr(acc.NimNip),
			IsActive:      true,
			EmailVerified: true,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil && !errors.Is(err, user.ErrEmailTaken) {
			return err
		}

		if log != nil {
			log.Info("seeded test account", "email", acc.Email, "role", acc.Role)
		}
	}

	return nil
}

// DevCatalog is the lab/course data served in memory mode.
func DevCatalog(lecturerID string) ([]lab.Room, []lab.Course) {
	now := time.Now().UTC()
	str := func(s string) *string { return &s }

	rooms := []lab.Room{
		{ID: "lab-anc", Code: "LAB-ANC", Name: "Laboratorium ANC", Capacity: 30, Location: str("Gedung A Lt. 2"),
			Facilities: []string{"phantom", "doppler"}, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: "lab-inc", Code: "LAB-INC", Name: "Laboratorium INC", Capacity: 25, Location: str("Gedung A Lt. 3"),
			Facilities: []string{"bed partus"}, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: "lab-kb", Code: "LAB-KB", Name: "Laboratorium KB", Capacity: 20, IsActive: false, CreatedAt: now, UpdatedAt: now},
	}

	courses := []lab.Course{
		{ID: "mk-1", Code: "KB101", Name: "Asuhan Kebidanan Kehamilan", Semester: 1, Credits: 3,
			LecturerID: str(lecturerID), LabRoomID: str("lab-anc"), IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: "mk-2", Code: "KB201", Name: "Asuhan Persalinan", Semester: 2, Credits: 3,
			LecturerID: str(lecturerID), LabRoomID: str("lab-inc"), IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: "mk-3", Code: "KB301", Name: "Pelayanan KB", Semester: 3, Credits: 2,
			LabRoomID: str("lab-kb"), IsActive: true, CreatedAt: now, UpdatedAt: now},
	}

	return rooms, courses
}
