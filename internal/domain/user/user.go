package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidUser = errors.New("invalid user record")
	ErrNotFound    = errors.New("user not found")
	ErrEmailTaken  = errors.New("email already registered")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type User struct {
	ID            string     `json:"id" validate:"required"`
	Email         string     `json:"email" validate:"omitempty,email"`
	PasswordHash  string     `json:"-"` // never expose hash in JSON
	Name          string     `json:"name" validate:"required,max=100"`
	Role          Role       `json:"role" validate:"required,oneof=admin dosen laboran mahasiswa dev_super"`
	NimNip        *string    `json:"nim_nip" validate:"omitempty,min=3,max=20"`
	IsActive      bool       `json:"is_active"`
	EmailVerified bool       `json:"email_verified"`
	LastLogin     *time.Time `json:"last_login"`
	Phone         *string    `json:"phone"`
	Address       *string    `json:"address"`
	AvatarURL     *string    `json:"avatar_url" validate:"omitempty,url"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Validate checks a record coming back from a store or the identity backend.
func (u User) Validate() error {
	if err := validate.Struct(u); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	return nil
}

// ValidateIdentity only checks the fields a session needs to be usable.
func (u User) ValidateIdentity() error {
	if err := validate.StructPartial(u, "ID", "Name", "Role"); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	return nil
}

// SignUpData is the payload for creating an account.
type SignUpData struct {
	Email    string `json:"email" binding:"required,email" validate:"required,email"`
	Password string `json:"password" binding:"required,min=6" validate:"required,min=6"`
	Name     string `json:"name" binding:"required,min=2,max=100" validate:"required,min=2,max=100"`
	Role     Role   `json:"role" binding:"required,oneof=admin dosen laboran mahasiswa dev_super" validate:"required,oneof=admin dosen laboran mahasiswa dev_super"`
	NimNip   string `json:"nim_nip" binding:"omitempty,min=3,max=20" validate:"omitempty,min=3,max=20"`
}

func (d SignUpData) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	return nil
}

func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
