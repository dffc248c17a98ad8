package lab

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidRecord = errors.New("invalid lab record")

var validate = validator.New(validator.WithRequiredStructEnabled())

type Room struct {
	ID          string    `json:"id" validate:"required"`
	Code        string    `json:"code" validate:"required,max=20"`
	Name        string    `json:"name" validate:"required"`
	Description *string   `json:"description"`
	Capacity    int       `json:"capacity" validate:"gte=0"`
	Location    *string   `json:"location"`
	Facilities  []string  `json:"facilities"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r Room) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}

// Course is a row of mata_kuliah.
type Course struct {
	ID          string    `json:"id" validate:"required"`
	Code        string    `json:"kode_matkul" validate:"required"`
	Name        string    `json:"nama_matkul" validate:"required"`
	Description *string   `json:"deskripsi"`
	Semester    int       `json:"semester" validate:"min=1,max=14"`
	Credits     int       `json:"sks" validate:"min=1,max=8"`
	LecturerID  *string   `json:"dosen_id"`
	LabRoomID   *string   `json:"lab_room_id"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c Course) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}

// TaughtBy reports whether lecturerID is assigned to the course.
func (c Course) TaughtBy(lecturerID string) bool {
	return c.LecturerID != nil && *c.LecturerID == lecturerID
}
