package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/akbidlab/internal/domain/lab"
	"github.com/geocoder89/akbidlab/internal/domain/user"
)

func TestUsersRepo_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	r := NewUsersRepo()

	u := user.User{ID: "1", Email: "Dosen@akbid.com", Name: "Ana", Role: user.RoleDosen}
	if _, err := r.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := r.Create(ctx, user.User{ID: "2", Email: "dosen@akbid.com"}); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("got %v want ErrEmailTaken", err)
	}

	got, err := r.GetByEmail(ctx, "dosen@AKBID.com")
	if err != nil || got.ID != "1" {
		t.Fatalf("GetByEmail got %+v err=%v", got, err)
	}

	if _, err := r.GetByID(ctx, "missing"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("got %v want ErrNotFound", err)
	}

	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	if err := r.UpdateLastLogin(ctx, "1", at); err != nil {
		t.Fatalf("update last login: %v", err)
	}
	got, _ = r.GetByID(ctx, "1")
	if got.LastLogin == nil || !got.LastLogin.Equal(at) {
		t.Fatalf("last_login not updated: %+v", got.LastLogin)
	}
}

func TestCatalogRepo_FiltersInactiveAndOrders(t *testing.T) {
	ctx := context.Background()
	r := NewCatalogRepo(
		[]lab.Room{
			{ID: "r2", Code: "LAB-B", Name: "B", IsActive: true},
			{ID: "r1", Code: "LAB-A", Name: "A", IsActive: true},
			{ID: "r3", Code: "LAB-C", Name: "C", IsActive: false},
		},
		[]lab.Course{
			{ID: "c2", Code: "KB202", Semester: 2, IsActive: true},
			{ID: "c1", Code: "KB101", Semester: 1, IsActive: true},
			{ID: "c3", Code: "KB303", Semester: 3, IsActive: false},
		},
	)

	rooms, _ := r.ListActiveRooms(ctx)
	if len(rooms) != 2 || rooms[0].Code != "LAB-A" {
		t.Fatalf("unexpected rooms: %+v", rooms)
	}

	courses, _ := r.ListActiveCourses(ctx)
	if len(courses) != 2 || courses[0].Code != "KB101" {
		t.Fatalf("unexpected courses: %+v", courses)
	}
}
