package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/akbidlab/internal/domain/lab"
)

// CatalogRepo holds lab rooms and courses for dev mode.
type CatalogRepo struct {
	mu      sync.RWMutex
	rooms   []lab.Room
	courses []lab.Course
}

func NewCatalogRepo(rooms []lab.Room, courses []lab.Course) *CatalogRepo {
	return &CatalogRepo{
		rooms:   append([]lab.Room(nil), rooms...),
		courses: append([]lab.Course(nil), courses...),
	}
}

// ListActiveRooms returns active rooms ordered by code.
func (r *CatalogRepo) ListActiveRooms(_ context.Context) ([]lab.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]lab.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		if room.IsActive {
			out = append(out, room)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// ListActiveCourses returns active courses ordered by semester then code.
func (r *CatalogRepo) ListActiveCourses(_ context.Context) ([]lab.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]lab.Course, 0, len(r.courses))
	for _, c := range r.courses {
		if c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Semester != out[j].Semester {
			return out[i].Semester < out[j].Semester
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}
