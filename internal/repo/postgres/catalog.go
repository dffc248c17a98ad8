package postgres

import (
	"context"

	"github.com/geocoder89/akbidlab/internal/domain/lab"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogRepo reads lab_rooms and mata_kuliah.
type CatalogRepo struct {
	pool *pgxpool.Pool
	obs  DBObserver
}

func NewCatalogRepo(pool *pgxpool.Pool, obs DBObserver) *CatalogRepo {
	return &CatalogRepo{pool: pool, obs: observerOrNoop(obs)}
}

func (r *CatalogRepo) ListActiveRooms(ctx context.Context) ([]lab.Room, error) {
	out := []lab.Room{}

	err := r.obs.ObserveDB("lab_rooms.list_active", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT id, code, name, description, capacity, location, facilities, is_active, created_at, updated_at
			FROM lab_rooms
			WHERE is_active = true
			ORDER BY code`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var room lab.Room
			if err := rows.Scan(
				&room.ID,
				&room.Code,
				&room.Name,
				&room.Description,
				&room.Capacity,
				&room.Location,
				&room.Facilities,
				&room.IsActive,
				&room.CreatedAt,
				&room.UpdatedAt,
			); err != nil {
				return err
			}
			if err := room.Validate(); err != nil {
				return err
			}
			out = append(out, room)
		}
		return rows.Err()
	})

	return out, err
}

func (r *CatalogRepo) ListActiveCourses(ctx context.Context) ([]lab.Course, error) {
	out := []lab.Course{}

	err := r.obs.ObserveDB("mata_kuliah.list_active", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT id, kode_matkul, nama_matkul, deskripsi, semester, sks, dosen_id, lab_room_id,
				is_active, created_at, updated_at
			FROM mata_kuliah
			WHERE is_active = true
			ORDER BY semester ASC, kode_matkul ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c lab.Course
			if err := rows.Scan(
				&c.ID,
				&c.Code,
				&c.Name,
				&c.Description,
				&c.Semester,
				&c.Credits,
				&c.LecturerID,
				&c.LabRoomID,
				&c.IsActive,
				&c.CreatedAt,
				&c.UpdatedAt,
			); err != nil {
				return err
			}
			if err := c.Validate(); err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})

	return out, err
}
