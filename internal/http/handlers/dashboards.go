package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/geocoder89/akbidlab/internal/auth"
	"github.com/geocoder89/akbidlab/internal/domain/lab"
	"github.com/geocoder89/akbidlab/internal/domain/user"
	"github.com/geocoder89/akbidlab/internal/navigation"
	"github.com/gin-gonic/gin"
)

type CatalogReader interface {
	ListActiveRooms(ctx context.Context) ([]lab.Room, error)
	ListActiveCourses(ctx context.Context) ([]lab.Course, error)
}

type UserLister interface {
	List(ctx context.Context) ([]user.User, error)
}

const recentUsersLimit = 5

type DashboardHandler struct {
	catalog CatalogReader
	users   UserLister
	menus   navigation.Menus
}

func NewDashboardHandler(catalog CatalogReader, users UserLister, menus navigation.Menus) *DashboardHandler {
	return &DashboardHandler{catalog: catalog, users: users, menus: menus}
}

type Card struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Badge       string `json:"badge,omitempty"`
}

type dashboardHeader struct {
	Title    string     `json:"title"`
	Greeting string     `json:"greeting"`
	User     *user.User `json:"user"`
	Role     string     `json:"role_name"`
}

func header(title string, ctrl *auth.Controller) dashboardHeader {
	st := ctrl.State()
	h := dashboardHeader{Title: title, User: st.User, Role: st.Role().DisplayName()}
	if st.User != nil {
		h.Greeting = "Selamat datang, " + st.User.Name
	}
	return h
}

// GET /api/dashboard, any role.
func (h *DashboardHandler) Overview(ctx *gin.Context) {
	ctrl, ok := controllerOrAbort(ctx)
	if !ok {
		return
	}

	links := navigation.Filter(h.menus.Topbar, ctrl.HasRole)

	ctx.JSON(http.StatusOK, gin.H{
		"header":  header("Dashboard", ctrl),
		"links":   links,
		"summary": navigation.Summarize(ctrl.State().Role(), links),
	})
}

// GET /api/admin
func (h *DashboardHandler) Admin(ctx *gin.Context) {
	ctrl, ok := controllerOrAbort(ctx)
	if !ok {
		return
	}
	reqCtx := ctx.Request.Context()

	users, err := h.users.List(reqCtx)
	if err != nil {
		h.fail(ctx, "list users", err)
		return
	}
	rooms, err := h.catalog.ListActiveRooms(reqCtx)
	if err != nil {
		h.fail(ctx, "list rooms", err)
		return
	}
	courses, err := h.catalog.ListActiveCourses(reqCtx)
	if err != nil {
		h.fail(ctx, "list courses", err)
		return
	}

	byRole := make(map[user.Role]int, len(user.Roles))
	active := 0
	for _, u := range users {
		byRole[u.Role]++
		if u.IsActive {
			active++
		}
	}

	recent := users
	if len(recent) > recentUsersLimit {
		recent = recent[:recentUsersLimit]
	}

	ctx.JSON(http.StatusOK, gin.H{
		"header": header("Admin Dashboard", ctrl),
		"cards": []Card{
			{Icon: "👥", Title: "User Management", Description: "Manage system users", Badge: "Admin Only"},
			{Icon: "🏥", Title: "Lab Management", Description: "Configure lab rooms", Badge: "Admin Only"},
			{Icon: "📊", Title: "System Reports", Description: "View analytics", Badge: "Admin Only"},
		},
		"stats": gin.H{
			"users":         len(users),
			"active_users":  active,
			"users_by_role": byRole,
			"lab_rooms":     len(rooms),
			"courses":       len(courses),
		},
		"recent_users": recent,
	})
}

// GET /api/dosen lists the lecturer's own courses. Admins see every course.
func (h *DashboardHandler) Dosen(ctx *gin.Context) {
	ctrl, ok := controllerOrAbort(ctx)
	if !ok {
		return
	}

	courses, err := h.catalog.ListActiveCourses(ctx.Request.Context())
	if err != nil {
		h.fail(ctx, "list courses", err)
		return
	}

	st := ctrl.State()
	mine := courses
	if st.User != nil && st.User.Role == user.RoleDosen {
		mine = make([]lab.Course, 0, len(courses))
		for _, c := range courses {
			if c.TaughtBy(st.User.ID) {
				mine = append(mine, c)
			}
		}
	}

	credits := 0
	for _, c := range mine {
		credits += c.Credits
	}

	ctx.JSON(http.StatusOK, gin.H{
		"header": header("Dosen Dashboard", ctrl),
		"cards": []Card{
			{Icon: "📚", Title: "Mata Kuliah", Description: "Kelola mata kuliah"},
			{Icon: "📅", Title: "Jadwal Praktikum", Description: "Atur jadwal praktikum"},
			{Icon: "✅", Title: "Presensi", Description: "Rekap presensi mahasiswa"},
		},
		"courses":       mine,
		"total_credits": credits,
	})
}

// GET /api/laboran
func (h *DashboardHandler) Laboran(ctx *gin.Context) {
	ctrl, ok := controllerOrAbort(ctx)
	if !ok {
		return
	}

	rooms, err := h.catalog.ListActiveRooms(ctx.Request.Context())
	if err != nil {
		h.fail(ctx, "list rooms", err)
		return
	}

	capacity := 0
	for _, r := range rooms {
		capacity += r.Capacity
	}

	ctx.JSON(http.StatusOK, gin.H{
		"header": header("Laboran Dashboard", ctrl),
		"cards": []Card{
			{Icon: "📦", Title: "Inventaris Alat", Description: "Data alat laboratorium"},
			{Icon: "📋", Title: "Peminjaman", Description: "Permintaan peminjaman alat"},
			{Icon: "🔧", Title: "Maintenance", Description: "Jadwal perawatan alat"},
		},
		"lab_rooms":      rooms,
		"total_capacity": capacity,
	})
}

// GET /api/mahasiswa groups active courses by semester.
func (h *DashboardHandler) Mahasiswa(ctx *gin.Context) {
	ctrl, ok := controllerOrAbort(ctx)
	if !ok {
		return
	}

	courses, err := h.catalog.ListActiveCourses(ctx.Request.Context())
	if err != nil {
		h.fail(ctx, "list courses", err)
		return
	}

	bySemester := make(map[int][]lab.Course)
	for _, c := range courses {
		bySemester[c.Semester] = append(bySemester[c.Semester], c)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"header": header("Mahasiswa Dashboard", ctrl),
		"cards": []Card{
			{Icon: "📅", Title: "Jadwal Saya", Description: "Jadwal praktikum minggu ini"},
			{Icon: "📖", Title: "Materi", Description: "Materi praktikum"},
			{Icon: "📤", Title: "Upload Laporan", Description: "Kumpulkan laporan praktikum"},
		},
		"courses_by_semester": bySemester,
	})
}

func (h *DashboardHandler) fail(ctx *gin.Context, op string, err error) {
	slog.Default().ErrorContext(ctx.Request.Context(), "dashboard: "+op+" failed", "err", err)
	RespondInternal(ctx, "Failed to load dashboard")
}
