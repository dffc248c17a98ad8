package observability

import (
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/akbidlab/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes that get a readable label in the error counter.
var pgErrClasses = map[string]string{
	"23505": "unique_violation",
	"40001": "serialization_failure",
	"40P01": "deadlock",
	"57014": "query_canceled",
}

// ObserveDB runs a repository call under op and records its latency. Missing
// rows are reported with status not_found and do not count as errors.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start).Seconds()

	status := dbStatus(err)
	if status == "error" {
		p.DbErrorsTotal.WithLabelValues(op, classifyDBErr(err)).Inc()
	}
	p.DbQueryDuration.WithLabelValues(op, status).Observe(elapsed)
	return err
}

func dbStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, user.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func classifyDBErr(err error) string {
	if errors.Is(err, user.ErrEmailTaken) {
		return pgErrClasses["23505"]
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if class, ok := pgErrClasses[pgErr.Code]; ok {
			return class
		}
		return "pg_" + pgErr.Code
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connect"):
		return "connection"
	default:
		return "unknown"
	}
}
