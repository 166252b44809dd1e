package observability

import (
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/usershub/internal/domain/user"
	"github.com/jackc/pgx/v5/pgconn"
)

// ObserveDB times fn under the logical op name. Expected domain outcomes (missing row,
// taken email) are recorded as ok so the error counter tracks real failures only.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"

	if err != nil && !isDomainErr(err) {
		status = "error"
		p.DbErrorsTotal.WithLabelValues(op, classifyDBErr(err)).Inc()
	}
	p.DbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

func isDomainErr(err error) bool {
	return errors.Is(err, user.ErrNotFound) || errors.Is(err, user.ErrEmailTaken)
}

func classifyDBErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "unique_violation"
		case "40001":
			return "serialization_failure"
		case "40P01":
			return "deadlock"
		case "57014":
			return "query_canceled"
		default:
			return "pg_" + pgErr.Code
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection"):
		return "connection"
	default:
		return "unknown"
	}
}
