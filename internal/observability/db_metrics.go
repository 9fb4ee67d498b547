package observability

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ObserveDB times a repository operation and records its outcome.
// Failures are additionally classified so the error counter can
// distinguish expected conflicts (duplicate email, double clock-in)
// from real database trouble.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	if err != nil {
		p.DbErrorsTotal.WithLabelValues(op, dbErrClass(err)).Inc()
		p.DbQueryDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return err
	}

	p.DbQueryDuration.WithLabelValues(op, "ok").Observe(time.Since(start).Seconds())
	return nil
}

func dbErrClass(err error) string {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		// 23505 covers both the email unique index and the
		// one-open-entry-per-user partial index.
		switch pgErr.Code {
		case "23505":
			return "unique_violation"
		case "23503":
			return "fk_violation"
		case "40001":
			return "serialization_failure"
		case "57014":
			return "query_canceled"
		}
		return "pg_" + pgErr.Code
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "deadline") || strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "connection"):
		return "connection"
	}
	return "unknown"
}
