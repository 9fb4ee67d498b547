package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zeitwerk/timeclock/internal/domain/audit"
	"github.com/zeitwerk/timeclock/internal/observability"
)

type AuditLogsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewAuditLogsRepo(pool *pgxpool.Pool, prom *observability.Prom) *AuditLogsRepo {
	return &AuditLogsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *AuditLogsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// RecordTx appends an audit row inside the caller's transaction, so the row
// commits or rolls back together with the action it describes.
func (r *AuditLogsRepo) RecordTx(ctx context.Context, tx pgx.Tx, userID *string, action string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO audit_logs (id, user_id, action, created_at)
		 VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), userID, action, time.Now().UTC(),
	)

	return err
}

// Record is the single-statement variant for actions whose only state
// change is the audit row itself (login, logout, export).
func (r *AuditLogsRepo) Record(ctx context.Context, userID *string, action string) (err error) {
	err = r.observe("audit.record", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO audit_logs (id, user_id, action, created_at)
			 VALUES ($1, $2, $3, $4)`,
			uuid.NewString(), userID, action, time.Now().UTC(),
		)
		return e
	})

	return
}

func (r *AuditLogsRepo) ListRecent(ctx context.Context, limit int) (rows []audit.Row, err error) {
	var pgRows pgx.Rows

	err = r.observe("audit.list_recent", func() error {
		var e error
		pgRows, e = r.pool.Query(ctx,
			`SELECT id, user_id, action, created_at
			 FROM audit_logs
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit,
		)
		return e
	})

	if err != nil {
		return
	}

	defer pgRows.Close()

	rows = make([]audit.Row, 0, limit)

	for pgRows.Next() {
		var row audit.Row

		e := pgRows.Scan(&row.ID, &row.UserID, &row.Action, &row.Timestamp)

		if e != nil {
			err = e
			return
		}
		rows = append(rows, row)
	}

	err = pgRows.Err()

	return
}
