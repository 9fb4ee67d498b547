package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zeitwerk/timeclock/internal/domain/timeentry"
	"github.com/zeitwerk/timeclock/internal/observability"
)

type TimeEntriesRepo struct {
	pool   *pgxpool.Pool
	audits *AuditLogsRepo
	prom   *observability.Prom
}

func NewTimeEntriesRepo(pool *pgxpool.Pool, audits *AuditLogsRepo, prom *observability.Prom) *TimeEntriesRepo {
	return &TimeEntriesRepo{
		pool:   pool,
		audits: audits,
		prom:   prom,
	}
}

func (r *TimeEntriesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const entryColumns = `id, user_id, start_time, end_time, break_minutes, entry_type, created_at`

func scanEntry(row pgx.Row) (timeentry.Entry, error) {
	var e timeentry.Entry

	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.StartTime,
		&e.EndTime,
		&e.BreakMinutes,
		&e.EntryType,
		&e.CreatedAt,
	)

	return e, err
}

// Open returns the user's currently running entry, or
// timeentry.ErrNoOpenEntry when there is none.
func (r *TimeEntriesRepo) Open(ctx context.Context, userID string) (e timeentry.Entry, err error) {
	err = r.observe("entries.open", func() error {
		var qerr error
		e, qerr = scanEntry(r.pool.QueryRow(ctx,
			`SELECT `+entryColumns+` FROM time_entries
			 WHERE user_id = $1 AND end_time IS NULL`,
			userID,
		))
		return qerr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = timeentry.ErrNoOpenEntry
		}
		return timeentry.Entry{}, err
	}
	return
}

func (r *TimeEntriesRepo) listQuery(ctx context.Context, op, query string, args ...interface{}) (entries []timeentry.Entry, err error) {
	var rows pgx.Rows

	err = r.observe(op, func() error {
		var e error
		rows, e = r.pool.Query(ctx, query, args...)
		return e
	})

	if err != nil {
		return
	}

	defer rows.Close()

	entries = make([]timeentry.Entry, 0)

	for rows.Next() {
		var e timeentry.Entry

		scanErr := rows.Scan(&e.ID, &e.UserID, &e.StartTime, &e.EndTime, &e.BreakMinutes, &e.EntryType, &e.CreatedAt)

		if scanErr != nil {
			err = scanErr
			return
		}
		entries = append(entries, e)
	}

	err = rows.Err()

	return
}

// ListRecentForUser is the dashboard listing, newest work first.
func (r *TimeEntriesRepo) ListRecentForUser(ctx context.Context, userID string, limit int) ([]timeentry.Entry, error) {
	return r.listQuery(ctx, "entries.list_recent_for_user",
		`SELECT `+entryColumns+` FROM time_entries
		 WHERE user_id = $1
		 ORDER BY start_time DESC, id DESC
		 LIMIT $2`,
		userID, limit,
	)
}

// ListRecent is the admin overview listing, newest submissions first.
func (r *TimeEntriesRepo) ListRecent(ctx context.Context, limit int) ([]timeentry.Entry, error) {
	return r.listQuery(ctx, "entries.list_recent",
		`SELECT `+entryColumns+` FROM time_entries
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
}

// Start clocks the user in. The open-entry check and the insert run in one
// transaction together with the audit row; the partial unique index on
// (user_id) WHERE end_time IS NULL closes the race two concurrent requests
// would otherwise have.
func (r *TimeEntriesRepo) Start(ctx context.Context, userID string, now time.Time) (e timeentry.Entry, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var exists bool

	err = r.observe("entries.start.open_check", func() error {
		return tx.QueryRow(ctx,
			`SELECT EXISTS(
				SELECT 1 FROM time_entries
				WHERE user_id = $1 AND end_time IS NULL
			)`, userID).Scan(&exists)
	})

	if err != nil {
		return
	}

	if exists {
		err = timeentry.ErrAlreadyRunning
		return
	}

	e = timeentry.Entry{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartTime: now,
		EntryType: timeentry.TypeWork,
		CreatedAt: time.Now().UTC(),
	}

	err = r.observe("entries.start.insert", func() error {
		_, execErr := tx.Exec(ctx,
			`INSERT INTO time_entries (id, user_id, start_time, end_time, break_minutes, entry_type, created_at)
			 VALUES ($1, $2, $3, NULL, 0, $4, $5)`,
			e.ID, e.UserID, e.StartTime, e.EntryType, e.CreatedAt,
		)
		return execErr
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			err = timeentry.ErrAlreadyRunning
		}
		e = timeentry.Entry{}
		return
	}

	err = r.audits.RecordTx(ctx, tx, &userID, "work started")

	if err != nil {
		e = timeentry.Entry{}
		return
	}

	err = tx.Commit(ctx)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			err = timeentry.ErrAlreadyRunning
		}
		e = timeentry.Entry{}
	}
	return
}

// Stop closes the open entry, applying the break policy to the elapsed
// duration.
func (r *TimeEntriesRepo) Stop(ctx context.Context, userID string, now time.Time) (e timeentry.Entry, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = r.observe("entries.stop.lock_open", func() error {
		var qerr error
		e, qerr = scanEntry(tx.QueryRow(ctx,
			`SELECT `+entryColumns+` FROM time_entries
			 WHERE user_id = $1 AND end_time IS NULL
			 FOR UPDATE`,
			userID,
		))
		return qerr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = timeentry.ErrNoOpenEntry
		}
		e = timeentry.Entry{}
		return
	}

	breakMinutes := timeentry.ComputeBreakMinutes(e.StartTime, now)

	err = r.observe("entries.stop.update", func() error {
		_, execErr := tx.Exec(ctx,
			`UPDATE time_entries
			 SET end_time = $2, break_minutes = $3
			 WHERE id = $1`,
			e.ID, now, breakMinutes,
		)
		return execErr
	})

	if err != nil {
		e = timeentry.Entry{}
		return
	}

	err = r.audits.RecordTx(ctx, tx, &userID, "work stopped")

	if err != nil {
		e = timeentry.Entry{}
		return
	}

	err = tx.Commit(ctx)

	if err != nil {
		e = timeentry.Entry{}
		return
	}

	e.EndTime = &now
	e.BreakMinutes = breakMinutes
	return
}

// CreateManual stores an already-completed entry. Range validation happens
// at the handler; the break policy is applied here so every write path
// computes it the same way.
func (r *TimeEntriesRepo) CreateManual(ctx context.Context, userID, entryType string, start, end time.Time) (e timeentry.Entry, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	e = timeentry.Entry{
		ID:           uuid.NewString(),
		UserID:       userID,
		StartTime:    start,
		EndTime:      &end,
		BreakMinutes: timeentry.BreakFor(entryType, start, end),
		EntryType:    entryType,
		CreatedAt:    time.Now().UTC(),
	}

	err = r.observe("entries.create_manual", func() error {
		_, execErr := tx.Exec(ctx,
			`INSERT INTO time_entries (id, user_id, start_time, end_time, break_minutes, entry_type, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.ID, e.UserID, e.StartTime, e.EndTime, e.BreakMinutes, e.EntryType, e.CreatedAt,
		)
		return execErr
	})

	if err != nil {
		e = timeentry.Entry{}
		return
	}

	err = r.audits.RecordTx(ctx, tx, &userID, fmt.Sprintf("manual entry (%s)", entryType))

	if err != nil {
		e = timeentry.Entry{}
		return
	}

	err = tx.Commit(ctx)

	if err != nil {
		e = timeentry.Entry{}
	}
	return
}

// ListForExport joins every entry to its owner, newest first. A missing
// user row degrades to placeholders instead of dropping the entry.
func (r *TimeEntriesRepo) ListForExport(ctx context.Context) (records []timeentry.ExportRecord, err error) {
	var rows pgx.Rows

	err = r.observe("entries.list_for_export", func() error {
		var e error
		rows, e = r.pool.Query(ctx,
			`SELECT COALESCE(u.name, t.user_id), COALESCE(u.email, '-'),
			        t.entry_type, t.start_time, t.end_time, t.break_minutes
			 FROM time_entries t
			 LEFT JOIN users u ON u.id = t.user_id
			 ORDER BY t.start_time DESC, t.id DESC`,
		)
		return e
	})

	if err != nil {
		return
	}

	defer rows.Close()

	records = make([]timeentry.ExportRecord, 0)

	for rows.Next() {
		var rec timeentry.ExportRecord

		scanErr := rows.Scan(&rec.EmployeeName, &rec.Email, &rec.EntryType, &rec.Start, &rec.End, &rec.BreakMinutes)

		if scanErr != nil {
			err = scanErr
			return
		}
		records = append(records, rec)
	}

	err = rows.Err()

	return
}
