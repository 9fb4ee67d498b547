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
	"github.com/zeitwerk/timeclock/internal/domain/user"
	"github.com/zeitwerk/timeclock/internal/observability"
)

type UsersRepo struct {
	pool   *pgxpool.Pool
	audits *AuditLogsRepo
	prom   *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, audits *AuditLogsRepo, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{
		pool:   pool,
		audits: audits,
		prom:   prom,
	}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const userColumns = `id, name, email, password_hash, role, employment_type, active, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.EmploymentType,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

// GetActiveByEmail resolves login credentials; deactivated accounts are
// invisible to authentication on purpose.
func (r *UsersRepo) GetActiveByEmail(ctx context.Context, email string) (u user.User, err error) {
	err = r.observe("users.get_active_by_email", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1 AND active = TRUE`,
			user.NormalizeEmail(email),
		))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = user.ErrNotFound
		}
		return user.User{}, err
	}
	return
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (u user.User, err error) {
	err = r.observe("users.get_by_id", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = user.ErrNotFound
		}
		return user.User{}, err
	}
	return
}

// List returns every account, active ones first, then by name.
func (r *UsersRepo) List(ctx context.Context) (users []user.User, err error) {
	var rows pgx.Rows

	err = r.observe("users.list", func() error {
		var e error
		rows, e = r.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users ORDER BY active DESC, name ASC`,
		)
		return e
	})

	if err != nil {
		return
	}

	defer rows.Close()

	users = make([]user.User, 0)

	for rows.Next() {
		var u user.User

		e := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.EmploymentType, &u.Active, &u.CreatedAt, &u.UpdatedAt)

		if e != nil {
			err = e
			return
		}
		users = append(users, u)
	}

	err = rows.Err()

	return
}

// Create inserts the account and its audit row in one transaction. A unique
// violation on the email column maps to user.ErrEmailTaken.
func (r *UsersRepo) Create(ctx context.Context, req user.CreateRequest, actorID string) (u user.User, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	now := time.Now().UTC()

	u = user.User{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Email:          user.NormalizeEmail(req.Email),
		PasswordHash:   req.PasswordHash,
		Role:           req.Role,
		EmploymentType: req.EmploymentType,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = r.observe("users.create", func() error {
		_, e := tx.Exec(ctx,
			`INSERT INTO users (id, name, email, password_hash, role, employment_type, active, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.EmploymentType, u.Active, u.CreatedAt, u.UpdatedAt,
		)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			err = user.ErrEmailTaken
		}
		u = user.User{}
		return
	}

	err = r.audits.RecordTx(ctx, tx, &actorID, fmt.Sprintf("user created: %s (%s)", u.Email, u.Role))

	if err != nil {
		u = user.User{}
		return
	}

	err = tx.Commit(ctx)

	if err != nil {
		u = user.User{}
	}
	return
}

// ToggleActive flips the active flag of the target account. The acting
// admin cannot toggle themselves; that would be an easy way to lose the
// last admin.
func (r *UsersRepo) ToggleActive(ctx context.Context, targetID, actorID string) (u user.User, err error) {
	if targetID == actorID {
		err = user.ErrSelfDisable
		return
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = r.observe("users.toggle_active", func() error {
		var e error
		u, e = scanUser(tx.QueryRow(ctx,
			`UPDATE users
			 SET active = NOT active, updated_at = $2
			 WHERE id = $1
			 RETURNING `+userColumns,
			targetID, time.Now().UTC(),
		))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = user.ErrNotFound
		}
		u = user.User{}
		return
	}

	state := "deactivated"
	if u.Active {
		state = "activated"
	}

	err = r.audits.RecordTx(ctx, tx, &actorID, fmt.Sprintf("user %s %s", u.Email, state))

	if err != nil {
		u = user.User{}
		return
	}

	err = tx.Commit(ctx)

	if err != nil {
		u = user.User{}
	}
	return
}
