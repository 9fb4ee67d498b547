package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zeitwerk/timeclock/internal/config"
	"github.com/zeitwerk/timeclock/internal/domain/user"
	"github.com/zeitwerk/timeclock/internal/security"
)

// EnsureAdminUser seeds the initial admin account as an explicit startup
// step. It only runs when ADMIN_EMAIL and ADMIN_PASSWORD are configured,
// and never overwrites an existing account. Returns true when it seeded.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) (bool, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	// check if the user exists

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, cfg.AdminEmail).Scan(&dummy)

	if err == nil {
		return false, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return false, err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:             uuid.NewString(),
		Name:           cfg.AdminName,
		Email:          cfg.AdminEmail,
		PasswordHash:   hash,
		Role:           user.RoleAdmin,
		EmploymentType: "permanent",
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, employment_type, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.EmploymentType, u.Active, u.CreatedAt, u.UpdatedAt,
	)

	if err != nil {
		return false, err
	}

	return true, nil
}
