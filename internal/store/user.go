package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/velotracker/apiserver/types"
)

const uniqueViolation = "23505"

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT id, name, email, password, reset_code, reset_code_expires, created_at, updated_at
		FROM users
		WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT id, name, email, password, reset_code, reset_code_expires, created_at, updated_at
		FROM users
		WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (name, email, password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, mapConstraint(err)
	}
	return user, nil
}

// UpdateIdentity overwrites name, email, and password hash in place.
// The row id is stable, so rides owned by the user stay attached; this
// is what makes guest-to-user conversion keep the guest's history.
func (r *UserRepository) UpdateIdentity(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now()

	const query = `
		UPDATE users
		SET name = $1,
			email = $2,
			password = $3,
			updated_at = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, mapConstraint(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

// SetResetCode stores a recovery code and its expiry on the user row.
func (r *UserRepository) SetResetCode(ctx context.Context, email, code string, expires time.Time) error {
	const query = `
		UPDATE users
		SET reset_code = $1, reset_code_expires = $2, updated_at = now()
		WHERE email = $3`
	result, err := r.db.ExecContext(ctx, query, code, expires, email)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByEmailAndCode returns the user only if a matching, non-expired
// recovery code exists. It does not consume the code.
func (r *UserRepository) GetByEmailAndCode(ctx context.Context, email, code string) (types.User, error) {
	const query = `
		SELECT id, name, email, password, reset_code, reset_code_expires, created_at, updated_at
		FROM users
		WHERE email = $1
		AND reset_code = $2
		AND reset_code_expires > now()`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email, code))
}

// ResetPassword replaces the password hash and clears the recovery code
// in one statement, guarded by the same match and expiry condition.
func (r *UserRepository) ResetPassword(ctx context.Context, email, code, passwordHash string) error {
	const query = `
		UPDATE users
		SET password = $1, reset_code = NULL, reset_code_expires = NULL, updated_at = now()
		WHERE email = $2
		AND reset_code = $3
		AND reset_code_expires > now()`
	result, err := r.db.ExecContext(ctx, query, passwordHash, email, code)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) scanOne(row *sql.Row) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.ResetCode,
		&user.ResetCodeExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func mapConstraint(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}
