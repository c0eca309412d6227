package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/08star/my-auth-app/internal/domain/user"
	apperrors "github.com/08star/my-auth-app/pkg/errors"
)

const userColumns = `id, username, password_hash, active, created_at, updated_at`

// UserRepository implements user.Repository using PostgreSQL.
type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		toPgUUID(u.ID),
		u.Username,
		u.PasswordHash,
		u.Active,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return apperrors.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.Pool.QueryRow(ctx, query, toPgUUID(id)))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.Pool.QueryRow(ctx, query, username))
}

func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, username`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	users := make([]*user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate users")
	}
	return users, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	return r.exec(ctx, "failed to update password", query, toPgUUID(id), passwordHash, time.Now().UTC())
}

func (r *UserRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE users SET active = $2, updated_at = $3 WHERE id = $1`
	return r.exec(ctx, "failed to set user active flag", query, toPgUUID(id), active, time.Now().UTC())
}

func (r *UserRepository) exec(ctx context.Context, msg, query string, args ...any) error {
	result, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return apperrors.Wrap(err, msg)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var (
		id pgtype.UUID
		u  user.User
	)
	err := row.Scan(&id, &u.Username, &u.PasswordHash, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan user")
	}
	u.ID = fromPgUUID(id)
	return &u, nil
}
