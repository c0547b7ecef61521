package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries bundles all hand-written SQL access against the connection pool.
type Queries struct {
	pool *pgxpool.Pool
}

// New returns a Queries instance backed by the given pool.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

// Pool exposes the underlying connection pool, used by the message watcher to
// acquire a dedicated LISTEN connection.
func (q *Queries) Pool() *pgxpool.Pool {
	return q.pool
}

// CreateUserParams carries the fields for CreateUser.
type CreateUserParams struct {
	Username      string
	PasswordHash  string
	Name          string
	Role          string
	AdmissionCode string
}

// CreateUser inserts a new account and returns the stored row.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (UserRow, error) {
	const query = `
		INSERT INTO users (username, password_hash, name, role, admission_code)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, username, password_hash, name, role, avatar_key, admission_code, created_at, last_login_at`

	var u UserRow
	err := q.pool.QueryRow(ctx, query,
		arg.Username, arg.PasswordHash, arg.Name, arg.Role, arg.AdmissionCode,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Role, &u.AvatarKey, &u.AdmissionCode, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

// GetUserByUsername fetches an account by its unique username.
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (UserRow, error) {
	const query = `
		SELECT id, username, password_hash, name, role, avatar_key, admission_code, created_at, last_login_at
		FROM users WHERE username = $1`

	var u UserRow
	err := q.pool.QueryRow(ctx, query, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Role, &u.AvatarKey, &u.AdmissionCode, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

// GetUserByID fetches an account by its id.
func (q *Queries) GetUserByID(ctx context.Context, id string) (UserRow, error) {
	const query = `
		SELECT id, username, password_hash, name, role, avatar_key, admission_code, created_at, last_login_at
		FROM users WHERE id = $1`

	var u UserRow
	err := q.pool.QueryRow(ctx, query, id).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Role, &u.AvatarKey, &u.AdmissionCode, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

// UpdateLastLogin stamps last_login_at with the current time.
func (q *Queries) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := q.pool.Exec(ctx, `UPDATE users SET last_login_at = now() WHERE id = $1`, id)
	return err
}

// UpdateUserPassword replaces the stored password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	_, err := q.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	return err
}

// UpdateUserProfileParams carries the fields for UpdateUserProfile.
type UpdateUserProfileParams struct {
	ID        string
	Name      string
	AvatarKey string
}

// UpdateUserProfile updates the display name and avatar key, returning the stored row.
func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (UserRow, error) {
	const query = `
		UPDATE users SET name = $2, avatar_key = $3 WHERE id = $1
		RETURNING id, username, password_hash, name, role, avatar_key, admission_code, created_at, last_login_at`

	var u UserRow
	err := q.pool.QueryRow(ctx, query, arg.ID, arg.Name, arg.AvatarKey).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Role, &u.AvatarKey, &u.AdmissionCode, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

// ListTeachers returns all accounts carrying the teacher role, ordered by name.
// Students use this directory to open chat threads.
func (q *Queries) ListTeachers(ctx context.Context) ([]UserRow, error) {
	const query = `
		SELECT id, username, password_hash, name, role, avatar_key, admission_code, created_at, last_login_at
		FROM users WHERE role = 'teacher' ORDER BY name`

	rows, err := q.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserRow
	for rows.Next() {
		var u UserRow
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Role, &u.AvatarKey, &u.AdmissionCode, &u.CreatedAt, &u.LastLoginAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
