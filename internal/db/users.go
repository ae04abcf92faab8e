package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/tgienger/teamboard/internal/models"
)

const userColumns = `id, username, email, hashed_password, full_name, avatar_url, role, department, team, is_active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword, &u.FullName, &u.AvatarURL,
		&u.Role, &u.Department, &u.Team, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser inserts a new user
func (c conn) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	if u.Role == "" {
		u.Role = models.RoleMember
	}
	result, err := c.q.ExecContext(ctx, `
		INSERT INTO users (username, email, hashed_password, full_name, role, department, team, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, u.Username, u.Email, u.HashedPassword, u.FullName, u.Role, u.Department, u.Team, u.IsActive)
	if err != nil {
		return nil, conflict(err, "user")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return c.GetUser(ctx, id)
}

// GetUser retrieves a user by ID
func (c conn) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(c.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

// GetUserByUsername retrieves a user by exact username
func (c conn) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(c.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

// GetUserByEmail retrieves a user by exact email
func (c conn) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(c.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

// ListUsers returns users ordered by id
func (c conn) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return c.queryUsers(ctx, "SELECT "+userColumns+" FROM users ORDER BY id LIMIT ? OFFSET ?", limit, offset)
}

// ListActiveUsers returns every active user ordered by id. This is the candidate set for mentions.
func (c conn) ListActiveUsers(ctx context.Context) ([]models.User, error) {
	return c.queryUsers(ctx, "SELECT "+userColumns+" FROM users WHERE is_active = 1 ORDER BY id")
}

// GetUsersByIDs returns the users whose ids are in ids, ordered by id
func (c conn) GetUsersByIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return c.queryUsers(ctx, "SELECT "+userColumns+" FROM users WHERE id IN ("+placeholders(len(ids))+") ORDER BY id", args...)
}

func (c conn) queryUsers(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser writes every mutable profile field of u
func (c conn) UpdateUser(ctx context.Context, u *models.User) error {
	_, err := c.q.ExecContext(ctx, `
		UPDATE users SET username = ?, email = ?, full_name = ?, avatar_url = ?, role = ?,
			department = ?, team = ?, is_active = ?
		WHERE id = ?
	`, u.Username, u.Email, u.FullName, u.AvatarURL, u.Role, u.Department, u.Team, u.IsActive, u.ID)
	return conflict(err, "user")
}

// UpdatePassword replaces a user's password hash
func (c conn) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	_, err := c.q.ExecContext(ctx, "UPDATE users SET hashed_password = ? WHERE id = ?", hash, userID)
	return err
}

// CreateSession stores a login token
func (c conn) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)
	`, token, userID, expiresAt.UTC())
	return err
}

// GetSessionUser returns the active user owning an unexpired token
func (c conn) GetSessionUser(ctx context.Context, token string, now time.Time) (*models.User, error) {
	var expiresAt time.Time
	var userID int64
	err := c.q.QueryRowContext(ctx, "SELECT user_id, expires_at FROM sessions WHERE token = ?", token).
		Scan(&userID, &expiresAt)
	if err != nil {
		return nil, notFound(err, "session")
	}
	if !expiresAt.After(now) {
		return nil, notFound(sql.ErrNoRows, "session")
	}
	return c.GetUser(ctx, userID)
}

// DeleteSession revokes a token
func (c conn) DeleteSession(ctx context.Context, token string) error {
	_, err := c.q.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// DeleteExpiredSessions removes every token that expired before now
func (c conn) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := c.q.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
