package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tgienger/teamboard/internal/models"
)

const threadColumns = `th.id, th.project_id, th.user_id, th.content, th.mentions, th.parent_id,
	th.is_edited, th.is_deleted, th.created_at, th.updated_at,
	u.username, u.email, u.full_name, u.avatar_url`

func scanThread(row rowScanner) (*models.Thread, error) {
	th := &models.Thread{}
	var mentions sql.NullString
	var parentID sql.NullInt64
	var updatedAt sql.NullTime
	err := row.Scan(&th.ID, &th.ProjectID, &th.UserID, &th.Content, &mentions, &parentID,
		&th.IsEdited, &th.IsDeleted, &th.CreatedAt, &updatedAt,
		&th.User.Username, &th.User.Email, &th.User.FullName, &th.User.AvatarURL)
	if err != nil {
		return nil, err
	}
	th.User.ID = th.UserID
	th.ParentID = int64Ptr(parentID)
	th.UpdatedAt = timePtr(updatedAt)
	if th.Mentions, err = decodeMentions(mentions); err != nil {
		return nil, fmt.Errorf("thread %d: bad mentions: %w", th.ID, err)
	}
	return th, nil
}

// CreateThread stores a project message with its resolved mentions
func (c conn) CreateThread(ctx context.Context, th *models.Thread) (*models.Thread, error) {
	mentions, err := encodeMentions(th.Mentions)
	if err != nil {
		return nil, err
	}
	result, err := c.q.ExecContext(ctx, `
		INSERT INTO threads (project_id, user_id, content, mentions, parent_id) VALUES (?, ?, ?, ?, ?)
	`, th.ProjectID, th.UserID, th.Content, mentions, nullInt64(th.ParentID))
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return c.GetThread(ctx, id)
}

// GetThread retrieves a message by ID
func (c conn) GetThread(ctx context.Context, id int64) (*models.Thread, error) {
	th, err := scanThread(c.q.QueryRowContext(ctx, `
		SELECT `+threadColumns+` FROM threads th JOIN users u ON u.id = th.user_id WHERE th.id = ?
	`, id))
	if err != nil {
		return nil, notFound(err, "thread")
	}
	return th, nil
}

// ListThreads returns a project's live top-level messages oldest first, each with
// its live replies
func (c conn) ListThreads(ctx context.Context, projectID int64) ([]models.Thread, error) {
	threads, err := c.queryThreads(ctx, `
		SELECT `+threadColumns+` FROM threads th JOIN users u ON u.id = th.user_id
		WHERE th.project_id = ? AND th.parent_id IS NULL AND th.is_deleted = 0
		ORDER BY th.created_at, th.id
	`, projectID)
	if err != nil {
		return nil, err
	}

	for i := range threads {
		replies, err := c.queryThreads(ctx, `
			SELECT `+threadColumns+` FROM threads th JOIN users u ON u.id = th.user_id
			WHERE th.parent_id = ? AND th.is_deleted = 0
			ORDER BY th.created_at, th.id
		`, threads[i].ID)
		if err != nil {
			return nil, err
		}
		threads[i].Replies = replies
	}
	return threads, nil
}

func (c conn) queryThreads(ctx context.Context, query string, args ...any) ([]models.Thread, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	threads := []models.Thread{}
	for rows.Next() {
		th, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, *th)
	}
	return threads, rows.Err()
}

// UpdateThreadContent rewrites a message and its mention list, marking it edited
func (c conn) UpdateThreadContent(ctx context.Context, id int64, content string, mentionIDs []int64) error {
	mentions, err := encodeMentions(mentionIDs)
	if err != nil {
		return err
	}
	_, err = c.q.ExecContext(ctx, `
		UPDATE threads SET content = ?, mentions = ?, is_edited = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, content, mentions, id)
	return err
}

// SoftDeleteThread hides a message while keeping its replies addressable
func (c conn) SoftDeleteThread(ctx context.Context, id int64) error {
	_, err := c.q.ExecContext(ctx, `
		UPDATE threads SET is_deleted = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id)
	return err
}
