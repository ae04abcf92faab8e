package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tgienger/teamboard/internal/models"
)

const commentColumns = `c.id, c.task_id, c.user_id, c.content, c.attachment_url, c.mentions,
	c.is_edited, c.is_deleted, c.created_at, c.updated_at,
	u.username, u.email, u.full_name, u.avatar_url`

func scanComment(row rowScanner) (*models.Comment, error) {
	cm := &models.Comment{}
	var mentions sql.NullString
	var updatedAt sql.NullTime
	err := row.Scan(&cm.ID, &cm.TaskID, &cm.UserID, &cm.Content, &cm.AttachmentURL, &mentions,
		&cm.IsEdited, &cm.IsDeleted, &cm.CreatedAt, &updatedAt,
		&cm.User.Username, &cm.User.Email, &cm.User.FullName, &cm.User.AvatarURL)
	if err != nil {
		return nil, err
	}
	cm.User.ID = cm.UserID
	cm.UpdatedAt = timePtr(updatedAt)
	if cm.Mentions, err = decodeMentions(mentions); err != nil {
		return nil, fmt.Errorf("comment %d: bad mentions: %w", cm.ID, err)
	}
	return cm, nil
}

// CreateComment creates a new comment on a task
func (c conn) CreateComment(ctx context.Context, cm *models.Comment) (*models.Comment, error) {
	mentions, err := encodeMentions(cm.Mentions)
	if err != nil {
		return nil, err
	}
	result, err := c.q.ExecContext(ctx, `
		INSERT INTO task_comments (task_id, user_id, content, attachment_url, mentions) VALUES (?, ?, ?, ?, ?)
	`, cm.TaskID, cm.UserID, cm.Content, cm.AttachmentURL, mentions)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return c.GetComment(ctx, id)
}

// GetComment retrieves a comment by ID
func (c conn) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	cm, err := scanComment(c.q.QueryRowContext(ctx, `
		SELECT `+commentColumns+` FROM task_comments c JOIN users u ON u.id = c.user_id WHERE c.id = ?
	`, id))
	if err != nil {
		return nil, notFound(err, "comment")
	}
	return cm, nil
}

// GetTaskComments retrieves all live comments for a task, ordered by creation time (oldest first)
func (c conn) GetTaskComments(ctx context.Context, taskID int64) ([]models.Comment, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT `+commentColumns+`
		FROM task_comments c JOIN users u ON u.id = c.user_id
		WHERE c.task_id = ? AND c.is_deleted = 0
		ORDER BY c.created_at ASC, c.id ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		cm, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *cm)
	}
	return comments, rows.Err()
}

// UpdateComment rewrites a comment's content, attachment and mentions
func (c conn) UpdateComment(ctx context.Context, cm *models.Comment) error {
	mentions, err := encodeMentions(cm.Mentions)
	if err != nil {
		return err
	}
	_, err = c.q.ExecContext(ctx, `
		UPDATE task_comments SET content = ?, attachment_url = ?, mentions = ?, is_edited = 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, cm.Content, cm.AttachmentURL, mentions, cm.ID)
	return err
}

// SetCommentAttachment stores an uploaded file URL on a comment
func (c conn) SetCommentAttachment(ctx context.Context, id int64, url string) error {
	_, err := c.q.ExecContext(ctx, `
		UPDATE task_comments SET attachment_url = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, url, id)
	return err
}

// DeleteComment soft-deletes a comment
func (c conn) DeleteComment(ctx context.Context, id int64) error {
	_, err := c.q.ExecContext(ctx, `
		UPDATE task_comments SET is_deleted = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id)
	return err
}
