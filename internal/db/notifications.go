package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/tgienger/teamboard/internal/models"
)

const notificationColumns = `id, user_id, type, title, message, is_read, read_at, project_id, task_id, thread_id, activity_id, created_at`

func scanNotification(row rowScanner) (*models.Notification, error) {
	n := &models.Notification{}
	var readAt sql.NullTime
	var projectID, taskID, threadID, activityID sql.NullInt64
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.IsRead, &readAt,
		&projectID, &taskID, &threadID, &activityID, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	n.ReadAt = timePtr(readAt)
	n.ProjectID = int64Ptr(projectID)
	n.TaskID = int64Ptr(taskID)
	n.ThreadID = int64Ptr(threadID)
	n.ActivityID = int64Ptr(activityID)
	return n, nil
}

// CreateNotification addresses a notification to n.UserID
func (c conn) CreateNotification(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	result, err := c.q.ExecContext(ctx, `
		INSERT INTO notifications (user_id, type, title, message, project_id, task_id, thread_id, activity_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, n.UserID, n.Type, n.Title, n.Message, nullInt64(n.ProjectID), nullInt64(n.TaskID),
		nullInt64(n.ThreadID), nullInt64(n.ActivityID))
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return c.GetNotification(ctx, id)
}

// GetNotification retrieves a notification by ID
func (c conn) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	n, err := scanNotification(c.q.QueryRowContext(ctx, "SELECT "+notificationColumns+" FROM notifications WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "notification")
	}
	return n, nil
}

// ListNotifications returns a user's notifications newest first
func (c conn) ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	query := "SELECT " + notificationColumns + " FROM notifications WHERE user_id = ?"
	if unreadOnly {
		query += " AND is_read = 0"
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"

	rows, err := c.q.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

// UnreadCount returns the number of unread notifications for a user
func (c conn) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := c.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0
	`, userID).Scan(&n)
	return n, err
}

// MarkNotificationRead marks one of userID's notifications read
func (c conn) MarkNotificationRead(ctx context.Context, id, userID int64, now time.Time) error {
	result, err := c.q.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1, read_at = COALESCE(read_at, ?) WHERE id = ? AND user_id = ?
	`, now.UTC(), id, userID)
	if err != nil {
		return err
	}
	return requireAffected(result, "notification")
}

// MarkAllNotificationsRead marks every unread notification of userID read
func (c conn) MarkAllNotificationsRead(ctx context.Context, userID int64, now time.Time) (int64, error) {
	result, err := c.q.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1, read_at = ? WHERE user_id = ? AND is_read = 0
	`, now.UTC(), userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// HasNotificationSince reports whether userID already has a notification of the
// given type for taskID created at or after since
func (c conn) HasNotificationSince(ctx context.Context, userID, taskID int64, typ string, since time.Time) (bool, error) {
	var n int
	err := c.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = ? AND task_id = ? AND type = ? AND created_at >= datetime(?)
	`, userID, taskID, typ, since.UTC()).Scan(&n)
	return n > 0, err
}
