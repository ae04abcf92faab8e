package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tgienger/teamboard/internal/models"
)

const workLogColumns = `id, owner_id, project_id, task_id, subtask_id, title, content, attachments, created_at, updated_at`

// WorkLogFilter narrows ListWorkLogs. Zero values mean "any".
type WorkLogFilter struct {
	OwnerID   int64
	ProjectID int64
	TaskID    int64
}

func scanWorkLog(row rowScanner) (*models.WorkLog, error) {
	w := &models.WorkLog{}
	var projectID, taskID, subtaskID sql.NullInt64
	var attachments sql.NullString
	var updatedAt sql.NullTime
	err := row.Scan(&w.ID, &w.OwnerID, &projectID, &taskID, &subtaskID, &w.Title, &w.Content,
		&attachments, &w.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	w.ProjectID = int64Ptr(projectID)
	w.TaskID = int64Ptr(taskID)
	w.SubtaskID = int64Ptr(subtaskID)
	w.UpdatedAt = timePtr(updatedAt)
	w.Attachments = []models.Attachment{}
	if attachments.Valid && attachments.String != "" {
		if err := json.Unmarshal([]byte(attachments.String), &w.Attachments); err != nil {
			return nil, fmt.Errorf("work log %d: bad attachments: %w", w.ID, err)
		}
	}
	if w.Attachments == nil {
		w.Attachments = []models.Attachment{}
	}
	return w, nil
}

// CreateWorkLog creates a new work log
func (c conn) CreateWorkLog(ctx context.Context, w *models.WorkLog) (*models.WorkLog, error) {
	attachments, err := encodeJSON(w.Attachments)
	if err != nil {
		return nil, err
	}
	result, err := c.q.ExecContext(ctx, `
		INSERT INTO work_logs (owner_id, project_id, task_id, subtask_id, title, content, attachments)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, w.OwnerID, nullInt64(w.ProjectID), nullInt64(w.TaskID), nullInt64(w.SubtaskID), w.Title, w.Content, attachments)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return c.GetWorkLog(ctx, id)
}

// GetWorkLog retrieves a work log by ID
func (c conn) GetWorkLog(ctx context.Context, id int64) (*models.WorkLog, error) {
	w, err := scanWorkLog(c.q.QueryRowContext(ctx, "SELECT "+workLogColumns+" FROM work_logs WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "work log")
	}
	return w, nil
}

// ListWorkLogs returns work logs matching f, newest first
func (c conn) ListWorkLogs(ctx context.Context, f WorkLogFilter) ([]models.WorkLog, error) {
	query := "SELECT " + workLogColumns + " FROM work_logs WHERE 1 = 1"
	var args []any
	if f.OwnerID != 0 {
		query += " AND owner_id = ?"
		args = append(args, f.OwnerID)
	}
	if f.ProjectID != 0 {
		query += " AND project_id = ?"
		args = append(args, f.ProjectID)
	}
	if f.TaskID != 0 {
		query += " AND task_id = ?"
		args = append(args, f.TaskID)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.WorkLog{}
	for rows.Next() {
		w, err := scanWorkLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *w)
	}
	return logs, rows.Err()
}

// UpdateWorkLog writes the descriptive fields and links of a work log
func (c conn) UpdateWorkLog(ctx context.Context, w *models.WorkLog) error {
	attachments, err := encodeJSON(w.Attachments)
	if err != nil {
		return err
	}
	_, err = c.q.ExecContext(ctx, `
		UPDATE work_logs SET project_id = ?, task_id = ?, title = ?, content = ?, attachments = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, nullInt64(w.ProjectID), nullInt64(w.TaskID), w.Title, w.Content, attachments, w.ID)
	return err
}

// DeleteWorkLog unlinks any subtask pointing at the log, then deletes it
func (c conn) DeleteWorkLog(ctx context.Context, id int64) error {
	if _, err := c.q.ExecContext(ctx, "UPDATE subtasks SET work_log_id = NULL WHERE work_log_id = ?", id); err != nil {
		return err
	}
	_, err := c.q.ExecContext(ctx, "DELETE FROM work_logs WHERE id = ?", id)
	return err
}
