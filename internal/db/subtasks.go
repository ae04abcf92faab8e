package db

import (
	"context"
	"database/sql"

	"github.com/tgienger/teamboard/internal/models"
)

const subtaskColumns = `id, task_id, title, description, attachment_url, is_done, work_log_id, created_at, updated_at`

func scanSubtask(row rowScanner) (*models.SubTask, error) {
	s := &models.SubTask{}
	var workLogID sql.NullInt64
	var updatedAt sql.NullTime
	err := row.Scan(&s.ID, &s.TaskID, &s.Title, &s.Description, &s.AttachmentURL, &s.IsDone,
		&workLogID, &s.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	s.WorkLogID = int64Ptr(workLogID)
	s.UpdatedAt = timePtr(updatedAt)
	return s, nil
}

// CreateSubtask creates a new subtask under a task
func (c conn) CreateSubtask(ctx context.Context, s *models.SubTask) (*models.SubTask, error) {
	result, err := c.q.ExecContext(ctx, `
		INSERT INTO subtasks (task_id, title, description, attachment_url, is_done, work_log_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.TaskID, s.Title, s.Description, s.AttachmentURL, s.IsDone, nullInt64(s.WorkLogID))
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return c.GetSubtask(ctx, id)
}

// GetSubtask retrieves a subtask by ID
func (c conn) GetSubtask(ctx context.Context, id int64) (*models.SubTask, error) {
	s, err := scanSubtask(c.q.QueryRowContext(ctx, "SELECT "+subtaskColumns+" FROM subtasks WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "subtask")
	}
	return s, nil
}

// ListSubtasks returns a task's subtasks in creation order
func (c conn) ListSubtasks(ctx context.Context, taskID int64) ([]models.SubTask, error) {
	rows, err := c.q.QueryContext(ctx, "SELECT "+subtaskColumns+" FROM subtasks WHERE task_id = ? ORDER BY id", taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subtasks []models.SubTask
	for rows.Next() {
		s, err := scanSubtask(rows)
		if err != nil {
			return nil, err
		}
		subtasks = append(subtasks, *s)
	}
	return subtasks, rows.Err()
}

// UpdateSubtask writes every mutable field of s
func (c conn) UpdateSubtask(ctx context.Context, s *models.SubTask) error {
	_, err := c.q.ExecContext(ctx, `
		UPDATE subtasks SET title = ?, description = ?, attachment_url = ?, is_done = ?, work_log_id = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, s.Title, s.Description, s.AttachmentURL, s.IsDone, nullInt64(s.WorkLogID), s.ID)
	return err
}

// DeleteSubtask deletes a subtask
func (c conn) DeleteSubtask(ctx context.Context, id int64) error {
	_, err := c.q.ExecContext(ctx, "DELETE FROM subtasks WHERE id = ?", id)
	return err
}

// LinkSubtaskWorkLog points a subtask and a work log at each other. A nil
// workLogID clears the link on the subtask and on any work log referencing it.
func (c conn) LinkSubtaskWorkLog(ctx context.Context, subtaskID int64, workLogID *int64) error {
	if _, err := c.q.ExecContext(ctx, `
		UPDATE work_logs SET subtask_id = NULL WHERE subtask_id = ?
	`, subtaskID); err != nil {
		return err
	}
	if _, err := c.q.ExecContext(ctx, `
		UPDATE subtasks SET work_log_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, nullInt64(workLogID), subtaskID); err != nil {
		return err
	}
	if workLogID == nil {
		return nil
	}
	// a work log links at most one subtask
	if _, err := c.q.ExecContext(ctx, `
		UPDATE subtasks SET work_log_id = NULL WHERE work_log_id = ? AND id != ?
	`, *workLogID, subtaskID); err != nil {
		return err
	}
	// the work log follows the subtask's task and project
	_, err := c.q.ExecContext(ctx, `
		UPDATE work_logs SET subtask_id = s.id, task_id = s.task_id, project_id = t.project_id,
			updated_at = CURRENT_TIMESTAMP
		FROM subtasks s JOIN tasks t ON t.id = s.task_id
		WHERE s.id = ? AND work_logs.id = ?
	`, subtaskID, *workLogID)
	return err
}
