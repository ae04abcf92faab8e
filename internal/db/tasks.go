package db

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/tgienger/teamboard/internal/models"
)

const taskColumns = `t.id, t.project_id, t.title, t.description, t.status, t.priority, t.position,
	t.due_date, t.tags, t.created_at, t.updated_at,
	(SELECT COUNT(*) FROM subtasks s WHERE s.task_id = t.id),
	(SELECT COUNT(*) FROM subtasks s WHERE s.task_id = t.id AND s.is_done = 1)`

// TaskFilter narrows ListTasks. Zero values mean "any".
type TaskFilter struct {
	ProjectID  int64
	Status     models.TaskStatus
	AssigneeID int64
}

func scanTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{}
	var dueDate, updatedAt sql.NullTime
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Position,
		&dueDate, &t.Tags, &t.CreatedAt, &updatedAt, &t.TotalSubtasks, &t.CompletedSubtasks)
	if err != nil {
		return nil, err
	}
	t.DueDate = timePtr(dueDate)
	t.UpdatedAt = timePtr(updatedAt)
	applyProgress(t)
	return t, nil
}

// applyProgress derives the completion percentage from the subtask counts.
// A done task without subtasks counts as complete.
func applyProgress(t *models.Task) {
	switch {
	case t.TotalSubtasks > 0:
		t.ProgressPercent = math.Round(float64(t.CompletedSubtasks)*10000/float64(t.TotalSubtasks)) / 100
	case t.Status == models.StatusDone:
		t.ProgressPercent = 100
	default:
		t.ProgressPercent = 0
	}
}

// CreateTask inserts a task at t.Position of its bucket. Callers reserve the slot first.
func (c conn) CreateTask(ctx context.Context, t *models.Task) (*models.Task, error) {
	if t.Status == "" {
		t.Status = models.StatusTodo
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	result, err := c.q.ExecContext(ctx, `
		INSERT INTO tasks (project_id, title, description, status, priority, position, due_date, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ProjectID, t.Title, t.Description, t.Status, t.Priority, t.Position, nullTime(t.DueDate), t.Tags)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return c.GetTask(ctx, id)
}

// GetTask retrieves a task by ID with its assignees
func (c conn) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	t, err := scanTask(c.q.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks t WHERE t.id = ?", id))
	if err != nil {
		return nil, notFound(err, "task")
	}

	assignees, err := c.GetTaskAssignees(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Assignees = assignees

	return t, nil
}

// ListTasks returns tasks matching f ordered by board column and position
func (c conn) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks t WHERE 1 = 1"
	var args []any

	if f.ProjectID != 0 {
		query += " AND t.project_id = ?"
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		query += " AND t.status = ?"
		args = append(args, f.Status)
	}
	if f.AssigneeID != 0 {
		query += " AND t.id IN (SELECT task_id FROM task_assignees WHERE user_id = ?)"
		args = append(args, f.AssigneeID)
	}

	query += " ORDER BY t.project_id, t.status, t.position, t.id"

	tasks, err := c.queryTasks(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	// Load assignees for each task
	for i := range tasks {
		assignees, err := c.GetTaskAssignees(ctx, tasks[i].ID)
		if err != nil {
			return nil, err
		}
		tasks[i].Assignees = assignees
	}

	return tasks, nil
}

// ListBucket returns the tasks of one board column in position order, without assignees
func (c conn) ListBucket(ctx context.Context, projectID int64, status models.TaskStatus) ([]models.Task, error) {
	return c.queryTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks t
		WHERE t.project_id = ? AND t.status = ?
		ORDER BY t.position, t.id
	`, projectID, status)
}

func (c conn) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateTask writes the descriptive fields of a task. Status and position are
// owned by the board and written through SetTaskPlacement.
func (c conn) UpdateTask(ctx context.Context, t *models.Task) error {
	_, err := c.q.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, priority = ?, due_date = ?, tags = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, t.Title, t.Description, t.Priority, nullTime(t.DueDate), t.Tags, t.ID)
	return err
}

// SetTaskPlacement moves a task to status/position without touching its neighbours
func (c conn) SetTaskPlacement(ctx context.Context, id int64, status models.TaskStatus, position int) error {
	_, err := c.q.ExecContext(ctx, `
		UPDATE tasks SET status = ?, position = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, status, position, id)
	return err
}

// DeleteTask deletes a task
func (c conn) DeleteTask(ctx context.Context, id int64) error {
	_, err := c.q.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	return err
}

// CountBucket returns the number of tasks in a board column
func (c conn) CountBucket(ctx context.Context, projectID int64, status models.TaskStatus) (int, error) {
	var n int
	err := c.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tasks WHERE project_id = ? AND status = ?
	`, projectID, status).Scan(&n)
	return n, err
}

// ShiftBucket adds delta to the position of every task in the column whose
// position lies in [from, to]. A negative to leaves the range open-ended.
func (c conn) ShiftBucket(ctx context.Context, projectID int64, status models.TaskStatus, from, to, delta int) error {
	query := `UPDATE tasks SET position = position + ? WHERE project_id = ? AND status = ? AND position >= ?`
	args := []any{delta, projectID, status, from}
	if to >= 0 {
		query += " AND position <= ?"
		args = append(args, to)
	}
	_, err := c.q.ExecContext(ctx, query, args...)
	return err
}

// BumpBucket increments the version row of a board column, creating it on first use
func (c conn) BumpBucket(ctx context.Context, projectID int64, status models.TaskStatus) (int64, error) {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO board_buckets (project_id, status, version) VALUES (?, ?, 1)
		ON CONFLICT(project_id, status) DO UPDATE SET version = version + 1
	`, projectID, status)
	if err != nil {
		return 0, err
	}
	return c.BucketVersion(ctx, projectID, status)
}

// BucketVersion returns the current version of a board column
func (c conn) BucketVersion(ctx context.Context, projectID int64, status models.TaskStatus) (int64, error) {
	var v int64
	err := c.q.QueryRowContext(ctx, `
		SELECT version FROM board_buckets WHERE project_id = ? AND status = ?
	`, projectID, status).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return v, err
}

// GetTaskAssignees returns the users assigned to a task
func (c conn) GetTaskAssignees(ctx context.Context, taskID int64) ([]models.UserSummary, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT u.id, u.username, u.email, u.full_name, u.avatar_url
		FROM users u
		JOIN task_assignees ta ON u.id = ta.user_id
		WHERE ta.task_id = ?
		ORDER BY ta.assigned_at, ta.id
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.UserSummary
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.AvatarURL); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetTaskAssignees replaces the assignee set of a task
func (c conn) SetTaskAssignees(ctx context.Context, taskID int64, userIDs []int64) error {
	if _, err := c.q.ExecContext(ctx, "DELETE FROM task_assignees WHERE task_id = ?", taskID); err != nil {
		return err
	}
	for _, id := range userIDs {
		_, err := c.q.ExecContext(ctx, `
			INSERT OR IGNORE INTO task_assignees (task_id, user_id) VALUES (?, ?)
		`, taskID, id)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListTasksDueBetween returns unfinished tasks whose due date falls in [from, to)
func (c conn) ListTasksDueBetween(ctx context.Context, from, to time.Time) ([]models.Task, error) {
	tasks, err := c.queryTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks t
		WHERE t.due_date IS NOT NULL AND t.due_date >= ? AND t.due_date < ? AND t.status != ?
		ORDER BY t.due_date, t.id
	`, from.UTC(), to.UTC(), models.StatusDone)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		assignees, err := c.GetTaskAssignees(ctx, tasks[i].ID)
		if err != nil {
			return nil, err
		}
		tasks[i].Assignees = assignees
	}
	return tasks, nil
}
