package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/tgienger/teamboard/internal/models"
)

const noteColumns = `id, owner_id, work_log_id, project_id, task_id, title, note_date, content, created_at, updated_at`

// NoteFilter narrows ListNotes. Zero values mean "any".
type NoteFilter struct {
	OwnerID   int64
	ProjectID int64
	TaskID    int64
	WorkLogID int64
}

func scanNote(row rowScanner) (*models.Note, error) {
	n := &models.Note{}
	var workLogID, projectID, taskID sql.NullInt64
	var noteDate, updatedAt sql.NullTime
	err := row.Scan(&n.ID, &n.OwnerID, &workLogID, &projectID, &taskID, &n.Title, &noteDate,
		&n.Content, &n.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	n.WorkLogID = int64Ptr(workLogID)
	n.ProjectID = int64Ptr(projectID)
	n.TaskID = int64Ptr(taskID)
	n.NoteDate = timePtr(noteDate)
	n.UpdatedAt = timePtr(updatedAt)
	return n, nil
}

// CreateNote creates a new note
func (c conn) CreateNote(ctx context.Context, n *models.Note) (*models.Note, error) {
	result, err := c.q.ExecContext(ctx, `
		INSERT INTO notes (owner_id, work_log_id, project_id, task_id, title, note_date, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.OwnerID, nullInt64(n.WorkLogID), nullInt64(n.ProjectID), nullInt64(n.TaskID), n.Title,
		nullTime(n.NoteDate), n.Content)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return c.GetNote(ctx, id)
}

// GetNote retrieves a note by ID
func (c conn) GetNote(ctx context.Context, id int64) (*models.Note, error) {
	n, err := scanNote(c.q.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "note")
	}
	return n, nil
}

// ListNotes returns notes matching f, newest first
func (c conn) ListNotes(ctx context.Context, f NoteFilter) ([]models.Note, error) {
	query := "SELECT " + noteColumns + " FROM notes WHERE 1 = 1"
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
	if f.WorkLogID != 0 {
		query += " AND work_log_id = ?"
		args = append(args, f.WorkLogID)
	}
	query += " ORDER BY COALESCE(note_date, created_at) DESC, id DESC"

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

// UpdateNote writes every mutable field of n
func (c conn) UpdateNote(ctx context.Context, n *models.Note) error {
	_, err := c.q.ExecContext(ctx, `
		UPDATE notes SET work_log_id = ?, project_id = ?, task_id = ?, title = ?, note_date = ?, content = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, nullInt64(n.WorkLogID), nullInt64(n.ProjectID), nullInt64(n.TaskID), n.Title, nullTime(n.NoteDate),
		n.Content, n.ID)
	return err
}

// DeleteNote deletes a note
func (c conn) DeleteNote(ctx context.Context, id int64) error {
	_, err := c.q.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	return err
}

const todoColumns = `id, owner_id, title, description, planned_date, is_done, done_at, created_at, updated_at`

func scanTodo(row rowScanner) (*models.Todo, error) {
	t := &models.Todo{}
	var doneAt, updatedAt sql.NullTime
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.PlannedDate, &t.IsDone, &doneAt,
		&t.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.DoneAt = timePtr(doneAt)
	t.UpdatedAt = timePtr(updatedAt)
	return t, nil
}

// CreateTodo creates a new to-do
func (c conn) CreateTodo(ctx context.Context, t *models.Todo) (*models.Todo, error) {
	result, err := c.q.ExecContext(ctx, `
		INSERT INTO todos (owner_id, title, description, planned_date) VALUES (?, ?, ?, ?)
	`, t.OwnerID, t.Title, t.Description, t.PlannedDate.UTC())
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return c.GetTodo(ctx, id)
}

// GetTodo retrieves a to-do by ID
func (c conn) GetTodo(ctx context.Context, id int64) (*models.Todo, error) {
	t, err := scanTodo(c.q.QueryRowContext(ctx, "SELECT "+todoColumns+" FROM todos WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "todo")
	}
	return t, nil
}

// ListTodos returns an owner's to-dos planned in [from, to), ordered by day
func (c conn) ListTodos(ctx context.Context, ownerID int64, from, to time.Time) ([]models.Todo, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT `+todoColumns+` FROM todos
		WHERE owner_id = ? AND planned_date >= ? AND planned_date < ?
		ORDER BY planned_date, id
	`, ownerID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := []models.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, *t)
	}
	return todos, rows.Err()
}

// UpdateTodo writes every mutable field of t
func (c conn) UpdateTodo(ctx context.Context, t *models.Todo) error {
	_, err := c.q.ExecContext(ctx, `
		UPDATE todos SET title = ?, description = ?, planned_date = ?, is_done = ?, done_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, t.Title, t.Description, t.PlannedDate.UTC(), t.IsDone, nullTime(t.DoneAt), t.ID)
	return err
}

// DeleteTodo deletes a to-do
func (c conn) DeleteTodo(ctx context.Context, id int64) error {
	_, err := c.q.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
	return err
}
