package db

import (
	"context"
	"database/sql"

	"github.com/tgienger/teamboard/internal/models"
)

const projectColumns = `id, name, description, status, color, owner_id, project_type_id, due_date, created_at, updated_at`

func scanProject(row rowScanner) (*models.Project, error) {
	p := &models.Project{}
	var typeID sql.NullInt64
	var dueDate, updatedAt sql.NullTime
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.Color, &p.OwnerID,
		&typeID, &dueDate, &p.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.ProjectTypeID = int64Ptr(typeID)
	p.DueDate = timePtr(dueDate)
	p.UpdatedAt = timePtr(updatedAt)
	return p, nil
}

// CreateProject creates a new project
func (c conn) CreateProject(ctx context.Context, p *models.Project) (*models.Project, error) {
	if p.Status == "" {
		p.Status = "active"
	}
	if p.Color == "" {
		p.Color = "#6366f1"
	}
	result, err := c.q.ExecContext(ctx, `
		INSERT INTO projects (name, description, status, color, owner_id, project_type_id, due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.Name, p.Description, p.Status, p.Color, p.OwnerID, nullInt64(p.ProjectTypeID), nullTime(p.DueDate))
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return c.GetProject(ctx, id)
}

// GetProject retrieves a project by ID
func (c conn) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	p, err := scanProject(c.q.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "project")
	}
	return p, nil
}

// ListProjects returns all projects, most recently touched first
func (c conn) ListProjects(ctx context.Context) ([]models.Project, error) {
	return c.queryProjects(ctx, `
		SELECT `+projectColumns+` FROM projects
		ORDER BY COALESCE(updated_at, created_at) DESC, id DESC
	`)
}

// ListProjectsForUser returns the projects userID owns or is a team member of
func (c conn) ListProjectsForUser(ctx context.Context, userID int64) ([]models.Project, error) {
	return c.queryProjects(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE owner_id = ? OR id IN (SELECT project_id FROM team_members WHERE user_id = ?)
		ORDER BY COALESCE(updated_at, created_at) DESC, id DESC
	`, userID, userID)
}

func (c conn) queryProjects(ctx context.Context, query string, args ...any) ([]models.Project, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// UpdateProject updates a project
func (c conn) UpdateProject(ctx context.Context, p *models.Project) error {
	_, err := c.q.ExecContext(ctx, `
		UPDATE projects SET name = ?, description = ?, status = ?, color = ?, project_type_id = ?,
			due_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, p.Name, p.Description, p.Status, p.Color, nullInt64(p.ProjectTypeID), nullTime(p.DueDate), p.ID)
	return err
}

// TouchProject bumps a project's updated_at
func (c conn) TouchProject(ctx context.Context, id int64) error {
	_, err := c.q.ExecContext(ctx, "UPDATE projects SET updated_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	return err
}

// DeleteProject deletes a project and all its tasks
func (c conn) DeleteProject(ctx context.Context, id int64) error {
	_, err := c.q.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

// ProjectCount returns the number of projects
func (c conn) ProjectCount(ctx context.Context) (int, error) {
	var count int
	err := c.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects").Scan(&count)
	return count, err
}

// CreateProjectType creates a project category
func (c conn) CreateProjectType(ctx context.Context, name, description string) (*models.ProjectType, error) {
	result, err := c.q.ExecContext(ctx, "INSERT INTO project_types (name, description) VALUES (?, ?)", name, description)
	if err != nil {
		return nil, conflict(err, "project type")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.ProjectType{ID: id, Name: name, Description: description}, nil
}

// ListProjectTypes returns all project types by name
func (c conn) ListProjectTypes(ctx context.Context) ([]models.ProjectType, error) {
	rows, err := c.q.QueryContext(ctx, "SELECT id, name, description FROM project_types ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []models.ProjectType
	for rows.Next() {
		var pt models.ProjectType
		if err := rows.Scan(&pt.ID, &pt.Name, &pt.Description); err != nil {
			return nil, err
		}
		types = append(types, pt)
	}
	return types, rows.Err()
}
