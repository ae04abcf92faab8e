package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tgienger/teamboard/internal/models"
)

// CreateActivity appends an entry to a project's feed
func (c conn) CreateActivity(ctx context.Context, a *models.Activity) (*models.Activity, error) {
	var metadata any
	if len(a.Metadata) > 0 {
		var err error
		if metadata, err = encodeJSON(a.Metadata); err != nil {
			return nil, err
		}
	}
	result, err := c.q.ExecContext(ctx, `
		INSERT INTO activity_logs (project_id, user_id, activity_type, entity_type, entity_id, description, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ProjectID, a.UserID, a.ActivityType, a.EntityType, a.EntityID, a.Description, metadata)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	activities, err := c.queryActivities(ctx, "WHERE a.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(activities) == 0 {
		return nil, notFound(errNoRows, "activity")
	}
	return &activities[0], nil
}

// ListActivities returns a project's feed newest first. projectID 0 lists every project.
func (c conn) ListActivities(ctx context.Context, projectID int64, limit int) ([]models.Activity, error) {
	if projectID == 0 {
		return c.queryActivities(ctx, "ORDER BY a.created_at DESC, a.id DESC LIMIT ?", limit)
	}
	return c.queryActivities(ctx, "WHERE a.project_id = ? ORDER BY a.created_at DESC, a.id DESC LIMIT ?", projectID, limit)
}

// CountActivities returns the number of feed entries of a given type for an entity
func (c conn) CountActivities(ctx context.Context, entityType string, entityID int64, activityType string) (int, error) {
	var n int
	err := c.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM activity_logs WHERE entity_type = ? AND entity_id = ? AND activity_type = ?
	`, entityType, entityID, activityType).Scan(&n)
	return n, err
}

func (c conn) queryActivities(ctx context.Context, tail string, args ...any) ([]models.Activity, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT a.id, a.project_id, a.user_id, a.activity_type, a.entity_type, a.entity_id,
			a.description, a.metadata, a.created_at,
			u.username, u.email, u.full_name, u.avatar_url
		FROM activity_logs a
		JOIN users u ON u.id = a.user_id
		`+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := []models.Activity{}
	for rows.Next() {
		var a models.Activity
		var metadata sql.NullString
		u := &models.UserSummary{}
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.UserID, &a.ActivityType, &a.EntityType, &a.EntityID,
			&a.Description, &metadata, &a.CreatedAt,
			&u.Username, &u.Email, &u.FullName, &u.AvatarURL); err != nil {
			return nil, err
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &a.Metadata); err != nil {
				return nil, fmt.Errorf("activity %d: bad metadata: %w", a.ID, err)
			}
		}
		u.ID = a.UserID
		a.User = u
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
