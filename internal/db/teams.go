package db

import (
	"context"

	"github.com/tgienger/teamboard/internal/models"
)

// AddTeamMember adds userID to a project's team
func (c conn) AddTeamMember(ctx context.Context, projectID, userID int64, role models.Role) (*models.TeamMember, error) {
	if role == "" {
		role = models.RoleMember
	}
	result, err := c.q.ExecContext(ctx, `
		INSERT INTO team_members (project_id, user_id, role) VALUES (?, ?, ?)
	`, projectID, userID, role)
	if err != nil {
		return nil, conflict(err, "team member")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return c.GetTeamMember(ctx, id)
}

// GetTeamMember retrieves a membership by ID
func (c conn) GetTeamMember(ctx context.Context, id int64) (*models.TeamMember, error) {
	members, err := c.queryTeam(ctx, "WHERE tm.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, notFound(errNoRows, "team member")
	}
	return &members[0], nil
}

// ListTeamMembers returns a project's members in join order
func (c conn) ListTeamMembers(ctx context.Context, projectID int64) ([]models.TeamMember, error) {
	return c.queryTeam(ctx, "WHERE tm.project_id = ? ORDER BY tm.joined_at, tm.id", projectID)
}

// IsTeamMember reports whether userID belongs to the project's team
func (c conn) IsTeamMember(ctx context.Context, projectID, userID int64) (bool, error) {
	var n int
	err := c.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM team_members WHERE project_id = ? AND user_id = ?
	`, projectID, userID).Scan(&n)
	return n > 0, err
}

func (c conn) queryTeam(ctx context.Context, where string, args ...any) ([]models.TeamMember, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT tm.id, tm.project_id, tm.user_id, tm.role, tm.joined_at,
			u.username, u.email, u.full_name, u.avatar_url
		FROM team_members tm
		JOIN users u ON u.id = tm.user_id
		`+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.TeamMember
	for rows.Next() {
		var m models.TeamMember
		u := &models.UserSummary{}
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.JoinedAt,
			&u.Username, &u.Email, &u.FullName, &u.AvatarURL); err != nil {
			return nil, err
		}
		u.ID = m.UserID
		m.User = u
		members = append(members, m)
	}
	return members, rows.Err()
}

// UpdateTeamMemberRole changes a member's role within the project
func (c conn) UpdateTeamMemberRole(ctx context.Context, id int64, role models.Role) error {
	result, err := c.q.ExecContext(ctx, "UPDATE team_members SET role = ? WHERE id = ?", role, id)
	if err != nil {
		return err
	}
	return requireAffected(result, "team member")
}

// RemoveTeamMember deletes a membership
func (c conn) RemoveTeamMember(ctx context.Context, id int64) error {
	result, err := c.q.ExecContext(ctx, "DELETE FROM team_members WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(result, "team member")
}
