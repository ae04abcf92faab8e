// Package seed loads demo data into an empty database.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/board"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
)

const (
	AdminUsername = "admin"
	AdminPassword = "admin123"
)

// Result reports what Run created
type Result struct {
	AdminCreated bool
	ProjectTypes int
	Projects     int
	Tasks        int
}

type taskSeed struct {
	title       string
	description string
	status      models.TaskStatus
	priority    models.TaskPriority
}

var projectTypes = []models.ProjectType{
	{Name: "Software", Description: "Product and engineering work"},
	{Name: "Marketing", Description: "Campaigns and content"},
	{Name: "Operations", Description: "Internal processes"},
}

var projects = []models.Project{
	{Name: "Website Redesign", Description: "Redesign the company website with a new UI", Color: "#6366f1", Status: "active"},
	{Name: "Mobile App Development", Description: "Build the iOS and Android apps", Color: "#10b981", Status: "active"},
	{Name: "Marketing Campaign", Description: "Q1 marketing campaign", Color: "#f59e0b", Status: "active"},
}

// tasks for the first project, in column order
var tasks = []taskSeed{
	{"Research competitors", "Survey similar sites and collect good patterns", models.StatusDone, models.PriorityHigh},
	{"Draw wireframes", "Wireframes for the main pages", models.StatusInProgress, models.PriorityHigh},
	{"Design mockups", "High fidelity mockups", models.StatusTodo, models.PriorityMedium},
	{"Stakeholder review", "Present the designs and collect feedback", models.StatusTodo, models.PriorityMedium},
	{"Fix responsive layout", "Pages break on small screens", models.StatusBlocked, models.PriorityLow},
}

// Run creates the admin account, project types and, when the database has no
// projects, a set of demo projects. It is safe to run repeatedly.
func Run(ctx context.Context, database *db.DB, bcryptCost int, log *logrus.Logger) (*Result, error) {
	res := &Result{}
	err := database.WithTx(ctx, func(tx *db.Tx) error {
		admin, created, err := ensureAdmin(ctx, tx, bcryptCost)
		if err != nil {
			return err
		}
		res.AdminCreated = created

		for _, pt := range projectTypes {
			_, err := tx.CreateProjectType(ctx, pt.Name, pt.Description)
			if errors.Is(err, db.ErrConflict) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to create project type %q: %w", pt.Name, err)
			}
			res.ProjectTypes++
		}

		count, err := tx.ProjectCount(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			log.WithField("projects", count).Info("database already has projects, skipping demo data")
			return nil
		}

		for i, p := range projects {
			p.OwnerID = admin.ID
			project, err := tx.CreateProject(ctx, &p)
			if err != nil {
				return fmt.Errorf("failed to create project %q: %w", p.Name, err)
			}
			res.Projects++
			if _, err := tx.AddTeamMember(ctx, project.ID, admin.ID, models.RoleAdmin); err != nil {
				return err
			}
			if i > 0 {
				continue
			}
			for _, ts := range tasks {
				pos, err := board.Append(ctx, tx, project.ID, ts.status)
				if err != nil {
					return err
				}
				task, err := tx.CreateTask(ctx, &models.Task{
					ProjectID:   project.ID,
					Title:       ts.title,
					Description: ts.description,
					Status:      ts.status,
					Priority:    ts.priority,
					Position:    pos,
				})
				if err != nil {
					return fmt.Errorf("failed to create task %q: %w", ts.title, err)
				}
				if err := tx.SetTaskAssignees(ctx, task.ID, []int64{admin.ID}); err != nil {
					return err
				}
				res.Tasks++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"admin_created": res.AdminCreated,
		"project_types": res.ProjectTypes,
		"projects":      res.Projects,
		"tasks":         res.Tasks,
	}).Info("seed complete")
	return res, nil
}

func ensureAdmin(ctx context.Context, tx *db.Tx, bcryptCost int) (*models.User, bool, error) {
	admin, err := tx.GetUserByUsername(ctx, AdminUsername)
	if err == nil {
		return admin, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, false, err
	}

	hash, err := auth.HashPassword(AdminPassword, bcryptCost)
	if err != nil {
		return nil, false, err
	}
	admin, err = tx.CreateUser(ctx, &models.User{
		Username:       AdminUsername,
		Email:          "admin@example.com",
		HashedPassword: hash,
		FullName:       "Administrator",
		Role:           models.RoleAdmin,
		IsActive:       true,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create admin: %w", err)
	}
	return admin, true, nil
}
