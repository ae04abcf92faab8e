package seed

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/board"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func newDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestRunSeedsEmptyDatabase(t *testing.T) {
	database := newDB(t)
	logger, _ := test.NewNullLogger()
	ctx := context.Background()

	res, err := Run(ctx, database, bcrypt.MinCost, logger)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := Result{AdminCreated: true, ProjectTypes: len(projectTypes), Projects: len(projects), Tasks: len(tasks)}
	if *res != want {
		t.Errorf("result = %+v, want %+v", *res, want)
	}

	admin, err := database.GetUserByUsername(ctx, AdminUsername)
	if err != nil {
		t.Fatalf("admin missing: %v", err)
	}
	if !admin.IsAdmin() || !auth.CheckPassword(admin.HashedPassword, AdminPassword) {
		t.Errorf("admin = %+v, want admin role with the default password", admin)
	}

	all, err := database.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(all) != len(projects) {
		t.Fatalf("projects = %d, want %d", len(all), len(projects))
	}
	for _, p := range all {
		if err := board.New(database, logger).Verify(ctx, p.ID); err != nil {
			t.Errorf("project %q board not dense: %v", p.Name, err)
		}
	}
	mine, err := database.ListProjectsForUser(ctx, admin.ID)
	if err != nil {
		t.Fatalf("ListProjectsForUser: %v", err)
	}
	if len(mine) != len(projects) {
		t.Errorf("admin sees %d projects, want %d", len(mine), len(projects))
	}
}

func TestRunIsIdempotent(t *testing.T) {
	database := newDB(t)
	logger, _ := test.NewNullLogger()
	ctx := context.Background()

	if _, err := Run(ctx, database, bcrypt.MinCost, logger); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	res, err := Run(ctx, database, bcrypt.MinCost, logger)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if *res != (Result{}) {
		t.Errorf("second run created %+v, want nothing", *res)
	}

	tasksInProject, err := database.ListTasks(ctx, db.TaskFilter{})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasksInProject) != len(tasks) {
		t.Errorf("tasks = %d after two runs, want %d", len(tasksInProject), len(tasks))
	}
}

func TestRunKeepsExistingAdmin(t *testing.T) {
	database := newDB(t)
	logger, _ := test.NewNullLogger()
	ctx := context.Background()

	existing, err := database.CreateUser(ctx, &models.User{
		Username: AdminUsername, Email: "boss@example.com", HashedPassword: "x", Role: models.RoleAdmin, IsActive: true,
	})
	if err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}

	res, err := Run(ctx, database, bcrypt.MinCost, logger)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.AdminCreated {
		t.Error("Run replaced an existing admin")
	}
	projects, err := database.ListProjectsForUser(ctx, existing.ID)
	if err != nil {
		t.Fatalf("ListProjectsForUser: %v", err)
	}
	if len(projects) == 0 {
		t.Error("demo projects not owned by the existing admin")
	}
}
