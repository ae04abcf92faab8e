package notify

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
)

func newDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "notify.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func newUser(t *testing.T, database *db.DB, name string) *models.User {
	t.Helper()
	u, err := database.CreateUser(context.Background(), &models.User{
		Username: name, Email: name + "@example.com", HashedPassword: "x", IsActive: true,
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

func TestTaskAssignedSkipsActor(t *testing.T) {
	database := newDB(t)
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	svc := New(logger)

	owner := newUser(t, database, "owner")
	dev := newUser(t, database, "dev")
	project, err := database.CreateProject(ctx, &models.Project{Name: "P", OwnerID: owner.ID})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	task, err := database.CreateTask(ctx, &models.Task{ProjectID: project.ID, Title: "Ship"})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	var sent int
	err = database.WithTx(ctx, func(tx *db.Tx) error {
		sent = svc.TaskAssigned(ctx, tx, task, project, []int64{owner.ID, dev.ID}, owner)
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1", sent)
	}

	list, err := database.ListNotifications(ctx, dev.ID, true, 10, 0)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(list) != 1 || list[0].Type != models.NotificationTaskAssigned {
		t.Fatalf("dev notifications = %+v", list)
	}
	if list[0].TaskID == nil || *list[0].TaskID != task.ID {
		t.Errorf("notification task = %v, want %d", list[0].TaskID, task.ID)
	}
}

func TestDeadlineRemindersOncePerDay(t *testing.T) {
	database := newDB(t)
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	svc := New(logger)

	owner := newUser(t, database, "owner")
	dev := newUser(t, database, "dev")
	project, err := database.CreateProject(ctx, &models.Project{Name: "P", OwnerID: owner.ID})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	for _, tt := range []struct {
		title  string
		due    time.Time
		status models.TaskStatus
	}{
		{"due today", today, models.StatusTodo},
		{"due tomorrow", tomorrow, models.StatusTodo},
		{"done today", today, models.StatusDone},
	} {
		due := tt.due
		task, err := database.CreateTask(ctx, &models.Task{ProjectID: project.ID, Title: tt.title, Status: tt.status, DueDate: &due})
		if err != nil {
			t.Fatalf("failed to create task: %v", err)
		}
		if err := database.SetTaskAssignees(ctx, task.ID, []int64{dev.ID}); err != nil {
			t.Fatalf("failed to assign: %v", err)
		}
	}

	sent, err := svc.DeadlineReminders(ctx, database, now)
	if err != nil {
		t.Fatalf("DeadlineReminders() error = %v", err)
	}
	if sent != 1 {
		t.Errorf("first run sent %d, want 1", sent)
	}

	sent, err = svc.DeadlineReminders(ctx, database, now)
	if err != nil {
		t.Fatalf("DeadlineReminders() error = %v", err)
	}
	if sent != 0 {
		t.Errorf("second run sent %d, want 0", sent)
	}
}
