package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/tgienger/teamboard/internal/config"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T) (*Service, *db.DB) {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	logger, _ := test.NewNullLogger()
	cfg := config.AuthConfig{
		SessionTTL:    30 * time.Minute,
		RememberMeTTL: 30 * 24 * time.Hour,
		BcryptCost:    bcrypt.MinCost,
	}
	return NewService(database, cfg, logger), database
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Role != models.RoleMember || !user.IsActive {
		t.Errorf("new user role=%s active=%v", user.Role, user.IsActive)
	}
	if user.HashedPassword == "secret1" {
		t.Error("password stored in clear")
	}

	session, err := svc.Login(ctx, "alice", "secret1", false)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if session.Token == "" {
		t.Fatal("empty token")
	}

	got, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("Authenticate() user = %d, want %d", got.ID, user.ID)
	}

	if err := svc.Logout(ctx, session.Token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := svc.Authenticate(ctx, session.Token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Authenticate() after logout error = %v, want ErrUnauthorized", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"same username", RegisterInput{Username: "alice", Email: "other@example.com", Password: "secret1"}},
		{"same email", RegisterInput{Username: "bob", Email: "a@example.com", Password: "secret1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tt.input); !errors.Is(err, db.ErrConflict) {
				t.Errorf("Register() error = %v, want ErrConflict", err)
			}
		})
	}
}

func TestLoginRejects(t *testing.T) {
	svc, database := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Username: "gone", Email: "g@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	gone, _ := database.GetUserByUsername(ctx, "gone")
	gone.IsActive = false
	if err := database.UpdateUser(ctx, gone); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	tests := []struct {
		name, username, password string
	}{
		{"wrong password", user.Username, "nope123"},
		{"unknown user", "mallory", "secret1"},
		{"inactive user", "gone", "secret1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Login(ctx, tt.username, tt.password, false); !errors.Is(err, ErrUnauthorized) {
				t.Errorf("Login() error = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestRememberMeExtendsExpiry(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	short, err := svc.Login(ctx, "alice", "secret1", false)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	long, err := svc.Login(ctx, "alice", "secret1", true)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !short.ExpiresAt.Equal(now.Add(30 * time.Minute)) {
		t.Errorf("short expiry = %s", short.ExpiresAt)
	}
	if !long.ExpiresAt.Equal(now.Add(30 * 24 * time.Hour)) {
		t.Errorf("remember-me expiry = %s", long.ExpiresAt)
	}

	svc.now = func() time.Time { return now.Add(time.Hour) }
	if _, err := svc.Authenticate(ctx, short.Token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expired token error = %v, want ErrUnauthorized", err)
	}
	if _, err := svc.Authenticate(ctx, long.Token); err != nil {
		t.Errorf("remember-me token error = %v", err)
	}

	purged, err := svc.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired() error = %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name, current, next string
	}{
		{"wrong current", "bad", "secret2"},
		{"unchanged", "secret1", "secret1"},
		{"too short", "secret1", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.ChangePassword(ctx, user, tt.current, tt.next); !errors.Is(err, ErrInvalidPassword) {
				t.Errorf("ChangePassword() error = %v, want ErrInvalidPassword", err)
			}
		})
	}

	if err := svc.ChangePassword(ctx, user, "secret1", "secret2"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if _, err := svc.Login(ctx, "alice", "secret2", false); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}
}

func TestPolicy(t *testing.T) {
	owner := &models.User{ID: 1, Role: models.RoleMember}
	assignee := &models.User{ID: 2, Role: models.RoleMember}
	admin := &models.User{ID: 3, Role: models.RoleAdmin}
	outsider := &models.User{ID: 4, Role: models.RoleMember}

	project := &models.Project{ID: 10, OwnerID: owner.ID}
	task := &models.Task{ID: 20, ProjectID: 10, Status: models.StatusInProgress,
		Assignees: []models.UserSummary{{ID: assignee.ID}}}
	doneTask := &models.Task{ID: 21, ProjectID: 10, Status: models.StatusDone,
		Assignees: []models.UserSummary{{ID: assignee.ID}}}

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"owner accesses task", CanAccessTask(owner, project, task), true},
		{"assignee accesses task", CanAccessTask(assignee, project, task), true},
		{"outsider accesses task", CanAccessTask(outsider, project, task), false},
		{"owner moves to done", CanMoveTask(owner, project, task, models.StatusDone), true},
		{"assignee moves to done", CanMoveTask(assignee, project, task, models.StatusDone), false},
		{"assignee moves to blocked", CanMoveTask(assignee, project, task, models.StatusBlocked), true},
		{"assignee reorders within done", CanMoveTask(assignee, project, doneTask, models.StatusDone), false},
		{"owner reorders within done", CanMoveTask(owner, project, doneTask, models.StatusDone), true},
		{"assignee moves out of done", CanMoveTask(assignee, project, doneTask, models.StatusTodo), true},
		{"admin comments", CanComment(admin, project, task), true},
		{"outsider comments", CanComment(outsider, project, task), false},
		{"admin manages team", CanManageTeam(admin, project), true},
		{"assignee manages team", CanManageTeam(assignee, project), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if err := Require(false, "delete"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Require(false) = %v, want ErrForbidden", err)
	}
}
