package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/config"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "secret-password"

type apiFixture struct {
	t      *testing.T
	db     *db.DB
	router *gin.Engine
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	database, err := db.New(filepath.Join(dir, "api.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Uploads.Dir = filepath.Join(dir, "uploads")

	logger, _ := test.NewNullLogger()
	router, err := NewRouter(NewDeps(cfg, database, logger))
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}
	return &apiFixture{t: t, db: database, router: router}
}

// user creates an active user and returns a bearer token for it
func (f *apiFixture) user(username string, role models.Role) (*models.User, string) {
	f.t.Helper()
	hash, err := auth.HashPassword(testPassword, bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash password: %v", err)
	}
	user, err := f.db.CreateUser(context.Background(), &models.User{
		Username:       username,
		Email:          username + "@example.com",
		HashedPassword: hash,
		Role:           role,
		IsActive:       true,
	})
	if err != nil {
		f.t.Fatalf("failed to create user %s: %v", username, err)
	}

	var session struct {
		Token string `json:"access_token"`
	}
	f.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"username": username,
		"password": testPassword,
	}, http.StatusOK, &session)
	return user, session.Token
}

// do sends a JSON request, checks the status and decodes the body into out
func (f *apiFixture) do(method, path, token string, body any, wantStatus int, out any) *httptest.ResponseRecorder {
	f.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			f.t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != wantStatus {
		f.t.Fatalf("%s %s: status %d, want %d; body: %s", method, path, rec.Code, wantStatus, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			f.t.Fatalf("%s %s: failed to decode body: %v", method, path, err)
		}
	}
	return rec
}

func (f *apiFixture) project(token, name string) models.Project {
	f.t.Helper()
	var project models.Project
	f.do(http.MethodPost, "/api/projects", token, map[string]any{"name": name}, http.StatusCreated, &project)
	return project
}

func (f *apiFixture) notifications(token, kind string) []models.Notification {
	f.t.Helper()
	var all []models.Notification
	f.do(http.MethodGet, "/api/notifications", token, nil, http.StatusOK, &all)
	var matched []models.Notification
	for _, n := range all {
		if n.Type == kind {
			matched = append(matched, n)
		}
	}
	return matched
}

func TestHealth(t *testing.T) {
	f := newAPI(t)

	var health healthResponse
	f.do(http.MethodGet, "/api/health", "", nil, http.StatusOK, &health)
	if health.Status != "ok" || health.Database != "ok" {
		t.Errorf("health = %+v", health)
	}
}

func TestAuthFlow(t *testing.T) {
	f := newAPI(t)
	alice, token := f.user("alice", models.RoleMember)

	var me models.User
	f.do(http.MethodGet, "/api/auth/me", token, nil, http.StatusOK, &me)
	if me.ID != alice.ID || me.Username != "alice" {
		t.Errorf("me = %+v, want alice", me)
	}

	f.do(http.MethodGet, "/api/auth/me", "", nil, http.StatusUnauthorized, nil)
	f.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"username": "alice",
		"password": "wrong",
	}, http.StatusUnauthorized, nil)

	f.do(http.MethodPost, "/api/auth/logout", token, nil, http.StatusOK, nil)
	f.do(http.MethodGet, "/api/auth/me", token, nil, http.StatusUnauthorized, nil)
}

func TestPagesRedirectToLogin(t *testing.T) {
	f := newAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Errorf("GET / = %d -> %q, want 302 -> /login", rec.Code, rec.Header().Get("Location"))
	}

	req = httptest.NewRequest(http.MethodGet, "/login", nil)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /login = %d, want 200", rec.Code)
	}
}

func TestTaskBoardRules(t *testing.T) {
	f := newAPI(t)
	_, ownerToken := f.user("owner", models.RoleMember)
	member, memberToken := f.user("member", models.RoleMember)
	project := f.project(ownerToken, "Launch")

	var task models.Task
	f.do(http.MethodPost, "/api/tasks", ownerToken, map[string]any{
		"project_id":   project.ID,
		"title":        "Write docs",
		"assignee_ids": []int64{member.ID},
	}, http.StatusCreated, &task)
	if task.Status != models.StatusTodo || task.Position != 0 {
		t.Fatalf("new task at %s:%d, want todo:0", task.Status, task.Position)
	}
	if got := f.notifications(memberToken, models.NotificationTaskAssigned); len(got) != 1 {
		t.Errorf("assignee got %d task_assigned notifications, want 1", len(got))
	}

	page := f.do(http.MethodGet, fmt.Sprintf("/projects/%d/board", project.ID), ownerToken, nil, http.StatusOK, nil)
	if !strings.Contains(page.Body.String(), "@member") {
		t.Error("board page does not list the card's assignee")
	}

	// members may not create tasks
	f.do(http.MethodPost, "/api/tasks", memberToken, map[string]any{
		"project_id": project.ID,
		"title":      "Sneaky",
	}, http.StatusForbidden, nil)

	movePath := fmt.Sprintf("/api/tasks/%d/move", task.ID)
	var moved struct {
		Task models.Task `json:"task"`
	}
	f.do(http.MethodPost, movePath, memberToken, map[string]any{
		"new_status":   "in_progress",
		"new_position": 0,
	}, http.StatusOK, &moved)
	if moved.Task.Status != models.StatusInProgress {
		t.Errorf("status = %s, want in_progress", moved.Task.Status)
	}

	// only the owner may move into done
	f.do(http.MethodPost, movePath, memberToken, map[string]any{
		"new_status":   "done",
		"new_position": 0,
	}, http.StatusForbidden, nil)

	// a position past the tail is rejected
	f.do(http.MethodPost, movePath, ownerToken, map[string]any{
		"new_status":   "blocked",
		"new_position": 5,
	}, http.StatusBadRequest, nil)

	confirmPath := fmt.Sprintf("/api/tasks/%d/confirm-complete", task.ID)
	f.do(http.MethodPost, confirmPath, ownerToken, nil, http.StatusBadRequest, nil)

	var subtask models.SubTask
	f.do(http.MethodPost, "/api/subtasks", memberToken, map[string]any{
		"task_id": task.ID,
		"title":   "Outline",
	}, http.StatusCreated, &subtask)
	f.do(http.MethodPost, confirmPath, ownerToken, nil, http.StatusBadRequest, nil)

	f.do(http.MethodPut, fmt.Sprintf("/api/subtasks/%d", subtask.ID), memberToken, map[string]any{
		"is_done": true,
	}, http.StatusOK, nil)

	var done models.Task
	f.do(http.MethodPost, confirmPath, ownerToken, nil, http.StatusOK, &done)
	if done.Status != models.StatusDone || done.ProgressPercent != 100 {
		t.Errorf("confirmed task = %s %.0f%%, want done 100%%", done.Status, done.ProgressPercent)
	}

	// reordering inside done is also the owner's call
	f.do(http.MethodPost, movePath, memberToken, map[string]any{
		"new_status":   "done",
		"new_position": 0,
	}, http.StatusForbidden, nil)
	f.do(http.MethodPost, movePath, ownerToken, map[string]any{
		"new_status":   "done",
		"new_position": 0,
	}, http.StatusOK, nil)

	var activities []models.Activity
	f.do(http.MethodGet, fmt.Sprintf("/api/activities?project_id=%d", project.ID), ownerToken, nil, http.StatusOK, &activities)
	counts := map[string]int{}
	for _, a := range activities {
		counts[a.ActivityType]++
	}
	if counts[models.ActivityTaskStatusChanged] != 1 || counts[models.ActivityTaskCompleted] != 1 {
		t.Errorf("activities = %v, want one status change and one completion", counts)
	}
	if counts[models.ActivitySubtaskCompleted] != 1 {
		t.Errorf("subtask completions = %d, want 1", counts[models.ActivitySubtaskCompleted])
	}
}

func TestThreadMentionsNotifyOnce(t *testing.T) {
	f := newAPI(t)
	_, aliceToken := f.user("alice", models.RoleMember)
	bob, bobToken := f.user("bob", models.RoleMember)
	carol, carolToken := f.user("carol", models.RoleMember)
	project := f.project(aliceToken, "Chat")

	var thread models.Thread
	f.do(http.MethodPost, "/api/threads", aliceToken, map[string]any{
		"project_id": project.ID,
		"content":    "@bob can you look at this? @nobody",
	}, http.StatusCreated, &thread)
	if len(thread.Mentions) != 1 || thread.Mentions[0] != bob.ID {
		t.Fatalf("mentions = %v, want [%d]", thread.Mentions, bob.ID)
	}
	if got := f.notifications(bobToken, models.NotificationMentioned); len(got) != 1 {
		t.Fatalf("bob has %d mention notifications, want 1", len(got))
	}

	var edited models.Thread
	f.do(http.MethodPut, fmt.Sprintf("/api/threads/%d", thread.ID), aliceToken, map[string]any{
		"content": "@bob and @carol can you look at this?",
	}, http.StatusOK, &edited)
	if !edited.IsEdited || len(edited.Mentions) != 2 || edited.Mentions[1] != carol.ID {
		t.Errorf("edited thread = %+v, want edited with mentions [bob carol]", edited)
	}
	if got := f.notifications(bobToken, models.NotificationMentioned); len(got) != 1 {
		t.Errorf("bob has %d mention notifications after edit, want 1", len(got))
	}
	if got := f.notifications(carolToken, models.NotificationMentioned); len(got) != 1 {
		t.Errorf("carol has %d mention notifications, want 1", len(got))
	}

	// only the author may edit
	f.do(http.MethodPut, fmt.Sprintf("/api/threads/%d", thread.ID), bobToken, map[string]any{
		"content": "hijacked",
	}, http.StatusForbidden, nil)

	var parsed struct {
		ParsedMentions  []int64  `json:"parsed_mentions"`
		UnmatchedTokens []string `json:"unmatched_tokens"`
	}
	f.do(http.MethodGet, fmt.Sprintf("/api/threads/debug/parse-mentions?project_id=%d&content=%%40carol+%%40ghost", project.ID),
		aliceToken, nil, http.StatusOK, &parsed)
	if len(parsed.ParsedMentions) != 1 || parsed.ParsedMentions[0] != carol.ID {
		t.Errorf("parsed mentions = %v, want [%d]", parsed.ParsedMentions, carol.ID)
	}
	if len(parsed.UnmatchedTokens) != 1 || parsed.UnmatchedTokens[0] != "ghost" {
		t.Errorf("unmatched = %v, want [ghost]", parsed.UnmatchedTokens)
	}
}

func TestCommentEditNotifiesOnlyNewMentions(t *testing.T) {
	f := newAPI(t)
	_, aliceToken := f.user("alice", models.RoleMember)
	_, bobToken := f.user("bob", models.RoleMember)
	carol, carolToken := f.user("carol", models.RoleMember)
	project := f.project(aliceToken, "Launch")

	var task models.Task
	f.do(http.MethodPost, "/api/tasks", aliceToken, map[string]any{
		"project_id": project.ID,
		"title":      "Press kit",
	}, http.StatusCreated, &task)

	var comment models.Comment
	f.do(http.MethodPost, "/api/comments", aliceToken, map[string]any{
		"task_id": task.ID,
		"content": "@bob draft ready",
	}, http.StatusCreated, &comment)

	mentioned := f.notifications(bobToken, models.NotificationMentioned)
	if len(mentioned) != 1 {
		t.Fatalf("bob has %d mention notifications, want 1", len(mentioned))
	}
	if mentioned[0].TaskID == nil || *mentioned[0].TaskID != task.ID || mentioned[0].ThreadID != nil {
		t.Errorf("notification = %+v, want it to point at task %d only", mentioned[0], task.ID)
	}

	var edited models.Comment
	f.do(http.MethodPut, fmt.Sprintf("/api/comments/%d", comment.ID), aliceToken, map[string]any{
		"content": "@bob draft ready, @carol please proofread",
	}, http.StatusOK, &edited)
	if !edited.IsEdited || len(edited.Mentions) != 2 || edited.Mentions[1] != carol.ID {
		t.Errorf("edited comment = %+v, want edited with mentions [bob carol]", edited)
	}
	if got := f.notifications(bobToken, models.NotificationMentioned); len(got) != 1 {
		t.Errorf("bob has %d mention notifications after edit, want 1", len(got))
	}
	if got := f.notifications(carolToken, models.NotificationMentioned); len(got) != 1 {
		t.Errorf("carol has %d mention notifications, want 1", len(got))
	}
}

func TestTodoToggleOnlyOnPlannedDay(t *testing.T) {
	f := newAPI(t)
	_, token := f.user("alice", models.RoleMember)

	today := time.Now().UTC().Format("2006-01-02")
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")

	var current, past models.Todo
	f.do(http.MethodPost, "/api/todos", token, map[string]any{"title": "Today", "planned_date": today}, http.StatusCreated, &current)
	f.do(http.MethodPost, "/api/todos", token, map[string]any{"title": "Yesterday", "planned_date": yesterday}, http.StatusCreated, &past)

	var toggled models.Todo
	f.do(http.MethodPost, fmt.Sprintf("/api/todos/%d/toggle", current.ID), token, nil, http.StatusOK, &toggled)
	if !toggled.IsDone || toggled.DoneAt == nil {
		t.Errorf("toggled todo = %+v, want done with done_at", toggled)
	}
	f.do(http.MethodPost, fmt.Sprintf("/api/todos/%d/toggle", past.ID), token, nil, http.StatusBadRequest, nil)

	var listed []models.Todo
	f.do(http.MethodGet, "/api/todos?start_date="+today+"&end_date="+today, token, nil, http.StatusOK, &listed)
	if len(listed) != 1 || listed[0].ID != current.ID {
		t.Errorf("todos for today = %+v, want only %d", listed, current.ID)
	}

	// to-dos are private
	_, otherToken := f.user("mallory", models.RoleMember)
	f.do(http.MethodDelete, fmt.Sprintf("/api/todos/%d", current.ID), otherToken, nil, http.StatusForbidden, nil)
}

func TestWorkLogLinksSubtask(t *testing.T) {
	f := newAPI(t)
	_, ownerToken := f.user("owner", models.RoleMember)
	member, memberToken := f.user("member", models.RoleMember)
	project := f.project(ownerToken, "Logs")

	var task models.Task
	f.do(http.MethodPost, "/api/tasks", ownerToken, map[string]any{
		"project_id":   project.ID,
		"title":        "Ship",
		"assignee_ids": []int64{member.ID},
	}, http.StatusCreated, &task)
	var subtask models.SubTask
	f.do(http.MethodPost, "/api/subtasks", ownerToken, map[string]any{
		"task_id": task.ID,
		"title":   "Build",
	}, http.StatusCreated, &subtask)

	var wl models.WorkLog
	f.do(http.MethodPost, "/api/work-logs", memberToken, map[string]any{
		"title":      "Built it",
		"content":    "Took a while",
		"project_id": project.ID,
		"task_id":    task.ID,
		"subtask_id": subtask.ID,
	}, http.StatusCreated, &wl)

	var subtasks []models.SubTask
	f.do(http.MethodGet, fmt.Sprintf("/api/subtasks/task/%d", task.ID), memberToken, nil, http.StatusOK, &subtasks)
	if len(subtasks) != 1 || subtasks[0].WorkLogID == nil || *subtasks[0].WorkLogID != wl.ID {
		t.Fatalf("subtasks = %+v, want work log %d linked", subtasks, wl.ID)
	}

	// work logs are private to their owner
	f.do(http.MethodGet, fmt.Sprintf("/api/work-logs/%d", wl.ID), ownerToken, nil, http.StatusForbidden, nil)

	f.do(http.MethodDelete, fmt.Sprintf("/api/work-logs/%d", wl.ID), memberToken, nil, http.StatusOK, nil)
	f.do(http.MethodGet, fmt.Sprintf("/api/subtasks/task/%d", task.ID), memberToken, nil, http.StatusOK, &subtasks)
	if subtasks[0].WorkLogID != nil {
		t.Errorf("subtask still linked to deleted work log %d", *subtasks[0].WorkLogID)
	}
}

func TestCheckDeadlinesRequiresAdmin(t *testing.T) {
	f := newAPI(t)
	_, memberToken := f.user("member", models.RoleMember)
	_, adminToken := f.user("root", models.RoleAdmin)

	f.do(http.MethodPost, "/api/notifications/check-deadlines", memberToken, nil, http.StatusForbidden, nil)

	var res checkDeadlinesBody
	f.do(http.MethodPost, "/api/notifications/check-deadlines", adminToken, nil, http.StatusOK, &res)
	if res.NotificationsCreated != 0 {
		t.Errorf("notifications created = %d on an empty board", res.NotificationsCreated)
	}
}

type checkDeadlinesBody struct {
	Message              string `json:"message"`
	NotificationsCreated int    `json:"notifications_created"`
}
