package mention

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
)

type fixture struct {
	db      *db.DB
	project *models.Project
	users   map[string]*models.User
}

func setup(t *testing.T) *fixture {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "mention.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	ctx := context.Background()
	f := &fixture{db: database, users: map[string]*models.User{}}
	for _, u := range []models.User{
		{Username: "alice", Email: "alice@example.com", FullName: "Alice", IsActive: true},
		{Username: "L2006", Email: "l2006@example.com", FullName: "Linh", IsActive: true},
		{Username: "me", Email: "me@example.com", IsActive: true},
		{Username: "ghost", Email: "ghost@example.com", IsActive: false},
	} {
		u.HashedPassword = "x"
		created, err := database.CreateUser(ctx, &u)
		if err != nil {
			t.Fatalf("failed to create user %s: %v", u.Username, err)
		}
		f.users[u.Username] = created
	}

	f.project, err = database.CreateProject(ctx, &models.Project{Name: "Apollo", OwnerID: f.users["alice"].ID})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	return f
}

// post writes a thread message the way the HTTP layer does: resolve, insert, notify, all in one tx
func (f *fixture) post(t *testing.T, n *Notifier, author *models.User, content string) (*models.Thread, []int64) {
	t.Helper()
	ctx := context.Background()

	var thread *models.Thread
	var notified []int64
	err := f.db.WithTx(ctx, func(tx *db.Tx) error {
		ids, err := n.Resolve(ctx, tx, content)
		if err != nil {
			return err
		}
		thread, err = tx.CreateThread(ctx, &models.Thread{
			ProjectID: f.project.ID,
			UserID:    author.ID,
			Content:   content,
			Mentions:  ids,
		})
		if err != nil {
			return err
		}
		notified = n.Notify(ctx, tx, Event{
			Actor:       author,
			ProjectID:   f.project.ID,
			ProjectName: f.project.Name,
			ThreadID:    thread.ID,
			Current:     ids,
		})
		return nil
	})
	if err != nil {
		t.Fatalf("failed to post thread: %v", err)
	}
	return thread, notified
}

func (f *fixture) mentionCount(t *testing.T, user *models.User) int {
	t.Helper()
	list, err := f.db.ListNotifications(context.Background(), user.ID, false, 100, 0)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	count := 0
	for _, n := range list {
		if n.Type == models.NotificationMentioned {
			count++
		}
	}
	return count
}

func TestNotifierCreatesOneNotificationPerMention(t *testing.T) {
	f := setup(t)
	logger, _ := test.NewNullLogger()
	n := NewNotifier(logger)

	thread, notified := f.post(t, n, f.users["alice"], "Hello @L2006 how are you? @l2006 @Linh")

	want := []int64{f.users["L2006"].ID}
	if !reflect.DeepEqual([]int64(thread.Mentions), want) {
		t.Errorf("stored mentions = %v, want %v", thread.Mentions, want)
	}
	if !reflect.DeepEqual(notified, want) {
		t.Errorf("notified = %v, want %v", notified, want)
	}
	if got := f.mentionCount(t, f.users["L2006"]); got != 1 {
		t.Errorf("L2006 has %d mention notifications, want 1", got)
	}
}

func TestNotifierSkipsSelfMention(t *testing.T) {
	f := setup(t)
	logger, _ := test.NewNullLogger()
	n := NewNotifier(logger)

	thread, notified := f.post(t, n, f.users["me"], "@me")

	if !Mentions(thread.Mentions).Contains(f.users["me"].ID) {
		t.Errorf("self mention should still be stored, got %v", thread.Mentions)
	}
	if len(notified) != 0 {
		t.Errorf("notified = %v, want none", notified)
	}
	if got := f.mentionCount(t, f.users["me"]); got != 0 {
		t.Errorf("self mention produced %d notifications", got)
	}
}

func TestNotifierNoMentionsStoresNull(t *testing.T) {
	f := setup(t)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	n := NewNotifier(logger)

	thread, notified := f.post(t, n, f.users["alice"], "@nobody @ghost")

	if thread.Mentions != nil {
		t.Errorf("mentions = %v, want nil", thread.Mentions)
	}
	if len(notified) != 0 {
		t.Errorf("notified = %v, want none", notified)
	}

	var raw any
	err := f.db.QueryRow("SELECT mentions FROM threads WHERE id = ?", thread.ID).Scan(&raw)
	if err != nil {
		t.Fatalf("failed to read mentions column: %v", err)
	}
	if raw != nil {
		t.Errorf("mentions column = %v, want NULL", raw)
	}

	debug := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.DebugLevel {
			debug++
		}
	}
	if debug != 2 {
		t.Errorf("got %d debug entries for unmatched tokens, want 2", debug)
	}
}

func TestNotifierEditOnlyNotifiesNewMentions(t *testing.T) {
	f := setup(t)
	logger, _ := test.NewNullLogger()
	n := NewNotifier(logger)
	ctx := context.Background()
	alice, linh, me := f.users["alice"], f.users["L2006"], f.users["me"]

	thread, _ := f.post(t, n, alice, "ping @L2006")

	edit := func(content string) []int64 {
		var notified []int64
		err := f.db.WithTx(ctx, func(tx *db.Tx) error {
			current, err := tx.GetThread(ctx, thread.ID)
			if err != nil {
				return err
			}
			ids, err := n.Resolve(ctx, tx, content)
			if err != nil {
				return err
			}
			if err := tx.UpdateThreadContent(ctx, thread.ID, content, ids); err != nil {
				return err
			}
			notified = n.Notify(ctx, tx, Event{
				Actor:       alice,
				ProjectID:   f.project.ID,
				ProjectName: f.project.Name,
				ThreadID:    thread.ID,
				Previous:    current.Mentions,
				Current:     ids,
			})
			return nil
		})
		if err != nil {
			t.Fatalf("failed to edit thread: %v", err)
		}
		return notified
	}

	if got := edit("ping @L2006 and @me"); !reflect.DeepEqual(got, []int64{me.ID}) {
		t.Errorf("first edit notified %v, want [%d]", got, me.ID)
	}
	if got := edit("ping @me"); len(got) != 0 {
		t.Errorf("removing a mention notified %v", got)
	}
	if got := f.mentionCount(t, linh); got != 1 {
		t.Errorf("L2006 has %d notifications, want 1", got)
	}
	if got := f.mentionCount(t, me); got != 1 {
		t.Errorf("me has %d notifications, want 1", got)
	}
}

func TestNotifierFailureKeepsMessage(t *testing.T) {
	f := setup(t)
	logger, hook := test.NewNullLogger()
	n := NewNotifier(logger)
	ctx := context.Background()
	alice, linh := f.users["alice"], f.users["L2006"]

	const missingUser = int64(9999)
	var threadID int64
	var notified []int64
	err := f.db.WithTx(ctx, func(tx *db.Tx) error {
		thread, err := tx.CreateThread(ctx, &models.Thread{
			ProjectID: f.project.ID,
			UserID:    alice.ID,
			Content:   "@L2006",
			Mentions:  Mentions{missingUser, linh.ID},
		})
		if err != nil {
			return err
		}
		threadID = thread.ID
		notified = n.Notify(ctx, tx, Event{
			Actor:     alice,
			ProjectID: f.project.ID,
			ThreadID:  thread.ID,
			Current:   Mentions{missingUser, linh.ID},
		})
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	if !reflect.DeepEqual(notified, []int64{linh.ID}) {
		t.Errorf("notified = %v, want [%d]", notified, linh.ID)
	}
	if _, err := f.db.GetThread(ctx, threadID); err != nil {
		t.Errorf("thread should survive a notification failure: %v", err)
	}
	if got := f.mentionCount(t, linh); got != 1 {
		t.Errorf("L2006 has %d notifications, want 1", got)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel {
		t.Fatalf("expected an error log entry, got %v", entry)
	}
	if entry.Data["recipient_id"] != missingUser {
		t.Errorf("logged recipient = %v, want %d", entry.Data["recipient_id"], missingUser)
	}
}

func TestNotifierCommentPointsAtTask(t *testing.T) {
	f := setup(t)
	logger, _ := test.NewNullLogger()
	n := NewNotifier(logger)
	ctx := context.Background()

	task, err := f.db.CreateTask(ctx, &models.Task{ProjectID: f.project.ID, Title: "Launch", Status: models.StatusTodo})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	err = f.db.WithTx(ctx, func(tx *db.Tx) error {
		ids, err := n.Resolve(ctx, tx, "@L2006 please review")
		if err != nil {
			return err
		}
		if _, err := tx.CreateComment(ctx, &models.Comment{TaskID: task.ID, UserID: f.users["alice"].ID, Content: "@L2006 please review", Mentions: ids}); err != nil {
			return err
		}
		n.Notify(ctx, tx, Event{
			Actor:       f.users["alice"],
			ProjectID:   f.project.ID,
			ProjectName: f.project.Name,
			TaskID:      task.ID,
			TaskTitle:   task.Title,
			Current:     ids,
		})
		return nil
	})
	if err != nil {
		t.Fatalf("failed to post comment: %v", err)
	}

	list, err := f.db.ListNotifications(ctx, f.users["L2006"].ID, false, 100, 0)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d notifications, want 1", len(list))
	}
	got := list[0]
	if got.TaskID == nil || *got.TaskID != task.ID {
		t.Errorf("task id = %v, want %d", got.TaskID, task.ID)
	}
	if got.ThreadID != nil {
		t.Errorf("thread id = %d, want nil", *got.ThreadID)
	}
	if got.Title != "You were mentioned in a comment" {
		t.Errorf("title = %q", got.Title)
	}
	if want := "Alice mentioned you in a comment on task 'Launch' in project 'Apollo'"; got.Message != want {
		t.Errorf("message = %q, want %q", got.Message, want)
	}
}
