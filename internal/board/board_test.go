package board

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
)

type fixture struct {
	db      *db.DB
	board   *Board
	owner   *models.User
	project *models.Project
}

func setup(t *testing.T) *fixture {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	ctx := context.Background()
	owner, err := database.CreateUser(ctx, &models.User{
		Username: "owner", Email: "owner@example.com", HashedPassword: "x", IsActive: true,
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	project, err := database.CreateProject(ctx, &models.Project{Name: "Board", OwnerID: owner.ID})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	logger, _ := test.NewNullLogger()
	return &fixture{db: database, board: New(database, logger), owner: owner, project: project}
}

// add appends a task at the tail of a column
func (f *fixture) add(t *testing.T, title string, status models.TaskStatus) *models.Task {
	t.Helper()
	ctx := context.Background()

	var task *models.Task
	err := f.db.WithTx(ctx, func(tx *db.Tx) error {
		pos, err := Append(ctx, tx, f.project.ID, status)
		if err != nil {
			return err
		}
		task, err = tx.CreateTask(ctx, &models.Task{
			ProjectID: f.project.ID,
			Title:     title,
			Status:    status,
			Position:  pos,
		})
		return err
	})
	if err != nil {
		t.Fatalf("failed to add task %s: %v", title, err)
	}
	return task
}

// column returns the titles of a column in position order
func (f *fixture) column(t *testing.T, status models.TaskStatus) []string {
	t.Helper()
	tasks, err := f.db.ListBucket(context.Background(), f.project.ID, status)
	if err != nil {
		t.Fatalf("failed to list column: %v", err)
	}
	titles := make([]string, 0, len(tasks))
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	return titles
}

func (f *fixture) verify(t *testing.T) {
	t.Helper()
	if err := f.board.Verify(context.Background(), f.project.ID); err != nil {
		t.Fatalf("board not dense: %v", err)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAppendAssignsTailPositions(t *testing.T) {
	f := setup(t)
	for i, title := range []string{"T1", "T2", "T3"} {
		task := f.add(t, title, models.StatusTodo)
		if task.Position != i {
			t.Errorf("%s position = %d, want %d", title, task.Position, i)
		}
	}
	if done := f.add(t, "D1", models.StatusDone); done.Position != 0 {
		t.Errorf("first task of an empty column got position %d", done.Position)
	}
	f.verify(t)
}

func TestMoveWithinColumn(t *testing.T) {
	tests := []struct {
		name   string
		task   int
		target int
		want   []string
	}{
		{"last to first", 2, 0, []string{"T3", "T1", "T2"}},
		{"first to last", 0, 2, []string{"T2", "T3", "T1"}},
		{"forward by one", 0, 1, []string{"T2", "T1", "T3"}},
		{"backward by one", 2, 1, []string{"T1", "T3", "T2"}},
		{"in place", 1, 1, []string{"T1", "T2", "T3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			tasks := []*models.Task{
				f.add(t, "T1", models.StatusTodo),
				f.add(t, "T2", models.StatusTodo),
				f.add(t, "T3", models.StatusTodo),
			}

			result, err := f.board.Move(context.Background(), tasks[tt.task].ID, models.StatusTodo, tt.target, f.owner)
			if err != nil {
				t.Fatalf("Move() error = %v", err)
			}
			if result.Activity != nil {
				t.Errorf("reorder recorded activity %q", result.Activity.ActivityType)
			}
			if result.Task.Position != tt.target {
				t.Errorf("task position = %d, want %d", result.Task.Position, tt.target)
			}
			if got := f.column(t, models.StatusTodo); !equal(got, tt.want) {
				t.Errorf("column = %v, want %v", got, tt.want)
			}
			f.verify(t)
		})
	}
}

func TestMoveAcrossColumns(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	t1 := f.add(t, "T1", models.StatusTodo)
	f.add(t, "T2", models.StatusTodo)
	f.add(t, "T3", models.StatusTodo)
	f.add(t, "D1", models.StatusDone)
	f.add(t, "D2", models.StatusDone)

	result, err := f.board.Move(ctx, t1.ID, models.StatusDone, 1, f.owner)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}

	if got := f.column(t, models.StatusTodo); !equal(got, []string{"T2", "T3"}) {
		t.Errorf("source column = %v", got)
	}
	if got := f.column(t, models.StatusDone); !equal(got, []string{"D1", "T1", "D2"}) {
		t.Errorf("destination column = %v", got)
	}
	if result.FromStatus != models.StatusTodo || result.FromPosition != 0 {
		t.Errorf("from = %s:%d, want todo:0", result.FromStatus, result.FromPosition)
	}
	if !result.StatusChanged() {
		t.Error("StatusChanged() = false, want true")
	}
	if result.Activity == nil || result.Activity.ActivityType != models.ActivityTaskCompleted {
		t.Fatalf("activity = %+v, want task_completed", result.Activity)
	}
	if result.Task.ProgressPercent != 100 {
		t.Errorf("done task without subtasks progress = %v, want 100", result.Task.ProgressPercent)
	}
	f.verify(t)
}

func TestMoveToEmptyColumnTail(t *testing.T) {
	f := setup(t)
	t1 := f.add(t, "T1", models.StatusTodo)

	result, err := f.board.Move(context.Background(), t1.ID, models.StatusBlocked, 0, f.owner)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if result.Activity == nil || result.Activity.ActivityType != models.ActivityTaskStatusChanged {
		t.Fatalf("activity = %+v, want task_status_changed", result.Activity)
	}
	if result.Activity.Metadata["old_status"] != "todo" || result.Activity.Metadata["new_status"] != "blocked" {
		t.Errorf("metadata = %v", result.Activity.Metadata)
	}
	f.verify(t)
}

func TestMoveRecordsOneActivityPerStatusChange(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	task := f.add(t, "T1", models.StatusTodo)
	f.add(t, "T2", models.StatusTodo)

	steps := []struct {
		status models.TaskStatus
		pos    int
	}{
		{models.StatusTodo, 1},       // reorder
		{models.StatusInProgress, 0}, // change
		{models.StatusInProgress, 0}, // no-op
		{models.StatusDone, 0},       // complete
	}
	for _, s := range steps {
		if _, err := f.board.Move(ctx, task.ID, s.status, s.pos, f.owner); err != nil {
			t.Fatalf("Move(%s, %d) error = %v", s.status, s.pos, err)
		}
	}

	activities, err := f.db.ListActivities(ctx, f.project.ID, 50)
	if err != nil {
		t.Fatalf("failed to list activities: %v", err)
	}
	if len(activities) != 2 {
		t.Fatalf("got %d activities, want 2", len(activities))
	}
	if activities[0].ActivityType != models.ActivityTaskCompleted {
		t.Errorf("newest activity = %s, want task_completed", activities[0].ActivityType)
	}
	if activities[1].ActivityType != models.ActivityTaskStatusChanged {
		t.Errorf("oldest activity = %s, want task_status_changed", activities[1].ActivityType)
	}
}

func TestMoveRejectsInvalidTargets(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	t1 := f.add(t, "T1", models.StatusTodo)
	f.add(t, "T2", models.StatusTodo)
	f.add(t, "D1", models.StatusDone)

	tests := []struct {
		name    string
		status  models.TaskStatus
		pos     int
		wantErr error
	}{
		{"negative", models.StatusTodo, -1, ErrInvalidPosition},
		{"past end of own column", models.StatusTodo, 2, ErrInvalidPosition},
		{"past tail of other column", models.StatusDone, 2, ErrInvalidPosition},
		{"unknown status", models.TaskStatus("archived"), 0, ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.board.Move(ctx, t1.ID, tt.status, tt.pos, f.owner)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Move() error = %v, want %v", err, tt.wantErr)
			}
			if got := f.column(t, models.StatusTodo); !equal(got, []string{"T1", "T2"}) {
				t.Errorf("rejected move changed the column: %v", got)
			}
			f.verify(t)
		})
	}

	if _, err := f.board.Move(ctx, 4242, models.StatusTodo, 0, f.owner); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("missing task error = %v, want ErrNotFound", err)
	}

	activities, err := f.db.ListActivities(ctx, f.project.ID, 50)
	if err != nil {
		t.Fatalf("failed to list activities: %v", err)
	}
	if len(activities) != 0 {
		t.Errorf("rejected moves recorded %d activities", len(activities))
	}
}

func TestRemoveClosesGap(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.add(t, "T1", models.StatusTodo)
	t2 := f.add(t, "T2", models.StatusTodo)
	f.add(t, "T3", models.StatusTodo)

	err := f.db.WithTx(ctx, func(tx *db.Tx) error {
		if err := tx.DeleteTask(ctx, t2.ID); err != nil {
			return err
		}
		return Remove(ctx, tx, t2)
	})
	if err != nil {
		t.Fatalf("failed to delete task: %v", err)
	}

	if got := f.column(t, models.StatusTodo); !equal(got, []string{"T1", "T3"}) {
		t.Errorf("column = %v", got)
	}
	f.verify(t)
}

func TestRandomMovesKeepColumnsDense(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	var ids []int64
	for i := 0; i < 8; i++ {
		status := models.Statuses[i%len(models.Statuses)]
		ids = append(ids, f.add(t, fmt.Sprintf("T%d", i), status).ID)
	}

	for i := 0; i < 60; i++ {
		id := ids[rng.Intn(len(ids))]
		task, err := f.db.GetTask(ctx, id)
		if err != nil {
			t.Fatalf("failed to get task: %v", err)
		}
		target := models.Statuses[rng.Intn(len(models.Statuses))]
		count, err := f.db.CountBucket(ctx, f.project.ID, target)
		if err != nil {
			t.Fatalf("failed to count column: %v", err)
		}
		limit := count + 1
		if target == task.Status {
			limit = count
		}

		if _, err := f.board.Move(ctx, id, target, rng.Intn(limit), f.owner); err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
		f.verify(t)
	}
}

func TestConcurrentMovesSerialize(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 6; i++ {
		ids = append(ids, f.add(t, fmt.Sprintf("T%d", i), models.StatusTodo).ID)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(id int64, target int) {
			defer wg.Done()
			_, err := f.board.Move(ctx, id, models.StatusTodo, target, f.owner)
			errs <- err
		}(id, len(ids)-1-i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent move failed: %v", err)
		}
	}
	f.verify(t)
}

func TestMoveGuardSeesStoredTask(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	first := f.add(t, "T1", models.StatusTodo)
	f.add(t, "T2", models.StatusTodo)

	if _, err := f.board.Move(ctx, first.ID, models.StatusBlocked, 0, f.owner); err != nil {
		t.Fatalf("failed to move: %v", err)
	}

	denied := errors.New("denied")
	var seen models.TaskStatus
	_, err := f.board.Move(ctx, first.ID, models.StatusDone, 0, f.owner,
		func(task *models.Task, project *models.Project) error {
			seen = task.Status
			if project.ID != f.project.ID {
				t.Errorf("guard got project %d, want %d", project.ID, f.project.ID)
			}
			return denied
		})
	if !errors.Is(err, denied) {
		t.Fatalf("err = %v, want the guard's error", err)
	}
	if seen != models.StatusBlocked {
		t.Errorf("guard saw status %s, want blocked", seen)
	}
	if got := f.column(t, models.StatusBlocked); !equal(got, []string{"T1"}) {
		t.Errorf("blocked = %v, want [T1]", got)
	}
	if got := f.column(t, models.StatusDone); len(got) != 0 {
		t.Errorf("done = %v, want empty", got)
	}
	f.verify(t)
}
