package views

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/board"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
)

func TestMoveTarget(t *testing.T) {
	columns := [][]models.Task{
		{{ID: 1, Position: 0}, {ID: 2, Position: 1}},
		{{ID: 3, Position: 0}},
		{},
		{},
	}

	tests := []struct {
		name         string
		col, row     int
		dc, dr       int
		wantStatus   models.TaskStatus
		wantPosition int
		wantOK       bool
	}{
		{"right appends to tail", 0, 0, 1, 0, models.StatusInProgress, 1, true},
		{"right into empty column", 1, 0, 1, 0, models.StatusBlocked, 0, true},
		{"left from first column", 0, 0, -1, 0, "", 0, false},
		{"down swaps with next", 0, 0, 0, 1, models.StatusTodo, 1, true},
		{"up swaps with previous", 0, 1, 0, -1, models.StatusTodo, 0, true},
		{"down from last card", 0, 1, 0, 1, "", 0, false},
		{"empty column has no card", 2, 0, 1, 0, "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, position, ok := moveTarget(columns, tt.col, tt.row, tt.dc, tt.dr)
			if ok != tt.wantOK || status != tt.wantStatus || position != tt.wantPosition {
				t.Errorf("moveTarget = (%q, %d, %v), want (%q, %d, %v)",
					status, position, ok, tt.wantStatus, tt.wantPosition, tt.wantOK)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"too long title", 6, "too l…"},
		{"ünïcödé", 4, "ünï…"},
		{"x", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

type boardFixture struct {
	db      *db.DB
	owner   *models.User
	member  *models.User
	project *models.Project
	view    *BoardView
}

func newBoardFixture(t *testing.T, actorIsOwner bool) *boardFixture {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "tui.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	ctx := context.Background()
	owner, err := database.CreateUser(ctx, &models.User{Username: "owner", Email: "o@example.com", HashedPassword: "x", IsActive: true})
	if err != nil {
		t.Fatalf("failed to create owner: %v", err)
	}
	member, err := database.CreateUser(ctx, &models.User{Username: "member", Email: "m@example.com", HashedPassword: "x", IsActive: true})
	if err != nil {
		t.Fatalf("failed to create member: %v", err)
	}
	project, err := database.CreateProject(ctx, &models.Project{Name: "TUI", OwnerID: owner.ID})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	err = database.WithTx(ctx, func(tx *db.Tx) error {
		for _, title := range []string{"first", "second"} {
			pos, err := board.Append(ctx, tx, project.ID, models.StatusInProgress)
			if err != nil {
				return err
			}
			task, err := tx.CreateTask(ctx, &models.Task{ProjectID: project.ID, Title: title, Status: models.StatusInProgress, Position: pos})
			if err != nil {
				return err
			}
			if err := tx.SetTaskAssignees(ctx, task.ID, []int64{member.ID}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to add tasks: %v", err)
	}

	actor := member
	if actorIsOwner {
		actor = owner
	}
	logger, _ := test.NewNullLogger()
	view := NewBoardView(database, board.New(database, logger), actor, *project)
	view.Update(view.Init()())
	// cursor starts on the in-progress column
	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})

	return &boardFixture{db: database, owner: owner, member: member, project: project, view: view}
}

// press sends a key and runs the command chain it starts
func (f *boardFixture) press(t *testing.T, r rune) tea.Msg {
	t.Helper()
	_, cmd := f.view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	if cmd == nil {
		return nil
	}
	msg := cmd()
	_, reload := f.view.Update(msg)
	if reload != nil {
		f.view.Update(reload())
	}
	return msg
}

func (f *boardFixture) titles(status models.TaskStatus) []string {
	tasks, _ := f.db.ListBucket(context.Background(), f.project.ID, status)
	titles := make([]string, len(tasks))
	for i, task := range tasks {
		titles[i] = task.Title
	}
	return titles
}

func TestBoardViewReordersWithinColumn(t *testing.T) {
	f := newBoardFixture(t, false)

	msg := f.press(t, 'J')
	if moved, ok := msg.(taskMovedMsg); !ok || moved.err != nil {
		t.Fatalf("move = %+v, want success", msg)
	}
	got := f.titles(models.StatusInProgress)
	if len(got) != 2 || got[0] != "second" || got[1] != "first" {
		t.Errorf("in progress = %v, want [second first]", got)
	}
	// the cursor follows the moved card
	if task, ok := f.view.selected(); !ok || task.Title != "first" {
		t.Errorf("selected = %q, want first", task.Title)
	}
}

func TestBoardViewMovesAcrossColumns(t *testing.T) {
	f := newBoardFixture(t, false)

	f.press(t, 'L')
	if got := f.titles(models.StatusBlocked); len(got) != 1 || got[0] != "first" {
		t.Errorf("blocked = %v, want [first]", got)
	}
	if f.view.col != 2 {
		t.Errorf("cursor column = %d, want 2", f.view.col)
	}
	if f.view.messageErr {
		t.Errorf("unexpected error message %q", f.view.message)
	}
}

func TestBoardViewDoneNeedsOwner(t *testing.T) {
	f := newBoardFixture(t, false)

	// blocked, then done
	f.press(t, 'L')
	msg := f.press(t, 'L')
	moved, ok := msg.(taskMovedMsg)
	if !ok || !errors.Is(moved.err, auth.ErrForbidden) {
		t.Fatalf("move into done = %+v, want forbidden", msg)
	}
	if !f.view.messageErr {
		t.Error("expected the refusal to be shown")
	}
	if got := f.titles(models.StatusDone); len(got) != 0 {
		t.Errorf("done = %v, want empty", got)
	}

	owner := newBoardFixture(t, true)
	owner.press(t, 'L')
	owner.press(t, 'L')
	if got := owner.titles(models.StatusDone); len(got) != 1 {
		t.Errorf("owner move: done = %v, want one card", got)
	}
}

func TestBoardViewLoadsAssignees(t *testing.T) {
	f := newBoardFixture(t, false)
	f.view.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	task, ok := f.view.selected()
	if !ok {
		t.Fatal("no card selected")
	}
	if !task.HasAssignee(f.member.ID) {
		t.Fatalf("selected card assignees = %+v, want member", task.Assignees)
	}

	f.view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(f.view.View(), "member") {
		t.Error("task detail does not list the assignee")
	}
}

func TestBoardViewChecksStoredAssignees(t *testing.T) {
	f := newBoardFixture(t, false)

	task, _ := f.view.selected()
	if err := f.db.SetTaskAssignees(context.Background(), task.ID, nil); err != nil {
		t.Fatalf("failed to unassign: %v", err)
	}

	msg := f.press(t, 'J')
	moved, ok := msg.(taskMovedMsg)
	if !ok || !errors.Is(moved.err, auth.ErrForbidden) {
		t.Fatalf("move after unassignment = %+v, want forbidden", msg)
	}
	if got := f.titles(models.StatusInProgress); len(got) != 2 || got[0] != "first" {
		t.Errorf("in progress = %v, want [first second]", got)
	}
}
