// Package ui is the terminal kanban client.
package ui

import (
	"context"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tgienger/teamboard/internal/board"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/ui/views"
)

// Currently active view
type View int

const (
	ViewProjects View = iota
	ViewBoard
)

type App struct {
	db          *db.DB
	board       *board.Board
	user        *models.User
	currentView View
	projectList *views.ProjectListView
	boardView   *views.BoardView
	width       int
	height      int
}

// NewApp creates the client acting as user
func NewApp(database *db.DB, b *board.Board, user *models.User) *App {
	return &App{
		db:          database,
		board:       b,
		user:        user,
		currentView: ViewProjects,
		projectList: views.NewProjectListView(database, user),
	}
}

// lastProjectKey is the settings key remembering the user's open board
func lastProjectKey(userID int64) string {
	return fmt.Sprintf("tui.last_project.%d", userID)
}

func (a *App) Init() tea.Cmd {
	ctx := context.Background()
	lastProjectID, err := a.db.GetSetting(ctx, lastProjectKey(a.user.ID))
	if err == nil && lastProjectID != "" {
		id, err := strconv.ParseInt(lastProjectID, 10, 64)
		if err == nil {
			project, err := a.db.GetProject(ctx, id)
			if err == nil {
				return a.openProject(*project)
			}
		}
	}

	return a.projectList.Init()
}

func (a *App) openProject(project models.Project) tea.Cmd {
	a.currentView = ViewBoard
	a.boardView = views.NewBoardView(a.db, a.board, a.user, project)

	// best effort; a lost setting only means starting on the project list
	_ = a.db.SetSetting(context.Background(), lastProjectKey(a.user.ID), strconv.FormatInt(project.ID, 10))

	return tea.Batch(
		a.boardView.Init(),
		func() tea.Msg {
			return tea.WindowSizeMsg{Width: a.width, Height: a.height}
		},
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// the project list persists behind the board
		a.projectList.Update(msg)

	case views.SelectedProject:
		return a, a.openProject(msg.Project)

	case views.BackToProjects:
		a.currentView = ViewProjects
		_ = a.db.SetSetting(context.Background(), lastProjectKey(a.user.ID), "")
		return a, tea.Batch(
			a.projectList.Init(),
			func() tea.Msg {
				return tea.WindowSizeMsg{Width: a.width, Height: a.height}
			},
		)
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewProjects:
		_, cmd = a.projectList.Update(msg)
	case ViewBoard:
		_, cmd = a.boardView.Update(msg)
	}

	return a, cmd
}

func (a *App) View() string {
	if a.currentView == ViewBoard && a.boardView != nil {
		return a.boardView.View()
	}
	return a.projectList.View()
}
