package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/board"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/ui/keys"
	"github.com/tgienger/teamboard/internal/ui/styles"
)

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// truncate shortens s to width runes, marking the cut with an ellipsis
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 {
		return ""
	}
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

// BackToProjects signals to go back to the project list
type BackToProjects struct{}

// BoardView shows a project's tasks in one column per status and moves cards
// between and within columns
type BoardView struct {
	db      *db.DB
	board   *board.Board
	user    *models.User
	project models.Project
	styles  *styles.Styles
	keys    keys.KeyMap

	width  int
	height int

	// columns[i] holds the tasks of models.Statuses[i] in position order
	columns [][]models.Task
	loaded  bool
	col     int
	row     int

	// follow is the task the cursor jumps to after the next reload
	follow int64

	message    string
	messageErr bool

	viewingTask   bool
	showHelpPopup bool
}

// NewBoardView creates the board of project, acting as user for every move
func NewBoardView(database *db.DB, b *board.Board, user *models.User, project models.Project) *BoardView {
	return &BoardView{
		db:      database,
		board:   b,
		user:    user,
		project: project,
		styles:  styles.NewStyles(),
		keys:    keys.DefaultKeyMap(),
		columns: make([][]models.Task, len(models.Statuses)),
	}
}

type boardLoadedMsg struct {
	columns [][]models.Task
	err     error
}

type taskMovedMsg struct {
	result *board.MoveResult
	err    error
}

// Init initializes the view
func (v *BoardView) Init() tea.Cmd {
	return v.loadBoard
}

func (v *BoardView) loadBoard() tea.Msg {
	ctx := context.Background()
	columns := make([][]models.Task, len(models.Statuses))
	for i, status := range models.Statuses {
		tasks, err := v.db.ListTasks(ctx, db.TaskFilter{ProjectID: v.project.ID, Status: status})
		if err != nil {
			return boardLoadedMsg{err: err}
		}
		columns[i] = tasks
	}
	return boardLoadedMsg{columns: columns}
}

// Update handles messages
func (v *BoardView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case boardLoadedMsg:
		if msg.err != nil {
			v.setError(fmt.Sprintf("Could not load the board: %v", msg.err))
			return v, nil
		}
		v.columns = msg.columns
		v.loaded = true
		v.placeCursor()
		return v, nil

	case taskMovedMsg:
		if msg.err != nil {
			v.setError(msg.err.Error())
			// the board may have changed under us
			return v, v.loadBoard
		}
		v.follow = msg.result.Task.ID
		if msg.result.StatusChanged() {
			v.setInfo(fmt.Sprintf("Moved %q to %s", msg.result.Task.Title, msg.result.Task.Status.Label()))
		} else {
			v.setInfo(fmt.Sprintf("Moved %q to position %d", msg.result.Task.Title, msg.result.Task.Position+1))
		}
		return v, v.loadBoard

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}
		if v.viewingTask {
			if msg.String() == "ctrl+c" {
				return v, tea.Quit
			}
			v.viewingTask = false
			return v, nil
		}
		return v.updateNormal(msg)
	}

	return v, nil
}

func (v *BoardView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit
	case key.Matches(msg, v.keys.Back):
		return v, func() tea.Msg { return BackToProjects{} }
	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
	case key.Matches(msg, v.keys.Refresh):
		v.message = ""
		return v, v.loadBoard
	case key.Matches(msg, v.keys.Enter):
		if _, ok := v.selected(); ok {
			v.viewingTask = true
		}

	case key.Matches(msg, v.keys.MoveLeft):
		return v, v.moveSelected(-1, 0)
	case key.Matches(msg, v.keys.MoveRight):
		return v, v.moveSelected(1, 0)
	case key.Matches(msg, v.keys.MoveUp):
		return v, v.moveSelected(0, -1)
	case key.Matches(msg, v.keys.MoveDown):
		return v, v.moveSelected(0, 1)

	case key.Matches(msg, v.keys.Left):
		v.focusColumn(v.col - 1)
	case key.Matches(msg, v.keys.Right):
		v.focusColumn(v.col + 1)
	case key.Matches(msg, v.keys.Up):
		if v.row > 0 {
			v.row--
		}
	case key.Matches(msg, v.keys.Down):
		if v.row < len(v.columns[v.col])-1 {
			v.row++
		}
	}
	return v, nil
}

func (v *BoardView) focusColumn(col int) {
	v.col = clamp(col, 0, len(v.columns)-1)
	v.row = clamp(v.row, 0, max(len(v.columns[v.col])-1, 0))
}

// placeCursor keeps the cursor inside the board, following a moved task
func (v *BoardView) placeCursor() {
	if v.follow != 0 {
		for c, tasks := range v.columns {
			for r, t := range tasks {
				if t.ID == v.follow {
					v.col, v.row = c, r
				}
			}
		}
		v.follow = 0
	}
	v.focusColumn(v.col)
}

func (v *BoardView) selected() (models.Task, bool) {
	tasks := v.columns[v.col]
	if v.row < 0 || v.row >= len(tasks) {
		return models.Task{}, false
	}
	return tasks[v.row], true
}

// moveTarget computes where the card under the cursor lands when pushed by
// (dc, dr). A column change appends to the tail of the neighbouring column,
// a row change swaps with the neighbouring card.
func moveTarget(columns [][]models.Task, col, row, dc, dr int) (models.TaskStatus, int, bool) {
	if col < 0 || col >= len(columns) || row < 0 || row >= len(columns[col]) {
		return "", 0, false
	}
	if dc != 0 {
		next := col + dc
		if next < 0 || next >= len(columns) {
			return "", 0, false
		}
		return models.Statuses[next], len(columns[next]), true
	}
	next := row + dr
	if dr == 0 || next < 0 || next >= len(columns[col]) {
		return "", 0, false
	}
	return models.Statuses[col], columns[col][next].Position, true
}

func (v *BoardView) moveSelected(dc, dr int) tea.Cmd {
	task, ok := v.selected()
	if !ok {
		return nil
	}
	status, position, ok := moveTarget(v.columns, v.col, v.row, dc, dr)
	if !ok {
		return nil
	}

	user := v.user
	return func() tea.Msg {
		// permissions are checked against the task as stored, not the loaded card
		result, err := v.board.Move(context.Background(), task.ID, status, position, user,
			func(current *models.Task, project *models.Project) error {
				return auth.CheckMove(user, project, current, status)
			})
		return taskMovedMsg{result: result, err: err}
	}
}

func (v *BoardView) setInfo(msg string) {
	v.message, v.messageErr = msg, false
}

func (v *BoardView) setError(msg string) {
	v.message, v.messageErr = msg, true
}

// View renders the view
func (v *BoardView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}
	if v.viewingTask {
		return v.renderTaskView()
	}

	s := v.styles
	var b strings.Builder
	b.WriteString(s.Title.Render(v.project.Name))
	b.WriteString(s.TitleMuted.Render("  as " + v.user.DisplayName()))
	b.WriteString("\n\n")

	if !v.loaded && v.message == "" {
		b.WriteString(s.TitleMuted.Render("Loading..."))
	} else {
		b.WriteString(v.renderColumns())
	}
	b.WriteString("\n")
	b.WriteString(v.renderStatus())
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *BoardView) renderColumns() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	// border and padding take four cells per column
	columnWidth := max(contentWidth/len(models.Statuses)-4, 12)
	visible := max(v.height-10, 3)

	rendered := make([]string, len(models.Statuses))
	for i, status := range models.Statuses {
		tasks := v.columns[i]
		header := s.ColumnHeader.Foreground(styles.StatusColor(status)).
			Render(fmt.Sprintf("%s (%d)", status.Label(), len(tasks)))

		offset := 0
		if i == v.col && v.row >= visible {
			offset = v.row - visible + 1
		}
		lines := []string{header}
		for r := offset; r < len(tasks) && r < offset+visible; r++ {
			lines = append(lines, v.renderCard(tasks[r], columnWidth, i == v.col && r == v.row))
		}
		if len(tasks) == 0 {
			lines = append(lines, s.TitleMuted.Render("empty"))
		}

		style := s.Column
		if i == v.col {
			style = s.ColumnFocused
		}
		rendered[i] = style.Width(columnWidth).Height(visible + 2).
			Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (v *BoardView) renderCard(task models.Task, width int, selected bool) string {
	marker := lipgloss.NewStyle().Foreground(styles.PriorityColor(task.Priority)).Render("●")
	title := truncate(task.Title, width-2)
	style := v.styles.Card
	if selected {
		style = v.styles.CardSelected
	}
	return marker + " " + style.Render(title)
}

func (v *BoardView) renderStatus() string {
	if v.message == "" {
		return ""
	}
	if v.messageErr {
		return v.styles.StatusError.Render(v.message) + "\n"
	}
	return v.styles.StatusBar.Render(v.message) + "\n"
}

func (v *BoardView) renderHelp() string {
	s := v.styles
	if w := styles.ContentWidth(v.width); w > 0 && w < 70 {
		return s.Help.Render(s.HelpKey.Render("?") + " help")
	}
	return s.Help.Render(
		fmt.Sprintf("%s move • %s move card • %s view • %s refresh • %s back • %s quit",
			s.HelpKey.Render("hjkl"),
			s.HelpKey.Render("HJKL"),
			s.HelpKey.Render("↵"),
			s.HelpKey.Render("r"),
			s.HelpKey.Render("esc"),
			s.HelpKey.Render("q"),
		),
	)
}

func (v *BoardView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Keyboard Shortcuts"),
		"",
		s.HelpKey.Render("h/l")+"    previous / next column",
		s.HelpKey.Render("j/k")+"    next / previous card",
		s.HelpKey.Render("H/L")+"    move card to previous / next column",
		s.HelpKey.Render("J/K")+"    move card down / up",
		s.HelpKey.Render("↵")+"      view task",
		s.HelpKey.Render("r")+"      refresh",
		s.HelpKey.Render("esc")+"    back to projects",
		s.HelpKey.Render("q")+"      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Popup.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *BoardView) renderTaskView() string {
	task, ok := v.selected()
	if !ok {
		return ""
	}

	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	textWidth := clamp(contentWidth-10, 20, 70)

	due := "None"
	if task.DueDate != nil {
		due = task.DueDate.Format("2006-01-02")
	}
	assignees := "Unassigned"
	if len(task.Assignees) > 0 {
		names := make([]string, len(task.Assignees))
		for i, a := range task.Assignees {
			names[i] = a.Username
		}
		assignees = strings.Join(names, ", ")
	}
	desc := task.Description
	if desc == "" {
		desc = s.TitleMuted.Render("No description")
	}

	label := func(name string) string { return s.HelpDesc.Render(fmt.Sprintf("%-10s", name)) }
	priority := lipgloss.NewStyle().Foreground(styles.PriorityColor(task.Priority)).Render(string(task.Priority))
	status := lipgloss.NewStyle().Foreground(styles.StatusColor(task.Status)).Render(task.Status.Label())

	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Width(textWidth).Render(task.Title),
		"",
		label("Status")+status,
		label("Priority")+priority,
		label("Due")+due,
		label("Assignees")+assignees,
		label("Subtasks")+fmt.Sprintf("%d/%d (%.0f%%)", task.CompletedSubtasks, task.TotalSubtasks, task.ProgressPercent),
		"",
		lipgloss.NewStyle().Width(textWidth).Render(desc),
		"",
		s.TitleMuted.Render("Press any key to close"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Popup.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}
