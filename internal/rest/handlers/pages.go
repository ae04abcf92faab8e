package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/rest/middleware"
)

const dashboardNotifications = 10

// Page renders the server-side HTML views. Unauthenticated visitors are sent to /login.
type Page struct {
	log  *logrus.Logger
	db   *db.DB
	auth *auth.Service
}

// NewPageHandler creates a Page handler
func NewPageHandler(database *db.DB, svc *auth.Service, log *logrus.Logger) *Page {
	return &Page{
		log:  log,
		db:   database,
		auth: svc,
	}
}

// EnrichRoutes registers the HTML page routes on the root router
func (h *Page) EnrichRoutes(router *gin.Engine) {
	router.GET("/login", h.loginPage)

	pages := router.Group("", middleware.RequirePageUser(h.auth, "/login"))
	pages.GET("/", h.dashboardPage)
	pages.GET("/projects/:projectID/board", h.boardPage)
	pages.GET("/worklogs/:workLogID", h.workLogPage)
}

type boardColumn struct {
	Status models.TaskStatus
	Label  string
	Tasks  []models.Task
}

func (h *Page) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"Title": "Sign in"})
}

func (h *Page) dashboardPage(c *gin.Context) {
	const op = "handlers.Page.dashboardPage"
	log := h.log.WithField("operation", op)

	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)
	projects, err := h.db.ListProjectsForUser(ctx, user.ID)
	if err != nil {
		log.WithError(err).Errorf("%s: failed to list projects", op)
		h.errorPage(c, http.StatusInternalServerError, "Could not load your projects")
		return
	}
	notifications, err := h.db.ListNotifications(ctx, user.ID, true, dashboardNotifications, 0)
	if err != nil {
		log.WithError(err).Errorf("%s: failed to list notifications", op)
		h.errorPage(c, http.StatusInternalServerError, "Could not load your notifications")
		return
	}

	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Title":         "Dashboard",
		"User":          user,
		"Projects":      projects,
		"Notifications": notifications,
	})
}

func (h *Page) boardPage(c *gin.Context) {
	const op = "handlers.Page.boardPage"
	log := h.log.WithField("operation", op)

	projectID, verr := paramID(c, "projectID")
	if verr != nil {
		h.errorPage(c, http.StatusBadRequest, "Invalid project")
		return
	}

	ctx := c.Request.Context()
	project, err := h.db.GetProject(ctx, projectID)
	if errors.Is(err, db.ErrNotFound) {
		h.errorPage(c, http.StatusNotFound, "Project not found")
		return
	}
	if err != nil {
		log.WithError(err).Errorf("%s: failed to load project", op)
		h.errorPage(c, http.StatusInternalServerError, "Could not load the project")
		return
	}

	columns := make([]boardColumn, 0, len(models.Statuses))
	for _, status := range models.Statuses {
		tasks, err := h.db.ListTasks(ctx, db.TaskFilter{ProjectID: project.ID, Status: status})
		if err != nil {
			log.WithError(err).WithField("status", status).Errorf("%s: failed to load column", op)
			h.errorPage(c, http.StatusInternalServerError, "Could not load the board")
			return
		}
		columns = append(columns, boardColumn{Status: status, Label: status.Label(), Tasks: tasks})
	}

	c.HTML(http.StatusOK, "board.html", gin.H{
		"Title":   project.Name,
		"User":    middleware.CurrentUser(c),
		"Project": project,
		"Columns": columns,
	})
}

func (h *Page) workLogPage(c *gin.Context) {
	const op = "handlers.Page.workLogPage"
	log := h.log.WithField("operation", op)

	workLogID, verr := paramID(c, "workLogID")
	if verr != nil {
		h.errorPage(c, http.StatusBadRequest, "Invalid work log")
		return
	}

	ctx := c.Request.Context()
	wl, err := h.db.GetWorkLog(ctx, workLogID)
	if errors.Is(err, db.ErrNotFound) {
		h.errorPage(c, http.StatusNotFound, "Work log not found")
		return
	}
	if err != nil {
		log.WithError(err).Errorf("%s: failed to load work log", op)
		h.errorPage(c, http.StatusInternalServerError, "Could not load the work log")
		return
	}
	user := middleware.CurrentUser(c)
	if !auth.CanAccessWorkLog(user, wl) {
		h.errorPage(c, http.StatusForbidden, "You cannot view this work log")
		return
	}

	notes, err := h.db.ListNotes(ctx, db.NoteFilter{WorkLogID: wl.ID})
	if err != nil {
		log.WithError(err).Errorf("%s: failed to load notes", op)
		h.errorPage(c, http.StatusInternalServerError, "Could not load the work log")
		return
	}

	c.HTML(http.StatusOK, "worklog.html", gin.H{
		"Title":   wl.Title,
		"User":    user,
		"WorkLog": wl,
		"Notes":   notes,
	})
}

func (h *Page) errorPage(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", gin.H{"Title": http.StatusText(status), "Message": message})
}
