package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/rest/forms"
	worklogsform "github.com/tgienger/teamboard/internal/rest/forms/worklogs"
	"github.com/tgienger/teamboard/internal/rest/middleware"
	"github.com/tgienger/teamboard/internal/rest/response"
)

var (
	todoRangeStart = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	todoRangeEnd   = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Todo serves the daily todo list
type Todo struct {
	log *logrus.Logger
	db  *db.DB
	now func() time.Time
}

// NewTodoHandler creates a Todo handler
func NewTodoHandler(database *db.DB, log *logrus.Logger) *Todo {
	return &Todo{
		log: log,
		db:  database,
		now: time.Now,
	}
}

// EnrichRoutes registers the Todo routes
func (h *Todo) EnrichRoutes(router *gin.RouterGroup) {
	todoRoutes := router.Group("/todos")
	todoRoutes.GET("", h.listTodosAction)
	todoRoutes.POST("", h.createTodoAction)
	todoRoutes.POST("/bulk", h.createTodosBulkAction)
	todoRoutes.PUT("/:todoID", h.updateTodoAction)
	todoRoutes.POST("/:todoID/toggle", h.toggleTodoAction)
	todoRoutes.DELETE("/:todoID", h.deleteTodoAction)
}

// listTodosAction lists the caller's to-dos planned between start_date and end_date, both inclusive
func (h *Todo) listTodosAction(c *gin.Context) {
	const op = "handlers.Todo.listTodosAction"
	log := h.log.WithField("operation", op)

	errors := make(map[string]response.ErrorMessage)
	from, to := todoRangeStart, todoRangeEnd
	if raw := c.Query("start_date"); raw != "" {
		if t, ok := forms.ParseDate(raw); ok {
			from = t
		} else {
			forms.Invalid(errors, "start_date", "invalid date")
		}
	}
	if raw := c.Query("end_date"); raw != "" {
		if t, ok := forms.ParseDate(raw); ok {
			to = t.AddDate(0, 0, 1)
		} else {
			forms.Invalid(errors, "end_date", "invalid date")
		}
	}
	if verr := forms.Result(errors); verr != nil {
		response.HandleError(verr, c)
		return
	}

	todos, err := h.db.ListTodos(c.Request.Context(), middleware.CurrentUser(c).ID, from, to)
	if err != nil {
		log.WithError(err).Errorf("%s: failed to list todos", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, todos)
}

func (h *Todo) createTodoAction(c *gin.Context) {
	const op = "handlers.Todo.createTodoAction"
	log := h.log.WithField("operation", op)

	form, verr := worklogsform.NewCreateTodoForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	todo := &models.Todo{OwnerID: middleware.CurrentUser(c).ID}
	form.(*worklogsform.TodoForm).Apply(todo)

	created, err := h.db.CreateTodo(c.Request.Context(), todo)
	if err != nil {
		log.WithError(err).WithFields(form.ConvertToMap()).Errorf("%s: failed to create todo", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Todo) createTodosBulkAction(c *gin.Context) {
	const op = "handlers.Todo.createTodosBulkAction"
	log := h.log.WithField("operation", op)

	form, verr := worklogsform.NewBulkTodoForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	f := form.(*worklogsform.BulkTodoForm)

	ctx := c.Request.Context()
	ownerID := middleware.CurrentUser(c).ID
	created := make([]models.Todo, 0, len(f.Todos))
	err := h.db.WithTx(ctx, func(tx *db.Tx) error {
		for _, item := range f.Todos {
			todo := &models.Todo{OwnerID: ownerID}
			item.Apply(todo)
			saved, err := tx.CreateTodo(ctx, todo)
			if err != nil {
				return err
			}
			created = append(created, *saved)
		}
		return nil
	})
	if err != nil {
		log.WithError(err).WithFields(f.ConvertToMap()).Errorf("%s: failed to create todos", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Todo) updateTodoAction(c *gin.Context) {
	const op = "handlers.Todo.updateTodoAction"
	log := h.log.WithField("operation", op)

	todo, ok := h.loadOwnedTodo(c)
	if !ok {
		return
	}
	form, verr := worklogsform.NewUpdateTodoForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	f := form.(*worklogsform.TodoForm)

	f.Apply(todo)
	if done, ok := f.IsDone(); ok {
		h.setDone(todo, done)
	}

	ctx := c.Request.Context()
	if err := h.db.UpdateTodo(ctx, todo); err != nil {
		log.WithError(err).WithField("todo_id", todo.ID).Errorf("%s: failed to update todo", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	updated, err := h.db.GetTodo(ctx, todo.ID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// toggleTodoAction flips completion. It is only allowed on the day the to-do is planned for.
func (h *Todo) toggleTodoAction(c *gin.Context) {
	const op = "handlers.Todo.toggleTodoAction"
	log := h.log.WithField("operation", op)

	todo, ok := h.loadOwnedTodo(c)
	if !ok {
		return
	}
	if !sameDay(todo.PlannedDate, h.now()) {
		response.HandleError(response.NewBadRequestError("A todo can only be checked off on its planned day"), c)
		return
	}

	h.setDone(todo, !todo.IsDone)
	ctx := c.Request.Context()
	if err := h.db.UpdateTodo(ctx, todo); err != nil {
		log.WithError(err).WithField("todo_id", todo.ID).Errorf("%s: failed to toggle todo", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	updated, err := h.db.GetTodo(ctx, todo.ID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Todo) deleteTodoAction(c *gin.Context) {
	const op = "handlers.Todo.deleteTodoAction"
	log := h.log.WithField("operation", op)

	todo, ok := h.loadOwnedTodo(c)
	if !ok {
		return
	}
	if err := h.db.DeleteTodo(c.Request.Context(), todo.ID); err != nil {
		log.WithError(err).Errorf("%s: failed to delete todo", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Todo deleted"})
}

func (h *Todo) loadOwnedTodo(c *gin.Context) (*models.Todo, bool) {
	todoID, verr := paramID(c, "todoID")
	if verr != nil {
		response.HandleError(verr, c)
		return nil, false
	}

	todo, err := h.db.GetTodo(c.Request.Context(), todoID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return nil, false
	}
	if err := auth.Require(auth.CanAccessPersonal(middleware.CurrentUser(c), todo.OwnerID), "access this todo"); err != nil {
		response.HandleError(response.ResolveError(err), c)
		return nil, false
	}
	return todo, true
}

// setDone keeps done_at in step with the completion flag
func (h *Todo) setDone(todo *models.Todo, done bool) {
	if done == todo.IsDone {
		return
	}
	todo.IsDone = done
	if done {
		now := h.now().UTC()
		todo.DoneAt = &now
	} else {
		todo.DoneAt = nil
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
