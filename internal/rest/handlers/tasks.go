package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/board"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/notify"
	tasksform "github.com/tgienger/teamboard/internal/rest/forms/tasks"
	"github.com/tgienger/teamboard/internal/rest/middleware"
	"github.com/tgienger/teamboard/internal/rest/response"
)

// Task serves tasks and board moves
type Task struct {
	log    *logrus.Logger
	db     *db.DB
	board  *board.Board
	notify *notify.Service
}

// NewTaskHandler creates a Task handler
func NewTaskHandler(database *db.DB, b *board.Board, n *notify.Service, log *logrus.Logger) *Task {
	return &Task{
		log:    log,
		db:     database,
		board:  b,
		notify: n,
	}
}

// EnrichRoutes registers the Task routes
func (h *Task) EnrichRoutes(router *gin.RouterGroup) {
	taskRoutes := router.Group("/tasks")
	taskRoutes.GET("", h.listTasksAction)
	taskRoutes.POST("", h.createTaskAction)
	taskRoutes.GET("/:taskID", h.getTaskAction)
	taskRoutes.PUT("/:taskID", h.updateTaskAction)
	taskRoutes.DELETE("/:taskID", h.deleteTaskAction)
	taskRoutes.POST("/:taskID/move", h.moveTaskAction)
	taskRoutes.POST("/:taskID/confirm-complete", h.confirmCompleteAction)
}

type moveTaskResponse struct {
	Message string       `json:"message"`
	Task    *models.Task `json:"task"`
}

func (h *Task) listTasksAction(c *gin.Context) {
	const op = "handlers.Task.listTasksAction"
	log := h.log.WithField("operation", op)

	projectID, verr := queryID(c, "project_id")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	status := models.TaskStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		ve := response.NewValidationError()
		ve.SetError("status", response.InvalidValue, "status must be todo, in_progress, blocked or done")
		response.HandleError(ve, c)
		return
	}

	ctx := c.Request.Context()
	filter := db.TaskFilter{ProjectID: projectID, Status: status}
	if queryBool(c, "assigned_only", true) {
		filter.AssigneeID = middleware.CurrentUser(c).ID
	} else if projectID != 0 {
		if _, err := h.db.GetProject(ctx, projectID); err != nil {
			response.HandleError(response.ResolveError(err), c)
			return
		}
	}

	tasks, err := h.db.ListTasks(ctx, filter)
	if err != nil {
		log.WithError(err).Errorf("%s: failed to list tasks", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	skip, limit := queryInt(c, "skip", 0), queryInt(c, "limit", 100)
	if skip > len(tasks) {
		skip = len(tasks)
	}
	tasks = tasks[skip:]
	if limit < len(tasks) {
		tasks = tasks[:limit]
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	c.JSON(http.StatusOK, tasks)
}

func (h *Task) getTaskAction(c *gin.Context) {
	const op = "handlers.Task.getTaskAction"
	log := h.log.WithField("operation", op)

	taskID, verr := paramID(c, "taskID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	ctx := c.Request.Context()
	task, project, err := loadTask(ctx, h.db, taskID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	if err := auth.Require(auth.CanAccessTask(middleware.CurrentUser(c), project, task), "view this task"); err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}

	if task.Subtasks, err = h.db.ListSubtasks(ctx, taskID); err != nil {
		log.WithError(err).Errorf("%s: failed to load subtasks", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *Task) createTaskAction(c *gin.Context) {
	const op = "handlers.Task.createTaskAction"
	log := h.log.WithField("operation", op)
	log.Info("create task")

	form, verr := tasksform.NewCreateTaskForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	f := form.(*tasksform.TaskForm)

	ctx := c.Request.Context()
	actor := middleware.CurrentUser(c)
	var created *models.Task
	err := h.db.WithTx(ctx, func(tx *db.Tx) error {
		project, err := tx.GetProject(ctx, f.ProjectID())
		if err != nil {
			return err
		}
		if err := auth.Require(auth.OwnsProject(actor, project), "create tasks in this project"); err != nil {
			return err
		}

		assigneeIDs, _ := f.AssigneeIDs()
		assignees, err := loadAssignees(ctx, tx, assigneeIDs)
		if err != nil {
			return err
		}

		status := f.Status()
		if status == "" {
			status = models.StatusTodo
		}
		position, err := board.Append(ctx, tx, project.ID, status)
		if err != nil {
			return err
		}

		task := &models.Task{ProjectID: project.ID, Status: status, Position: position}
		f.Apply(task)
		if created, err = tx.CreateTask(ctx, task); err != nil {
			return err
		}
		if err := tx.SetTaskAssignees(ctx, created.ID, assigneeIDs); err != nil {
			return err
		}
		if created, err = tx.GetTask(ctx, created.ID); err != nil {
			return err
		}

		names := assigneeNames(assignees)
		_, err = tx.CreateActivity(ctx, &models.Activity{
			ProjectID:    project.ID,
			UserID:       actor.ID,
			ActivityType: models.ActivityTaskCreated,
			EntityType:   "task",
			EntityID:     created.ID,
			Description:  fmt.Sprintf("%s created task '%s'", actor.DisplayName(), created.Title),
			Metadata: map[string]any{
				"task_id":        created.ID,
				"task_title":     created.Title,
				"assignee_ids":   nonNilIDs(assigneeIDs),
				"assignee_names": names,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to record task creation: %w", err)
		}

		h.notify.TaskAssigned(ctx, tx, created, project, assigneeIDs, actor)
		return nil
	})
	if err != nil {
		log.WithError(err).WithFields(f.ConvertToMap()).Warnf("%s: failed to create task", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Task) updateTaskAction(c *gin.Context) {
	const op = "handlers.Task.updateTaskAction"
	log := h.log.WithField("operation", op)

	taskID, verr := paramID(c, "taskID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	form, verr := tasksform.NewUpdateTaskForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	f := form.(*tasksform.TaskForm)

	ctx := c.Request.Context()
	actor := middleware.CurrentUser(c)
	var updated *models.Task
	err := h.db.WithTx(ctx, func(tx *db.Tx) error {
		task, project, err := loadTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := auth.Require(auth.CanAccessTask(actor, project, task), "edit this task"); err != nil {
			return err
		}
		oldAssignees := task.AssigneeIDs()

		changed := f.Apply(task)
		if len(changed) > 0 {
			if err := tx.UpdateTask(ctx, task); err != nil {
				return err
			}
		}

		assigneeIDs, assigneesSent := f.AssigneeIDs()
		if assigneesSent {
			if _, err := loadAssignees(ctx, tx, assigneeIDs); err != nil {
				return err
			}
			if err := tx.SetTaskAssignees(ctx, task.ID, assigneeIDs); err != nil {
				return err
			}
		}

		// a status change goes to the tail of the destination column
		if status := f.Status(); status != "" && status != task.Status {
			if err := auth.CheckMove(actor, project, task, status); err != nil {
				return err
			}
			tail, err := tx.CountBucket(ctx, project.ID, status)
			if err != nil {
				return err
			}
			if _, err := board.MoveTx(ctx, tx, task.ID, status, tail, actor); err != nil {
				return err
			}
		}

		if updated, err = tx.GetTask(ctx, task.ID); err != nil {
			return err
		}

		if assigneesSent && !sameIDs(oldAssignees, updated.AssigneeIDs()) {
			if err := h.recordAssignment(ctx, tx, updated, actor); err != nil {
				return err
			}
			h.notify.TaskAssigned(ctx, tx, updated, project, updated.AssigneeIDs(), actor)
		}

		if len(changed) > 0 && !assigneesSent {
			_, err := tx.CreateActivity(ctx, &models.Activity{
				ProjectID:    project.ID,
				UserID:       actor.ID,
				ActivityType: models.ActivityTaskUpdated,
				EntityType:   "task",
				EntityID:     updated.ID,
				Description:  fmt.Sprintf("%s updated task '%s'", actor.DisplayName(), updated.Title),
				Metadata: map[string]any{
					"task_id":        updated.ID,
					"task_title":     updated.Title,
					"updated_fields": changed,
				},
			})
			if err != nil {
				return fmt.Errorf("failed to record task update: %w", err)
			}
			h.notify.TaskUpdated(ctx, tx, updated, project, actor, describeChange(changed))
		}
		return nil
	})
	if err != nil {
		log.WithError(err).WithField("task_id", taskID).Warnf("%s: failed to update task", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *Task) deleteTaskAction(c *gin.Context) {
	const op = "handlers.Task.deleteTaskAction"
	log := h.log.WithField("operation", op)

	taskID, verr := paramID(c, "taskID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	ctx := c.Request.Context()
	actor := middleware.CurrentUser(c)
	err := h.db.WithTx(ctx, func(tx *db.Tx) error {
		task, project, err := loadTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := auth.Require(auth.OwnsProject(actor, project), "delete this task"); err != nil {
			return err
		}
		if err := tx.DeleteTask(ctx, task.ID); err != nil {
			return err
		}
		return board.Remove(ctx, tx, task)
	})
	if err != nil {
		log.WithError(err).WithField("task_id", taskID).Warnf("%s: failed to delete task", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Task deleted successfully"})
}

func (h *Task) moveTaskAction(c *gin.Context) {
	const op = "handlers.Task.moveTaskAction"
	log := h.log.WithField("operation", op)

	taskID, verr := paramID(c, "taskID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	form, verr := tasksform.NewMoveTaskForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	f := form.(*tasksform.MoveTaskForm)

	ctx := c.Request.Context()
	actor := middleware.CurrentUser(c)
	result, err := h.board.Move(ctx, taskID, f.NewStatus, f.NewPosition, actor,
		func(task *models.Task, project *models.Project) error {
			return auth.CheckMove(actor, project, task, f.NewStatus)
		})
	if err != nil {
		log.WithError(err).WithFields(f.ConvertToMap()).Warnf("%s: failed to move task", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, moveTaskResponse{Message: "Task moved successfully", Task: result.Task})
}

func (h *Task) confirmCompleteAction(c *gin.Context) {
	const op = "handlers.Task.confirmCompleteAction"
	log := h.log.WithField("operation", op)

	taskID, verr := paramID(c, "taskID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	ctx := c.Request.Context()
	actor := middleware.CurrentUser(c)
	var completed *models.Task
	err := h.db.WithTx(ctx, func(tx *db.Tx) error {
		task, project, err := loadTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := auth.Require(auth.OwnsProject(actor, project), "confirm this task"); err != nil {
			return err
		}
		if task.TotalSubtasks == 0 || task.CompletedSubtasks < task.TotalSubtasks {
			return response.NewBadRequestError("Task has unfinished subtasks")
		}

		if task.Status != models.StatusDone {
			tail, err := tx.CountBucket(ctx, project.ID, models.StatusDone)
			if err != nil {
				return err
			}
			if _, err := board.MoveTx(ctx, tx, task.ID, models.StatusDone, tail, actor); err != nil {
				return err
			}
		}
		completed, err = tx.GetTask(ctx, task.ID)
		return err
	})
	if err != nil {
		log.WithError(err).WithField("task_id", taskID).Infof("%s: task not confirmed", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, completed)
}

func (h *Task) recordAssignment(ctx context.Context, tx *db.Tx, task *models.Task, actor *models.User) error {
	names := make([]string, 0, len(task.Assignees))
	for _, a := range task.Assignees {
		names = append(names, summaryName(a))
	}
	who := "Unassigned"
	if len(names) > 0 {
		who = strings.Join(names, ", ")
	}

	_, err := tx.CreateActivity(ctx, &models.Activity{
		ProjectID:    task.ProjectID,
		UserID:       actor.ID,
		ActivityType: models.ActivityTaskAssigned,
		EntityType:   "task",
		EntityID:     task.ID,
		Description:  fmt.Sprintf("Task '%s' was assigned to %s", task.Title, who),
		Metadata: map[string]any{
			"task_id":        task.ID,
			"task_title":     task.Title,
			"assignee_ids":   task.AssigneeIDs(),
			"assignee_names": names,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to record assignment: %w", err)
	}
	return nil
}

// loadAssignees returns the users for ids and fails when any of them is unknown
func loadAssignees(ctx context.Context, tx *db.Tx, ids []int64) ([]models.User, error) {
	users, err := tx.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(users) != len(ids) {
		return nil, fmt.Errorf("one or more assignees: %w", db.ErrNotFound)
	}
	return users, nil
}

func assigneeNames(users []models.User) []string {
	if len(users) == 0 {
		return []string{"Unassigned"}
	}
	names := make([]string, 0, len(users))
	for i := range users {
		names = append(names, users[i].DisplayName())
	}
	return names
}

func summaryName(u models.UserSummary) string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

func describeChange(fields []string) string {
	has := func(name string) bool {
		for _, f := range fields {
			if f == name {
				return true
			}
		}
		return false
	}
	switch {
	case has("title"):
		return "renamed the task"
	case has("description"):
		return "updated the description"
	case has("due_date"):
		return "changed the deadline"
	default:
		return "updated the task"
	}
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[int64]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
