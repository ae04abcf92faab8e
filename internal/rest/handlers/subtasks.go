package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
	tasksform "github.com/tgienger/teamboard/internal/rest/forms/tasks"
	"github.com/tgienger/teamboard/internal/rest/middleware"
	"github.com/tgienger/teamboard/internal/rest/response"
	"github.com/tgienger/teamboard/internal/uploads"
)

// Subtask serves subtasks
type Subtask struct {
	log     *logrus.Logger
	db      *db.DB
	uploads *uploads.Store
}

// NewSubtaskHandler creates a Subtask handler
func NewSubtaskHandler(database *db.DB, store *uploads.Store, log *logrus.Logger) *Subtask {
	return &Subtask{
		log:     log,
		db:      database,
		uploads: store,
	}
}

// EnrichRoutes registers the Subtask routes
func (h *Subtask) EnrichRoutes(router *gin.RouterGroup) {
	subtaskRoutes := router.Group("/subtasks")
	subtaskRoutes.GET("/task/:taskID", h.listSubtasksAction)
	subtaskRoutes.POST("", h.createSubtaskAction)
	subtaskRoutes.PUT("/:subtaskID", h.updateSubtaskAction)
	subtaskRoutes.DELETE("/:subtaskID", h.deleteSubtaskAction)
	subtaskRoutes.POST("/:subtaskID/attachment", h.uploadAttachmentAction)
}

func (h *Subtask) listSubtasksAction(c *gin.Context) {
	const op = "handlers.Subtask.listSubtasksAction"
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

	subtasks, err := h.db.ListSubtasks(ctx, taskID)
	if err != nil {
		log.WithError(err).Errorf("%s: failed to list subtasks", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}
	if subtasks == nil {
		subtasks = []models.SubTask{}
	}

	c.JSON(http.StatusOK, subtasks)
}

func (h *Subtask) createSubtaskAction(c *gin.Context) {
	const op = "handlers.Subtask.createSubtaskAction"
	log := h.log.WithField("operation", op)

	form, verr := tasksform.NewCreateSubtaskForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	f := form.(*tasksform.SubtaskForm)

	ctx := c.Request.Context()
	actor := middleware.CurrentUser(c)
	var created *models.SubTask
	err := h.db.WithTx(ctx, func(tx *db.Tx) error {
		task, project, err := loadTask(ctx, tx, f.TaskID())
		if err != nil {
			return err
		}
		if err := auth.Require(auth.CanAccessTask(actor, project, task), "edit this task"); err != nil {
			return err
		}

		subtask := &models.SubTask{TaskID: task.ID}
		f.Apply(subtask)
		if created, err = tx.CreateSubtask(ctx, subtask); err != nil {
			return err
		}
		if workLogID, sent := f.WorkLogID(); sent && workLogID != nil {
			if err := linkWorkLog(ctx, tx, actor, created.ID, workLogID); err != nil {
				return err
			}
		}
		created, err = tx.GetSubtask(ctx, created.ID)
		return err
	})
	if err != nil {
		log.WithError(err).WithFields(f.ConvertToMap()).Warnf("%s: failed to create subtask", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Subtask) updateSubtaskAction(c *gin.Context) {
	const op = "handlers.Subtask.updateSubtaskAction"
	log := h.log.WithField("operation", op)

	subtaskID, verr := paramID(c, "subtaskID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	form, verr := tasksform.NewUpdateSubtaskForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	f := form.(*tasksform.SubtaskForm)

	ctx := c.Request.Context()
	actor := middleware.CurrentUser(c)
	var updated *models.SubTask
	err := h.db.WithTx(ctx, func(tx *db.Tx) error {
		subtask, task, project, err := loadSubtask(ctx, tx, subtaskID)
		if err != nil {
			return err
		}
		if err := auth.Require(auth.CanAccessTask(actor, project, task), "edit this task"); err != nil {
			return err
		}

		wasDone := subtask.IsDone
		f.Apply(subtask)
		if err := tx.UpdateSubtask(ctx, subtask); err != nil {
			return err
		}
		if workLogID, sent := f.WorkLogID(); sent {
			if err := linkWorkLog(ctx, tx, actor, subtask.ID, workLogID); err != nil {
				return err
			}
		}

		if subtask.IsDone && !wasDone {
			_, err := tx.CreateActivity(ctx, &models.Activity{
				ProjectID:    project.ID,
				UserID:       actor.ID,
				ActivityType: models.ActivitySubtaskCompleted,
				EntityType:   "subtask",
				EntityID:     subtask.ID,
				Description: fmt.Sprintf("%s completed subtask '%s' of task '%s'",
					actor.DisplayName(), subtask.Title, task.Title),
				Metadata: map[string]any{
					"task_id":       task.ID,
					"task_title":    task.Title,
					"subtask_id":    subtask.ID,
					"subtask_title": subtask.Title,
				},
			})
			if err != nil {
				return fmt.Errorf("failed to record subtask completion: %w", err)
			}
		}

		updated, err = tx.GetSubtask(ctx, subtask.ID)
		return err
	})
	if err != nil {
		log.WithError(err).WithField("subtask_id", subtaskID).Warnf("%s: failed to update subtask", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *Subtask) deleteSubtaskAction(c *gin.Context) {
	const op = "handlers.Subtask.deleteSubtaskAction"
	log := h.log.WithField("operation", op)

	subtaskID, verr := paramID(c, "subtaskID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	ctx := c.Request.Context()
	actor := middleware.CurrentUser(c)
	err := h.db.WithTx(ctx, func(tx *db.Tx) error {
		subtask, task, project, err := loadSubtask(ctx, tx, subtaskID)
		if err != nil {
			return err
		}
		if err := auth.Require(auth.CanAccessTask(actor, project, task), "edit this task"); err != nil {
			return err
		}
		if err := tx.LinkSubtaskWorkLog(ctx, subtask.ID, nil); err != nil {
			return err
		}
		return tx.DeleteSubtask(ctx, subtask.ID)
	})
	if err != nil {
		log.WithError(err).WithField("subtask_id", subtaskID).Warnf("%s: failed to delete subtask", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Subtask deleted successfully"})
}

func (h *Subtask) uploadAttachmentAction(c *gin.Context) {
	const op = "handlers.Subtask.uploadAttachmentAction"
	log := h.log.WithField("operation", op)

	subtaskID, verr := paramID(c, "subtaskID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.HandleError(response.NewBadRequestError("file is required"), c)
		return
	}

	ctx := c.Request.Context()
	subtask, task, project, err := loadSubtask(ctx, h.db, subtaskID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	if err := auth.Require(auth.CanAccessTask(middleware.CurrentUser(c), project, task), "edit this task"); err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}

	att, err := h.uploads.Save(file, "subtasks")
	if err != nil {
		log.WithError(err).Warnf("%s: failed to store attachment", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	subtask.AttachmentURL = att.URL
	if err := h.db.UpdateSubtask(ctx, subtask); err != nil {
		log.WithError(err).Errorf("%s: failed to save attachment url", op)
		_ = h.uploads.Remove(att.URL)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, subtask)
}

type subtaskLoader interface {
	taskLoader
	GetSubtask(ctx context.Context, id int64) (*models.SubTask, error)
}

func loadSubtask(ctx context.Context, q subtaskLoader, subtaskID int64) (*models.SubTask, *models.Task, *models.Project, error) {
	subtask, err := q.GetSubtask(ctx, subtaskID)
	if err != nil {
		return nil, nil, nil, err
	}
	task, project, err := loadTask(ctx, q, subtask.TaskID)
	if err != nil {
		return nil, nil, nil, err
	}
	return subtask, task, project, nil
}

// linkWorkLog points a subtask at a work log the actor may use, or clears the link when workLogID is nil
func linkWorkLog(ctx context.Context, tx *db.Tx, actor *models.User, subtaskID int64, workLogID *int64) error {
	if workLogID != nil {
		wl, err := tx.GetWorkLog(ctx, *workLogID)
		if err != nil {
			return err
		}
		if err := auth.Require(auth.CanAccessWorkLog(actor, wl), "use this work log"); err != nil {
			return err
		}
	}
	return tx.LinkSubtaskWorkLog(ctx, subtaskID, workLogID)
}
