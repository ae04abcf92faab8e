package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
	worklogsform "github.com/tgienger/teamboard/internal/rest/forms/worklogs"
	"github.com/tgienger/teamboard/internal/rest/middleware"
	"github.com/tgienger/teamboard/internal/rest/response"
	"github.com/tgienger/teamboard/internal/uploads"
)

// WorkLog serves work log entries
type WorkLog struct {
	log     *logrus.Logger
	db      *db.DB
	uploads *uploads.Store
}

// NewWorkLogHandler creates a WorkLog handler
func NewWorkLogHandler(database *db.DB, store *uploads.Store, log *logrus.Logger) *WorkLog {
	return &WorkLog{
		log:     log,
		db:      database,
		uploads: store,
	}
}

// EnrichRoutes registers the WorkLog routes
func (h *WorkLog) EnrichRoutes(router *gin.RouterGroup) {
	workLogRoutes := router.Group("/work-logs")
	workLogRoutes.GET("", h.listWorkLogsAction)
	workLogRoutes.POST("", h.createWorkLogAction)
	workLogRoutes.GET("/:workLogID", h.getWorkLogAction)
	workLogRoutes.PUT("/:workLogID", h.updateWorkLogAction)
	workLogRoutes.DELETE("/:workLogID", h.deleteWorkLogAction)
	workLogRoutes.POST("/:workLogID/attachments", h.uploadAttachmentAction)
}

func (h *WorkLog) listWorkLogsAction(c *gin.Context) {
	const op = "handlers.WorkLog.listWorkLogsAction"
	log := h.log.WithField("operation", op)

	projectID, verr := queryID(c, "project_id")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	taskID, verr := queryID(c, "task_id")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	filter := db.WorkLogFilter{ProjectID: projectID, TaskID: taskID}
	if user := middleware.CurrentUser(c); !user.IsAdmin() {
		filter.OwnerID = user.ID
	}
	logs, err := h.db.ListWorkLogs(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Errorf("%s: failed to list work logs", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, logs)
}

func (h *WorkLog) getWorkLogAction(c *gin.Context) {
	wl, ok := h.loadOwnedWorkLog(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, wl)
}

func (h *WorkLog) createWorkLogAction(c *gin.Context) {
	const op = "handlers.WorkLog.createWorkLogAction"
	log := h.log.WithField("operation", op)

	form, verr := worklogsform.NewCreateWorkLogForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	f := form.(*worklogsform.WorkLogForm)

	ctx := c.Request.Context()
	actor := middleware.CurrentUser(c)
	var created *models.WorkLog
	err := h.db.WithTx(ctx, func(tx *db.Tx) error {
		wl := &models.WorkLog{OwnerID: actor.ID}
		f.Apply(wl)
		var err error
		if created, err = tx.CreateWorkLog(ctx, wl); err != nil {
			return err
		}
		if subtaskID, sent := f.SubtaskID(); sent && subtaskID != nil {
			if err := h.linkSubtask(ctx, tx, actor, created, subtaskID); err != nil {
				return err
			}
		}
		created, err = tx.GetWorkLog(ctx, created.ID)
		return err
	})
	if err != nil {
		log.WithError(err).WithFields(f.ConvertToMap()).Warnf("%s: failed to create work log", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *WorkLog) updateWorkLogAction(c *gin.Context) {
	const op = "handlers.WorkLog.updateWorkLogAction"
	log := h.log.WithField("operation", op)

	workLogID, verr := paramID(c, "workLogID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	form, verr := worklogsform.NewUpdateWorkLogForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	f := form.(*worklogsform.WorkLogForm)

	ctx := c.Request.Context()
	actor := middleware.CurrentUser(c)
	var updated *models.WorkLog
	err := h.db.WithTx(ctx, func(tx *db.Tx) error {
		wl, err := tx.GetWorkLog(ctx, workLogID)
		if err != nil {
			return err
		}
		if err := auth.Require(auth.CanAccessWorkLog(actor, wl), "change this work log"); err != nil {
			return err
		}

		f.Apply(wl)
		if err := tx.UpdateWorkLog(ctx, wl); err != nil {
			return err
		}
		if subtaskID, sent := f.SubtaskID(); sent {
			if err := h.linkSubtask(ctx, tx, actor, wl, subtaskID); err != nil {
				return err
			}
		}

		updated, err = tx.GetWorkLog(ctx, wl.ID)
		return err
	})
	if err != nil {
		log.WithError(err).WithField("work_log_id", workLogID).Warnf("%s: failed to update work log", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *WorkLog) deleteWorkLogAction(c *gin.Context) {
	const op = "handlers.WorkLog.deleteWorkLogAction"
	log := h.log.WithField("operation", op)

	wl, ok := h.loadOwnedWorkLog(c)
	if !ok {
		return
	}

	if err := h.db.DeleteWorkLog(c.Request.Context(), wl.ID); err != nil {
		log.WithError(err).Errorf("%s: failed to delete work log", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}
	for _, att := range wl.Attachments {
		if err := h.uploads.Remove(att.URL); err != nil {
			log.WithError(err).WithField("url", att.URL).Warnf("%s: failed to remove attachment", op)
		}
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Work log deleted"})
}

func (h *WorkLog) uploadAttachmentAction(c *gin.Context) {
	const op = "handlers.WorkLog.uploadAttachmentAction"
	log := h.log.WithField("operation", op)

	wl, ok := h.loadOwnedWorkLog(c)
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.HandleError(response.NewBadRequestError("file is required"), c)
		return
	}

	att, err := h.uploads.Save(file, "worklogs")
	if err != nil {
		log.WithError(err).Warnf("%s: failed to store attachment", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	ctx := c.Request.Context()
	wl.Attachments = append(wl.Attachments, *att)
	if err := h.db.UpdateWorkLog(ctx, wl); err != nil {
		log.WithError(err).Errorf("%s: failed to save attachment", op)
		_ = h.uploads.Remove(att.URL)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	updated, err := h.db.GetWorkLog(ctx, wl.ID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *WorkLog) loadOwnedWorkLog(c *gin.Context) (*models.WorkLog, bool) {
	workLogID, verr := paramID(c, "workLogID")
	if verr != nil {
		response.HandleError(verr, c)
		return nil, false
	}

	wl, err := h.db.GetWorkLog(c.Request.Context(), workLogID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return nil, false
	}
	if err := auth.Require(auth.CanAccessWorkLog(middleware.CurrentUser(c), wl), "access this work log"); err != nil {
		response.HandleError(response.ResolveError(err), c)
		return nil, false
	}
	return wl, true
}

// linkSubtask moves wl's subtask link to subtaskID, or drops it when subtaskID is nil.
// The actor must be allowed to work on the subtask's task.
func (h *WorkLog) linkSubtask(ctx context.Context, tx *db.Tx, actor *models.User, wl *models.WorkLog, subtaskID *int64) error {
	if subtaskID == nil {
		if wl.SubtaskID == nil {
			return nil
		}
		return tx.LinkSubtaskWorkLog(ctx, *wl.SubtaskID, nil)
	}

	_, task, project, err := loadSubtask(ctx, tx, *subtaskID)
	if err != nil {
		return err
	}
	if err := auth.Require(auth.CanWorkOnTask(actor, project, task), "work on this subtask"); err != nil {
		return err
	}
	if wl.SubtaskID != nil && *wl.SubtaskID != *subtaskID {
		if err := tx.LinkSubtaskWorkLog(ctx, *wl.SubtaskID, nil); err != nil {
			return err
		}
	}
	return tx.LinkSubtaskWorkLog(ctx, *subtaskID, &wl.ID)
}
