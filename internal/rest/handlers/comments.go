package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/mention"
	"github.com/tgienger/teamboard/internal/models"
	threadsform "github.com/tgienger/teamboard/internal/rest/forms/threads"
	"github.com/tgienger/teamboard/internal/rest/middleware"
	"github.com/tgienger/teamboard/internal/rest/response"
	"github.com/tgienger/teamboard/internal/uploads"
)

// Comment serves task comments
type Comment struct {
	log      *logrus.Logger
	db       *db.DB
	mentions *mention.Notifier
	uploads  *uploads.Store
}

// NewCommentHandler creates a Comment handler
func NewCommentHandler(database *db.DB, mentions *mention.Notifier, store *uploads.Store, log *logrus.Logger) *Comment {
	return &Comment{
		log:      log,
		db:       database,
		mentions: mentions,
		uploads:  store,
	}
}

// EnrichRoutes registers the Comment routes
func (h *Comment) EnrichRoutes(router *gin.RouterGroup) {
	commentRoutes := router.Group("/comments")
	commentRoutes.GET("", h.listCommentsAction)
	commentRoutes.POST("", h.createCommentAction)
	commentRoutes.PUT("/:commentID", h.updateCommentAction)
	commentRoutes.DELETE("/:commentID", h.deleteCommentAction)
	commentRoutes.POST("/:commentID/upload", h.uploadAttachmentAction)
}

func (h *Comment) listCommentsAction(c *gin.Context) {
	const op = "handlers.Comment.listCommentsAction"
	log := h.log.WithField("operation", op)

	taskID, verr := requiredQueryID(c, "task_id")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.db.GetTask(ctx, taskID); err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	comments, err := h.db.GetTaskComments(ctx, taskID)
	if err != nil {
		log.WithError(err).Errorf("%s: failed to list comments", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}
	for i := range comments {
		renderComment(&comments[i])
	}

	c.JSON(http.StatusOK, comments)
}

func (h *Comment) createCommentAction(c *gin.Context) {
	const op = "handlers.Comment.createCommentAction"
	log := h.log.WithField("operation", op)

	form, verr := threadsform.NewCreateCommentForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	f := form.(*threadsform.CreateCommentForm)

	ctx := c.Request.Context()
	actor := middleware.CurrentUser(c)
	var created *models.Comment
	err := h.db.WithTx(ctx, func(tx *db.Tx) error {
		task, project, err := loadTask(ctx, tx, f.TaskID)
		if err != nil {
			return err
		}
		if !auth.CanComment(actor, project, task) {
			return response.NewForbiddenError("You do not have permission to modify this task")
		}

		ids, err := h.mentions.Resolve(ctx, tx, f.Content)
		if err != nil {
			return err
		}
		created, err = tx.CreateComment(ctx, &models.Comment{
			TaskID:        task.ID,
			UserID:        actor.ID,
			Content:       f.Content,
			AttachmentURL: f.AttachmentURL,
			Mentions:      ids,
		})
		if err != nil {
			return err
		}

		_, err = tx.CreateActivity(ctx, &models.Activity{
			ProjectID:    project.ID,
			UserID:       actor.ID,
			ActivityType: models.ActivityCommentAdded,
			EntityType:   "comment",
			EntityID:     created.ID,
			Description:  fmt.Sprintf("%s commented on task '%s'", actor.DisplayName(), task.Title),
			Metadata: map[string]any{
				"task_id":    task.ID,
				"task_title": task.Title,
				"comment_id": created.ID,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to record comment activity: %w", err)
		}

		h.mentions.Notify(ctx, tx, mention.Event{
			Actor:       actor,
			ProjectID:   project.ID,
			ProjectName: project.Name,
			TaskID:      task.ID,
			TaskTitle:   task.Title,
			Current:     ids,
		})
		return nil
	})
	if err != nil {
		log.WithError(err).WithFields(f.ConvertToMap()).Warnf("%s: failed to create comment", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	renderComment(created)
	c.JSON(http.StatusCreated, created)
}

func (h *Comment) updateCommentAction(c *gin.Context) {
	const op = "handlers.Comment.updateCommentAction"
	log := h.log.WithField("operation", op)

	commentID, verr := paramID(c, "commentID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	form, verr := threadsform.NewEditMessageForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	f := form.(*threadsform.EditMessageForm)

	ctx := c.Request.Context()
	actor := middleware.CurrentUser(c)
	var updated *models.Comment
	err := h.db.WithTx(ctx, func(tx *db.Tx) error {
		comment, err := tx.GetComment(ctx, commentID)
		if err != nil {
			return err
		}
		task, project, err := loadTask(ctx, tx, comment.TaskID)
		if err != nil {
			return err
		}
		if !auth.CanEditComment(actor, project, task, comment) {
			return response.NewForbiddenError("You can only edit your own comments or be an assignee/owner")
		}
		if comment.IsDeleted {
			return response.NewBadRequestError("Cannot edit deleted comment")
		}

		previous := mention.Mentions(comment.Mentions)
		if f.Content != nil {
			comment.Content = *f.Content
			ids, err := h.mentions.Resolve(ctx, tx, comment.Content)
			if err != nil {
				return err
			}
			comment.Mentions = ids
		}
		if f.AttachmentURL != nil {
			comment.AttachmentURL = *f.AttachmentURL
		}
		if err := tx.UpdateComment(ctx, comment); err != nil {
			return err
		}

		if f.Content != nil {
			h.mentions.Notify(ctx, tx, mention.Event{
				Actor:       actor,
				ProjectID:   project.ID,
				ProjectName: project.Name,
				TaskID:      task.ID,
				TaskTitle:   task.Title,
				Previous:    previous,
				Current:     comment.Mentions,
			})
		}

		updated, err = tx.GetComment(ctx, comment.ID)
		return err
	})
	if err != nil {
		log.WithError(err).WithField("comment_id", commentID).Warnf("%s: failed to update comment", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	renderComment(updated)
	c.JSON(http.StatusOK, updated)
}

func (h *Comment) deleteCommentAction(c *gin.Context) {
	const op = "handlers.Comment.deleteCommentAction"
	log := h.log.WithField("operation", op)

	commentID, verr := paramID(c, "commentID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	ctx := c.Request.Context()
	comment, err := h.db.GetComment(ctx, commentID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	task, project, err := loadTask(ctx, h.db, comment.TaskID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	if !auth.CanDeleteComment(middleware.CurrentUser(c), project, task, comment) {
		response.HandleError(response.NewForbiddenError("You don't have permission to delete this comment"), c)
		return
	}

	if err := h.db.DeleteComment(ctx, comment.ID); err != nil {
		log.WithError(err).Errorf("%s: failed to delete comment", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Comment deleted successfully"})
}

func (h *Comment) uploadAttachmentAction(c *gin.Context) {
	const op = "handlers.Comment.uploadAttachmentAction"
	log := h.log.WithField("operation", op)

	commentID, verr := paramID(c, "commentID")
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
	comment, err := h.db.GetComment(ctx, commentID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	if comment.UserID != middleware.CurrentUser(c).ID {
		response.HandleError(response.NewForbiddenError("You can only upload attachment for your own comments"), c)
		return
	}

	att, err := h.uploads.Save(file, "comments")
	if err != nil {
		log.WithError(err).Warnf("%s: failed to store attachment", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}
	if err := h.db.SetCommentAttachment(ctx, comment.ID, att.URL); err != nil {
		log.WithError(err).Errorf("%s: failed to save attachment url", op)
		_ = h.uploads.Remove(att.URL)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	updated, err := h.db.GetComment(ctx, comment.ID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	renderComment(updated)
	c.JSON(http.StatusOK, updated)
}

func renderComment(cm *models.Comment) {
	if cm.IsDeleted {
		cm.Content = deletedContent
	}
	if cm.Mentions == nil {
		cm.Mentions = []int64{}
	}
}
