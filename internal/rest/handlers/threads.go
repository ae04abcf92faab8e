package handlers

import (
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
)

const deletedContent = "[deleted]"

// Thread serves project discussion threads
type Thread struct {
	log      *logrus.Logger
	db       *db.DB
	mentions *mention.Notifier
}

// NewThreadHandler creates a Thread handler
func NewThreadHandler(database *db.DB, mentions *mention.Notifier, log *logrus.Logger) *Thread {
	return &Thread{
		log:      log,
		db:       database,
		mentions: mentions,
	}
}

// EnrichRoutes registers the Thread routes
func (h *Thread) EnrichRoutes(router *gin.RouterGroup) {
	threadRoutes := router.Group("/threads")
	threadRoutes.GET("/debug/parse-mentions", h.parseMentionsAction)
	threadRoutes.GET("", h.listThreadsAction)
	threadRoutes.POST("", h.createThreadAction)
	threadRoutes.PUT("/:threadID", h.updateThreadAction)
	threadRoutes.DELETE("/:threadID", h.deleteThreadAction)
}

type mentionUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	IsActive bool   `json:"is_active,omitempty"`
}

type parseMentionsResponse struct {
	Content        string        `json:"content"`
	ProjectID      int64         `json:"project_id"`
	ParsedMentions []int64       `json:"parsed_mentions"`
	Unmatched      []string      `json:"unmatched_tokens"`
	AllUsers       []mentionUser `json:"all_users"`
	MatchedUsers   []mentionUser `json:"matched_users"`
}

// parseMentionsAction shows how a piece of text would resolve without storing anything
func (h *Thread) parseMentionsAction(c *gin.Context) {
	const op = "handlers.Thread.parseMentionsAction"
	log := h.log.WithField("operation", op)

	projectID, verr := requiredQueryID(c, "project_id")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.db.GetProject(ctx, projectID); err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	users, err := h.db.ListActiveUsers(ctx)
	if err != nil {
		log.WithError(err).Errorf("%s: failed to load users", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	content := c.Query("content")
	ids, unmatched := mention.Match(content, mention.CandidatesFromUsers(users))

	resp := parseMentionsResponse{
		Content:        content,
		ProjectID:      projectID,
		ParsedMentions: []int64(ids),
		Unmatched:      unmatched,
		AllUsers:       make([]mentionUser, 0, len(users)),
		MatchedUsers:   []mentionUser{},
	}
	if resp.ParsedMentions == nil {
		resp.ParsedMentions = []int64{}
	}
	if resp.Unmatched == nil {
		resp.Unmatched = []string{}
	}
	for _, u := range users {
		resp.AllUsers = append(resp.AllUsers, mentionUser{ID: u.ID, Username: u.Username, FullName: u.FullName, IsActive: u.IsActive})
		if ids.Contains(u.ID) {
			resp.MatchedUsers = append(resp.MatchedUsers, mentionUser{ID: u.ID, Username: u.Username, FullName: u.FullName})
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Thread) listThreadsAction(c *gin.Context) {
	const op = "handlers.Thread.listThreadsAction"
	log := h.log.WithField("operation", op)

	projectID, verr := requiredQueryID(c, "project_id")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.db.GetProject(ctx, projectID); err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	threads, err := h.db.ListThreads(ctx, projectID)
	if err != nil {
		log.WithError(err).Errorf("%s: failed to list threads", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}
	for i := range threads {
		renderThread(&threads[i])
	}

	c.JSON(http.StatusOK, threads)
}

func (h *Thread) createThreadAction(c *gin.Context) {
	const op = "handlers.Thread.createThreadAction"
	log := h.log.WithField("operation", op)

	form, verr := threadsform.NewCreateThreadForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	f := form.(*threadsform.CreateThreadForm)

	ctx := c.Request.Context()
	actor := middleware.CurrentUser(c)
	var created *models.Thread
	var notified []int64
	err := h.db.WithTx(ctx, func(tx *db.Tx) error {
		project, err := tx.GetProject(ctx, f.ProjectID)
		if err != nil {
			return err
		}
		if f.ParentID != nil {
			parent, err := tx.GetThread(ctx, *f.ParentID)
			if err != nil {
				return err
			}
			if parent.ProjectID != project.ID || parent.ParentID != nil {
				return response.NewBadRequestError("replies must reference a top-level message of the same project")
			}
		}

		ids, err := h.mentions.Resolve(ctx, tx, f.Content)
		if err != nil {
			return err
		}
		created, err = tx.CreateThread(ctx, &models.Thread{
			ProjectID: project.ID,
			UserID:    actor.ID,
			Content:   f.Content,
			ParentID:  f.ParentID,
			Mentions:  ids,
		})
		if err != nil {
			return err
		}

		notified = h.mentions.Notify(ctx, tx, mention.Event{
			Actor:       actor,
			ProjectID:   project.ID,
			ProjectName: project.Name,
			ThreadID:    created.ID,
			Current:     ids,
		})
		return nil
	})
	if err != nil {
		log.WithError(err).WithFields(f.ConvertToMap()).Warnf("%s: failed to create thread", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	log.WithFields(logrus.Fields{
		"thread_id": created.ID,
		"mentions":  created.Mentions,
		"notified":  notified,
	}).Debug("thread created")
	renderThread(created)
	c.JSON(http.StatusCreated, created)
}

func (h *Thread) updateThreadAction(c *gin.Context) {
	const op = "handlers.Thread.updateThreadAction"
	log := h.log.WithField("operation", op)

	threadID, verr := paramID(c, "threadID")
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
	var updated *models.Thread
	err := h.db.WithTx(ctx, func(tx *db.Tx) error {
		thread, err := tx.GetThread(ctx, threadID)
		if err != nil {
			return err
		}
		if thread.UserID != actor.ID {
			return response.NewForbiddenError("You can only edit your own messages")
		}
		if thread.IsDeleted {
			return response.NewBadRequestError("Cannot edit deleted message")
		}

		if f.Content != nil {
			project, err := tx.GetProject(ctx, thread.ProjectID)
			if err != nil {
				return err
			}
			ids, err := h.mentions.Resolve(ctx, tx, *f.Content)
			if err != nil {
				return err
			}
			if err := tx.UpdateThreadContent(ctx, thread.ID, *f.Content, ids); err != nil {
				return err
			}
			h.mentions.Notify(ctx, tx, mention.Event{
				Actor:       actor,
				ProjectID:   project.ID,
				ProjectName: project.Name,
				ThreadID:    thread.ID,
				Previous:    thread.Mentions,
				Current:     ids,
			})
		}

		updated, err = tx.GetThread(ctx, thread.ID)
		return err
	})
	if err != nil {
		log.WithError(err).WithField("thread_id", threadID).Warnf("%s: failed to update thread", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	renderThread(updated)
	c.JSON(http.StatusOK, updated)
}

func (h *Thread) deleteThreadAction(c *gin.Context) {
	const op = "handlers.Thread.deleteThreadAction"
	log := h.log.WithField("operation", op)

	threadID, verr := paramID(c, "threadID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	ctx := c.Request.Context()
	thread, err := h.db.GetThread(ctx, threadID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	project, err := h.db.GetProject(ctx, thread.ProjectID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	if !auth.CanDeleteThread(middleware.CurrentUser(c), project, thread) {
		response.HandleError(response.NewForbiddenError("You can only delete your own messages or be project owner"), c)
		return
	}

	if err := h.db.SoftDeleteThread(ctx, thread.ID); err != nil {
		log.WithError(err).Errorf("%s: failed to delete thread", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Thread deleted successfully"})
}

// renderThread prepares a message and its replies for output
func renderThread(th *models.Thread) {
	if th.IsDeleted {
		th.Content = deletedContent
	}
	if th.Mentions == nil {
		th.Mentions = []int64{}
	}
	if th.Replies == nil {
		th.Replies = []models.Thread{}
	}
	for i := range th.Replies {
		renderThread(&th.Replies[i])
	}
}
