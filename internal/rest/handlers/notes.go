package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
	worklogsform "github.com/tgienger/teamboard/internal/rest/forms/worklogs"
	"github.com/tgienger/teamboard/internal/rest/middleware"
	"github.com/tgienger/teamboard/internal/rest/response"
)

// Note serves personal notes
type Note struct {
	log *logrus.Logger
	db  *db.DB
}

// NewNoteHandler creates a Note handler
func NewNoteHandler(database *db.DB, log *logrus.Logger) *Note {
	return &Note{
		log: log,
		db:  database,
	}
}

// EnrichRoutes registers the Note routes
func (h *Note) EnrichRoutes(router *gin.RouterGroup) {
	noteRoutes := router.Group("/notes")
	noteRoutes.GET("", h.listNotesAction)
	noteRoutes.POST("", h.createNoteAction)
	noteRoutes.GET("/:noteID", h.getNoteAction)
	noteRoutes.PUT("/:noteID", h.updateNoteAction)
	noteRoutes.DELETE("/:noteID", h.deleteNoteAction)
}

func (h *Note) listNotesAction(c *gin.Context) {
	const op = "handlers.Note.listNotesAction"
	log := h.log.WithField("operation", op)

	var filter db.NoteFilter
	for name, dst := range map[string]*int64{
		"project_id":  &filter.ProjectID,
		"task_id":     &filter.TaskID,
		"work_log_id": &filter.WorkLogID,
	} {
		id, verr := queryID(c, name)
		if verr != nil {
			response.HandleError(verr, c)
			return
		}
		*dst = id
	}
	if user := middleware.CurrentUser(c); !user.IsAdmin() {
		filter.OwnerID = user.ID
	}

	notes, err := h.db.ListNotes(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Errorf("%s: failed to list notes", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, notes)
}

func (h *Note) getNoteAction(c *gin.Context) {
	note, ok := h.loadOwnedNote(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, note)
}

func (h *Note) createNoteAction(c *gin.Context) {
	const op = "handlers.Note.createNoteAction"
	log := h.log.WithField("operation", op)

	form, verr := worklogsform.NewCreateNoteForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	note := &models.Note{OwnerID: middleware.CurrentUser(c).ID}
	form.(*worklogsform.NoteForm).Apply(note)

	created, err := h.db.CreateNote(c.Request.Context(), note)
	if err != nil {
		log.WithError(err).WithFields(form.ConvertToMap()).Errorf("%s: failed to create note", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Note) updateNoteAction(c *gin.Context) {
	const op = "handlers.Note.updateNoteAction"
	log := h.log.WithField("operation", op)

	note, ok := h.loadOwnedNote(c)
	if !ok {
		return
	}
	form, verr := worklogsform.NewUpdateNoteForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	form.(*worklogsform.NoteForm).Apply(note)

	ctx := c.Request.Context()
	if err := h.db.UpdateNote(ctx, note); err != nil {
		log.WithError(err).WithField("note_id", note.ID).Errorf("%s: failed to update note", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	updated, err := h.db.GetNote(ctx, note.ID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Note) deleteNoteAction(c *gin.Context) {
	const op = "handlers.Note.deleteNoteAction"
	log := h.log.WithField("operation", op)

	note, ok := h.loadOwnedNote(c)
	if !ok {
		return
	}
	if err := h.db.DeleteNote(c.Request.Context(), note.ID); err != nil {
		log.WithError(err).Errorf("%s: failed to delete note", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Note deleted"})
}

func (h *Note) loadOwnedNote(c *gin.Context) (*models.Note, bool) {
	noteID, verr := paramID(c, "noteID")
	if verr != nil {
		response.HandleError(verr, c)
		return nil, false
	}

	note, err := h.db.GetNote(c.Request.Context(), noteID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return nil, false
	}
	if err := auth.Require(auth.CanAccessPersonal(middleware.CurrentUser(c), note.OwnerID), "access this note"); err != nil {
		response.HandleError(response.ResolveError(err), c)
		return nil, false
	}
	return note, true
}
