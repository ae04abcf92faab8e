package worklogs

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/rest/forms"
	"github.com/tgienger/teamboard/internal/rest/response"
)

type NoteRequest struct {
	Title     *string `json:"title"`
	NoteDate  *string `json:"note_date"`
	Content   *string `json:"content"`
	ProjectID *int64  `json:"project_id"`
	TaskID    *int64  `json:"task_id"`
	WorkLogID *int64  `json:"work_log_id"`
}

type NoteForm struct {
	create   bool
	request  *NoteRequest
	noteDate *time.Time
	sent     map[string]bool
}

func NewCreateNoteForm() *NoteForm {
	return &NoteForm{create: true}
}

func NewUpdateNoteForm() *NoteForm {
	return &NoteForm{}
}

func (f *NoteForm) ParseAndValidate(c *gin.Context) (forms.Former, response.Error) {
	var raw map[string]any
	if verr := forms.DecodeJSON(c, &raw); verr != nil {
		return nil, verr
	}
	request := &NoteRequest{}
	if verr := forms.Remarshal(raw, request); verr != nil {
		return nil, verr
	}
	f.sent = make(map[string]bool, len(raw))
	for k := range raw {
		f.sent[k] = true
	}

	errors := make(map[string]response.ErrorMessage)
	if request.Title != nil {
		*request.Title = strings.TrimSpace(*request.Title)
	}
	if (f.create && request.Title == nil) || (request.Title != nil && *request.Title == "") {
		forms.Missed(errors, "title")
	}
	f.noteDate, _ = forms.OptionalDate(errors, "note_date", request.NoteDate)

	if verr := forms.Result(errors); verr != nil {
		return nil, verr
	}
	f.request = request
	return f, nil
}

// Apply writes the provided fields onto n
func (f *NoteForm) Apply(n *models.Note) {
	r := f.request
	if r.Title != nil {
		n.Title = *r.Title
	}
	if r.Content != nil {
		n.Content = *r.Content
	}
	if f.sent["note_date"] {
		n.NoteDate = f.noteDate
	}
	if f.sent["project_id"] {
		n.ProjectID = r.ProjectID
	}
	if f.sent["task_id"] {
		n.TaskID = r.TaskID
	}
	if f.sent["work_log_id"] {
		n.WorkLogID = r.WorkLogID
	}
}

func (f *NoteForm) ConvertToMap() map[string]interface{} {
	m := map[string]interface{}{}
	if f.request.Title != nil {
		m["title"] = *f.request.Title
	}
	return m
}
