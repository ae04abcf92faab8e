package worklogs

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/rest/forms"
	"github.com/tgienger/teamboard/internal/rest/response"
)

type WorkLogRequest struct {
	Title       *string              `json:"title"`
	Content     *string              `json:"content"`
	ProjectID   *int64               `json:"project_id"`
	TaskID      *int64               `json:"task_id"`
	SubtaskID   *int64               `json:"subtask_id"`
	Attachments *[]models.Attachment `json:"attachments"`
}

// WorkLogForm validates work log creation (title required) and partial updates.
// A key sent as null clears the corresponding link.
type WorkLogForm struct {
	create  bool
	request *WorkLogRequest
	sent    map[string]bool
}

func NewCreateWorkLogForm() *WorkLogForm {
	return &WorkLogForm{create: true}
}

func NewUpdateWorkLogForm() *WorkLogForm {
	return &WorkLogForm{}
}

func (f *WorkLogForm) ParseAndValidate(c *gin.Context) (forms.Former, response.Error) {
	var raw map[string]any
	if verr := forms.DecodeJSON(c, &raw); verr != nil {
		return nil, verr
	}
	request := &WorkLogRequest{}
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
	if verr := forms.Result(errors); verr != nil {
		return nil, verr
	}
	f.request = request
	return f, nil
}

// SubtaskID returns the requested subtask link and whether the key was sent
func (f *WorkLogForm) SubtaskID() (*int64, bool) {
	return f.request.SubtaskID, f.sent["subtask_id"]
}

// Apply writes the provided fields onto w, except the subtask link
func (f *WorkLogForm) Apply(w *models.WorkLog) {
	r := f.request
	if r.Title != nil {
		w.Title = *r.Title
	}
	if r.Content != nil {
		w.Content = *r.Content
	}
	if f.sent["project_id"] {
		w.ProjectID = r.ProjectID
	}
	if f.sent["task_id"] {
		w.TaskID = r.TaskID
	}
	if r.Attachments != nil {
		w.Attachments = *r.Attachments
	}
}

func (f *WorkLogForm) ConvertToMap() map[string]interface{} {
	m := map[string]interface{}{}
	if f.request.Title != nil {
		m["title"] = *f.request.Title
	}
	if f.request.SubtaskID != nil {
		m["subtask_id"] = *f.request.SubtaskID
	}
	return m
}
