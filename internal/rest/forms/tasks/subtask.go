package tasks

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/rest/forms"
	"github.com/tgienger/teamboard/internal/rest/response"
)

type SubtaskRequest struct {
	TaskID        int64   `json:"task_id"`
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	AttachmentURL *string `json:"attachment_url"`
	IsDone        *bool   `json:"is_done"`
	WorkLogID     *int64  `json:"work_log_id"`
}

// SubtaskForm validates subtask creation (task_id and title required) and partial updates
type SubtaskForm struct {
	create      bool
	request     *SubtaskRequest
	workLogSent bool
}

func NewCreateSubtaskForm() *SubtaskForm {
	return &SubtaskForm{create: true}
}

func NewUpdateSubtaskForm() *SubtaskForm {
	return &SubtaskForm{}
}

func (f *SubtaskForm) ParseAndValidate(c *gin.Context) (forms.Former, response.Error) {
	var raw map[string]any
	request := &SubtaskRequest{}
	if verr := forms.DecodeJSON(c, &raw); verr != nil {
		return nil, verr
	}
	if verr := forms.Remarshal(raw, request); verr != nil {
		return nil, verr
	}
	_, f.workLogSent = raw["work_log_id"]

	errors := make(map[string]response.ErrorMessage)
	if f.create && request.TaskID == 0 {
		forms.Missed(errors, "task_id")
	}
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

func (f *SubtaskForm) TaskID() int64 {
	return f.request.TaskID
}

// WorkLogID returns the requested work log link and whether the field was sent.
// An explicit null clears the link.
func (f *SubtaskForm) WorkLogID() (*int64, bool) {
	return f.request.WorkLogID, f.workLogSent
}

// Apply writes the provided fields onto s, except the work log link
func (f *SubtaskForm) Apply(s *models.SubTask) {
	r := f.request
	if r.Title != nil {
		s.Title = *r.Title
	}
	if r.Description != nil {
		s.Description = *r.Description
	}
	if r.AttachmentURL != nil {
		s.AttachmentURL = *r.AttachmentURL
	}
	if r.IsDone != nil {
		s.IsDone = *r.IsDone
	}
}

func (f *SubtaskForm) ConvertToMap() map[string]interface{} {
	m := map[string]interface{}{"task_id": f.request.TaskID}
	if f.request.Title != nil {
		m["title"] = *f.request.Title
	}
	if f.request.IsDone != nil {
		m["is_done"] = *f.request.IsDone
	}
	return m
}
