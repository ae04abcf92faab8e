package threads

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tgienger/teamboard/internal/rest/forms"
	"github.com/tgienger/teamboard/internal/rest/response"
)

type CreateThreadRequest struct {
	ProjectID int64  `json:"project_id"`
	Content   string `json:"content"`
	ParentID  *int64 `json:"parent_id"`
}

type CreateThreadForm struct {
	ProjectID int64
	Content   string
	ParentID  *int64
}

func NewCreateThreadForm() *CreateThreadForm {
	return &CreateThreadForm{}
}

func (f *CreateThreadForm) ParseAndValidate(c *gin.Context) (forms.Former, response.Error) {
	request := &CreateThreadRequest{}
	if verr := forms.DecodeJSON(c, request); verr != nil {
		return nil, verr
	}

	errors := make(map[string]response.ErrorMessage)
	if request.ProjectID == 0 {
		forms.Missed(errors, "project_id")
	}
	if strings.TrimSpace(request.Content) == "" {
		forms.Missed(errors, "content")
	}
	if verr := forms.Result(errors); verr != nil {
		return nil, verr
	}

	f.ProjectID = request.ProjectID
	f.Content = request.Content
	f.ParentID = request.ParentID
	return f, nil
}

func (f *CreateThreadForm) ConvertToMap() map[string]interface{} {
	return map[string]interface{}{
		"project_id": f.ProjectID,
		"parent_id":  f.ParentID,
	}
}

type CreateCommentRequest struct {
	TaskID        int64  `json:"task_id"`
	Content       string `json:"content"`
	AttachmentURL string `json:"attachment_url"`
}

type CreateCommentForm struct {
	TaskID        int64
	Content       string
	AttachmentURL string
}

func NewCreateCommentForm() *CreateCommentForm {
	return &CreateCommentForm{}
}

func (f *CreateCommentForm) ParseAndValidate(c *gin.Context) (forms.Former, response.Error) {
	request := &CreateCommentRequest{}
	if verr := forms.DecodeJSON(c, request); verr != nil {
		return nil, verr
	}

	errors := make(map[string]response.ErrorMessage)
	if request.TaskID == 0 {
		forms.Missed(errors, "task_id")
	}
	if strings.TrimSpace(request.Content) == "" && request.AttachmentURL == "" {
		forms.Missed(errors, "content")
	}
	if verr := forms.Result(errors); verr != nil {
		return nil, verr
	}

	f.TaskID = request.TaskID
	f.Content = request.Content
	f.AttachmentURL = request.AttachmentURL
	return f, nil
}

func (f *CreateCommentForm) ConvertToMap() map[string]interface{} {
	return map[string]interface{}{"task_id": f.TaskID}
}

type EditMessageRequest struct {
	Content       *string `json:"content"`
	AttachmentURL *string `json:"attachment_url"`
}

// EditMessageForm validates an edit of a thread message or comment
type EditMessageForm struct {
	Content       *string
	AttachmentURL *string
}

func NewEditMessageForm() *EditMessageForm {
	return &EditMessageForm{}
}

func (f *EditMessageForm) ParseAndValidate(c *gin.Context) (forms.Former, response.Error) {
	request := &EditMessageRequest{}
	if verr := forms.DecodeJSON(c, request); verr != nil {
		return nil, verr
	}

	errors := make(map[string]response.ErrorMessage)
	if request.Content != nil && strings.TrimSpace(*request.Content) == "" {
		forms.Missed(errors, "content")
	}
	if verr := forms.Result(errors); verr != nil {
		return nil, verr
	}

	f.Content = request.Content
	f.AttachmentURL = request.AttachmentURL
	return f, nil
}

func (f *EditMessageForm) ConvertToMap() map[string]interface{} {
	return map[string]interface{}{"content_changed": f.Content != nil}
}
