package tasks

import (
	"github.com/gin-gonic/gin"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/rest/forms"
	"github.com/tgienger/teamboard/internal/rest/response"
)

type MoveTaskRequest struct {
	NewStatus   string `json:"new_status"`
	NewPosition *int   `json:"new_position"`
}

type MoveTaskForm struct {
	NewStatus   models.TaskStatus
	NewPosition int
}

func NewMoveTaskForm() *MoveTaskForm {
	return &MoveTaskForm{}
}

func (f *MoveTaskForm) ParseAndValidate(c *gin.Context) (forms.Former, response.Error) {
	request := &MoveTaskRequest{}
	if verr := forms.DecodeJSON(c, request); verr != nil {
		return nil, verr
	}

	errors := make(map[string]response.ErrorMessage)
	f.validateAndSetStatus(request, errors)
	f.validateAndSetPosition(request, errors)

	if verr := forms.Result(errors); verr != nil {
		return nil, verr
	}
	return f, nil
}

func (f *MoveTaskForm) ConvertToMap() map[string]interface{} {
	return map[string]interface{}{
		"new_status":   f.NewStatus,
		"new_position": f.NewPosition,
	}
}

func (f *MoveTaskForm) validateAndSetStatus(request *MoveTaskRequest, errors map[string]response.ErrorMessage) {
	if request.NewStatus == "" {
		forms.Missed(errors, "new_status")
		return
	}
	status := models.TaskStatus(request.NewStatus)
	if !status.Valid() {
		forms.Invalid(errors, "new_status", "status must be todo, in_progress, blocked or done")
		return
	}
	f.NewStatus = status
}

func (f *MoveTaskForm) validateAndSetPosition(request *MoveTaskRequest, errors map[string]response.ErrorMessage) {
	if request.NewPosition == nil {
		forms.Missed(errors, "new_position")
		return
	}
	if *request.NewPosition < 0 {
		forms.Invalid(errors, "new_position", "position must not be negative")
		return
	}
	f.NewPosition = *request.NewPosition
}
