package users

import (
	"github.com/gin-gonic/gin"
	"github.com/tgienger/teamboard/internal/rest/forms"
	"github.com/tgienger/teamboard/internal/rest/response"
)

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type ChangePasswordForm struct {
	CurrentPassword string
	NewPassword     string
}

func NewChangePasswordForm() *ChangePasswordForm {
	return &ChangePasswordForm{}
}

func (f *ChangePasswordForm) ParseAndValidate(c *gin.Context) (forms.Former, response.Error) {
	request := &ChangePasswordRequest{}
	if verr := forms.DecodeJSON(c, request); verr != nil {
		return nil, verr
	}

	errors := make(map[string]response.ErrorMessage)
	if request.CurrentPassword == "" {
		forms.Missed(errors, "current_password")
	}
	if request.NewPassword == "" {
		forms.Missed(errors, "new_password")
	}
	if verr := forms.Result(errors); verr != nil {
		return nil, verr
	}

	f.CurrentPassword = request.CurrentPassword
	f.NewPassword = request.NewPassword
	return f, nil
}

func (f *ChangePasswordForm) ConvertToMap() map[string]interface{} {
	return map[string]interface{}{}
}
