package projects

import (
	"github.com/gin-gonic/gin"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/rest/forms"
	"github.com/tgienger/teamboard/internal/rest/response"
)

type AddTeamMemberRequest struct {
	ProjectID int64  `json:"project_id"`
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
}

type AddTeamMemberForm struct {
	ProjectID int64
	UserID    int64
	Role      models.Role
}

func NewAddTeamMemberForm() *AddTeamMemberForm {
	return &AddTeamMemberForm{}
}

func (f *AddTeamMemberForm) ParseAndValidate(c *gin.Context) (forms.Former, response.Error) {
	request := &AddTeamMemberRequest{}
	if verr := forms.DecodeJSON(c, request); verr != nil {
		return nil, verr
	}

	errors := make(map[string]response.ErrorMessage)
	if request.ProjectID == 0 {
		forms.Missed(errors, "project_id")
	}
	if request.UserID == 0 {
		forms.Missed(errors, "user_id")
	}
	f.Role = models.RoleMember
	if request.Role != "" {
		if !models.Role(request.Role).Valid() {
			forms.Invalid(errors, "role", "role must be admin, member or viewer")
		}
		f.Role = models.Role(request.Role)
	}
	if verr := forms.Result(errors); verr != nil {
		return nil, verr
	}

	f.ProjectID = request.ProjectID
	f.UserID = request.UserID
	return f, nil
}

func (f *AddTeamMemberForm) ConvertToMap() map[string]interface{} {
	return map[string]interface{}{
		"project_id": f.ProjectID,
		"user_id":    f.UserID,
		"role":       f.Role,
	}
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

type ChangeRoleForm struct {
	Role models.Role
}

func NewChangeRoleForm() *ChangeRoleForm {
	return &ChangeRoleForm{}
}

func (f *ChangeRoleForm) ParseAndValidate(c *gin.Context) (forms.Former, response.Error) {
	request := &ChangeRoleRequest{}
	if verr := forms.DecodeJSON(c, request); verr != nil {
		return nil, verr
	}

	errors := make(map[string]response.ErrorMessage)
	if request.Role == "" {
		forms.Missed(errors, "role")
	} else if !models.Role(request.Role).Valid() {
		forms.Invalid(errors, "role", "role must be admin, member or viewer")
	}
	if verr := forms.Result(errors); verr != nil {
		return nil, verr
	}

	f.Role = models.Role(request.Role)
	return f, nil
}

func (f *ChangeRoleForm) ConvertToMap() map[string]interface{} {
	return map[string]interface{}{"role": f.Role}
}
