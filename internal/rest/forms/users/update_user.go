package users

import (
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/rest/forms"
	"github.com/tgienger/teamboard/internal/rest/response"
)

type UpdateUserRequest struct {
	Username   *string `json:"username"`
	Email      *string `json:"email"`
	FullName   *string `json:"full_name"`
	AvatarURL  *string `json:"avatar_url"`
	Department *string `json:"department"`
	Team       *string `json:"team"`
	Role       *string `json:"role"`
	IsActive   *bool   `json:"is_active"`
}

// UpdateUserForm carries a partial profile update. admin selects whether
// username, role and is_active may be changed.
type UpdateUserForm struct {
	admin   bool
	request *UpdateUserRequest
}

func NewUpdateMeForm() *UpdateUserForm {
	return &UpdateUserForm{}
}

func NewAdminUpdateUserForm() *UpdateUserForm {
	return &UpdateUserForm{admin: true}
}

func (f *UpdateUserForm) ParseAndValidate(c *gin.Context) (forms.Former, response.Error) {
	request := &UpdateUserRequest{}
	if verr := forms.DecodeJSON(c, request); verr != nil {
		return nil, verr
	}

	errors := make(map[string]response.ErrorMessage)
	if !f.admin {
		request.Username, request.Role, request.IsActive = nil, nil, nil
	}
	if request.Username != nil {
		*request.Username = strings.TrimSpace(*request.Username)
		if *request.Username == "" {
			forms.Missed(errors, "username")
		}
	}
	if request.Email != nil {
		*request.Email = strings.TrimSpace(*request.Email)
		if _, err := mail.ParseAddress(*request.Email); err != nil {
			forms.Invalid(errors, "email", "invalid email address")
		}
	}
	if request.Role != nil && !models.Role(*request.Role).Valid() {
		forms.Invalid(errors, "role", "role must be admin, member or viewer")
	}

	if verr := forms.Result(errors); verr != nil {
		return nil, verr
	}
	f.request = request
	return f, nil
}

// Apply writes the provided fields onto u
func (f *UpdateUserForm) Apply(u *models.User) {
	r := f.request
	if r.Username != nil {
		u.Username = *r.Username
	}
	if r.Email != nil {
		u.Email = *r.Email
	}
	if r.FullName != nil {
		u.FullName = *r.FullName
	}
	if r.AvatarURL != nil {
		u.AvatarURL = *r.AvatarURL
	}
	if r.Department != nil {
		u.Department = *r.Department
	}
	if r.Team != nil {
		u.Team = *r.Team
	}
	if r.Role != nil {
		u.Role = models.Role(*r.Role)
	}
	if r.IsActive != nil {
		u.IsActive = *r.IsActive
	}
}

func (f *UpdateUserForm) ConvertToMap() map[string]interface{} {
	m := map[string]interface{}{}
	if f.request.Username != nil {
		m["username"] = *f.request.Username
	}
	if f.request.Email != nil {
		m["email"] = *f.request.Email
	}
	if f.request.Role != nil {
		m["role"] = *f.request.Role
	}
	return m
}
