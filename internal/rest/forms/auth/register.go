package auth

import (
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tgienger/teamboard/internal/rest/forms"
	"github.com/tgienger/teamboard/internal/rest/response"
)

type RegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	Department string `json:"department"`
	Team       string `json:"team"`
}

type RegisterForm struct {
	Username   string
	Email      string
	Password   string
	FullName   string
	Department string
	Team       string
}

func NewRegisterForm() *RegisterForm {
	return &RegisterForm{}
}

func (f *RegisterForm) ParseAndValidate(c *gin.Context) (forms.Former, response.Error) {
	var request *RegisterRequest
	if verr := forms.DecodeJSON(c, &request); verr != nil {
		return nil, verr
	}
	if request == nil {
		request = &RegisterRequest{}
	}

	errors := make(map[string]response.ErrorMessage)
	f.validateAndSetUsername(request, errors)
	f.validateAndSetEmail(request, errors)
	f.validateAndSetPassword(request, errors)
	f.FullName = strings.TrimSpace(request.FullName)
	f.Department = request.Department
	f.Team = request.Team

	if verr := forms.Result(errors); verr != nil {
		return nil, verr
	}
	return f, nil
}

func (f *RegisterForm) ConvertToMap() map[string]interface{} {
	return map[string]interface{}{
		"username":  f.Username,
		"email":     f.Email,
		"full_name": f.FullName,
	}
}

func (f *RegisterForm) validateAndSetUsername(request *RegisterRequest, errors map[string]response.ErrorMessage) {
	username := strings.TrimSpace(request.Username)
	if username == "" {
		forms.Missed(errors, "username")
		return
	}
	if strings.ContainsAny(username, " @") {
		forms.Invalid(errors, "username", "username must not contain spaces or @")
		return
	}
	f.Username = username
}

func (f *RegisterForm) validateAndSetEmail(request *RegisterRequest, errors map[string]response.ErrorMessage) {
	email := strings.TrimSpace(request.Email)
	if email == "" {
		forms.Missed(errors, "email")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		forms.Invalid(errors, "email", "invalid email address")
		return
	}
	f.Email = email
}

func (f *RegisterForm) validateAndSetPassword(request *RegisterRequest, errors map[string]response.ErrorMessage) {
	if request.Password == "" {
		forms.Missed(errors, "password")
		return
	}
	f.Password = request.Password
}
