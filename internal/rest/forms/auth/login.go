package auth

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/tgienger/teamboard/internal/rest/forms"
	"github.com/tgienger/teamboard/internal/rest/response"
)

type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type LoginForm struct {
	Username   string
	Password   string
	RememberMe bool
}

func NewLoginForm() *LoginForm {
	return &LoginForm{}
}

// ParseAndValidate accepts a JSON body or a urlencoded login form
func (f *LoginForm) ParseAndValidate(c *gin.Context) (forms.Former, response.Error) {
	request := &LoginRequest{}
	if c.ContentType() == binding.MIMEJSON {
		if verr := forms.DecodeJSON(c, request); verr != nil {
			return nil, verr
		}
	} else {
		request.Username = c.PostForm("username")
		request.Password = c.PostForm("password")
		request.RememberMe, _ = strconv.ParseBool(c.DefaultPostForm("remember_me", "false"))
	}

	errors := make(map[string]response.ErrorMessage)
	if strings.TrimSpace(request.Username) == "" {
		forms.Missed(errors, "username")
	}
	if request.Password == "" {
		forms.Missed(errors, "password")
	}
	if verr := forms.Result(errors); verr != nil {
		return nil, verr
	}

	f.Username = strings.TrimSpace(request.Username)
	f.Password = request.Password
	f.RememberMe = request.RememberMe
	return f, nil
}

func (f *LoginForm) ConvertToMap() map[string]interface{} {
	return map[string]interface{}{
		"username":    f.Username,
		"remember_me": f.RememberMe,
	}
}
