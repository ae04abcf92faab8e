package projects

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/rest/forms"
	"github.com/tgienger/teamboard/internal/rest/response"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

var projectStatuses = map[string]bool{"active": true, "completed": true, "archived": true}

type ProjectRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	Status        *string `json:"status"`
	Color         *string `json:"color"`
	ProjectTypeID *int64  `json:"project_type_id"`
	DueDate       *string `json:"due_date"`
}

// ProjectForm validates project creation (name required) and partial updates
type ProjectForm struct {
	create  bool
	request *ProjectRequest
	dueDate *time.Time
}

func NewCreateProjectForm() *ProjectForm {
	return &ProjectForm{create: true}
}

func NewUpdateProjectForm() *ProjectForm {
	return &ProjectForm{}
}

func (f *ProjectForm) ParseAndValidate(c *gin.Context) (forms.Former, response.Error) {
	request := &ProjectRequest{}
	if verr := forms.DecodeJSON(c, request); verr != nil {
		return nil, verr
	}

	errors := make(map[string]response.ErrorMessage)
	if request.Name != nil {
		*request.Name = strings.TrimSpace(*request.Name)
	}
	if (f.create && request.Name == nil) || (request.Name != nil && *request.Name == "") {
		forms.Missed(errors, "name")
	}
	if request.Status != nil && !projectStatuses[*request.Status] {
		forms.Invalid(errors, "status", "status must be active, completed or archived")
	}
	if request.Color != nil && !colorPattern.MatchString(*request.Color) {
		forms.Invalid(errors, "color", "color must look like #rrggbb")
	}
	f.dueDate, _ = forms.OptionalDate(errors, "due_date", request.DueDate)

	if verr := forms.Result(errors); verr != nil {
		return nil, verr
	}
	f.request = request
	return f, nil
}

// Apply writes the provided fields onto p
func (f *ProjectForm) Apply(p *models.Project) {
	r := f.request
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Status != nil {
		p.Status = *r.Status
	}
	if r.Color != nil {
		p.Color = *r.Color
	}
	if r.ProjectTypeID != nil {
		p.ProjectTypeID = r.ProjectTypeID
	}
	if r.DueDate != nil {
		p.DueDate = f.dueDate
	}
}

func (f *ProjectForm) ConvertToMap() map[string]interface{} {
	m := map[string]interface{}{}
	if f.request.Name != nil {
		m["name"] = *f.request.Name
	}
	if f.request.Status != nil {
		m["status"] = *f.request.Status
	}
	return m
}
