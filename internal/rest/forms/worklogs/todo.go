package worklogs

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/rest/forms"
	"github.com/tgienger/teamboard/internal/rest/response"
)

type TodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	PlannedDate *string `json:"planned_date"`
	IsDone      *bool   `json:"is_done"`
}

type TodoForm struct {
	create      bool
	request     *TodoRequest
	plannedDate time.Time
}

func NewCreateTodoForm() *TodoForm {
	return &TodoForm{create: true}
}

func NewUpdateTodoForm() *TodoForm {
	return &TodoForm{}
}

func (f *TodoForm) ParseAndValidate(c *gin.Context) (forms.Former, response.Error) {
	request := &TodoRequest{}
	if verr := forms.DecodeJSON(c, request); verr != nil {
		return nil, verr
	}
	errors := make(map[string]response.ErrorMessage)
	f.validate(request, "", errors)
	if verr := forms.Result(errors); verr != nil {
		return nil, verr
	}
	return f, nil
}

func (f *TodoForm) validate(request *TodoRequest, prefix string, errors map[string]response.ErrorMessage) {
	if request.Title != nil {
		*request.Title = strings.TrimSpace(*request.Title)
	}
	if (f.create && request.Title == nil) || (request.Title != nil && *request.Title == "") {
		forms.Missed(errors, prefix+"title")
	}
	switch {
	case request.PlannedDate != nil:
		t, ok := forms.ParseDate(*request.PlannedDate)
		if !ok {
			forms.Invalid(errors, prefix+"planned_date", "invalid date")
		}
		f.plannedDate = t
	case f.create:
		forms.Missed(errors, prefix+"planned_date")
	}
	f.request = request
}

// Apply writes the provided fields onto t. Completion is handled separately.
func (f *TodoForm) Apply(t *models.Todo) {
	r := f.request
	if r.Title != nil {
		t.Title = *r.Title
	}
	if r.Description != nil {
		t.Description = *r.Description
	}
	if r.PlannedDate != nil {
		t.PlannedDate = f.plannedDate
	}
}

// IsDone returns the requested completion state and whether one was given
func (f *TodoForm) IsDone() (bool, bool) {
	if f.request.IsDone == nil {
		return false, false
	}
	return *f.request.IsDone, true
}

func (f *TodoForm) ConvertToMap() map[string]interface{} {
	m := map[string]interface{}{}
	if f.request.Title != nil {
		m["title"] = *f.request.Title
	}
	return m
}

type BulkTodoRequest struct {
	Todos []TodoRequest `json:"todos"`
}

type BulkTodoForm struct {
	Todos []*TodoForm
}

func NewBulkTodoForm() *BulkTodoForm {
	return &BulkTodoForm{}
}

func (f *BulkTodoForm) ParseAndValidate(c *gin.Context) (forms.Former, response.Error) {
	request := &BulkTodoRequest{}
	if verr := forms.DecodeJSON(c, request); verr != nil {
		return nil, verr
	}

	errors := make(map[string]response.ErrorMessage)
	if len(request.Todos) == 0 {
		forms.Missed(errors, "todos")
	}
	for i := range request.Todos {
		item := NewCreateTodoForm()
		item.validate(&request.Todos[i], fmt.Sprintf("todos[%d].", i), errors)
		f.Todos = append(f.Todos, item)
	}
	if verr := forms.Result(errors); verr != nil {
		return nil, verr
	}
	return f, nil
}

func (f *BulkTodoForm) ConvertToMap() map[string]interface{} {
	return map[string]interface{}{"count": len(f.Todos)}
}
