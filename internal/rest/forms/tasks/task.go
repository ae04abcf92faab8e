package tasks

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/rest/forms"
	"github.com/tgienger/teamboard/internal/rest/response"
)

type TaskRequest struct {
	ProjectID   int64    `json:"project_id"`
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Status      *string  `json:"status"`
	Priority    *string  `json:"priority"`
	AssigneeIDs *[]int64 `json:"assignee_ids"`
	DueDate     *string  `json:"due_date"`
	Tags        *string  `json:"tags"`
}

// TaskForm validates task creation (project_id and title required) and partial updates
type TaskForm struct {
	create  bool
	request *TaskRequest
	dueDate *time.Time
}

func NewCreateTaskForm() *TaskForm {
	return &TaskForm{create: true}
}

func NewUpdateTaskForm() *TaskForm {
	return &TaskForm{}
}

func (f *TaskForm) ParseAndValidate(c *gin.Context) (forms.Former, response.Error) {
	request := &TaskRequest{}
	if verr := forms.DecodeJSON(c, request); verr != nil {
		return nil, verr
	}

	errors := make(map[string]response.ErrorMessage)
	if f.create && request.ProjectID == 0 {
		forms.Missed(errors, "project_id")
	}
	if request.Title != nil {
		*request.Title = strings.TrimSpace(*request.Title)
	}
	if (f.create && request.Title == nil) || (request.Title != nil && *request.Title == "") {
		forms.Missed(errors, "title")
	}
	if request.Status != nil && !models.TaskStatus(*request.Status).Valid() {
		forms.Invalid(errors, "status", "status must be todo, in_progress, blocked or done")
	}
	if request.Priority != nil && !models.TaskPriority(*request.Priority).Valid() {
		forms.Invalid(errors, "priority", "priority must be low, medium, high or urgent")
	}
	f.dueDate, _ = forms.OptionalDate(errors, "due_date", request.DueDate)

	if verr := forms.Result(errors); verr != nil {
		return nil, verr
	}
	f.request = request
	return f, nil
}

func (f *TaskForm) ProjectID() int64 {
	return f.request.ProjectID
}

// Status returns the requested status, or "" when none was given
func (f *TaskForm) Status() models.TaskStatus {
	if f.request.Status == nil {
		return ""
	}
	return models.TaskStatus(*f.request.Status)
}

// AssigneeIDs returns the requested assignee set and whether one was given
func (f *TaskForm) AssigneeIDs() ([]int64, bool) {
	if f.request.AssigneeIDs == nil {
		return nil, false
	}
	seen := map[int64]bool{}
	var ids []int64
	for _, id := range *f.request.AssigneeIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, true
}

// Apply writes the descriptive fields onto t and reports which of them changed
func (f *TaskForm) Apply(t *models.Task) []string {
	r := f.request
	var changed []string
	if r.Title != nil && *r.Title != t.Title {
		t.Title = *r.Title
		changed = append(changed, "title")
	}
	if r.Description != nil && *r.Description != t.Description {
		t.Description = *r.Description
		changed = append(changed, "description")
	}
	if r.Priority != nil && models.TaskPriority(*r.Priority) != t.Priority {
		t.Priority = models.TaskPriority(*r.Priority)
		changed = append(changed, "priority")
	}
	if r.DueDate != nil && !sameTime(f.dueDate, t.DueDate) {
		t.DueDate = f.dueDate
		changed = append(changed, "due_date")
	}
	if r.Tags != nil && *r.Tags != t.Tags {
		t.Tags = *r.Tags
		changed = append(changed, "tags")
	}
	return changed
}

func (f *TaskForm) ConvertToMap() map[string]interface{} {
	m := map[string]interface{}{"project_id": f.request.ProjectID}
	if f.request.Title != nil {
		m["title"] = *f.request.Title
	}
	if f.request.Status != nil {
		m["status"] = *f.request.Status
	}
	return m
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
