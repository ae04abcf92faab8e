package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/rest/response"
)

type messageResponse struct {
	Message string `json:"message"`
}

// taskLoader is satisfied by both *db.DB and *db.Tx
type taskLoader interface {
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	GetProject(ctx context.Context, id int64) (*models.Project, error)
}

// loadTask returns a task together with its project
func loadTask(ctx context.Context, q taskLoader, taskID int64) (*models.Task, *models.Project, error) {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	project, err := q.GetProject(ctx, task.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return task, project, nil
}

func paramID(c *gin.Context, name string) (int64, response.Error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		ve := response.NewValidationError()
		ve.SetError(name, response.InvalidValue, "invalid id")
		return 0, ve
	}
	return id, nil
}

// queryID parses an optional positive id query parameter; 0 means absent
func queryID(c *gin.Context, name string) (int64, response.Error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		ve := response.NewValidationError()
		ve.SetError(name, response.InvalidValue, "invalid id")
		return 0, ve
	}
	return id, nil
}

// requiredQueryID parses a mandatory positive id query parameter
func requiredQueryID(c *gin.Context, name string) (int64, response.Error) {
	id, verr := queryID(c, name)
	if verr != nil {
		return 0, verr
	}
	if id == 0 {
		ve := response.NewValidationError()
		ve.SetError(name, response.MissedValue, "field is required")
		return 0, ve
	}
	return id, nil
}

func queryInt(c *gin.Context, name string, def int) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil || n < 0 {
		return def
	}
	return n
}

func queryBool(c *gin.Context, name string, def bool) bool {
	b, err := strconv.ParseBool(c.Query(name))
	if err != nil {
		return def
	}
	return b
}

func int64Ptr(v int64) *int64 {
	return &v
}
