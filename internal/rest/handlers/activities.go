package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/rest/response"
)

const defaultActivityLimit = 50

// Activity serves the project activity feed
type Activity struct {
	log *logrus.Logger
	db  *db.DB
}

// NewActivityHandler creates an Activity handler
func NewActivityHandler(database *db.DB, log *logrus.Logger) *Activity {
	return &Activity{
		log: log,
		db:  database,
	}
}

// EnrichRoutes registers the Activity routes
func (h *Activity) EnrichRoutes(router *gin.RouterGroup) {
	router.GET("/activities", h.listActivitiesAction)
}

func (h *Activity) listActivitiesAction(c *gin.Context) {
	const op = "handlers.Activity.listActivitiesAction"
	log := h.log.WithField("operation", op)

	projectID, verr := requiredQueryID(c, "project_id")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.db.GetProject(ctx, projectID); err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}

	activities, err := h.db.ListActivities(ctx, projectID, queryInt(c, "limit", defaultActivityLimit))
	if err != nil {
		log.WithError(err).Errorf("%s: failed to list activities", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}
	if activities == nil {
		activities = []models.Activity{}
	}

	c.JSON(http.StatusOK, activities)
}
