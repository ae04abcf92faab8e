package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
	projectsform "github.com/tgienger/teamboard/internal/rest/forms/projects"
	"github.com/tgienger/teamboard/internal/rest/middleware"
	"github.com/tgienger/teamboard/internal/rest/response"
)

// Project serves projects
type Project struct {
	log *logrus.Logger
	db  *db.DB
}

// NewProjectHandler creates a Project handler
func NewProjectHandler(database *db.DB, log *logrus.Logger) *Project {
	return &Project{
		log: log,
		db:  database,
	}
}

// EnrichRoutes registers the Project routes
func (h *Project) EnrichRoutes(router *gin.RouterGroup) {
	projectRoutes := router.Group("/projects")
	projectRoutes.GET("", h.listProjectsAction)
	projectRoutes.POST("", h.createProjectAction)
	projectRoutes.GET("/types/list", h.listProjectTypesAction)
	projectRoutes.GET("/:projectID", h.getProjectAction)
	projectRoutes.PUT("/:projectID", h.updateProjectAction)
	projectRoutes.DELETE("/:projectID", h.deleteProjectAction)
}

func (h *Project) listProjectsAction(c *gin.Context) {
	const op = "handlers.Project.listProjectsAction"
	log := h.log.WithField("operation", op)

	ctx := c.Request.Context()
	var projects []models.Project
	var err error
	if queryBool(c, "mine", false) {
		projects, err = h.db.ListProjectsForUser(ctx, middleware.CurrentUser(c).ID)
	} else {
		projects, err = h.db.ListProjects(ctx)
	}
	if err != nil {
		log.WithError(err).Errorf("%s: failed to list projects", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}
	if projects == nil {
		projects = []models.Project{}
	}

	c.JSON(http.StatusOK, projects)
}

func (h *Project) getProjectAction(c *gin.Context) {
	projectID, verr := paramID(c, "projectID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	project, err := h.db.GetProject(c.Request.Context(), projectID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, project)
}

func (h *Project) createProjectAction(c *gin.Context) {
	const op = "handlers.Project.createProjectAction"
	log := h.log.WithField("operation", op)
	log.Info("create project")

	form, verr := projectsform.NewCreateProjectForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	project := &models.Project{OwnerID: middleware.CurrentUser(c).ID}
	form.(*projectsform.ProjectForm).Apply(project)

	created, err := h.db.CreateProject(c.Request.Context(), project)
	if err != nil {
		log.WithError(err).WithFields(form.ConvertToMap()).Errorf("%s: failed to create project", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Project) updateProjectAction(c *gin.Context) {
	const op = "handlers.Project.updateProjectAction"
	log := h.log.WithField("operation", op)

	projectID, verr := paramID(c, "projectID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	form, verr := projectsform.NewUpdateProjectForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	ctx := c.Request.Context()
	project, err := h.db.GetProject(ctx, projectID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	if err := auth.Require(auth.OwnsProject(middleware.CurrentUser(c), project), "update this project"); err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}

	form.(*projectsform.ProjectForm).Apply(project)
	if err := h.db.UpdateProject(ctx, project); err != nil {
		log.WithError(err).Errorf("%s: failed to update project", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	updated, err := h.db.GetProject(ctx, projectID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Project) deleteProjectAction(c *gin.Context) {
	const op = "handlers.Project.deleteProjectAction"
	log := h.log.WithField("operation", op)

	projectID, verr := paramID(c, "projectID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	ctx := c.Request.Context()
	project, err := h.db.GetProject(ctx, projectID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	if err := auth.Require(auth.OwnsProject(middleware.CurrentUser(c), project), "delete this project"); err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}

	if err := h.db.DeleteProject(ctx, projectID); err != nil {
		log.WithError(err).Errorf("%s: failed to delete project", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	log.WithField("project_id", projectID).Info("project deleted")
	c.JSON(http.StatusOK, messageResponse{Message: "Project deleted successfully"})
}

func (h *Project) listProjectTypesAction(c *gin.Context) {
	const op = "handlers.Project.listProjectTypesAction"
	log := h.log.WithField("operation", op)

	types, err := h.db.ListProjectTypes(c.Request.Context())
	if err != nil {
		log.WithError(err).Errorf("%s: failed to list project types", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}
	if types == nil {
		types = []models.ProjectType{}
	}

	c.JSON(http.StatusOK, types)
}
