package handlers

import (
	"errors"
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

// Team serves project team membership
type Team struct {
	log *logrus.Logger
	db  *db.DB
}

// NewTeamHandler creates a Team handler
func NewTeamHandler(database *db.DB, log *logrus.Logger) *Team {
	return &Team{
		log: log,
		db:  database,
	}
}

// EnrichRoutes registers the Team routes
func (h *Team) EnrichRoutes(router *gin.RouterGroup) {
	teamRoutes := router.Group("/teams")
	teamRoutes.GET("/project/:projectID", h.listMembersAction)
	teamRoutes.POST("", h.addMemberAction)
	teamRoutes.DELETE("/:memberID", h.removeMemberAction)
	teamRoutes.PUT("/:memberID/role", h.changeRoleAction)
}

func (h *Team) listMembersAction(c *gin.Context) {
	const op = "handlers.Team.listMembersAction"
	log := h.log.WithField("operation", op)

	projectID, verr := paramID(c, "projectID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.db.GetProject(ctx, projectID); err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	members, err := h.db.ListTeamMembers(ctx, projectID)
	if err != nil {
		log.WithError(err).Errorf("%s: failed to list members", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}
	if members == nil {
		members = []models.TeamMember{}
	}

	c.JSON(http.StatusOK, members)
}

func (h *Team) addMemberAction(c *gin.Context) {
	const op = "handlers.Team.addMemberAction"
	log := h.log.WithField("operation", op)

	form, verr := projectsform.NewAddTeamMemberForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	f := form.(*projectsform.AddTeamMemberForm)

	ctx := c.Request.Context()
	project, err := h.db.GetProject(ctx, f.ProjectID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	if err := auth.Require(auth.CanManageTeam(middleware.CurrentUser(c), project), "manage this team"); err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	if _, err := h.db.GetUser(ctx, f.UserID); err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}

	member, err := h.db.AddTeamMember(ctx, f.ProjectID, f.UserID, f.Role)
	if errors.Is(err, db.ErrConflict) {
		response.HandleError(response.NewConflictError("User is already a team member"), c)
		return
	}
	if err != nil {
		log.WithError(err).WithFields(f.ConvertToMap()).Errorf("%s: failed to add member", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusCreated, member)
}

func (h *Team) removeMemberAction(c *gin.Context) {
	const op = "handlers.Team.removeMemberAction"
	log := h.log.WithField("operation", op)

	member, ok := h.loadManagedMember(c)
	if !ok {
		return
	}

	if err := h.db.RemoveTeamMember(c.Request.Context(), member.ID); err != nil {
		log.WithError(err).Errorf("%s: failed to remove member", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Team member removed successfully"})
}

func (h *Team) changeRoleAction(c *gin.Context) {
	const op = "handlers.Team.changeRoleAction"
	log := h.log.WithField("operation", op)

	member, ok := h.loadManagedMember(c)
	if !ok {
		return
	}
	form, verr := projectsform.NewChangeRoleForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	ctx := c.Request.Context()
	if err := h.db.UpdateTeamMemberRole(ctx, member.ID, form.(*projectsform.ChangeRoleForm).Role); err != nil {
		log.WithError(err).Errorf("%s: failed to change role", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	updated, err := h.db.GetTeamMember(ctx, member.ID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// loadManagedMember loads the member named in the path and checks the caller may manage its project
func (h *Team) loadManagedMember(c *gin.Context) (*models.TeamMember, bool) {
	memberID, verr := paramID(c, "memberID")
	if verr != nil {
		response.HandleError(verr, c)
		return nil, false
	}

	ctx := c.Request.Context()
	member, err := h.db.GetTeamMember(ctx, memberID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return nil, false
	}
	project, err := h.db.GetProject(ctx, member.ProjectID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return nil, false
	}
	if err := auth.Require(auth.CanManageTeam(middleware.CurrentUser(c), project), "manage this team"); err != nil {
		response.HandleError(response.ResolveError(err), c)
		return nil, false
	}
	return member, true
}
