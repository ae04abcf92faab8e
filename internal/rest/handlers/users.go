package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/db"
	usersform "github.com/tgienger/teamboard/internal/rest/forms/users"
	"github.com/tgienger/teamboard/internal/rest/middleware"
	"github.com/tgienger/teamboard/internal/rest/response"
	"github.com/tgienger/teamboard/internal/uploads"
)

// User serves user profiles and admin user management
type User struct {
	log     *logrus.Logger
	db      *db.DB
	auth    *auth.Service
	uploads *uploads.Store
}

// NewUserHandler creates a User handler
func NewUserHandler(database *db.DB, svc *auth.Service, store *uploads.Store, log *logrus.Logger) *User {
	return &User{
		log:     log,
		db:      database,
		auth:    svc,
		uploads: store,
	}
}

// EnrichRoutes registers the User routes
func (h *User) EnrichRoutes(router *gin.RouterGroup) {
	userRoutes := router.Group("/users")
	userRoutes.GET("", h.listUsersAction)
	userRoutes.PUT("/me", h.updateMeAction)
	userRoutes.POST("/me/change-password", h.changePasswordAction)
	userRoutes.GET("/:userID", h.getUserAction)

	adminRoutes := userRoutes.Group("", middleware.RequireAdmin())
	adminRoutes.PUT("/:userID", h.updateUserAction)
	adminRoutes.POST("/:userID/avatar", h.uploadAvatarAction)
}

func (h *User) listUsersAction(c *gin.Context) {
	const op = "handlers.User.listUsersAction"
	log := h.log.WithField("operation", op)

	users, err := h.db.ListUsers(c.Request.Context(), queryInt(c, "limit", 100), queryInt(c, "skip", 0))
	if err != nil {
		log.WithError(err).Errorf("%s: failed to list users", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, users)
}

func (h *User) getUserAction(c *gin.Context) {
	const op = "handlers.User.getUserAction"
	log := h.log.WithField("operation", op)

	userID, verr := paramID(c, "userID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	user, err := h.db.GetUser(c.Request.Context(), userID)
	if err != nil {
		log.WithError(err).Warnf("%s: failed to get user", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *User) updateMeAction(c *gin.Context) {
	const op = "handlers.User.updateMeAction"
	log := h.log.WithField("operation", op)

	form, verr := usersform.NewUpdateMeForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	ctx := c.Request.Context()
	user, err := h.db.GetUser(ctx, middleware.CurrentUser(c).ID)
	if err != nil {
		log.WithError(err).Errorf("%s: failed to load user", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}
	form.(*usersform.UpdateUserForm).Apply(user)

	if err := h.db.UpdateUser(ctx, user); err != nil {
		log.WithError(err).WithFields(form.ConvertToMap()).Warnf("%s: failed to update user", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *User) changePasswordAction(c *gin.Context) {
	const op = "handlers.User.changePasswordAction"
	log := h.log.WithField("operation", op)

	form, verr := usersform.NewChangePasswordForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	f := form.(*usersform.ChangePasswordForm)

	user := middleware.CurrentUser(c)
	if err := h.auth.ChangePassword(c.Request.Context(), user, f.CurrentPassword, f.NewPassword); err != nil {
		log.WithError(err).WithField("user_id", user.ID).Infof("%s: password change rejected", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Password changed successfully"})
}

func (h *User) updateUserAction(c *gin.Context) {
	const op = "handlers.User.updateUserAction"
	log := h.log.WithField("operation", op)

	userID, verr := paramID(c, "userID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	form, verr := usersform.NewAdminUpdateUserForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	ctx := c.Request.Context()
	user, err := h.db.GetUser(ctx, userID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}
	form.(*usersform.UpdateUserForm).Apply(user)

	if err := h.db.UpdateUser(ctx, user); err != nil {
		log.WithError(err).WithFields(form.ConvertToMap()).Warnf("%s: failed to update user", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *User) uploadAvatarAction(c *gin.Context) {
	const op = "handlers.User.uploadAvatarAction"
	log := h.log.WithField("operation", op)

	userID, verr := paramID(c, "userID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.HandleError(response.NewBadRequestError("file is required"), c)
		return
	}

	ctx := c.Request.Context()
	user, err := h.db.GetUser(ctx, userID)
	if err != nil {
		response.HandleError(response.ResolveError(err), c)
		return
	}

	att, err := h.uploads.Save(file, "avatars", uploads.ImageExtensions...)
	if err != nil {
		log.WithError(err).Warnf("%s: failed to store avatar", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	previous := user.AvatarURL
	user.AvatarURL = att.URL
	if err := h.db.UpdateUser(ctx, user); err != nil {
		log.WithError(err).Errorf("%s: failed to save avatar url", op)
		_ = h.uploads.Remove(att.URL)
		response.HandleError(response.ResolveError(err), c)
		return
	}
	if err := h.uploads.Remove(previous); err != nil {
		log.WithError(err).Warnf("%s: failed to remove previous avatar", op)
	}

	c.JSON(http.StatusOK, user)
}
