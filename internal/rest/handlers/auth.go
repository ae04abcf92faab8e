package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/auth"
	authform "github.com/tgienger/teamboard/internal/rest/forms/auth"
	"github.com/tgienger/teamboard/internal/rest/middleware"
	"github.com/tgienger/teamboard/internal/rest/response"
)

// Auth serves registration, login and sessions
type Auth struct {
	log  *logrus.Logger
	auth *auth.Service
}

// NewAuthHandler creates an Auth handler
func NewAuthHandler(svc *auth.Service, log *logrus.Logger) *Auth {
	return &Auth{
		log:  log,
		auth: svc,
	}
}

// EnrichRoutes registers the public login routes on api and the session routes on private
func (h *Auth) EnrichRoutes(api, private *gin.RouterGroup) {
	authRoutes := api.Group("/auth")
	authRoutes.POST("/register", h.registerAction)
	authRoutes.POST("/login", h.loginAction)

	sessionRoutes := private.Group("/auth")
	sessionRoutes.GET("/me", h.meAction)
	sessionRoutes.POST("/logout", h.logoutAction)
}

func (h *Auth) registerAction(c *gin.Context) {
	const op = "handlers.Auth.registerAction"
	log := h.log.WithField("operation", op)
	log.Info("register user")

	form, verr := authform.NewRegisterForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	f := form.(*authform.RegisterForm)

	user, err := h.auth.Register(c.Request.Context(), auth.RegisterInput{
		Username: f.Username,
		Email:    f.Email,
		Password: f.Password,
		FullName: f.FullName,
	})
	if err != nil {
		log.WithError(err).WithFields(f.ConvertToMap()).Warnf("%s: failed to register user", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *Auth) loginAction(c *gin.Context) {
	const op = "handlers.Auth.loginAction"
	log := h.log.WithField("operation", op)

	form, verr := authform.NewLoginForm().ParseAndValidate(c)
	if verr != nil {
		response.HandleError(verr, c)
		return
	}
	f := form.(*authform.LoginForm)

	session, err := h.auth.Login(c.Request.Context(), f.Username, f.Password, f.RememberMe)
	if errors.Is(err, auth.ErrUnauthorized) {
		log.WithField("username", f.Username).Info("login rejected")
		response.HandleError(response.NewInvalidCredentialsError(), c)
		return
	}
	if err != nil {
		log.WithError(err).Errorf("%s: failed to log in", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, session.Token, maxAge, "/", "", false, true)
	c.JSON(http.StatusOK, session)
}

func (h *Auth) logoutAction(c *gin.Context) {
	const op = "handlers.Auth.logoutAction"
	log := h.log.WithField("operation", op)

	if err := h.auth.Logout(c.Request.Context(), middleware.CurrentToken(c)); err != nil {
		log.WithError(err).Errorf("%s: failed to revoke session", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, messageResponse{Message: "Logged out"})
}

func (h *Auth) meAction(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}
