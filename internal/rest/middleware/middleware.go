package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/rest/response"
)

const (
	// SessionCookie carries the token for browser pages
	SessionCookie = "session"

	userKey  = "user"
	tokenKey = "token"
)

// ExtractToken returns the bearer token from the Authorization header, falling
// back to the session cookie
func ExtractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// RequireUser rejects requests without a valid session and stores the user in the context
func RequireUser(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		user, err := svc.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.HandleError(response.ResolveError(err), c)
			return
		}
		setUser(c, user, token)
		c.Next()
	}
}

// RequirePageUser is RequireUser for HTML pages: visitors without a valid
// session are redirected to loginPath
func RequirePageUser(svc *auth.Service, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		user, err := svc.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		setUser(c, user, token)
		c.Next()
	}
}

func setUser(c *gin.Context, user *models.User, token string) {
	c.Set(userKey, user)
	c.Set(tokenKey, token)
}

// RequireAdmin rejects users without the admin role. It must run after RequireUser.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			response.HandleError(response.NewForbiddenError("admin role required"), c)
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil outside RequireUser
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// CurrentToken returns the token the request authenticated with
func CurrentToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}

// Logger logs every request through log
func Logger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		if user := CurrentUser(c); user != nil {
			entry = entry.WithField("user_id", user.ID)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Info("request rejected")
		default:
			entry.Debug("request served")
		}
	}
}
