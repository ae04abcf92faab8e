package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
	"github.com/tgienger/teamboard/internal/notify"
	"github.com/tgienger/teamboard/internal/rest/middleware"
	"github.com/tgienger/teamboard/internal/rest/response"
)

// Notification serves the notification inbox
type Notification struct {
	log    *logrus.Logger
	db     *db.DB
	notify *notify.Service
	now    func() time.Time
}

// NewNotificationHandler creates a Notification handler
func NewNotificationHandler(database *db.DB, notifier *notify.Service, log *logrus.Logger) *Notification {
	return &Notification{
		log:    log,
		db:     database,
		notify: notifier,
		now:    time.Now,
	}
}

// EnrichRoutes registers the Notification routes
func (h *Notification) EnrichRoutes(router *gin.RouterGroup) {
	notificationRoutes := router.Group("/notifications")
	notificationRoutes.GET("", h.listNotificationsAction)
	notificationRoutes.GET("/unread-count", h.unreadCountAction)
	notificationRoutes.PUT("/read-all", h.markAllReadAction)
	notificationRoutes.PUT("/:notificationID/read", h.markReadAction)
	notificationRoutes.POST("/check-deadlines", middleware.RequireAdmin(), h.checkDeadlinesAction)
}

type unreadCountResponse struct {
	Count int `json:"count"`
}

type checkDeadlinesResponse struct {
	Message              string `json:"message"`
	NotificationsCreated int    `json:"notifications_created"`
}

func (h *Notification) listNotificationsAction(c *gin.Context) {
	const op = "handlers.Notification.listNotificationsAction"
	log := h.log.WithField("operation", op)

	notifications, err := h.db.ListNotifications(c.Request.Context(), middleware.CurrentUser(c).ID,
		queryBool(c, "unread_only", false), queryInt(c, "limit", 50), queryInt(c, "skip", 0))
	if err != nil {
		log.WithError(err).Errorf("%s: failed to list notifications", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	c.JSON(http.StatusOK, notifications)
}

func (h *Notification) unreadCountAction(c *gin.Context) {
	const op = "handlers.Notification.unreadCountAction"
	log := h.log.WithField("operation", op)

	count, err := h.db.UnreadCount(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		log.WithError(err).Errorf("%s: failed to count notifications", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, unreadCountResponse{Count: count})
}

func (h *Notification) markReadAction(c *gin.Context) {
	const op = "handlers.Notification.markReadAction"
	log := h.log.WithField("operation", op)

	notificationID, verr := paramID(c, "notificationID")
	if verr != nil {
		response.HandleError(verr, c)
		return
	}

	// notifications of other users read as missing
	err := h.db.MarkNotificationRead(c.Request.Context(), notificationID, middleware.CurrentUser(c).ID, h.now())
	if err != nil {
		log.WithError(err).WithField("notification_id", notificationID).Infof("%s: failed to mark notification", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Notification marked as read"})
}

func (h *Notification) markAllReadAction(c *gin.Context) {
	const op = "handlers.Notification.markAllReadAction"
	log := h.log.WithField("operation", op)

	n, err := h.db.MarkAllNotificationsRead(c.Request.Context(), middleware.CurrentUser(c).ID, h.now())
	if err != nil {
		log.WithError(err).Errorf("%s: failed to mark notifications", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	log.WithField("count", n).Debug("notifications marked read")
	c.JSON(http.StatusOK, messageResponse{Message: "All notifications marked as read"})
}

func (h *Notification) checkDeadlinesAction(c *gin.Context) {
	const op = "handlers.Notification.checkDeadlinesAction"
	log := h.log.WithField("operation", op)

	created, err := h.notify.DeadlineReminders(c.Request.Context(), h.db, h.now())
	if err != nil {
		log.WithError(err).Errorf("%s: deadline check failed", op)
		response.HandleError(response.ResolveError(err), c)
		return
	}

	c.JSON(http.StatusOK, checkDeadlinesResponse{
		Message:              "Checked tasks with a deadline today",
		NotificationsCreated: created,
	})
}
