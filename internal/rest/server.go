// Package rest serves the JSON API, the HTML pages and uploaded files.
package rest

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/auth"
	"github.com/tgienger/teamboard/internal/board"
	"github.com/tgienger/teamboard/internal/config"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/mention"
	"github.com/tgienger/teamboard/internal/notify"
	"github.com/tgienger/teamboard/internal/rest/handlers"
	"github.com/tgienger/teamboard/internal/rest/middleware"
	"github.com/tgienger/teamboard/internal/uploads"
)

//go:embed templates/*.html
var templates embed.FS

// Deps are the services the HTTP layer is built on
type Deps struct {
	DB       *db.DB
	Auth     *auth.Service
	Board    *board.Board
	Mentions *mention.Notifier
	Notify   *notify.Service
	Uploads  *uploads.Store
	Log      *logrus.Logger
}

// NewDeps builds every service from cfg on top of an open database
func NewDeps(cfg *config.Config, database *db.DB, log *logrus.Logger) Deps {
	return Deps{
		DB:       database,
		Auth:     auth.NewService(database, cfg.Auth, log),
		Board:    board.New(database, log),
		Mentions: mention.NewNotifier(log),
		Notify:   notify.New(log),
		Uploads:  uploads.New(cfg.Uploads.Dir, cfg.Uploads.MaxBytes),
		Log:      log,
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// NewRouter wires every route onto a fresh gin engine
func NewRouter(deps Deps) (*gin.Engine, error) {
	tmpl, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(middleware.Logger(deps.Log), gin.Recovery())
	router.SetHTMLTemplate(tmpl)
	router.Static(uploads.URLPrefix, deps.Uploads.Dir())

	api := router.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		if err := deps.DB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "degraded", Database: err.Error()})
			return
		}
		c.JSON(http.StatusOK, healthResponse{Status: "ok", Database: "ok"})
	})

	private := api.Group("", middleware.RequireUser(deps.Auth))

	handlers.NewAuthHandler(deps.Auth, deps.Log).EnrichRoutes(api, private)
	handlers.NewUserHandler(deps.DB, deps.Auth, deps.Uploads, deps.Log).EnrichRoutes(private)
	handlers.NewProjectHandler(deps.DB, deps.Log).EnrichRoutes(private)
	handlers.NewTeamHandler(deps.DB, deps.Log).EnrichRoutes(private)
	handlers.NewTaskHandler(deps.DB, deps.Board, deps.Notify, deps.Log).EnrichRoutes(private)
	handlers.NewSubtaskHandler(deps.DB, deps.Uploads, deps.Log).EnrichRoutes(private)
	handlers.NewThreadHandler(deps.DB, deps.Mentions, deps.Log).EnrichRoutes(private)
	handlers.NewCommentHandler(deps.DB, deps.Mentions, deps.Uploads, deps.Log).EnrichRoutes(private)
	handlers.NewActivityHandler(deps.DB, deps.Log).EnrichRoutes(private)
	handlers.NewWorkLogHandler(deps.DB, deps.Uploads, deps.Log).EnrichRoutes(private)
	handlers.NewNoteHandler(deps.DB, deps.Log).EnrichRoutes(private)
	handlers.NewTodoHandler(deps.DB, deps.Log).EnrichRoutes(private)
	handlers.NewNotificationHandler(deps.DB, deps.Notify, deps.Log).EnrichRoutes(private)
	handlers.NewPageHandler(deps.DB, deps.Auth, deps.Log).EnrichRoutes(router)

	return router, nil
}

// Server is the HTTP server
type Server struct {
	log        *logrus.Logger
	httpServer *http.Server
}

// NewServer builds the router and binds it to cfg.Addr
func NewServer(cfg config.HTTPConfig, deps Deps) (*Server, error) {
	router, err := NewRouter(deps)
	if err != nil {
		return nil, err
	}
	return &Server{
		log: deps.Log,
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}, nil
}

// Run serves until Shutdown is called
func (s *Server) Run() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
