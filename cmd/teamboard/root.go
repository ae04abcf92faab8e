package main

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tgienger/teamboard/internal/config"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/logger"
)

var (
	configPath string
	dbPath     string

	cfg       *config.Config
	log       *logrus.Logger
	logCloser io.Closer
	database  *db.DB
)

var rootCmd = &cobra.Command{
	Use:   "teamboard",
	Short: "Project boards, discussions and work logs for small teams",
	Long: `teamboard serves a JSON API and HTML pages for project management:
projects with kanban boards, task discussions with @mentions,
notifications, personal work logs, notes and to-dos.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file path (overrides config)")
}

// setup loads the config, then opens the logger and database for every command
// that needs them
func setup(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipSetup] == "true" {
		return nil
	}

	var err error
	if cfg, err = config.Load(configPath); err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if log, logCloser, err = logger.Setup(cfg.Env, cfg.Log.Path); err != nil {
		return err
	}
	if database, err = db.New(cfg.Database.Path); err != nil {
		return err
	}
	log.WithField("path", cfg.Database.Path).Debug("database opened")
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if database != nil {
		if err := database.Close(); err != nil {
			return err
		}
	}
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

// skipSetup marks commands that run without config, logger or database
const skipSetup = "skip-setup"
