package main

import (
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/tgienger/teamboard/internal/board"
	"github.com/tgienger/teamboard/internal/config"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/ui"
)

var boardUser string

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Open the terminal kanban board",
	Long: `Open an interactive kanban board in the terminal. Cards are moved with
the same rules as the API: only the project owner may move a card into Done.`,
	Args: cobra.NoArgs,
	RunE: runBoard,
}

func init() {
	rootCmd.AddCommand(boardCmd)
	boardCmd.Flags().StringVar(&boardUser, "as", "admin", "username to act as")
}

func runBoard(cmd *cobra.Command, args []string) error {
	user, err := database.GetUserByUsername(cmd.Context(), boardUser)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("no user named %q (run `teamboard seed` to create the admin)", boardUser)
	}
	if err != nil {
		return err
	}
	if !user.IsActive {
		return fmt.Errorf("user %q is deactivated", boardUser)
	}

	// log lines would tear the alt screen when logging to stdout
	if cfg.Env == config.EnvLocal || cfg.Log.Path == "" {
		log.SetOutput(io.Discard)
	}

	app := ui.NewApp(database, board.New(database, log), user)
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running board: %w", err)
	}
	return nil
}
