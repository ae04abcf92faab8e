package main

import (
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tgienger/teamboard/internal/notify"
)

var deadlinesCmd = &cobra.Command{
	Use:   "check-deadlines",
	Short: "Notify assignees of tasks due today",
	Long: `Send a deadline reminder to every assignee of an unfinished task whose
deadline falls on the current day. Meant to be run once a day from cron.`,
	Args: cobra.NoArgs,
	RunE: runCheckDeadlines,
}

func init() {
	rootCmd.AddCommand(deadlinesCmd)
}

func runCheckDeadlines(cmd *cobra.Command, args []string) error {
	created, err := notify.New(log).DeadlineReminders(cmd.Context(), database, time.Now())
	if err != nil {
		return err
	}
	color.Green("✓ %d deadline reminder(s) sent", created)
	return nil
}
