// Package notify creates task notifications for assignees.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
)

// Service fans out task notifications
type Service struct {
	log *logrus.Logger
}

// New creates a Service logging through log
func New(log *logrus.Logger) *Service {
	return &Service{log: log}
}

// TaskAssigned notifies each of userIDs, except the actor, that the task was assigned to them
func (s *Service) TaskAssigned(ctx context.Context, tx *db.Tx, task *models.Task, project *models.Project, userIDs []int64, actor *models.User) int {
	message := fmt.Sprintf("%s assigned task '%s' to you in project '%s'", actor.DisplayName(), task.Title, project.Name)
	return s.fanOut(ctx, tx, userIDs, actor.ID, &models.Notification{
		Type:      models.NotificationTaskAssigned,
		Title:     "Task assigned to you",
		Message:   message,
		ProjectID: &project.ID,
		TaskID:    &task.ID,
	})
}

// TaskUpdated notifies the task's other assignees that actor changed it
func (s *Service) TaskUpdated(ctx context.Context, tx *db.Tx, task *models.Task, project *models.Project, actor *models.User, change string) int {
	message := fmt.Sprintf("%s %s in task '%s' of project '%s'", actor.DisplayName(), change, task.Title, project.Name)
	return s.fanOut(ctx, tx, task.AssigneeIDs(), actor.ID, &models.Notification{
		Type:      models.NotificationTaskUpdated,
		Title:     "Task updated",
		Message:   message,
		ProjectID: &project.ID,
		TaskID:    &task.ID,
	})
}

func (s *Service) fanOut(ctx context.Context, tx *db.Tx, userIDs []int64, actorID int64, tmpl *models.Notification) int {
	sent := 0
	for _, userID := range userIDs {
		if userID == actorID {
			continue
		}
		n := *tmpl
		n.UserID = userID
		err := tx.Savepoint(ctx, "task_notify", func() error {
			_, err := tx.CreateNotification(ctx, &n)
			return err
		})
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"recipient_id": userID,
				"type":         n.Type,
				"task_id":      *n.TaskID,
			}).Error("failed to create notification")
			continue
		}
		sent++
	}
	return sent
}

// DeadlineReminders notifies the assignees of every unfinished task due on the
// day of now. A user receives at most one reminder per task per day, so running
// it repeatedly is safe.
func (s *Service) DeadlineReminders(ctx context.Context, database *db.DB, now time.Time) (int, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	sent := 0
	err := database.WithTx(ctx, func(tx *db.Tx) error {
		tasks, err := tx.ListTasksDueBetween(ctx, dayStart, dayEnd)
		if err != nil {
			return err
		}

		projects := map[int64]*models.Project{}
		for i := range tasks {
			task := &tasks[i]
			project, ok := projects[task.ProjectID]
			if !ok {
				if project, err = tx.GetProject(ctx, task.ProjectID); err != nil {
					return err
				}
				projects[task.ProjectID] = project
			}

			for _, userID := range task.AssigneeIDs() {
				exists, err := tx.HasNotificationSince(ctx, userID, task.ID, models.NotificationDeadlineReminder, dayStart)
				if err != nil {
					return err
				}
				if exists {
					continue
				}
				_, err = tx.CreateNotification(ctx, &models.Notification{
					UserID:    userID,
					Type:      models.NotificationDeadlineReminder,
					Title:     "Task due today",
					Message:   fmt.Sprintf("Task '%s' in project '%s' is due today (%s)", task.Title, project.Name, task.DueDate.Format("02/01/2006")),
					ProjectID: &project.ID,
					TaskID:    &task.ID,
				})
				if err != nil {
					return fmt.Errorf("failed to create deadline reminder: %w", err)
				}
				sent++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.WithField("sent", sent).Info("deadline reminders checked")
	return sent, nil
}
