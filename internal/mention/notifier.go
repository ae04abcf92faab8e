package mention

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
)

// Event describes a message that was created or edited
type Event struct {
	Actor       *models.User
	ProjectID   int64
	ProjectName string
	// ThreadID is set for project discussion messages
	ThreadID int64
	// TaskID and TaskTitle are set for task comments
	TaskID    int64
	TaskTitle string
	Previous  Mentions
	Current   Mentions
}

// Notifier resolves mentions against the user directory and fans out
// "mentioned" notifications
type Notifier struct {
	log *logrus.Logger
}

// NewNotifier creates a Notifier logging through log
func NewNotifier(log *logrus.Logger) *Notifier {
	return &Notifier{log: log}
}

// Resolve loads the active users visible to tx and resolves content against them
func (n *Notifier) Resolve(ctx context.Context, tx *db.Tx, content string) (Mentions, error) {
	if len(Tokens(content)) == 0 {
		return nil, nil
	}
	users, err := tx.ListActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load mention candidates: %w", err)
	}

	ids, unmatched := Match(content, CandidatesFromUsers(users))
	for _, token := range unmatched {
		n.log.WithField("token", token).Debug("mention matched no active user")
	}
	return ids, nil
}

// Notify creates one notification per newly mentioned user. Each insert runs in
// its own savepoint: a failing recipient is logged and skipped while the rest of
// the transaction, including the message itself, is kept. It returns the ids
// that were notified.
func (n *Notifier) Notify(ctx context.Context, tx *db.Tx, ev Event) []int64 {
	recipients := NewlyMentioned(ev.Previous, ev.Current, ev.Actor.ID)
	if len(recipients) == 0 {
		return nil
	}

	title, message := n.describe(ev)
	var notified []int64
	for _, userID := range recipients {
		notification := &models.Notification{
			UserID:    userID,
			Type:      models.NotificationMentioned,
			Title:     title,
			Message:   message,
			ProjectID: &ev.ProjectID,
		}
		if ev.ThreadID != 0 {
			notification.ThreadID = &ev.ThreadID
		}
		if ev.TaskID != 0 {
			notification.TaskID = &ev.TaskID
		}

		err := tx.Savepoint(ctx, "mention_notify", func() error {
			_, err := tx.CreateNotification(ctx, notification)
			return err
		})
		if err != nil {
			n.log.WithError(err).WithFields(logrus.Fields{
				"recipient_id": userID,
				"project_id":   ev.ProjectID,
				"thread_id":    ev.ThreadID,
				"task_id":      ev.TaskID,
			}).Error("failed to create mention notification")
			continue
		}
		notified = append(notified, userID)
	}
	return notified
}

func (n *Notifier) describe(ev Event) (string, string) {
	name := ev.Actor.DisplayName()
	if ev.ThreadID == 0 && ev.TaskID != 0 {
		return "You were mentioned in a comment",
			fmt.Sprintf("%s mentioned you in a comment on task '%s' in project '%s'", name, ev.TaskTitle, ev.ProjectName)
	}
	return "You were mentioned in a thread",
		fmt.Sprintf("%s mentioned you in a thread of project '%s'", name, ev.ProjectName)
}
