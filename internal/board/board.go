// Package board keeps task positions dense within each (project, status) column.
package board

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tgienger/teamboard/internal/db"
	"github.com/tgienger/teamboard/internal/models"
)

// ErrInvalidPosition is returned when a move targets a slot outside its column
var ErrInvalidPosition = errors.New("invalid target position")

// ErrInvalidStatus is returned for a status that is not a board column
var ErrInvalidStatus = errors.New("invalid status")

// MoveResult describes a completed move
type MoveResult struct {
	Task         *models.Task
	FromStatus   models.TaskStatus
	FromPosition int
	// Activity is the feed entry recorded for a status change, nil for a reorder
	Activity *models.Activity
}

// StatusChanged reports whether the move crossed columns
func (r *MoveResult) StatusChanged() bool {
	return r.FromStatus != r.Task.Status
}

// Board repositions tasks on a project's kanban board
type Board struct {
	db  *db.DB
	log *logrus.Logger
}

// New creates a Board backed by database
func New(database *db.DB, log *logrus.Logger) *Board {
	return &Board{db: database, log: log}
}

// Guard vets a move against the task and its project as read inside the
// move's transaction. A non-nil error aborts the move before anything is written.
type Guard func(task *models.Task, project *models.Project) error

// Move places a task at targetPosition of the targetStatus column, shifting the
// neighbours in the source and destination columns. The whole move is one
// transaction; on any error nothing is written.
func (b *Board) Move(ctx context.Context, taskID int64, targetStatus models.TaskStatus, targetPosition int, actor *models.User, guards ...Guard) (*MoveResult, error) {
	var result *MoveResult
	err := b.db.WithTx(ctx, func(tx *db.Tx) error {
		if err := runGuards(ctx, tx, taskID, guards); err != nil {
			return err
		}
		var err error
		result, err = MoveTx(ctx, tx, taskID, targetStatus, targetPosition, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	b.log.WithFields(logrus.Fields{
		"task_id":  taskID,
		"from":     fmt.Sprintf("%s:%d", result.FromStatus, result.FromPosition),
		"to":       fmt.Sprintf("%s:%d", result.Task.Status, result.Task.Position),
		"actor_id": actor.ID,
	}).Debug("task moved")
	return result, nil
}

func runGuards(ctx context.Context, tx *db.Tx, taskID int64, guards []Guard) error {
	if len(guards) == 0 {
		return nil
	}
	task, err := tx.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	project, err := tx.GetProject(ctx, task.ProjectID)
	if err != nil {
		return err
	}
	for _, guard := range guards {
		if err := guard(task, project); err != nil {
			return err
		}
	}
	return nil
}

// MoveTx performs Move inside a transaction owned by the caller
func MoveTx(ctx context.Context, tx *db.Tx, taskID int64, targetStatus models.TaskStatus, targetPosition int, actor *models.User) (*MoveResult, error) {
	if !targetStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, targetStatus)
	}

	// The project is unknown until the task is read, so the first read only
	// locates the task. The bucket versions are bumped before anything that
	// depends on ordering is read, and the task is re-read afterwards.
	located, err := tx.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := bump(ctx, tx, located.ProjectID, located.Status, targetStatus); err != nil {
		return nil, err
	}

	task, err := tx.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	fromStatus, fromPosition := task.Status, task.Position
	sameBucket := fromStatus == targetStatus

	count, err := tx.CountBucket(ctx, task.ProjectID, targetStatus)
	if err != nil {
		return nil, err
	}
	maxPosition := count
	if sameBucket {
		maxPosition = count - 1
	}
	if targetPosition < 0 || targetPosition > maxPosition {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidPosition, targetPosition, maxPosition)
	}

	switch {
	case sameBucket && targetPosition == fromPosition:
		// nothing to shift
	case sameBucket && targetPosition > fromPosition:
		err = tx.ShiftBucket(ctx, task.ProjectID, fromStatus, fromPosition+1, targetPosition, -1)
	case sameBucket:
		err = tx.ShiftBucket(ctx, task.ProjectID, fromStatus, targetPosition, fromPosition-1, +1)
	default:
		if err = tx.ShiftBucket(ctx, task.ProjectID, fromStatus, fromPosition+1, -1, -1); err == nil {
			err = tx.ShiftBucket(ctx, task.ProjectID, targetStatus, targetPosition, -1, +1)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to shift positions: %w", err)
	}

	if err := tx.SetTaskPlacement(ctx, task.ID, targetStatus, targetPosition); err != nil {
		return nil, fmt.Errorf("failed to place task: %w", err)
	}

	result := &MoveResult{FromStatus: fromStatus, FromPosition: fromPosition}
	if !sameBucket {
		result.Activity, err = recordStatusChange(ctx, tx, task, fromStatus, targetStatus, actor)
		if err != nil {
			return nil, err
		}
	}

	if result.Task, err = tx.GetTask(ctx, task.ID); err != nil {
		return nil, err
	}
	return result, nil
}

func recordStatusChange(ctx context.Context, tx *db.Tx, task *models.Task, from, to models.TaskStatus, actor *models.User) (*models.Activity, error) {
	activity := &models.Activity{
		ProjectID:    task.ProjectID,
		UserID:       actor.ID,
		ActivityType: models.ActivityTaskStatusChanged,
		EntityType:   "task",
		EntityID:     task.ID,
		Description: fmt.Sprintf("%s moved task '%s' from '%s' to '%s'",
			actor.DisplayName(), task.Title, from.Label(), to.Label()),
		Metadata: map[string]any{
			"task_id":    task.ID,
			"task_title": task.Title,
			"old_status": string(from),
			"new_status": string(to),
		},
	}
	if to == models.StatusDone {
		activity.ActivityType = models.ActivityTaskCompleted
		activity.Description = fmt.Sprintf("%s completed task '%s'", actor.DisplayName(), task.Title)
		activity.Metadata = map[string]any{"task_id": task.ID, "task_title": task.Title}
	}

	created, err := tx.CreateActivity(ctx, activity)
	if err != nil {
		return nil, fmt.Errorf("failed to record status change: %w", err)
	}
	return created, nil
}

// Append reserves the tail slot of a column for a new task and returns its position
func Append(ctx context.Context, tx *db.Tx, projectID int64, status models.TaskStatus) (int, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if _, err := tx.BumpBucket(ctx, projectID, status); err != nil {
		return 0, err
	}
	return tx.CountBucket(ctx, projectID, status)
}

// Remove closes the gap a task leaves in its column. Call it after the task row is deleted.
func Remove(ctx context.Context, tx *db.Tx, task *models.Task) error {
	if _, err := tx.BumpBucket(ctx, task.ProjectID, task.Status); err != nil {
		return err
	}
	return tx.ShiftBucket(ctx, task.ProjectID, task.Status, task.Position+1, -1, -1)
}

// Verify checks that every column of a project holds positions 0..n-1 exactly once
func (b *Board) Verify(ctx context.Context, projectID int64) error {
	for _, status := range models.Statuses {
		tasks, err := b.db.ListBucket(ctx, projectID, status)
		if err != nil {
			return err
		}
		for i, t := range tasks {
			if t.Position != i {
				return fmt.Errorf("column %s of project %d: task %d at position %d, want %d",
					status, projectID, t.ID, t.Position, i)
			}
		}
	}
	return nil
}

func bump(ctx context.Context, tx *db.Tx, projectID int64, statuses ...models.TaskStatus) error {
	seen := map[models.TaskStatus]bool{}
	for _, s := range statuses {
		if seen[s] {
			continue
		}
		seen[s] = true
		if _, err := tx.BumpBucket(ctx, projectID, s); err != nil {
			return fmt.Errorf("failed to lock column %s: %w", s, err)
		}
	}
	return nil
}
